package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgch "SignalForge/pkg/clickhouse"
)

// CHOutcomeLog implements OutcomeLog backed by ClickHouse. Suited for
// deployments that already run ClickHouse for analytics and want publish
// outcomes queryable alongside the rest of the market data.
type CHOutcomeLog struct {
	db    *sql.DB
	table string
}

func NewCHOutcomeLog(ch *pkgch.Client, table string) *CHOutcomeLog {
	return &CHOutcomeLog{db: ch.DB(), table: table}
}

// InitSchema creates the outcomes table when missing.
func (s *CHOutcomeLog) InitSchema(ctx context.Context) error {
	q := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            id           String,
            symbol       LowCardinality(String),
            pattern      LowCardinality(String),
            direction    LowCardinality(String),
            tier         LowCardinality(String),
            entry_price  Float64,
            stop_loss    Float64,
            take_profit  Float64,
            final_score  Float64,
            session      LowCardinality(String),
            published_at DateTime64(3, 'UTC')
        ) ENGINE = MergeTree()
        ORDER BY (symbol, published_at)
    `, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("init outcomes schema: %w", err)
	}
	return nil
}

func (s *CHOutcomeLog) Append(ctx context.Context, sig *models.PublishedSignal) error {
	q := fmt.Sprintf(`INSERT INTO %s
        (id, symbol, pattern, direction, tier, entry_price, stop_loss, take_profit, final_score, session, published_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err := s.db.ExecContext(ctx, q,
		sig.ID,
		sig.Symbol,
		sig.Pattern,
		string(sig.Direction),
		string(sig.Tier),
		sig.EntryPrice,
		sig.StopLoss,
		sig.TakeProfit,
		sig.FinalScore,
		sig.Session,
		sig.PublishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append outcome: %w", err)
	}
	return nil
}

func (s *CHOutcomeLog) LastPublishedAt(ctx context.Context) (time.Time, error) {
	q := fmt.Sprintf("SELECT max(published_at) FROM %s", s.table)
	var ts sql.NullTime
	if err := s.db.QueryRowContext(ctx, q).Scan(&ts); err != nil {
		return time.Time{}, fmt.Errorf("read last publish: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return ts.Time, nil
}

// Recent returns up to n most recent outcomes, newest last.
func (s *CHOutcomeLog) Recent(ctx context.Context, n int) ([]models.PublishedSignal, error) {
	if n <= 0 {
		n = 10
	}
	q := fmt.Sprintf(`SELECT id, symbol, pattern, direction, tier, entry_price,
        stop_loss, take_profit, final_score, session, published_at
        FROM %s ORDER BY published_at DESC LIMIT %d`, s.table, n)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("read outcomes: %w", err)
	}
	defer rows.Close()

	out := make([]models.PublishedSignal, 0, n)
	for rows.Next() {
		var sig models.PublishedSignal
		var direction, tier string
		if err := rows.Scan(&sig.ID, &sig.Symbol, &sig.Pattern, &direction, &tier,
			&sig.EntryPrice, &sig.StopLoss, &sig.TakeProfit, &sig.FinalScore,
			&sig.Session, &sig.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		sig.Direction = models.Direction(direction)
		sig.Tier = models.Tier(tier)
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read outcomes: %w", err)
	}
	// the query is newest first; flip to match the log's append order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *CHOutcomeLog) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHOutcomeLog) Close() error {
	return s.db.Close()
}

var _ domrepo.OutcomeLog = (*CHOutcomeLog)(nil)
