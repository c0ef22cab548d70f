package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	applogger "SignalForge/pkg/logger"
)

// outcomeLogMax bounds the Redis list so the log cannot grow without limit.
const outcomeLogMax = 1000

// RedisOutcomeLog implements OutcomeLog backed by a Redis list plus a
// last-publish marker key. Append is O(1) and LastPublishedAt is a single GET,
// which keeps the threshold controller's poll cheap.
type RedisOutcomeLog struct {
	client *redis.Client
	key    string
	l      *applogger.Logger
}

func NewRedisOutcomeLog(client *redis.Client, key string, lgr *applogger.Logger) *RedisOutcomeLog {
	return &RedisOutcomeLog{client: client, key: key, l: lgr}
}

func (r *RedisOutcomeLog) lastKey() string { return r.key + ":last" }

func (r *RedisOutcomeLog) Append(ctx context.Context, s *models.PublishedSignal) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, r.key, b)
	pipe.LTrim(ctx, r.key, -outcomeLogMax, -1)
	pipe.Set(ctx, r.lastKey(), s.PublishedAt.UTC().Format(time.RFC3339Nano), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append outcome: %w", err)
	}
	return nil
}

// LastPublishedAt returns the timestamp of the most recent publish, or the
// zero time when nothing has ever been published.
func (r *RedisOutcomeLog) LastPublishedAt(ctx context.Context) (time.Time, error) {
	v, err := r.client.Get(ctx, r.lastKey()).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read last publish marker: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last publish marker: %w", err)
	}
	return ts, nil
}

// Recent returns up to n most recent outcomes, newest last.
func (r *RedisOutcomeLog) Recent(ctx context.Context, n int) ([]models.PublishedSignal, error) {
	if n <= 0 {
		n = 10
	}
	raw, err := r.client.LRange(ctx, r.key, int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read outcomes: %w", err)
	}
	out := make([]models.PublishedSignal, 0, len(raw))
	for _, item := range raw {
		var s models.PublishedSignal
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			if r.l != nil {
				r.l.Warn("skipping malformed outcome entry", applogger.Error(err))
			}
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *RedisOutcomeLog) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisOutcomeLog) Close() error {
	return r.client.Close()
}

var _ domrepo.OutcomeLog = (*RedisOutcomeLog)(nil)
