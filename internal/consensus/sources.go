package consensus

import (
	"context"
	"fmt"
	"time"

	domrepo "SignalForge/internal/domain/repository"
	xhttp "SignalForge/pkg/http"
)

// HTTPQuoteSource queries one independent price source over HTTP. The
// endpoint is expected to answer GET {base}/quote?symbol=X with
// {"bid": .., "ask": ..}.
type HTTPQuoteSource struct {
	name    string
	baseURL string
	client  *xhttp.Client
}

// NewHTTPQuoteSource builds a quote source with its own timeout budget so a
// slow source cannot exhaust the fan-out window on its own.
func NewHTTPQuoteSource(name, baseURL string, timeout time.Duration) *HTTPQuoteSource {
	return &HTTPQuoteSource{
		name:    name,
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (s *HTTPQuoteSource) Name() string { return s.name }

// Quote fetches the source's current bid/ask. Malformed responses are
// surfaced as errors and counted against the source, never against the scan.
func (s *HTTPQuoteSource) Quote(ctx context.Context, symbol string) (float64, float64, error) {
	var resp struct {
		Bid float64 `json:"bid"`
		Ask float64 `json:"ask"`
	}
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         s.baseURL + "/quote",
		QueryParams: map[string][]string{"symbol": {symbol}},
	}, &resp)
	if err != nil {
		return 0, 0, fmt.Errorf("quote %s: %w", s.name, err)
	}
	if resp.Bid <= 0 || resp.Ask < resp.Bid {
		return 0, 0, fmt.Errorf("quote %s: malformed bid/ask %v/%v", s.name, resp.Bid, resp.Ask)
	}
	return resp.Bid, resp.Ask, nil
}

var _ domrepo.QuoteSource = (*HTTPQuoteSource)(nil)
