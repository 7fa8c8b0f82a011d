// Package massive implements the client for the Massive stock-market API:
// aggregate (OHLCV) bars with cursor pagination, and reference ticker
// listings. Responses are normalized to domain types; upstream failures are
// classified into a small sentinel-error taxonomy so callers can tell
// retryable from terminal from benign-empty outcomes.
package massive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"barkeep/internal/domain"
	"barkeep/internal/metrics"
	"barkeep/internal/util"
)

// Outcome taxonomy for upstream failures.
var (
	// ErrAuth means the API key was rejected (HTTP 401). Never retried:
	// it signals misconfiguration, not transience.
	ErrAuth = errors.New("massive: authentication failed")

	// ErrRateLimited means HTTP 429. The client cools down and retries
	// within the normal attempt budget before surfacing this.
	ErrRateLimited = errors.New("massive: rate limited")

	// ErrNotFound means HTTP 404. Callers treat it as "no data".
	ErrNotFound = errors.New("massive: not found")

	// ErrTransient wraps transport-level failures (timeout, connection
	// refused). Retried with backoff before surfacing.
	ErrTransient = errors.New("massive: transient failure")

	// errSoft marks any other non-2xx status. Logged and mapped to an
	// empty result so one bad response never aborts a multi-symbol run.
	errSoft = errors.New("massive: soft failure")
)

// Options tunes the client. Zero values take the documented defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration // per-request; default 30s
	MaxRetries int           // attempt budget; default 3
	RetryDelay time.Duration // backoff base; default 1s, doubling, capped at 30s
	Cooldown   time.Duration // sleep on 429; default 60s
	PageLimit  int           // rows requested per page; default 1000
	MaxRows    int           // pagination safety cap; default 50000
	RatePerMin int           // token-bucket limit; 0 disables
}

// Client talks to the Massive aggregates and reference endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	retry      util.RetryPolicy
	cooldown   time.Duration
	pageLimit  int
	maxRows    int
	limiter    *util.RateLimiter
	log        *slog.Logger
}

// NewClient creates a Client authenticating with the given API key.
func NewClient(apiKey string, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.massive.com"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Cooldown == 0 {
		opts.Cooldown = time.Minute
	}
	if opts.PageLimit == 0 {
		opts.PageLimit = 1000
	}
	if opts.MaxRows == 0 {
		opts.MaxRows = 50000
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     apiKey,
		retry: util.RetryPolicy{
			MaxAttempts: opts.MaxRetries,
			BaseDelay:   opts.RetryDelay,
			MaxDelay:    30 * time.Second,
			Retryable: func(err error) bool {
				return errors.Is(err, ErrTransient) || errors.Is(err, ErrRateLimited)
			},
		},
		cooldown:  opts.Cooldown,
		pageLimit: opts.PageLimit,
		maxRows:   opts.MaxRows,
		limiter:   util.NewRateLimiter(opts.RatePerMin),
		log:       slog.Default().With("component", "massive"),
	}
}

// FetchBars returns ascending aggregate bars for symbol over [start, end],
// normalized to domain.Bar (epoch-ms converted to UTC time, symbol and
// interval stamped). It follows continuation cursors until the range is
// exhausted or the row cap is reached. A 404 or an empty result set yields
// (nil, nil): "no data for this range" is a normal outcome.
func (c *Client) FetchBars(ctx context.Context, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error) {
	symbol = strings.ToUpper(symbol)
	mult, span := interval.Span()

	pageURL := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/%d/%s/%s/%s?adjusted=true&sort=asc&limit=%d",
		c.baseURL, url.PathEscape(symbol), mult, span,
		start.Format("2006-01-02"), end.Format("2006-01-02"), c.pageLimit)

	var bars []domain.Bar
	for pageURL != "" {
		body, err := c.get(ctx, pageURL)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, errSoft) {
				return bars, nil
			}
			return nil, fmt.Errorf("fetching bars for %s: %w", symbol, err)
		}

		var page aggsResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decoding aggregates for %s: %w", symbol, err)
		}

		for _, r := range page.Results {
			bars = append(bars, domain.Bar{
				Symbol:    symbol,
				Interval:  interval,
				Timestamp: time.UnixMilli(r.T).UTC(),
				Open:      r.O,
				High:      r.H,
				Low:       r.L,
				Close:     r.C,
				Volume:    int64(r.V),
			})
		}

		if len(bars) >= c.maxRows {
			c.log.Warn("row cap reached, truncating pagination",
				"symbol", symbol, "rows", len(bars), "cap", c.maxRows)
			bars = bars[:c.maxRows]
			break
		}
		pageURL = page.NextURL
	}

	return bars, nil
}

// FetchReference returns ticker descriptors for the given market filter,
// following continuation cursors. Failure handling matches FetchBars.
func (c *Client) FetchReference(ctx context.Context, market string, active bool) ([]domain.TickerDescriptor, error) {
	if market == "" {
		market = "stocks"
	}
	pageURL := fmt.Sprintf("%s/v3/reference/tickers?market=%s&active=%t&order=asc&sort=ticker&limit=%d",
		c.baseURL, url.QueryEscape(market), active, c.pageLimit)

	var tickers []domain.TickerDescriptor
	for pageURL != "" {
		body, err := c.get(ctx, pageURL)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, errSoft) {
				return tickers, nil
			}
			return nil, fmt.Errorf("fetching reference tickers: %w", err)
		}

		var page referenceResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decoding reference tickers: %w", err)
		}

		tickers = append(tickers, page.Results...)
		if len(tickers) >= c.maxRows {
			break
		}
		pageURL = page.NextURL
	}

	return tickers, nil
}

// get performs one GET with the retry policy applied: transient transport
// errors back off exponentially, 429 cools down for the fixed interval and
// re-attempts within the same budget, 401 aborts immediately.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	err := c.retry.Do(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var attemptErr error
		body, attemptErr = c.getOnce(ctx, rawURL)
		return attemptErr
	})
	return body, err
}

// getOnce performs a single request and classifies the response.
func (c *Client) getOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.VendorRequests.WithLabelValues("transient").Inc()
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.VendorRequests.WithLabelValues("transient").Inc()
		return nil, fmt.Errorf("%w: reading body: %v", ErrTransient, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		metrics.VendorRequests.WithLabelValues("ok").Inc()
		return body, nil

	case resp.StatusCode == http.StatusUnauthorized:
		metrics.VendorRequests.WithLabelValues("auth").Inc()
		return nil, fmt.Errorf("%w (status 401)", ErrAuth)

	case resp.StatusCode == http.StatusNotFound:
		metrics.VendorRequests.WithLabelValues("not_found").Inc()
		return nil, ErrNotFound

	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.VendorRequests.WithLabelValues("rate_limited").Inc()
		c.log.Warn("rate limited, cooling down", "cooldown", c.cooldown)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cooldown):
		}
		return nil, ErrRateLimited

	default:
		metrics.VendorRequests.WithLabelValues("soft").Inc()
		c.log.Warn("unexpected upstream status, treating as empty",
			"status", resp.StatusCode, "body", truncate(string(body), 200))
		return nil, errSoft
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
