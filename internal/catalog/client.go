package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"incidentdesk/internal/metrics"
)

// ErrTimeout marks a transient search failure worth retrying.
var ErrTimeout = errors.New("catalog search timed out")

type Target string

const (
	TargetModel        Target = "model"
	TargetManufacturer Target = "manufacturer"
)

// Hit is the best-ranked catalog document for a query.
type Hit struct {
	ModelName    string
	Manufacturer string
	FormFactor   string
	AndroidSDK   bool
}

type Result struct {
	Hit        *Hit
	Suggestion string
}

// Searcher runs one ranked search plus phrase suggestion against the catalog.
type Searcher interface {
	Search(ctx context.Context, query string, target Target) (Result, error)
}

// Looker is what validators depend on.
type Looker interface {
	Lookup(ctx context.Context, query string, target Target) (Result, error)
}

const (
	defaultAttempts  = 3
	defaultRetryUnit = time.Second
)

type Client struct {
	searcher  Searcher
	attempts  int
	retryUnit time.Duration
	logger    *slog.Logger
}

type Config struct {
	Attempts  int
	RetryUnit time.Duration
}

func NewClient(searcher Searcher, cfg Config, logger *slog.Logger) *Client {
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultAttempts
	}
	if cfg.RetryUnit < 0 {
		cfg.RetryUnit = defaultRetryUnit
	}
	return &Client{
		searcher:  searcher,
		attempts:  cfg.Attempts,
		retryUnit: cfg.RetryUnit,
		logger:    logger,
	}
}

// Lookup searches the catalog, retrying timeouts with a linearly growing
// delay. Once the attempts are used up it returns an empty Result and a nil
// error: an unavailable catalog reads the same as a miss. Other errors are
// returned as is.
func (c *Client) Lookup(ctx context.Context, query string, target Target) (Result, error) {
	for attempt := 0; attempt < c.attempts; attempt++ {
		res, err := c.searcher.Search(ctx, query, target)
		if err == nil {
			if res.Hit != nil {
				metrics.RecordLookup(string(target), "hit")
			} else {
				metrics.RecordLookup(string(target), "miss")
			}
			return res, nil
		}
		if !errors.Is(err, ErrTimeout) {
			metrics.RecordLookup(string(target), "error")
			return Result{}, err
		}

		metrics.RecordLookupTimeout(string(target))
		if attempt+1 == c.attempts {
			c.logger.Error("catalog search timed out, giving up", "target", target, "attempts", c.attempts, "error", err)
			break
		}
		interval := time.Duration(attempt) * c.retryUnit
		c.logger.Warn("catalog search timed out, retrying", "target", target, "attempt", attempt+1, "retry_in", interval, "error", err)

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(interval):
		}
	}

	metrics.RecordLookup(string(target), "unavailable")
	return Result{}, nil
}
