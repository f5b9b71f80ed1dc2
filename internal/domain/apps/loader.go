package apps

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sammcj/goose/internal/infrastructure/logging"
	"github.com/sammcj/goose/internal/infrastructure/monitoring"
	"github.com/sammcj/goose/internal/shared/types"
)

// Fetcher acquires raw guest content for a resource identifier. Implemented
// by the extension adapters; the loader owns retry, decoding, and metadata
// fallback on top of it.
type Fetcher interface {
	FetchResource(ctx context.Context, extensionName, uri string) ([]byte, *types.ResourceMeta, error)
}

// LoaderConfig bounds the retry policy.
type LoaderConfig struct {
	// Retries is the number of re-attempts after the first failure.
	Retries int
	// Backoff is the base inter-attempt delay; it doubles per attempt.
	Backoff time.Duration
}

// DefaultLoaderConfig mirrors the host defaults.
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{Retries: 5, Backoff: 250 * time.Millisecond}
}

// LoadRequest identifies one fetch.
type LoadRequest struct {
	ExtensionName string
	URI           string
	// HasSeed suppresses retries: when stale content is already available,
	// latency beats freshness.
	HasSeed bool
}

// Loader fetches guest content with sequential bounded-backoff retries.
type Loader struct {
	fetcher Fetcher
	cfg     LoaderConfig
	logger  *logging.Logger
	metrics *monitoring.Metrics

	// sleep is replaceable in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLoader creates a loader over a fetcher.
func NewLoader(fetcher Fetcher, cfg LoaderConfig, logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Loader{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger,
		sleep:   sleepCtx,
	}
}

// WithMetrics adds metrics tracking to the loader.
func (l *Loader) WithMetrics(metrics *monitoring.Metrics) *Loader {
	l.metrics = metrics
	return l
}

// Load fetches, decodes, and annotates guest content. Attempts are strictly
// sequential; the delay before retry n is Backoff << n. Context cancellation
// aborts between attempts and during delays.
func (l *Loader) Load(ctx context.Context, req LoadRequest) (string, *types.ResourceMeta, error) {
	retries := l.cfg.Retries
	if req.HasSeed {
		retries = 0
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		start := time.Now()
		raw, meta, err := l.fetcher.FetchResource(ctx, req.ExtensionName, req.URI)
		if err == nil {
			html, decErr := DecodeHTML(raw)
			if decErr != nil {
				err = decErr
			} else {
				if meta == nil {
					meta = ExtractMeta(html)
				}
				l.record("success", start)
				return html, meta, nil
			}
		}

		lastErr = err
		l.logger.Warn("resource fetch attempt failed",
			zap.String("uri", req.URI),
			zap.String("extension", req.ExtensionName),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		if attempt >= retries {
			l.record("error", start)
			return "", nil, fmt.Errorf("resource fetch failed after %d attempts: %w", attempt+1, lastErr)
		}
		l.record("retry", start)

		delay := l.cfg.Backoff << attempt
		if err := l.sleep(ctx, delay); err != nil {
			return "", nil, err
		}
	}
}

func (l *Loader) record(status string, start time.Time) {
	if l.metrics != nil {
		l.metrics.RecordResourceFetch(status, time.Since(start))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
