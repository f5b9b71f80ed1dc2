package apps

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sammcj/goose/internal/shared/types"
)

// scriptFetcher plays back a fixed sequence of outcomes.
type scriptFetcher struct {
	mu      sync.Mutex
	outcome []error // nil entries succeed
	html    string
	meta    *types.ResourceMeta
	calls   int
}

func (f *scriptFetcher) FetchResource(_ context.Context, _, _ string) ([]byte, *types.ResourceMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := f.calls
	f.calls++
	if idx < len(f.outcome) && f.outcome[idx] != nil {
		return nil, nil, f.outcome[idx]
	}
	return []byte(f.html), f.meta, nil
}

func (f *scriptFetcher) setHTML(html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.html = html
}

func (f *scriptFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func instantLoader(f Fetcher, retries int) *Loader {
	l := NewLoader(f, LoaderConfig{Retries: retries, Backoff: time.Millisecond}, nil)
	l.sleep = func(context.Context, time.Duration) error { return nil }
	return l
}

func TestLoadRecoversFromTransientFailures(t *testing.T) {
	boom := errors.New("connection refused")
	f := &scriptFetcher{outcome: []error{boom, boom, nil}, html: "<html><body>ok</body></html>"}

	html, _, err := instantLoader(f, 5).Load(context.Background(), LoadRequest{URI: "ui://docs/viewer"})
	require.NoError(t, err)
	assert.Contains(t, html, "ok")
	assert.Equal(t, 3, f.count())
}

func TestLoadGivesUpAfterRetryBudget(t *testing.T) {
	boom := errors.New("connection refused")
	f := &scriptFetcher{outcome: []error{boom, boom, boom, boom, boom, boom, boom}}

	_, _, err := instantLoader(f, 5).Load(context.Background(), LoadRequest{URI: "ui://docs/viewer"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 6 attempts")
	assert.Equal(t, 6, f.count())
}

func TestSeedSuppressesRetries(t *testing.T) {
	f := &scriptFetcher{outcome: []error{errors.New("down")}}

	_, _, err := instantLoader(f, 5).Load(context.Background(), LoadRequest{URI: "ui://docs/viewer", HasSeed: true})
	require.Error(t, err)
	assert.Equal(t, 1, f.count(), "seeded loads take a single attempt")
}

func TestLoadExtractsEmbeddedMeta(t *testing.T) {
	f := &scriptFetcher{html: `<html><head>
		<meta name="goose-app-connect-domains" content="api.example.com">
	</head><body></body></html>`}

	_, meta, err := instantLoader(f, 0).Load(context.Background(), LoadRequest{URI: "ui://docs/viewer"})
	require.NoError(t, err)
	require.NotNil(t, meta)
	require.NotNil(t, meta.CSP)
	assert.Equal(t, []string{"api.example.com"}, meta.CSP.ConnectDomains)
}

func TestLoadPrefersOutOfBandMeta(t *testing.T) {
	f := &scriptFetcher{
		html: `<html><head><meta name="goose-app-connect-domains" content="embedded.example.com"></head></html>`,
		meta: &types.ResourceMeta{CSP: &types.CSPDomains{ConnectDomains: []string{"oob.example.com"}}},
	}

	_, meta, err := instantLoader(f, 0).Load(context.Background(), LoadRequest{URI: "ui://docs/viewer"})
	require.NoError(t, err)
	assert.Equal(t, []string{"oob.example.com"}, meta.CSP.ConnectDomains)
}

func TestLoadHonorsCancellation(t *testing.T) {
	f := &scriptFetcher{outcome: []error{errors.New("down")}}
	l := NewLoader(f, LoaderConfig{Retries: 5, Backoff: time.Minute}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := l.Load(ctx, LoadRequest{URI: "ui://docs/viewer"})
	assert.ErrorIs(t, err, context.Canceled)
}
