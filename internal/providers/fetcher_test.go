package providers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sammcj/goose/internal/providers/bundled"
	"github.com/sammcj/goose/internal/providers/mcpext"
	"github.com/sammcj/goose/internal/shared/id"
	"github.com/sammcj/goose/internal/shared/types"
)

type recordingFetcher struct {
	calls int
	html  string
	err   error
}

func (f *recordingFetcher) FetchResource(_ context.Context, _, _ string) ([]byte, *types.ResourceMeta, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}
	return []byte(f.html), nil, nil
}

func testBundled(t *testing.T) *bundled.Provider {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "extensions.yaml"),
		[]byte("extensions:\n  - name: docs\n    dir: docs\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "viewer.html"),
		[]byte("<html>bundled</html>"), 0o644))

	p, err := bundled.NewProvider(root, nil)
	require.NoError(t, err)
	return p
}

func TestBundledWinsOverFallback(t *testing.T) {
	fallback := &recordingFetcher{html: "<html>remote</html>"}
	chain := NewChainFetcher(testBundled(t), nil, fallback)

	raw, _, err := chain.FetchResource(context.Background(), "docs", "ui://docs/viewer")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "bundled")
	assert.Zero(t, fallback.calls)
}

func TestFallbackServesUnbundledResources(t *testing.T) {
	fallback := &recordingFetcher{html: "<html>remote</html>"}
	chain := NewChainFetcher(testBundled(t), nil, fallback)

	raw, _, err := chain.FetchResource(context.Background(), "weather", "ui://weather/today")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "remote")
	assert.Equal(t, 1, fallback.calls)
}

func TestNoProviderIsAnError(t *testing.T) {
	chain := NewChainFetcher(nil, nil, nil)
	_, _, err := chain.FetchResource(context.Background(), "docs", "ui://docs/viewer")
	assert.Error(t, err)

	failing := &recordingFetcher{err: errors.New("backend down")}
	chain = NewChainFetcher(nil, nil, failing)
	_, _, err = chain.FetchResource(context.Background(), "docs", "ui://docs/viewer")
	assert.ErrorContains(t, err, "backend down")
}

// fakeExtension is an in-process stand-in for a connected extension server.
type fakeExtension struct {
	name      string
	html      string
	toolCalls []string
	closed    bool
}

func (f *fakeExtension) Name() string { return f.name }

func (f *fakeExtension) CallTool(_ context.Context, _ id.SessionID, name string, _ map[string]interface{}) (*types.ToolResult, error) {
	f.toolCalls = append(f.toolCalls, name)
	return &types.ToolResult{Content: []types.ContentBlock{types.TextBlock("from " + f.name)}}, nil
}

func (f *fakeExtension) ReadResource(context.Context, id.SessionID, string) ([]types.ResourceContents, error) {
	return []types.ResourceContents{{Text: f.html}}, nil
}

func (f *fakeExtension) FetchResource(context.Context, string, string) ([]byte, *types.ResourceMeta, error) {
	return []byte(f.html), nil, nil
}

func (f *fakeExtension) Close() error {
	f.closed = true
	return nil
}

func testExtensions(exts ...mcpext.Server) *mcpext.Registry {
	r := mcpext.NewRegistry(nil)
	for _, e := range exts {
		r.Add(e)
	}
	return r
}

func TestExtensionServesItsOwnResources(t *testing.T) {
	fallback := &recordingFetcher{html: "<html>remote</html>"}
	ext := &fakeExtension{name: "maps", html: "<html>direct</html>"}
	chain := NewChainFetcher(nil, testExtensions(ext), fallback)

	raw, _, err := chain.FetchResource(context.Background(), "maps", "ui://maps/view")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "direct")
	assert.Zero(t, fallback.calls)

	_, _, err = chain.FetchResource(context.Background(), "weather", "ui://weather/today")
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.calls, "unowned extensions still reach the agent")
}

func TestBundledWinsOverExtension(t *testing.T) {
	ext := &fakeExtension{name: "docs", html: "<html>direct</html>"}
	chain := NewChainFetcher(testBundled(t), testExtensions(ext), nil)

	raw, _, err := chain.FetchResource(context.Background(), "docs", "ui://docs/viewer")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "bundled")
}
