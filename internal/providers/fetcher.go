package providers

import (
	"context"
	"fmt"

	"github.com/sammcj/goose/internal/domain/apps"
	"github.com/sammcj/goose/internal/providers/bundled"
	"github.com/sammcj/goose/internal/providers/mcpext"
	"github.com/sammcj/goose/internal/shared/types"
)

// ChainFetcher resolves UI resources bundled-first, then from a directly-
// connected extension owning the name, falling back to the agent backend.
// Bundled extensions win so a broken backend cannot shadow content shipped
// with the host.
type ChainFetcher struct {
	bundled    *bundled.Provider
	extensions *mcpext.Registry
	fallback   apps.Fetcher
}

// NewChainFetcher composes the fetch chain. Any link may be nil.
func NewChainFetcher(bundledProvider *bundled.Provider, extensions *mcpext.Registry, fallback apps.Fetcher) *ChainFetcher {
	return &ChainFetcher{bundled: bundledProvider, extensions: extensions, fallback: fallback}
}

// FetchResource implements the loader's fetcher.
func (f *ChainFetcher) FetchResource(ctx context.Context, extensionName, uri string) ([]byte, *types.ResourceMeta, error) {
	if f.bundled != nil && f.bundled.Has(extensionName, uri) {
		return f.bundled.FetchResource(ctx, extensionName, uri)
	}
	if ext, ok := f.extensions.Lookup(extensionName); ok {
		return ext.FetchResource(ctx, extensionName, uri)
	}
	if f.fallback != nil {
		return f.fallback.FetchResource(ctx, extensionName, uri)
	}
	return nil, nil, fmt.Errorf("no provider can serve %s for extension %q", uri, extensionName)
}
