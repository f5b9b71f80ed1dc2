package apps

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sammcj/goose/internal/shared/types"
)

// ErrProxyConfig marks a terminal, non-retryable local misconfiguration:
// retrying cannot fix a missing proxy base or secret.
var ErrProxyConfig = errors.New("sandbox proxy misconfigured")

// ProxyRoute is the path serving the outer sandbox document.
const ProxyRoute = "/mcp-app-proxy"

// Resolver derives the sandbox proxy URL for an instance. Resolution is pure
// and cheap; the once-only guarantee is enforced by the instance cache, since
// recomputing the URL would recreate the guest's execution context.
type Resolver struct {
	base   string
	secret string
}

// NewResolver creates a resolver. base is the proxy origin, e.g.
// "http://127.0.0.1:8000".
func NewResolver(base, secret string) *Resolver {
	return &Resolver{base: strings.TrimRight(base, "/"), secret: secret}
}

// Resolve builds the proxy URL and the outer CSP for the given metadata.
func (r *Resolver) Resolve(meta *types.ResourceMeta) (sandboxURL, sandboxCSP string, err error) {
	if r.base == "" {
		return "", "", fmt.Errorf("%w: missing proxy base address", ErrProxyConfig)
	}
	if r.secret == "" {
		return "", "", fmt.Errorf("%w: missing proxy secret", ErrProxyConfig)
	}

	var csp *types.CSPDomains
	if meta != nil {
		csp = meta.CSP
	}

	params := url.Values{}
	params.Set("secret", r.secret)
	if csp != nil {
		setDomains(params, "connect_domains", csp.ConnectDomains)
		setDomains(params, "resource_domains", csp.ResourceDomains)
		setDomains(params, "frame_domains", csp.FrameDomains)
		setDomains(params, "base_uri_domains", csp.BaseURIDomains)
		setDomains(params, "script_domains", csp.ScriptDomains)
	}

	return r.base + ProxyRoute + "?" + params.Encode(), csp.OuterPolicy(), nil
}

func setDomains(params url.Values, key string, domains []string) {
	if len(domains) == 0 {
		return
	}
	params.Set(key, types.JoinDomainList(domains))
}
