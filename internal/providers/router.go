package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/sammcj/goose/internal/domain/session"
	"github.com/sammcj/goose/internal/providers/mcpext"
	"github.com/sammcj/goose/internal/shared/id"
	"github.com/sammcj/goose/internal/shared/types"
)

// ToolRouter sends a tool call to the directly-connected extension owning
// it, falling back to the agent backend. Tool names arrive already
// extension-prefixed ("docs__search").
type ToolRouter struct {
	extensions *mcpext.Registry
	fallback   session.ToolCaller
}

// NewToolRouter composes the tool chain. Either side may be nil.
func NewToolRouter(extensions *mcpext.Registry, fallback session.ToolCaller) *ToolRouter {
	return &ToolRouter{extensions: extensions, fallback: fallback}
}

// CallTool implements the session tool collaborator.
func (r *ToolRouter) CallTool(ctx context.Context, sessionID id.SessionID, name string, args map[string]interface{}) (*types.ToolResult, error) {
	if extension, tool, ok := strings.Cut(name, "__"); ok {
		if ext, found := r.extensions.Lookup(extension); found {
			return ext.CallTool(ctx, sessionID, tool, args)
		}
	}
	if r.fallback != nil {
		return r.fallback.CallTool(ctx, sessionID, name, args)
	}
	return nil, fmt.Errorf("no backend can serve tool %q", name)
}
