package mcpext

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sammcj/goose/internal/infrastructure/logging"
	"github.com/sammcj/goose/internal/shared/id"
	"github.com/sammcj/goose/internal/shared/types"
)

// Server is the connected surface of one extension, keyed by its name in the
// registry. Implemented by Extension; tests register fakes.
type Server interface {
	Name() string
	CallTool(ctx context.Context, sessionID id.SessionID, name string, args map[string]interface{}) (*types.ToolResult, error)
	ReadResource(ctx context.Context, sessionID id.SessionID, uri string) ([]types.ResourceContents, error)
	FetchResource(ctx context.Context, extensionName, uri string) ([]byte, *types.ResourceMeta, error)
	Close() error
}

// Spec names one extension server process to spawn at startup.
type Spec struct {
	Name    string
	Command string
	Args    []string
}

// ParseSpecs parses the configured extension list: semicolon-separated
// "name=command arg ..." entries. Malformed entries are dropped.
func ParseSpecs(raw string) []Spec {
	var specs []Spec
	for _, entry := range strings.Split(raw, ";") {
		name, rest, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		fields := strings.Fields(rest)
		if name == "" || len(fields) == 0 {
			continue
		}
		specs = append(specs, Spec{Name: name, Command: fields[0], Args: fields[1:]})
	}
	return specs
}

// Registry holds the directly-connected extension servers, keyed by name.
type Registry struct {
	logger *logging.Logger

	mu   sync.RWMutex
	exts map[string]Server
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		logger: logger.Named("mcpext"),
		exts:   make(map[string]Server),
	}
}

// Spawn starts every configured extension. A server that fails to come up is
// logged and skipped; the rest of the host still serves.
func (r *Registry) Spawn(ctx context.Context, specs []Spec) {
	for _, spec := range specs {
		ext, err := Spawn(ctx, spec.Name, spec.Command, spec.Args, r.logger)
		if err != nil {
			r.logger.Warn("extension failed to start",
				zap.String("extension", spec.Name), zap.Error(err))
			continue
		}
		r.Add(ext)
	}
}

// Add registers a connected server, replacing any previous one of the same
// name.
func (r *Registry) Add(s Server) {
	r.mu.Lock()
	old := r.exts[s.Name()]
	r.exts[s.Name()] = s
	r.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
}

// Lookup returns the server owning an extension name. Safe on a nil registry.
func (r *Registry) Lookup(name string) (Server, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.exts[name]
	return s, ok
}

// Names returns the registered extension names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.exts))
	for name := range r.exts {
		out = append(out, name)
	}
	return out
}

// Close shuts every extension down. The last error wins; shutdown keeps
// going regardless.
func (r *Registry) Close() error {
	r.mu.Lock()
	exts := r.exts
	r.exts = make(map[string]Server)
	r.mu.Unlock()

	var last error
	for _, s := range exts {
		if err := s.Close(); err != nil {
			last = err
		}
	}
	return last
}
