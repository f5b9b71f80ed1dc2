package bridge

import (
	"sync"
	"time"

	"github.com/sammcj/goose/internal/domain/apps"
	"github.com/sammcj/goose/internal/domain/session"
	"github.com/sammcj/goose/internal/infrastructure/logging"
	"github.com/sammcj/goose/internal/infrastructure/monitoring"
	"github.com/sammcj/goose/internal/shared/id"
)

// Shared holds the collaborators and policy common to every bridge. The
// per-instance pieces (session, extension name, display controller) are
// bound in For.
type Shared struct {
	Tools     session.ToolCaller
	Resources session.ResourceReader
	Sampling  session.SamplingForwarder
	Opener    session.LinkOpener
	Confirmer session.Confirmer

	Transcript session.TranscriptAppender
	Scroll     session.ScrollSignaler

	TrustedLinkPatterns []string
	RPCTimeout          time.Duration
	RequestsPerSecond   float64

	Logger  *logging.Logger
	Metrics *monitoring.Metrics
}

// Registry hands out one bridge per app instance. The bridge's identity
// follows the instance: a remount reuses it, a close drops it.
type Registry struct {
	mu      sync.Mutex
	shared  Shared
	bridges map[id.InstanceID]*Bridge
}

// NewRegistry creates a bridge registry.
func NewRegistry(shared Shared) *Registry {
	return &Registry{
		shared:  shared,
		bridges: make(map[id.InstanceID]*Bridge),
	}
}

// For returns the bridge serving an instance, creating it on first use.
func (r *Registry) For(inst *apps.Instance, sess *session.Session) *Bridge {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.bridges[inst.ID]; ok {
		return b
	}

	logger := r.shared.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	b := New(Deps{
		Session:             sess,
		ExtensionName:       inst.ExtensionName,
		Display:             inst.Display(),
		Tools:               r.shared.Tools,
		Resources:           r.shared.Resources,
		Sampling:            r.shared.Sampling,
		Opener:              r.shared.Opener,
		Confirmer:           r.shared.Confirmer,
		Transcript:          r.shared.Transcript,
		Scroll:              r.shared.Scroll,
		TrustedLinkPatterns: r.shared.TrustedLinkPatterns,
		RPCTimeout:          r.shared.RPCTimeout,
		RequestsPerSecond:   r.shared.RequestsPerSecond,
		Logger:              logger.WithInstance(inst.ID.String()),
		Metrics:             r.shared.Metrics,
	})
	r.bridges[inst.ID] = b
	return b
}

// Drop discards the bridge for a closed instance.
func (r *Registry) Drop(instanceID id.InstanceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bridges, instanceID)
}
