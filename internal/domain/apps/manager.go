package apps

import (
	"context"
	"sync"
	"time"

	"github.com/sammcj/goose/internal/infrastructure/logging"
	"github.com/sammcj/goose/internal/infrastructure/monitoring"
	"github.com/sammcj/goose/internal/shared/id"
	"github.com/sammcj/goose/internal/shared/types"
	"github.com/sammcj/goose/internal/shared/utils"
)

// Manager orchestrates app instance lifecycle
type Manager struct {
	mu        sync.RWMutex
	instances map[id.InstanceID]*Instance // Protected by mu
	byKey     map[string]*Instance        // Protected by mu
	focusedID *id.InstanceID              // Protected by mu

	keyer     *utils.InstanceKeyer
	loader    *Loader
	resolver  *Resolver
	hostModes []types.DisplayMode
	logger    *logging.Logger
	metrics   *monitoring.Metrics
}

// ManagerStats summarizes manager state
type ManagerStats struct {
	Total     int     `json:"total"`
	Ready     int     `json:"ready"`
	Loading   int     `json:"loading"`
	Errored   int     `json:"errored"`
	FocusedID *string `json:"focused_id,omitempty"`
}

// AttachOptions tunes instance creation.
type AttachOptions struct {
	// SeedHTML pre-seeds content so the instance can render stale content
	// immediately and skip fetch retries.
	SeedHTML string
	// InitialMode seeds the display controller; defaults to inline.
	InitialMode types.DisplayMode
	// Viewport seeds PiP clamping geometry.
	Viewport *Viewport
}

// NewManager creates a new app instance manager
func NewManager(loader *Loader, resolver *Resolver, hostModes []types.DisplayMode, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	modes := make([]types.DisplayMode, len(hostModes))
	copy(modes, hostModes)

	return &Manager{
		instances: make(map[id.InstanceID]*Instance),
		byKey:     make(map[string]*Instance),
		keyer:     utils.NewInstanceKeyer(nil),
		loader:    loader,
		resolver:  resolver,
		hostModes: modes,
		logger:    logger,
	}
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Attach mounts the instance for (uri, extension, session), creating it on
// first sight. A repeat attach with the same identity returns the existing
// instance: its cache replays and the live guest survives the remount.
func (m *Manager) Attach(ctx context.Context, uri, extensionName string, sessionID id.SessionID, opts AttachOptions) (*Instance, bool) {
	key := m.keyer.Key(sessionID.String(), extensionName, uri)

	m.mu.Lock()
	if existing, ok := m.byKey[key]; ok {
		instID := existing.ID
		m.focusedID = &instID
		m.mu.Unlock()

		existing.Mount(ctx)
		return existing, false
	}

	mode := opts.InitialMode
	if mode == "" {
		mode = types.ModeInline
	}

	tracker := NewTracker()
	display := NewDisplayController(mode, m.hostModes, tracker, m.logger)
	if m.metrics != nil {
		display.WithMetrics(m.metrics)
	}
	if opts.Viewport != nil {
		display.SetViewport(*opts.Viewport)
	}

	instanceID := id.NewInstanceID()
	inst := &Instance{
		ID:            instanceID,
		Key:           key,
		URI:           uri,
		ExtensionName: extensionName,
		SessionID:     sessionID,
		CreatedAt:     time.Now(),
		loader:        m.loader,
		resolver:      m.resolver,
		display:       display,
		tracker:       tracker,
		cache:         &InstanceCache{},
		logger:        m.logger.WithInstance(instanceID.String()),
		metrics:       m.metrics,
		state:         NewAppState(opts.SeedHTML),
		subs:          make(map[int]func(AppState)),
	}

	m.instances[inst.ID] = inst
	m.byKey[key] = inst
	instID := inst.ID
	m.focusedID = &instID

	if m.metrics != nil {
		m.metrics.IncInstancesTotal()
		m.metrics.SetInstancesActive(len(m.instances))
	}
	m.mu.Unlock()

	inst.Mount(ctx)
	return inst, true
}

// Get retrieves a live instance by ID
func (m *Manager) Get(instanceID id.InstanceID) (*Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.instances[instanceID]
	return inst, ok
}

// Lookup finds the instance for an identity triple, if one exists
func (m *Manager) Lookup(uri, extensionName string, sessionID id.SessionID) (*Instance, bool) {
	key := m.keyer.Key(sessionID.String(), extensionName, uri)

	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.byKey[key]
	return inst, ok
}

// List returns all live instances
func (m *Manager) List() []*Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst)
	}
	return out
}

// Focus marks an instance as the active one
func (m *Manager) Focus(instanceID id.InstanceID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.instances[instanceID]; !ok {
		return false
	}
	m.focusedID = &instanceID
	return true
}

// Detach unmounts an instance but retains it, so an incidental remount with
// the same identity replays the cache instead of refetching.
func (m *Manager) Detach(instanceID id.InstanceID) bool {
	m.mu.RLock()
	inst, ok := m.instances[instanceID]
	m.mu.RUnlock()

	if !ok {
		return false
	}
	inst.Unmount()
	return true
}

// Close destroys an instance entirely
func (m *Manager) Close(instanceID id.InstanceID) bool {
	m.mu.Lock()

	inst, ok := m.instances[instanceID]
	if !ok {
		m.mu.Unlock()
		return false
	}

	delete(m.instances, instanceID)
	delete(m.byKey, inst.Key)

	// Update focus if this was the focused instance
	if m.focusedID != nil && *m.focusedID == instanceID {
		m.focusedID = nil
		for otherID := range m.instances {
			next := otherID
			m.focusedID = &next
			break
		}
	}

	if m.metrics != nil {
		m.metrics.SetInstancesActive(len(m.instances))
	}
	m.mu.Unlock()

	inst.Unmount()
	return true
}

// CloseSession destroys every instance belonging to a session and returns
// how many were closed
func (m *Manager) CloseSession(sessionID id.SessionID) int {
	m.mu.RLock()
	var ids []id.InstanceID
	for _, inst := range m.instances {
		if inst.SessionID == sessionID {
			ids = append(ids, inst.ID)
		}
	}
	m.mu.RUnlock()

	for _, instID := range ids {
		m.Close(instID)
	}
	return len(ids)
}

// Stats returns manager statistics
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := ManagerStats{Total: len(m.instances)}
	for _, inst := range m.instances {
		switch inst.State().Phase {
		case PhaseReady:
			stats.Ready++
		case PhaseError:
			stats.Errored++
		case PhaseLoadingResource, PhaseLoadingSandbox:
			stats.Loading++
		}
	}

	// Copy pointer to avoid race
	if m.focusedID != nil {
		focused := m.focusedID.String()
		stats.FocusedID = &focused
	}
	return stats
}
