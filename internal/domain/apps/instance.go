package apps

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sammcj/goose/internal/infrastructure/logging"
	"github.com/sammcj/goose/internal/infrastructure/monitoring"
	"github.com/sammcj/goose/internal/shared/id"
	"github.com/sammcj/goose/internal/shared/types"
)

// InstanceCache retains fetched content and the resolved sandbox identity
// across incidental remounts. Each field is written once by the effect that
// produced it and read-only thereafter; the cache is never shared across
// instances.
type InstanceCache struct {
	mu         sync.Mutex
	html       string
	meta       *types.ResourceMeta
	sandboxURL string
	sandboxCSP string
}

// Content returns the cached content, if any.
func (c *InstanceCache) Content() (string, *types.ResourceMeta, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.html, c.meta, c.html != ""
}

// StoreContent records fetched content.
func (c *InstanceCache) StoreContent(html string, meta *types.ResourceMeta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.html = html
	c.meta = meta
}

// Sandbox returns the resolved sandbox identity, if any.
func (c *InstanceCache) Sandbox() (url, csp string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sandboxURL, c.sandboxCSP, c.sandboxURL != ""
}

// StoreSandbox records the resolved sandbox identity. First write wins:
// replacing it would recreate the guest's execution context.
func (c *InstanceCache) StoreSandbox(url, csp string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sandboxURL != "" {
		return
	}
	c.sandboxURL = url
	c.sandboxCSP = csp
}

// Instance is one logical mounted app: lifecycle state, display posture,
// guest tracking, and the remount-safe cache, identified by a key derived
// from (resourceURI, extensionName, sessionID).
type Instance struct {
	ID            id.InstanceID
	Key           string
	URI           string
	ExtensionName string
	SessionID     id.SessionID
	CreatedAt     time.Time

	loader   *Loader
	resolver *Resolver
	display  *DisplayController
	tracker  *Tracker
	cache    *InstanceCache
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	mu         sync.Mutex
	state      AppState
	generation uint64
	cancel     context.CancelFunc
	subs       map[int]func(AppState)
	nextSub    int
}

// State returns a copy of the current lifecycle state.
func (i *Instance) State() AppState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Display returns the instance's display controller.
func (i *Instance) Display() *DisplayController {
	return i.display
}

// Tracker returns the instance's guest channel tracker.
func (i *Instance) Tracker() *Tracker {
	return i.tracker
}

// Subscribe registers a state observer and returns its cancel function.
// Observers run outside the instance lock.
func (i *Instance) Subscribe(fn func(AppState)) func() {
	i.mu.Lock()
	defer i.mu.Unlock()

	n := i.nextSub
	i.nextSub++
	i.subs[n] = fn

	return func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		delete(i.subs, n)
	}
}

// Mount begins (or re-begins) the lifecycle for this instance. A previous
// mount's in-flight work is cancelled; its results will be discarded by the
// generation check. Cached results replay without network calls.
func (i *Instance) Mount(ctx context.Context) {
	i.mu.Lock()
	if i.cancel != nil {
		i.cancel()
	}
	i.generation++
	gen := i.generation
	ctx, i.cancel = context.WithCancel(ctx)
	i.mu.Unlock()

	go i.runLifecycle(ctx, gen)
}

// Unmount cancels in-flight work and tears down guest tracking. State and
// cache survive for a later remount.
func (i *Instance) Unmount() {
	i.mu.Lock()
	i.generation++
	if i.cancel != nil {
		i.cancel()
		i.cancel = nil
	}
	i.mu.Unlock()

	i.tracker.Clear()
}

// Fail routes a rendering-layer fault into the terminal error state.
func (i *Instance) Fail(message string) {
	i.mu.Lock()
	gen := i.generation
	i.mu.Unlock()

	i.dispatch(gen, Action{Kind: ActionRenderFailed, Message: message})
}

// Refresh re-fetches content in the background. A ready instance absorbs
// the result in place without disturbing the live guest. Any other phase
// gets a full remount instead: landing new content mid-lifecycle would
// advance the state machine without an effect running to finish it.
func (i *Instance) Refresh(ctx context.Context) {
	i.mu.Lock()
	gen := i.generation
	ready := i.state.Phase == PhaseReady
	i.mu.Unlock()

	if !ready {
		i.Mount(ctx)
		return
	}

	go func() {
		html, meta, err := i.loader.Load(ctx, LoadRequest{
			ExtensionName: i.ExtensionName,
			URI:           i.URI,
		})
		if err != nil {
			i.logger.Warn("background refresh failed", zap.Error(err))
			return
		}
		i.cache.StoreContent(html, meta)
		i.dispatch(gen, Action{Kind: ActionResourceLoaded, HTML: html, Meta: meta})
	}()
}

// runLifecycle drives one mount: content acquisition, then sandbox
// resolution, strictly in that order. Every dispatch consults the mount
// generation, so a stale mount's results never land.
func (i *Instance) runLifecycle(ctx context.Context, gen uint64) {
	st, ok := i.dispatch(gen, Action{Kind: ActionFetchResource})
	if !ok || st.Phase != PhaseLoadingResource {
		// Already ready (remount) or superseded.
		return
	}

	if html, meta, cached := i.cache.Content(); cached {
		st, ok = i.dispatch(gen, Action{Kind: ActionResourceLoaded, HTML: html, Meta: meta})
	} else {
		html, meta, err := i.loader.Load(ctx, LoadRequest{
			ExtensionName: i.ExtensionName,
			URI:           i.URI,
			HasSeed:       st.HTML != "",
		})
		if err != nil {
			st, ok = i.dispatch(gen, Action{Kind: ActionResourceFailed, Message: err.Error()})
		} else {
			i.cache.StoreContent(html, meta)
			st, ok = i.dispatch(gen, Action{Kind: ActionResourceLoaded, HTML: html, Meta: meta})
		}
	}
	if !ok || st.Phase != PhaseLoadingSandbox {
		return
	}

	url, csp, cached := i.cache.Sandbox()
	if !cached {
		var err error
		url, csp, err = i.resolver.Resolve(st.Meta)
		if err != nil {
			i.dispatch(gen, Action{Kind: ActionSandboxFailed, Message: err.Error()})
			return
		}
		i.cache.StoreSandbox(url, csp)
	}

	i.dispatch(gen, Action{Kind: ActionSandboxReady, SandboxURL: url, SandboxCSP: csp})
}

// dispatch applies one action under the instance lock. Returns the resulting
// state and whether the action was applied; actions from a superseded mount
// generation are dropped.
func (i *Instance) dispatch(gen uint64, a Action) (AppState, bool) {
	i.mu.Lock()
	if gen != i.generation {
		st := i.state
		i.mu.Unlock()
		return st, false
	}

	prev := i.state
	next := Reduce(prev, a)
	i.state = next

	var observers []func(AppState)
	if next.Phase != prev.Phase {
		if i.metrics != nil {
			i.metrics.RecordPhaseTransition(string(next.Phase))
		}
		observers = make([]func(AppState), 0, len(i.subs))
		for _, fn := range i.subs {
			observers = append(observers, fn)
		}
	}
	i.mu.Unlock()

	if next.Phase != prev.Phase {
		i.logger.Debug("lifecycle transition",
			zap.String("from", string(prev.Phase)),
			zap.String("to", string(next.Phase)),
			zap.String("uri", i.URI))
		for _, fn := range observers {
			fn(next)
		}
	}

	return next, true
}
