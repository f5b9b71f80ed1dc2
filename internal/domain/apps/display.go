package apps

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sammcj/goose/internal/infrastructure/logging"
	"github.com/sammcj/goose/internal/infrastructure/monitoring"
	"github.com/sammcj/goose/internal/shared/id"
	"github.com/sammcj/goose/internal/shared/types"
)

// DisplayController owns the display posture of one app instance: the active
// mode, the negotiated mode set, inline height bookkeeping, and PiP geometry.
//
// Mode changes arrive from four sources: explicit host control, validated
// guest requests, the Escape key, and direct programmatic calls. Guest
// requests are honored only for modes inside the negotiated effective set
// (host-supported ∩ guest-declared); before negotiation completes they are
// checked against the full host-supported set instead.
type DisplayController struct {
	mu       sync.Mutex
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	tracker  *Tracker
	onChange func(types.DisplayMode)

	hostModes []types.DisplayMode
	active    types.DisplayMode

	// declared is nil until the guest's ui/initialize arrives; an empty
	// non-nil slice means the guest declared nothing.
	declared []types.DisplayMode

	inlineHeight *int // snapshot taken when leaving inline
	liveHeight   *int // current measured height while inline

	pip      PipPosition
	viewport Viewport
}

// NewDisplayController seeds a controller with the initially requested mode.
func NewDisplayController(initial types.DisplayMode, hostModes []types.DisplayMode, tracker *Tracker, logger *logging.Logger) *DisplayController {
	if logger == nil {
		logger = logging.NewNop()
	}
	modes := make([]types.DisplayMode, len(hostModes))
	copy(modes, hostModes)

	return &DisplayController{
		logger:    logger,
		tracker:   tracker,
		hostModes: modes,
		active:    initial,
	}
}

// WithMetrics adds metrics tracking to the controller.
func (c *DisplayController) WithMetrics(metrics *monitoring.Metrics) *DisplayController {
	c.metrics = metrics
	return c
}

// OnChange registers a callback invoked after every mode change. The
// callback runs outside the controller lock.
func (c *DisplayController) OnChange(fn func(types.DisplayMode)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Active returns the current display mode.
func (c *DisplayController) Active() types.DisplayMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// HostModes returns the host-supported mode set.
func (c *DisplayController) HostModes() []types.DisplayMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	modes := make([]types.DisplayMode, len(c.hostModes))
	copy(modes, c.hostModes)
	return modes
}

// Negotiated reports whether the guest's capability declaration has arrived.
func (c *DisplayController) Negotiated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.declared != nil
}

// EffectiveModes returns hostSupported ∩ declared in host order. Empty until
// negotiation completes.
func (c *DisplayController) EffectiveModes() []types.DisplayMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effectiveLocked()
}

func (c *DisplayController) effectiveLocked() []types.DisplayMode {
	if c.declared == nil {
		return []types.DisplayMode{}
	}

	declared := make(map[types.DisplayMode]struct{}, len(c.declared))
	for _, m := range c.declared {
		declared[m] = struct{}{}
	}

	effective := make([]types.DisplayMode, 0, len(c.hostModes))
	for _, m := range c.hostModes {
		if !m.Negotiable() {
			continue
		}
		if _, ok := declared[m]; ok {
			effective = append(effective, m)
		}
	}
	return effective
}

// ControlsVisible reports whether mode-switch controls should be offered.
// Hidden until negotiation completes rather than guessing.
func (c *DisplayController) ControlsVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.declared != nil && len(c.effectiveLocked()) > 0
}

// HandleInitialize captures the guest's declared display modes from
// ui/initialize. The message is accepted only if its source is a tracked,
// currently-mounted guest channel; spoofed or stale senders are ignored.
func (c *DisplayController) HandleInitialize(source id.ChannelID, declaredModes []string) bool {
	if c.tracker != nil && !c.tracker.Tracked(source) {
		c.logger.Warn("ignoring initialize from untracked source",
			zap.String("channel_id", source.String()))
		return false
	}

	parsed := make([]types.DisplayMode, 0, len(declaredModes))
	for _, raw := range declaredModes {
		mode, ok := types.ParseDisplayMode(raw)
		if !ok || !mode.Negotiable() {
			continue
		}
		parsed = append(parsed, mode)
	}

	c.mu.Lock()
	c.declared = parsed
	c.mu.Unlock()

	c.logger.Debug("display mode negotiation complete",
		zap.Int("declared", len(parsed)))
	return true
}

// RequestMode handles a guest ui/request-display-mode. A request for a mode
// outside the allowed set is silently ignored, not an error.
func (c *DisplayController) RequestMode(source id.ChannelID, mode types.DisplayMode) bool {
	if c.tracker != nil && !c.tracker.Tracked(source) {
		return false
	}
	if !mode.Negotiable() {
		// standalone is host-only, never guest-grantable
		return false
	}

	c.mu.Lock()
	allowed := false
	if c.declared == nil {
		// Negotiation pending: fall back to the full host-supported set.
		for _, m := range c.hostModes {
			if m == mode {
				allowed = true
				break
			}
		}
	} else {
		for _, m := range c.effectiveLocked() {
			if m == mode {
				allowed = true
				break
			}
		}
	}
	if !allowed {
		c.mu.Unlock()
		return false
	}

	notify := c.applyLocked(mode)
	c.mu.Unlock()

	notify()
	return true
}

// SetMode applies a host-controlled or programmatic mode change.
func (c *DisplayController) SetMode(mode types.DisplayMode) {
	c.mu.Lock()
	notify := c.applyLocked(mode)
	c.mu.Unlock()

	notify()
}

// HandleEscape exits fullscreen back to inline. Any other mode is a no-op.
func (c *DisplayController) HandleEscape() bool {
	c.mu.Lock()
	if c.active != types.ModeFullscreen {
		c.mu.Unlock()
		return false
	}
	notify := c.applyLocked(types.ModeInline)
	c.mu.Unlock()

	notify()
	return true
}

// applyLocked performs the transition bookkeeping and returns the deferred
// change notification. Must be called with the lock held.
func (c *DisplayController) applyLocked(mode types.DisplayMode) func() {
	if mode == c.active {
		return func() {}
	}

	// Leaving inline snapshots the current height; re-entering restores it
	// immediately, before any fresh size notification, so the container
	// does not visibly collapse and re-expand.
	if c.active == types.ModeInline {
		c.inlineHeight = c.liveHeight
	}
	if mode == types.ModeInline {
		c.liveHeight = c.inlineHeight
	}
	if mode == types.ModePip {
		c.pip = PipPosition{}
	}

	prev := c.active
	c.active = mode

	if c.metrics != nil {
		c.metrics.RecordDisplayMode(string(mode))
	}

	logger := c.logger
	onChange := c.onChange
	return func() {
		logger.Debug("display mode changed",
			zap.String("from", string(prev)),
			zap.String("to", string(mode)))
		if onChange != nil {
			onChange(mode)
		}
	}
}

// SizeChanged records a guest-reported content height. Applied to the live
// height only while inline; ignored in every other mode.
func (c *DisplayController) SizeChanged(source id.ChannelID, height int) bool {
	if c.tracker != nil && !c.tracker.Tracked(source) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != types.ModeInline {
		return false
	}
	h := height
	c.liveHeight = &h
	return true
}

// Height returns the current inline content height, nil when unmeasured.
func (c *DisplayController) Height() *int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.liveHeight == nil {
		return nil
	}
	h := *c.liveHeight
	return &h
}

// SetViewport updates the viewport and re-clamps the PiP offset so the
// window stays reachable after a resize.
func (c *DisplayController) SetViewport(vp Viewport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = vp
	c.pip = ClampPip(c.pip, vp)
}

// DragPip applies a drag delta to the PiP offset.
func (c *DisplayController) DragPip(dx, dy int) PipPosition {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pip = c.pip.Translate(dx, dy, c.viewport)
	return c.pip
}

// NudgePip applies a keyboard adjustment; large selects the modifier step.
func (c *DisplayController) NudgePip(dx, dy int, large bool) PipPosition {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pip = c.pip.Nudge(dx, dy, large, c.viewport)
	return c.pip
}

// Pip returns the current PiP offset.
func (c *DisplayController) Pip() PipPosition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pip
}
