package apps

import (
	"github.com/sammcj/goose/internal/shared/types"
)

// Phase identifies the lifecycle phase of an app instance.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseLoadingResource Phase = "loading_resource"
	PhaseLoadingSandbox  Phase = "loading_sandbox"
	PhaseReady           Phase = "ready"
	PhaseError           Phase = "error"
)

// AppState is the sole render-determining value for an app instance.
//
// Invariants maintained by Reduce:
//   - once HTML is non-empty, no later transition drops it
//   - once Phase is ready, SandboxURL and SandboxCSP never change
type AppState struct {
	Phase      Phase
	HTML       string
	Meta       *types.ResourceMeta
	SandboxURL string
	SandboxCSP string
	Message    string // error message, set only in PhaseError
}

// ActionKind discriminates lifecycle actions.
type ActionKind string

const (
	ActionFetchResource  ActionKind = "FETCH_RESOURCE"
	ActionResourceLoaded ActionKind = "RESOURCE_LOADED"
	ActionResourceFailed ActionKind = "RESOURCE_FAILED"
	ActionSandboxReady   ActionKind = "SANDBOX_READY"
	ActionSandboxFailed  ActionKind = "SANDBOX_FAILED"
	ActionRenderFailed   ActionKind = "RENDER_FAILED"
)

// Action carries one lifecycle transition request.
type Action struct {
	Kind       ActionKind
	HTML       string
	Meta       *types.ResourceMeta
	SandboxURL string
	SandboxCSP string
	Message    string
}

// NewAppState returns the initial state for a mount. Pre-seeded HTML enters
// the state immediately so the monotonicity invariant covers it.
func NewAppState(seedHTML string) AppState {
	return AppState{Phase: PhaseIdle, HTML: seedHTML}
}

// Reduce advances an AppState by one action. It is pure: the input state is
// never mutated, and unknown or out-of-phase actions return the state
// unchanged rather than failing.
func Reduce(s AppState, a Action) AppState {
	switch a.Kind {
	case ActionFetchResource:
		// Remount-triggered duplicate fetches must not disturb a live guest.
		if s.Phase == PhaseReady {
			return s
		}
		next := s
		next.Phase = PhaseLoadingResource
		next.Message = ""
		return next

	case ActionResourceLoaded:
		if a.HTML == "" {
			// Fetched empty: stay where we are so "no content yet" remains
			// distinguishable from "never fetched". Metadata still lands.
			next := s
			if a.Meta != nil {
				next.Meta = a.Meta
			}
			return next
		}
		if s.Phase == PhaseReady {
			// Background refresh: update content in place without touching
			// the live sandbox.
			next := s
			next.HTML = a.HTML
			if a.Meta != nil {
				next.Meta = a.Meta
			}
			return next
		}
		next := s
		next.Phase = PhaseLoadingSandbox
		next.HTML = a.HTML
		next.Meta = a.Meta
		next.Message = ""
		return next

	case ActionResourceFailed:
		if s.Phase == PhaseReady {
			return s
		}
		if s.HTML != "" {
			// Stale-but-available content beats an error screen.
			next := s
			next.Phase = PhaseLoadingSandbox
			next.Message = ""
			return next
		}
		next := s
		next.Phase = PhaseError
		next.Message = a.Message
		return next

	case ActionSandboxReady:
		// Valid only while waiting on sandbox resolution; a ready instance
		// keeps its sandbox identity for life.
		if s.Phase != PhaseLoadingSandbox || s.HTML == "" {
			return s
		}
		next := s
		next.Phase = PhaseReady
		next.SandboxURL = a.SandboxURL
		next.SandboxCSP = a.SandboxCSP
		next.Message = ""
		return next

	case ActionSandboxFailed:
		if s.Phase == PhaseReady {
			return s
		}
		next := s
		next.Phase = PhaseError
		next.Message = a.Message
		return next

	case ActionRenderFailed:
		// Central route for rendering-layer faults: terminal regardless of
		// cached content.
		next := s
		next.Phase = PhaseError
		next.Message = a.Message
		return next

	default:
		return s
	}
}

// Terminal reports whether the state can make no further progress on its own.
func (s AppState) Terminal() bool {
	return s.Phase == PhaseReady || s.Phase == PhaseError
}
