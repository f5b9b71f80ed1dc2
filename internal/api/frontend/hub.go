package frontend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sammcj/goose/internal/infrastructure/logging"
	"github.com/sammcj/goose/internal/shared/id"
	"github.com/sammcj/goose/internal/shared/types"
)

// Event is one UI effect pushed to the frontend.
type Event struct {
	Kind      string                 `json:"kind"`
	SessionID id.SessionID           `json:"sessionId,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

const (
	// subscriber buffer; a frontend that falls this far behind loses events
	// rather than blocking the host
	eventBuffer = 64

	defaultConfirmTimeout = 60 * time.Second
)

// Hub fans UI effects out to connected frontends and waits on their
// confirmation replies.
type Hub struct {
	logger         *logging.Logger
	confirmTimeout time.Duration

	mu      sync.Mutex
	subs    map[int]chan Event
	nextSub int
	pending map[id.RequestID]chan bool
}

// NewHub creates a hub.
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		logger:         logger.Named("frontend"),
		confirmTimeout: defaultConfirmTimeout,
		subs:           make(map[int]chan Event),
		pending:        make(map[id.RequestID]chan bool),
	}
}

// Subscribe registers an event sink and returns its cancel function.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := h.nextSub
	h.nextSub++
	ch := make(chan Event, eventBuffer)
	h.subs[key] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[key]; ok {
			delete(h.subs, key)
			close(ch)
		}
	}
}

// Connected reports whether any frontend is listening.
func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs) > 0
}

// emit delivers an event to every subscriber, dropping it for the slow ones.
func (h *Hub) emit(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("frontend event dropped", zap.String("kind", ev.Kind))
		}
	}
}

// OpenExternal asks the frontend to open a URL in the system browser.
func (h *Hub) OpenExternal(url string) error {
	if !h.Connected() {
		return fmt.Errorf("no frontend connected")
	}
	h.emit(Event{Kind: "open-link", Payload: map[string]interface{}{"url": url}})
	return nil
}

// Confirm prompts the user and blocks for the reply. No reply within the
// timeout counts as a decline.
func (h *Hub) Confirm(ctx context.Context, title, message string) (bool, error) {
	if !h.Connected() {
		return false, fmt.Errorf("no frontend connected")
	}

	requestID := id.NewRequestID()
	reply := make(chan bool, 1)

	h.mu.Lock()
	h.pending[requestID] = reply
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.pending, requestID)
		h.mu.Unlock()
	}()

	h.emit(Event{Kind: "confirm", Payload: map[string]interface{}{
		"requestId": requestID,
		"title":     title,
		"message":   message,
	}})

	timer := time.NewTimer(h.confirmTimeout)
	defer timer.Stop()

	select {
	case accepted := <-reply:
		return accepted, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Resolve answers a pending confirmation. Unknown or already-answered
// request IDs report false.
func (h *Hub) Resolve(requestID id.RequestID, accepted bool) bool {
	h.mu.Lock()
	reply, ok := h.pending[requestID]
	if ok {
		delete(h.pending, requestID)
	}
	h.mu.Unlock()

	if !ok {
		return false
	}
	reply <- accepted
	return true
}

// AppendMessage pushes guest-authored content into the session transcript.
func (h *Hub) AppendMessage(sessionID id.SessionID, blocks []types.ContentBlock) error {
	if !h.Connected() {
		return fmt.Errorf("no frontend connected")
	}
	h.emit(Event{
		Kind:      "transcript",
		SessionID: sessionID,
		Payload:   map[string]interface{}{"content": blocks},
	})
	return nil
}

// ScrollToBottom signals the transcript view to follow the latest message.
func (h *Hub) ScrollToBottom(sessionID id.SessionID) {
	h.emit(Event{Kind: "scroll", SessionID: sessionID})
}
