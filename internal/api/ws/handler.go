package ws

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sammcj/goose/internal/domain/apps"
	"github.com/sammcj/goose/internal/domain/bridge"
	"github.com/sammcj/goose/internal/domain/session"
	"github.com/sammcj/goose/internal/infrastructure/logging"
	"github.com/sammcj/goose/internal/infrastructure/monitoring"
	"github.com/sammcj/goose/internal/shared/id"
	"github.com/sammcj/goose/internal/shared/types"
	"github.com/sammcj/goose/internal/shared/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The sandbox proxy is same-origin; the desktop frontend is not.
		return true
	},
}

// Handler manages guest channels for mounted app instances.
type Handler struct {
	manager  *apps.Manager
	sessions *session.Manager
	bridges  *bridge.Registry
	contexts *apps.ContextBuilder
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	mu       sync.Mutex
	channels map[id.InstanceID]map[id.ChannelID]*Channel
	watching map[id.InstanceID]struct{}
}

// NewHandler creates a guest channel handler.
func NewHandler(manager *apps.Manager, sessions *session.Manager, bridges *bridge.Registry, contexts *apps.ContextBuilder, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		manager:  manager,
		sessions: sessions,
		bridges:  bridges,
		contexts: contexts,
		logger:   logger.Named("ws"),
		channels: make(map[id.InstanceID]map[id.ChannelID]*Channel),
		watching: make(map[id.InstanceID]struct{}),
	}
}

// WithMetrics adds metrics tracking to the handler.
func (h *Handler) WithMetrics(metrics *monitoring.Metrics) *Handler {
	h.metrics = metrics
	return h
}

// HandleConnection upgrades a guest connection for an instance and pumps its
// frames until it closes.
func (h *Handler) HandleConnection(c *gin.Context) {
	instanceID := id.InstanceID(c.Param("id"))
	inst, ok := h.manager.Get(instanceID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown app instance"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(utils.MaxFrameSize)

	ch := newChannel(conn)
	h.register(inst, ch)
	defer h.deregister(inst, ch)

	logger := h.logger.WithChannel(ch.ID.String())
	logger.Debug("guest channel connected", zap.String("instance_id", inst.ID.String()))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Debug("guest channel closed", zap.Error(err))
			return
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			logger.Warn("dropping malformed frame", zap.Error(err))
			ch.Send(errorFrame(nil, &bridge.Error{Code: bridge.CodeInvalidParams, Message: err.Error()}))
			continue
		}
		if h.metrics != nil {
			h.metrics.RecordChannelFrame("in", frame.Method)
		}

		h.handleFrame(c, inst, ch, frame)
	}
}

// handleFrame routes one inbound frame. Display-state methods are handled
// inline because they are keyed to the source channel and never block.
// Bridge calls can stall on the backend (a slow tool, a confirmation prompt),
// so each runs on its own goroutine and replies by frame ID; the read loop
// keeps pumping later frames meanwhile.
func (h *Handler) handleFrame(c *gin.Context, inst *apps.Instance, ch *Channel, frame *Frame) {
	switch frame.Method {
	case "ui/initialize":
		result, rpcErr := h.handleInitialize(inst, ch, frame.Params)
		h.reply(ch, frame, result, rpcErr)
	case "ui/request-display-mode":
		result, rpcErr := h.handleRequestMode(inst, ch, frame.Params)
		h.reply(ch, frame, result, rpcErr)
	default:
		sess, _ := h.sessions.Get(inst.SessionID)
		b := h.bridges.For(inst, sess)
		ctx := c.Request.Context()
		go func() {
			result, rpcErr := b.Dispatch(ctx, ch.ID, frame.Method, frame.Params)
			h.reply(ch, frame, result, rpcErr)
		}()
	}
}

// reply writes the response frame for a request; notifications get none.
// Channel writes are serialized, so concurrent repliers are safe.
func (h *Handler) reply(ch *Channel, frame *Frame, result interface{}, rpcErr *bridge.Error) {
	if frame.Notification() {
		return
	}

	var out *Frame
	if rpcErr != nil {
		out = errorFrame(frame.ID, rpcErr)
	} else {
		out = resultFrame(frame.ID, result)
	}
	if err := ch.Send(out); err != nil {
		h.logger.Debug("response write failed", zap.Error(err))
		return
	}
	if h.metrics != nil {
		h.metrics.RecordChannelFrame("out", frame.Method)
	}
}

// handleInitialize captures the guest's declared display modes and returns
// the current host context. Untracked sources are rejected before any state
// changes.
func (h *Handler) handleInitialize(inst *apps.Instance, ch *Channel, params map[string]interface{}) (interface{}, *bridge.Error) {
	declared := declaredModes(params)

	if !inst.Display().HandleInitialize(ch.ID, declared) {
		return nil, &bridge.Error{Code: bridge.CodeOperationFailed, Message: "initialize rejected: untracked source"}
	}

	return map[string]interface{}{
		"hostContext": h.contexts.Build(inst.Display(), apps.Measured{}),
	}, nil
}

// declaredModes extracts availableDisplayModes from appCapabilities, falling
// back to the legacy capabilities field.
func declaredModes(params map[string]interface{}) []string {
	caps := bridge.GetMap(params, "appCapabilities")
	if caps == nil {
		caps = bridge.GetMap(params, "capabilities")
	}
	if caps == nil {
		return nil
	}

	raw := bridge.GetSlice(caps, "availableDisplayModes")
	modes := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			modes = append(modes, s)
		}
	}
	return modes
}

// handleRequestMode validates a guest display-mode request. A mode outside
// the negotiated set is silently ignored: the response reports the mode
// still in effect, not an error.
func (h *Handler) handleRequestMode(inst *apps.Instance, ch *Channel, params map[string]interface{}) (interface{}, *bridge.Error) {
	raw, err := bridge.GetString(params, "mode", true)
	if err != nil {
		return nil, &bridge.Error{Code: bridge.CodeInvalidParams, Message: err.Error()}
	}

	mode, ok := types.ParseDisplayMode(raw)
	if ok {
		inst.Display().RequestMode(ch.ID, mode)
	}
	return map[string]interface{}{"displayMode": inst.Display().Active()}, nil
}

// register wires a new channel into the instance's tracker and the broadcast
// set, and starts watching display changes for the instance on first use.
func (h *Handler) register(inst *apps.Instance, ch *Channel) {
	inst.Tracker().Attach(ch.ID)

	h.mu.Lock()
	set, ok := h.channels[inst.ID]
	if !ok {
		set = make(map[id.ChannelID]*Channel)
		h.channels[inst.ID] = set
	}
	set[ch.ID] = ch

	if _, ok := h.watching[inst.ID]; !ok {
		h.watching[inst.ID] = struct{}{}
		inst.Display().OnChange(func(types.DisplayMode) {
			h.PushHostContext(inst)
		})
	}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.IncChannelConnections()
	}
}

func (h *Handler) deregister(inst *apps.Instance, ch *Channel) {
	inst.Tracker().Detach(ch.ID)
	ch.Close()

	h.mu.Lock()
	if set, ok := h.channels[inst.ID]; ok {
		delete(set, ch.ID)
		if len(set) == 0 {
			delete(h.channels, inst.ID)
		}
	}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.DecChannelConnections()
	}
}

// PushHostContext recomputes the host context and notifies every channel of
// the instance. Called on display mode changes and theme changes.
func (h *Handler) PushHostContext(inst *apps.Instance) {
	payload := map[string]interface{}{
		"hostContext": h.contexts.Build(inst.Display(), apps.Measured{}),
	}

	h.mu.Lock()
	targets := make([]*Channel, 0, len(h.channels[inst.ID]))
	for _, ch := range h.channels[inst.ID] {
		targets = append(targets, ch)
	}
	h.mu.Unlock()

	for _, ch := range targets {
		if err := ch.Send(notificationFrame("ui/host-context-changed", payload)); err != nil {
			h.logger.Debug("host context push failed",
				zap.String("channel_id", ch.ID.String()), zap.Error(err))
		}
	}
}
