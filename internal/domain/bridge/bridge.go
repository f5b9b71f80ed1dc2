package bridge

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sammcj/goose/internal/domain/apps"
	"github.com/sammcj/goose/internal/domain/session"
	"github.com/sammcj/goose/internal/infrastructure/logging"
	"github.com/sammcj/goose/internal/infrastructure/monitoring"
	"github.com/sammcj/goose/internal/shared/id"
)

// JSON-RPC error codes used across the bridge boundary.
const (
	CodeMethodNotFound  = -32601
	CodeInvalidParams   = -32602
	CodeInternal        = -32603
	CodeOperationFailed = -32000
	CodeRateLimited     = -32001
)

// Error is the structured failure shape returned to guests. It is the only
// way a bridge operation can fail: handlers never propagate Go errors or
// panics across the channel.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Message)
}

func errInvalidParams(err error) *Error {
	return &Error{Code: CodeInvalidParams, Message: err.Error()}
}

func errFailed(format string, args ...interface{}) *Error {
	return &Error{Code: CodeOperationFailed, Message: fmt.Sprintf(format, args...)}
}

type handlerFunc func(ctx context.Context, source id.ChannelID, params map[string]interface{}) (interface{}, *Error)

// Deps wires one bridge to its instance and collaborators. Nil collaborators
// are tolerated; the affected operations return structured errors.
type Deps struct {
	Session       *session.Session
	ExtensionName string
	Display       *apps.DisplayController

	Tools     session.ToolCaller
	Resources session.ResourceReader
	Sampling  session.SamplingForwarder
	Opener    session.LinkOpener
	Confirmer session.Confirmer

	Transcript session.TranscriptAppender
	Scroll     session.ScrollSignaler

	// TrustedLinkPatterns are doublestar patterns whose matching URLs skip
	// the unsafe-scheme confirmation. Host configuration, never guest-set.
	TrustedLinkPatterns []string

	// RPCTimeout bounds tool calls, resource reads, and sampling forwards.
	// Zero means no deadline beyond the upstream collaborator's own.
	RPCTimeout time.Duration

	// RequestsPerSecond rate-limits guest requests per instance. Zero
	// disables limiting.
	RequestsPerSecond float64

	Logger  *logging.Logger
	Metrics *monitoring.Metrics
}

// Bridge is the per-instance RPC surface. One bridge serves one mounted app;
// its extension name prefixes every outgoing tool call.
type Bridge struct {
	deps     Deps
	logger   *logging.Logger
	limiter  *rate.Limiter
	handlers map[string]handlerFunc
}

// New builds a bridge with its dispatch table.
func New(deps Deps) *Bridge {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var limiter *rate.Limiter
	if deps.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(deps.RequestsPerSecond), int(deps.RequestsPerSecond))
	}

	b := &Bridge{
		deps:    deps,
		logger:  logger,
		limiter: limiter,
	}
	b.handlers = map[string]handlerFunc{
		"ui/open-link":          b.handleOpenLink,
		"ui/message":            b.handleMessage,
		"tools/call":            b.handleCallTool,
		"resources/read":        b.handleReadResource,
		"notifications/message": b.handleLogging,
		"ui/size-changed":       b.handleSizeChanged,
	}
	return b
}

// Dispatch routes one guest request. The returned Error, when non-nil, is
// the structured failure to serialize back; a panic inside a handler is
// converted to an internal Error rather than crashing the host.
func (b *Bridge) Dispatch(ctx context.Context, source id.ChannelID, method string, params map[string]interface{}) (result interface{}, rpcErr *Error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bridge handler panic",
				zap.String("method", method),
				zap.Any("panic", r))
			result = nil
			rpcErr = &Error{Code: CodeInternal, Message: "internal host error"}
		}
		if b.deps.Metrics != nil {
			status := "ok"
			if rpcErr != nil {
				status = "error"
			}
			b.deps.Metrics.RecordBridgeRequest(method, status, time.Since(start))
		}
	}()

	if b.limiter != nil && !b.limiter.Allow() {
		return nil, &Error{Code: CodeRateLimited, Message: "too many requests"}
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	h, ok := b.handlers[method]
	if !ok {
		return b.fallback(ctx, method, params)
	}
	return h(ctx, source, params)
}

// fallback handles methods outside the table. sampling/createMessage is
// forwarded to the agent backend; everything else gets a structured
// method-not-found response so an unknown guest request can never crash or
// wedge the host.
func (b *Bridge) fallback(ctx context.Context, method string, params map[string]interface{}) (interface{}, *Error) {
	if method == "sampling/createMessage" {
		return b.forwardSampling(ctx, params)
	}

	b.logger.Debug("unhandled bridge method", zap.String("method", method))
	return nil, &Error{
		Code:    CodeMethodNotFound,
		Message: fmt.Sprintf("unhandled method: %s", method),
	}
}

func (b *Bridge) forwardSampling(ctx context.Context, params map[string]interface{}) (interface{}, *Error) {
	if !b.deps.Session.Active() {
		return nil, errFailed("no active session")
	}
	if b.deps.Sampling == nil {
		return nil, errFailed("sampling is not available")
	}

	ctx, cancel := b.rpcContext(ctx)
	defer cancel()

	res, err := b.deps.Sampling.CreateMessage(ctx, b.deps.Session.BackendAddr, b.deps.Session.BackendSecret, params)
	if err != nil {
		return nil, errFailed("sampling request failed: %v", err)
	}
	return res, nil
}

// rpcContext applies the configured RPC deadline, when one is set.
func (b *Bridge) rpcContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.deps.RPCTimeout > 0 {
		return context.WithTimeout(ctx, b.deps.RPCTimeout)
	}
	return context.WithCancel(ctx)
}
