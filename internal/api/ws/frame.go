package ws

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/sammcj/goose/internal/domain/bridge"
	"github.com/sammcj/goose/internal/shared/utils"
)

// Frame is one JSON-RPC 2.0 message on the guest channel. A missing ID marks
// a notification: it gets no response.
type Frame struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      interface{}            `json:"id,omitempty"`
	Method  string                 `json:"method,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Result  interface{}            `json:"result,omitempty"`
	Error   *bridge.Error          `json:"error,omitempty"`
}

// Notification reports whether the frame expects no response.
func (f *Frame) Notification() bool {
	return f.ID == nil
}

// DecodeFrame parses one wire frame, enforcing the size bound and the
// JSON-RPC version marker.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) > utils.MaxFrameSize {
		return nil, fmt.Errorf("frame exceeds %d bytes", utils.MaxFrameSize)
	}

	var f Frame
	if err := sonic.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	if f.JSONRPC != "2.0" {
		return nil, fmt.Errorf("unsupported jsonrpc version: %q", f.JSONRPC)
	}
	return &f, nil
}

// EncodeFrame renders a frame for the wire.
func EncodeFrame(f *Frame) ([]byte, error) {
	f.JSONRPC = "2.0"
	return sonic.Marshal(f)
}

// resultFrame builds the success response for a request.
func resultFrame(id interface{}, result interface{}) *Frame {
	return &Frame{JSONRPC: "2.0", ID: id, Result: result}
}

// errorFrame builds the failure response for a request.
func errorFrame(id interface{}, err *bridge.Error) *Frame {
	return &Frame{JSONRPC: "2.0", ID: id, Error: err}
}

// notificationFrame builds a host-initiated notification.
func notificationFrame(method string, params map[string]interface{}) *Frame {
	return &Frame{JSONRPC: "2.0", Method: method, Params: params}
}
