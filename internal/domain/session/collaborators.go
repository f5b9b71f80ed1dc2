package session

import (
	"context"

	"github.com/sammcj/goose/internal/shared/id"
	"github.com/sammcj/goose/internal/shared/types"
)

// Collaborator interfaces consumed by the host core. Implementations live in
// the provider adapters; the chat frontend wires the UI-facing ones.

// ToolCaller invokes a tool within a session. The name arrives already
// prefixed with the owning extension.
type ToolCaller interface {
	CallTool(ctx context.Context, sessionID id.SessionID, name string, args map[string]interface{}) (*types.ToolResult, error)
}

// ResourceReader reads a resource within a session.
type ResourceReader interface {
	ReadResource(ctx context.Context, sessionID id.SessionID, uri string) ([]types.ResourceContents, error)
}

// SamplingForwarder relays a guest sampling/createMessage request to the
// agent backend identified by the session's address and secret.
type SamplingForwarder interface {
	CreateMessage(ctx context.Context, backendAddr, secret string, params map[string]interface{}) (map[string]interface{}, error)
}

// LinkOpener opens a URL in the user's external browser or handler.
type LinkOpener interface {
	OpenExternal(url string) error
}

// Confirmer presents a blocking confirmation dialog and reports the user's
// choice. A false return with nil error means the user declined.
type Confirmer interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
}

// TranscriptAppender appends guest-posted content to the chat transcript.
type TranscriptAppender interface {
	AppendMessage(sessionID id.SessionID, blocks []types.ContentBlock) error
}

// ScrollSignaler asks the transcript view to scroll to its end.
type ScrollSignaler interface {
	ScrollToBottom(sessionID id.SessionID)
}
