package session

import (
	"time"

	"github.com/sammcj/goose/internal/shared/id"
)

// Session is one chat session hosting embedded apps. The backend address and
// secret identify the agent process serving this session's tool calls and
// forwarded sampling requests.
type Session struct {
	ID            id.SessionID `json:"id"`
	BackendAddr   string       `json:"backend_addr"`
	BackendSecret string       `json:"-"`
	CreatedAt     time.Time    `json:"created_at"`
	LastActiveAt  time.Time    `json:"last_active_at"`
}

// Active reports whether the session can serve guest RPC operations.
func (s *Session) Active() bool {
	return s != nil && s.ID != ""
}
