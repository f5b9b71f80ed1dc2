package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sammcj/goose/internal/shared/id"
)

// Channel is one live guest connection. Writes are serialized; gorilla
// connections do not allow concurrent writers.
type Channel struct {
	ID   id.ChannelID
	conn *websocket.Conn

	writeMu sync.Mutex
	closed  bool
}

// newChannel wraps an upgraded connection.
func newChannel(conn *websocket.Conn) *Channel {
	return &Channel{
		ID:   id.NewChannelID(),
		conn: conn,
	}
}

// Send encodes and writes one frame. Returns an error when the channel is
// closed or the write fails; callers treat that as a dead guest.
func (ch *Channel) Send(f *Frame) error {
	data, err := EncodeFrame(f)
	if err != nil {
		return err
	}

	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	if ch.closed {
		return websocket.ErrCloseSent
	}
	return ch.conn.WriteMessage(websocket.TextMessage, data)
}

// Close shuts the underlying connection. Idempotent.
func (ch *Channel) Close() {
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	if ch.closed {
		return
	}
	ch.closed = true
	ch.conn.Close()
}
