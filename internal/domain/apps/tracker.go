package apps

import (
	"sync"

	"github.com/sammcj/goose/internal/shared/id"
)

// Tracker holds the set of live guest channels for one hosting container.
// The frontend reports every structural change to the container's subtree,
// and the set is rebuilt from that report, so membership always reflects
// currently-mounted guests. Inbound messages from untracked sources are
// discarded unread.
type Tracker struct {
	mu       sync.RWMutex
	channels map[id.ChannelID]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{channels: make(map[id.ChannelID]struct{})}
}

// Attach registers a live guest channel.
func (t *Tracker) Attach(ch id.ChannelID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channels[ch] = struct{}{}
}

// Detach removes a guest channel.
func (t *Tracker) Detach(ch id.ChannelID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.channels, ch)
}

// Rebuild replaces the tracked set wholesale from a structural report.
func (t *Tracker) Rebuild(channels []id.ChannelID) {
	next := make(map[id.ChannelID]struct{}, len(channels))
	for _, ch := range channels {
		next[ch] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.channels = next
}

// Tracked reports whether a channel belongs to a currently-mounted guest.
func (t *Tracker) Tracked(ch id.ChannelID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.channels[ch]
	return ok
}

// Count returns the number of tracked channels.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.channels)
}

// Clear drops every tracked channel. Called on unmount.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channels = make(map[id.ChannelID]struct{})
}
