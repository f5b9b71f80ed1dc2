package proxy

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/sammcj/goose/internal/infrastructure/monitoring"
)

// Store defaults, matching the host's published limits.
const (
	DefaultGuestTTL    = 5 * time.Minute
	DefaultMaxEntries  = 64
	gzipThresholdBytes = 512
)

type entry struct {
	payload    []byte
	compressed bool
	csp        string
	createdAt  time.Time
}

// Store stages guest HTML under single-use nonces. Entries larger than a
// small threshold are gzip-compressed at rest.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	max     int
	metrics *monitoring.Metrics

	now func() time.Time // replaceable in tests
}

// NewStore creates a guest content store. Zero ttl or max select defaults.
func NewStore(ttl time.Duration, max int) *Store {
	if ttl <= 0 {
		ttl = DefaultGuestTTL
	}
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		max:     max,
		now:     time.Now,
	}
}

// WithMetrics adds metrics tracking to the store.
func (s *Store) WithMetrics(metrics *monitoring.Metrics) *Store {
	s.metrics = metrics
	return s
}

// Stage stores guest HTML with its CSP and returns the retrieval nonce.
// Expired entries are swept first; at capacity the oldest entry is dropped.
func (s *Store) Stage(html, csp string) string {
	nonce := uuid.NewString()
	now := s.now()

	payload := []byte(html)
	compressed := false
	if len(payload) >= gzipThresholdBytes {
		if gz, ok := gzipBytes(payload); ok {
			payload = gz
			compressed = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.ttl)
	for k, e := range s.entries {
		if e.createdAt.Before(cutoff) {
			delete(s.entries, k)
			s.evicted()
		}
	}

	if len(s.entries) >= s.max {
		var oldestKey string
		var oldest time.Time
		for k, e := range s.entries {
			if oldestKey == "" || e.createdAt.Before(oldest) {
				oldestKey = k
				oldest = e.createdAt
			}
		}
		delete(s.entries, oldestKey)
		s.evicted()
	}

	s.entries[nonce] = entry{
		payload:    payload,
		compressed: compressed,
		csp:        csp,
		createdAt:  now,
	}
	if s.metrics != nil {
		s.metrics.IncGuestsStaged()
	}
	return nonce
}

// Consume removes and returns the entry for a nonce. One-time: a second
// consume of the same nonce misses.
func (s *Store) Consume(nonce string) (html, csp string, ok bool) {
	s.mu.Lock()
	e, found := s.entries[nonce]
	if found {
		delete(s.entries, nonce)
	}
	s.mu.Unlock()

	if !found {
		return "", "", false
	}
	if e.createdAt.Before(s.now().Add(-s.ttl)) {
		s.evicted()
		return "", "", false
	}

	payload := e.payload
	if e.compressed {
		raw, err := gunzipBytes(payload)
		if err != nil {
			return "", "", false
		}
		payload = raw
	}
	return string(payload), e.csp, true
}

// Len returns the number of staged entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) evicted() {
	if s.metrics != nil {
		s.metrics.IncGuestsEvicted()
	}
}

func gzipBytes(data []byte) ([]byte, bool) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, false
	}
	if err := w.Close(); err != nil {
		return nil, false
	}
	// Incompressible content stays raw.
	if buf.Len() >= len(data) {
		return nil, false
	}
	return buf.Bytes(), true
}

func gunzipBytes(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
