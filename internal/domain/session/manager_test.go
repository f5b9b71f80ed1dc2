package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()

	s := m.Create("http://localhost:3000", "secret")
	require.NotEmpty(t, s.ID)
	assert.True(t, s.Active())

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, s, got)

	assert.Equal(t, 1, m.Count())
	assert.True(t, m.Close(s.ID))
	assert.False(t, m.Close(s.ID))
	assert.Equal(t, 0, m.Count())

	_, ok = m.Get(s.ID)
	assert.False(t, ok)
}

func TestNilSessionInactive(t *testing.T) {
	var s *Session
	assert.False(t, s.Active())
}
