package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashDeterministic(t *testing.T) {
	h := DefaultHasher()

	h1 := h.HashString("hello")
	h2 := h.HashString("hello")
	h3 := h.HashString("world")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64) // 256-bit hex
}

func TestHashAlgorithms(t *testing.T) {
	data := []byte("payload")

	sha := NewHasher(SHA256).Hash(data)
	blake := NewHasher(BLAKE2B).Hash(data)

	assert.Len(t, sha, 64)
	assert.Len(t, blake, 64)
	assert.NotEqual(t, sha, blake)
}

func TestHashFieldsOrderIndependent(t *testing.T) {
	h := DefaultHasher()

	assert.Equal(t, h.HashFields("a", "b", "c"), h.HashFields("c", "a", "b"))
	assert.NotEqual(t, h.HashFields("a", "b"), h.HashFields("a", "b", "c"))
}

func TestHashJSON(t *testing.T) {
	h := DefaultHasher()

	v := map[string]string{"key": "value"}
	h1, err := h.HashJSON(v)
	assert.NoError(t, err)

	h2, err := h.HashJSON(v)
	assert.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestInstanceKeyStable(t *testing.T) {
	ik := NewInstanceKeyer(nil)

	k1 := ik.Key("sess_1", "docs", "ui://tool/foo")
	k2 := ik.Key("sess_1", "docs", "ui://tool/foo")
	assert.Equal(t, k1, k2)
}

func TestInstanceKeyDiscriminates(t *testing.T) {
	ik := NewInstanceKeyer(nil)

	base := ik.Key("sess_1", "docs", "ui://tool/foo")

	assert.NotEqual(t, base, ik.Key("sess_2", "docs", "ui://tool/foo"))
	assert.NotEqual(t, base, ik.Key("sess_1", "maps", "ui://tool/foo"))
	assert.NotEqual(t, base, ik.Key("sess_1", "docs", "ui://tool/bar"))
}

func TestShortKey(t *testing.T) {
	ik := NewInstanceKeyer(nil)

	full := ik.Key("sess_1", "docs", "ui://tool/foo")
	short := ik.ShortKey(full)

	assert.Len(t, short, 8)
	assert.Equal(t, full[:8], short)
	assert.Equal(t, "abc", ik.ShortKey("abc"))
}
