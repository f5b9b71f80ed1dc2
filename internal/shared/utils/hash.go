package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256  HashAlgorithm = "sha256"
	BLAKE2B HashAlgorithm = "blake2b"
	// Extensible: add more algorithms here
	// SHA512 HashAlgorithm = "sha512"
)

// Hasher provides extensible hashing functionality
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{
		algorithm: algorithm,
	}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(BLAKE2B)
}

// Hash computes a hash of the input data
func (h *Hasher) Hash(data []byte) string {
	switch h.algorithm {
	case SHA256:
		hash := sha256.Sum256(data)
		return hex.EncodeToString(hash[:])
	case BLAKE2B:
		hash := blake2b.Sum256(data)
		return hex.EncodeToString(hash[:])
	// Extensible: add more cases here
	default:
		hash := blake2b.Sum256(data)
		return hex.EncodeToString(hash[:])
	}
}

// HashString computes a hash of a string
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// HashJSON computes a hash of a JSON-serializable object
// The hash is deterministic (same object = same hash)
func (h *Hasher) HashJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return h.Hash(data), nil
}

// HashFields computes a hash from multiple fields
// Fields are concatenated with a delimiter for consistent hashing
func (h *Hasher) HashFields(fields ...string) string {
	// Sort fields for deterministic ordering
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)

	combined := strings.Join(sorted, "|")
	return h.HashString(combined)
}

// InstanceKeyer derives stable cache keys for embedded app instances
type InstanceKeyer struct {
	hasher *Hasher
}

// NewInstanceKeyer creates a new instance keyer
func NewInstanceKeyer(hasher *Hasher) *InstanceKeyer {
	if hasher == nil {
		hasher = DefaultHasher()
	}
	return &InstanceKeyer{hasher: hasher}
}

// Key derives a deterministic key for an app instance. The same resource
// rendered by the same extension in the same session always maps to the
// same key, so a remount finds its previous state.
func (ik *InstanceKeyer) Key(sessionID, extensionName, resourceURI string) string {
	return ik.hasher.HashFields(
		fmt.Sprintf("sess:%s", sessionID),
		fmt.Sprintf("ext:%s", extensionName),
		fmt.Sprintf("uri:%s", resourceURI),
	)
}

// ShortKey generates a short (8-character) key for display
func (ik *InstanceKeyer) ShortKey(fullKey string) string {
	if len(fullKey) < 8 {
		return fullKey
	}
	return fullKey[:8]
}
