package apps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyLink(t *testing.T) {
	tests := []struct {
		raw    string
		scheme string
		safe   bool
	}{
		{"https://example.com/docs", "https", true},
		{"http://example.com", "http", true},
		{"HTTPS://EXAMPLE.COM", "https", true},
		{"mailto:someone@example.com", "mailto", false},
		{"vscode://file/tmp/x.go", "vscode", false},
		{"file:///etc/passwd", "file", false},
	}

	for _, tt := range tests {
		scheme, safe, err := ClassifyLink(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.scheme, scheme, tt.raw)
		assert.Equal(t, tt.safe, safe, tt.raw)
	}
}

func TestClassifyLinkRejectsSchemelessAndMalformed(t *testing.T) {
	_, _, err := ClassifyLink("example.com/no-scheme")
	assert.Error(t, err)

	_, _, err = ClassifyLink("://")
	assert.Error(t, err)

	_, _, err = ClassifyLink("   ")
	assert.Error(t, err)
}
