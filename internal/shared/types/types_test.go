package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDisplayMode(t *testing.T) {
	tests := []struct {
		input string
		want  DisplayMode
		ok    bool
	}{
		{"inline", ModeInline, true},
		{"fullscreen", ModeFullscreen, true},
		{"pip", ModePip, true},
		{"standalone", ModeStandalone, true},
		{"theater", "", false},
		{"", "", false},
		{"Inline", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDisplayMode(tt.input)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDisplayModeNegotiable(t *testing.T) {
	assert.True(t, ModeInline.Negotiable())
	assert.True(t, ModeFullscreen.Negotiable())
	assert.True(t, ModePip.Negotiable())
	assert.False(t, ModeStandalone.Negotiable())
}

func TestTextBlock(t *testing.T) {
	b := TextBlock("hello")
	assert.Equal(t, "text", b.Type)
	assert.Equal(t, "hello", b.Text)
}

func TestFirstText(t *testing.T) {
	blocks := []ContentBlock{
		{Type: "image", Data: "xxxx", MimeType: "image/png"},
		{Type: "text", Text: "caption"},
		{Type: "text", Text: "second"},
	}

	text, ok := FirstText(blocks)
	assert.True(t, ok)
	assert.Equal(t, "caption", text)

	_, ok = FirstText(nil)
	assert.False(t, ok)

	_, ok = FirstText([]ContentBlock{{Type: "image", Data: "xxxx"}})
	assert.False(t, ok)
}

func TestErrorResult(t *testing.T) {
	res := ErrorResult("tool exploded")
	assert.True(t, res.IsError)
	text, ok := FirstText(res.Content)
	assert.True(t, ok)
	assert.Equal(t, "tool exploded", text)
}
