package types

// DisplayMode represents the rendering posture of a hosted app frame
type DisplayMode string

const (
	ModeInline     DisplayMode = "inline"
	ModeFullscreen DisplayMode = "fullscreen"
	ModePip        DisplayMode = "pip"
	ModeStandalone DisplayMode = "standalone"
)

// ParseDisplayMode converts a wire string to a DisplayMode
func ParseDisplayMode(s string) (DisplayMode, bool) {
	switch DisplayMode(s) {
	case ModeInline, ModeFullscreen, ModePip, ModeStandalone:
		return DisplayMode(s), true
	default:
		return "", false
	}
}

// Negotiable reports whether a mode participates in capability negotiation.
// Standalone is host-only and never offered to guests.
func (m DisplayMode) Negotiable() bool {
	return m == ModeInline || m == ModeFullscreen || m == ModePip
}

// SizePolicy describes how one axis of the container is sized in a mode
type SizePolicy string

const (
	SizeFixed     SizePolicy = "fixed"
	SizeFlexible  SizePolicy = "flexible"
	SizeUnbounded SizePolicy = "unbounded"
)

// Dimensions carries measured container dimensions in pixels.
// Axes without a measured value are omitted.
type Dimensions struct {
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`
}

// ContentBlock is a single unit of content exchanged with guests and tools
type ContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"` // base64 for binary payloads
	MimeType string `json:"mimeType,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// TextBlock builds a text content block
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// FirstText returns the first text block's content, if any
func FirstText(blocks []ContentBlock) (string, bool) {
	for _, b := range blocks {
		if b.Type == "text" {
			return b.Text, true
		}
	}
	return "", false
}

// ToolResult is the normalized shape of a tool invocation result,
// regardless of the upstream representation
type ToolResult struct {
	Content           []ContentBlock         `json:"content"`
	IsError           bool                   `json:"isError,omitempty"`
	StructuredContent map[string]interface{} `json:"structuredContent,omitempty"`
}

// ErrorResult builds a ToolResult carrying a single error message
func ErrorResult(message string) *ToolResult {
	return &ToolResult{
		Content: []ContentBlock{TextBlock(message)},
		IsError: true,
	}
}

// ResourceContents is one entry returned by a resource read
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"` // base64
}
