package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// Payload size limits (in bytes)
const (
	MaxFrameSize    = 1 * 1024 * 1024 // 1MB - maximum channel frame size
	MaxResourceSize = 4 * 1024 * 1024 // 4MB - UI resource HTML size limit
	MaxMessageSize  = 16 * 1024       // 16KB - single chat message size limit
)

// String length limits
const (
	MaxExtensionNameLength = 128
	MaxToolNameLength      = 128
	MaxURILength           = 2048
)

// Regular expressions for validation
var (
	// ExtensionNamePattern allows alphanumeric, hyphens, underscores
	ExtensionNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// ToolNamePattern allows alphanumeric, hyphens, underscores, and dots
	ToolNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// ValidateExtensionName checks an extension name for use in tool routing
func ValidateExtensionName(name string) error {
	if name == "" {
		return fmt.Errorf("extension name is empty")
	}
	if len(name) > MaxExtensionNameLength {
		return fmt.Errorf("extension name exceeds %d characters", MaxExtensionNameLength)
	}
	if !ExtensionNamePattern.MatchString(name) {
		return fmt.Errorf("extension name contains invalid characters: %s", name)
	}
	return nil
}

// ValidateToolName checks a tool name before it is routed to a backend
func ValidateToolName(name string) error {
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if len(name) > MaxToolNameLength {
		return fmt.Errorf("tool name exceeds %d characters", MaxToolNameLength)
	}
	if !ToolNamePattern.MatchString(name) {
		return fmt.Errorf("tool name contains invalid characters: %s", name)
	}
	return nil
}

// ValidateURI bounds-checks a resource URI string. Scheme rules live with
// the caller; this only enforces shape.
func ValidateURI(uri string) error {
	if uri == "" {
		return fmt.Errorf("uri is empty")
	}
	if len(uri) > MaxURILength {
		return fmt.Errorf("uri exceeds %d characters", MaxURILength)
	}
	if strings.ContainsAny(uri, " \t\n\r") {
		return fmt.Errorf("uri contains whitespace")
	}
	return nil
}

// TruncateString shortens a string for log output
func TruncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
