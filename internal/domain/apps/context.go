package apps

import (
	"time"

	"github.com/sammcj/goose/internal/shared/types"
)

// ThemeSource supplies the theme name and style payload for the host
// context. Implemented by the theme provider.
type ThemeSource interface {
	Theme() string
	Styles() map[string]interface{}
}

// DeviceCapabilities describes the pointing capabilities of the host.
type DeviceCapabilities struct {
	Touch bool `json:"touch"`
	Hover bool `json:"hover"`
}

// SafeAreaInsets are the host chrome insets in pixels.
type SafeAreaInsets struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
	Right  int `json:"right"`
}

// HostContext is the payload pushed to the guest, recomputed whenever theme,
// display mode, negotiation, or container geometry changes.
type HostContext struct {
	Theme                 string                 `json:"theme"`
	Styles                map[string]interface{} `json:"styles,omitempty"`
	DisplayMode           types.DisplayMode      `json:"displayMode"`
	AvailableDisplayModes []types.DisplayMode    `json:"availableDisplayModes"`
	ContainerDimensions   *types.Dimensions      `json:"containerDimensions,omitempty"`
	Locale                string                 `json:"locale"`
	TimeZone              string                 `json:"timeZone"`
	UserAgent             string                 `json:"userAgent"`
	Platform              string                 `json:"platform"`
	DeviceCapabilities    DeviceCapabilities     `json:"deviceCapabilities"`
	SafeAreaInsets        SafeAreaInsets         `json:"safeAreaInsets"`
}

// Measured carries frontend-reported container measurements. Nil axes were
// not measured.
type Measured struct {
	Width  *int
	Height *int
}

// ContextBuilder assembles host context payloads.
type ContextBuilder struct {
	theme     ThemeSource
	locale    string
	timeZone  string
	userAgent string
}

// NewContextBuilder creates a builder. The time zone defaults to the
// process-local zone.
func NewContextBuilder(theme ThemeSource, userAgent string) *ContextBuilder {
	zone, _ := time.Now().Zone()
	return &ContextBuilder{
		theme:     theme,
		locale:    "en-US",
		timeZone:  zone,
		userAgent: userAgent,
	}
}

// WithLocale overrides the locale.
func (b *ContextBuilder) WithLocale(locale string) *ContextBuilder {
	b.locale = locale
	return b
}

// WithTimeZone overrides the time zone.
func (b *ContextBuilder) WithTimeZone(tz string) *ContextBuilder {
	b.timeZone = tz
	return b
}

// Build assembles the context for one instance. availableDisplayModes is the
// effective set once negotiation completes; before that, the host set, so a
// conforming guest can still request a mode during startup.
func (b *ContextBuilder) Build(ctrl *DisplayController, measured Measured) HostContext {
	mode := ctrl.Active()

	available := ctrl.EffectiveModes()
	if !ctrl.Negotiated() {
		available = negotiable(ctrl.HostModes())
	}

	var theme string
	var styles map[string]interface{}
	if b.theme != nil {
		theme = b.theme.Theme()
		styles = b.theme.Styles()
	}

	return HostContext{
		Theme:                 theme,
		Styles:                styles,
		DisplayMode:           mode,
		AvailableDisplayModes: available,
		ContainerDimensions:   containerDimensions(mode, measured, ctrl.Height()),
		Locale:                b.locale,
		TimeZone:              b.timeZone,
		UserAgent:             b.userAgent,
		Platform:              "desktop",
		DeviceCapabilities:    DeviceCapabilities{Touch: false, Hover: true},
		SafeAreaInsets:        SafeAreaInsets{},
	}
}

// containerDimensions resolves the dimension payload from the active mode's
// width/height policy. Fixed axes use the mode's constants, flexible axes
// use measured values, unbounded axes are omitted.
func containerDimensions(mode types.DisplayMode, measured Measured, inlineHeight *int) *types.Dimensions {
	widthPolicy, heightPolicy := modePolicies(mode)

	dims := &types.Dimensions{}

	switch widthPolicy {
	case types.SizeFixed:
		w := PipWidth
		dims.Width = &w
	case types.SizeFlexible:
		dims.Width = measured.Width
	}

	switch heightPolicy {
	case types.SizeFixed:
		h := PipHeight
		dims.Height = &h
	case types.SizeFlexible:
		dims.Height = measured.Height
	case types.SizeUnbounded:
		// Content-driven: report the live measurement when one exists
		dims.Height = inlineHeight
	}

	if dims.Width == nil && dims.Height == nil {
		return nil
	}
	return dims
}

// modePolicies maps a display mode to its width and height size policies.
func modePolicies(mode types.DisplayMode) (width, height types.SizePolicy) {
	switch mode {
	case types.ModeInline:
		return types.SizeFlexible, types.SizeUnbounded
	case types.ModePip:
		return types.SizeFixed, types.SizeFixed
	default:
		// fullscreen and standalone fill their surface
		return types.SizeFlexible, types.SizeFlexible
	}
}

func negotiable(modes []types.DisplayMode) []types.DisplayMode {
	out := make([]types.DisplayMode, 0, len(modes))
	for _, m := range modes {
		if m.Negotiable() {
			out = append(out, m)
		}
	}
	return out
}
