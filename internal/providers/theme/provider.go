// Package theme is the theme registry behind the host context's theme and
// styles fields.
package theme

import (
	"fmt"
	"sync"
)

// Theme is one UI theme offered to guests through the host context.
type Theme struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Type   string            `json:"type"` // "dark", "light", "custom"
	Colors map[string]string `json:"colors"`
	Fonts  map[string]string `json:"fonts,omitempty"`
}

// Provider is a theme registry with a current selection. It implements the
// host context's theme source.
type Provider struct {
	mu      sync.RWMutex
	themes  map[string]Theme
	current string
	onSet   []func(Theme)
}

// NewProvider creates a provider seeded with the default themes.
func NewProvider() *Provider {
	p := &Provider{
		themes:  make(map[string]Theme),
		current: "dark",
	}
	for _, t := range defaults() {
		p.themes[t.ID] = t
	}
	return p
}

// OnSet registers a callback invoked whenever the current theme changes.
func (p *Provider) OnSet(fn func(Theme)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onSet = append(p.onSet, fn)
}

// List returns every registered theme.
func (p *Provider) List() []Theme {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Theme, 0, len(p.themes))
	for _, t := range p.themes {
		out = append(out, t)
	}
	return out
}

// Get returns a theme by ID.
func (p *Provider) Get(themeID string) (Theme, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.themes[themeID]
	return t, ok
}

// Current returns the active theme.
func (p *Provider) Current() Theme {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.themes[p.current]
}

// Set switches the active theme.
func (p *Provider) Set(themeID string) error {
	p.mu.Lock()
	t, ok := p.themes[themeID]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("theme not found: %s", themeID)
	}
	p.current = themeID
	callbacks := make([]func(Theme), len(p.onSet))
	copy(callbacks, p.onSet)
	p.mu.Unlock()

	for _, fn := range callbacks {
		fn(t)
	}
	return nil
}

// Register adds or replaces a custom theme.
func (p *Provider) Register(t Theme) error {
	if t.ID == "" {
		return fmt.Errorf("theme needs an id")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.themes[t.ID] = t
	return nil
}

// Delete removes a custom theme; the defaults and the active theme stay.
func (p *Provider) Delete(themeID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if themeID == "dark" || themeID == "light" || themeID == "high-contrast" {
		return fmt.Errorf("cannot delete built-in theme: %s", themeID)
	}
	if themeID == p.current {
		return fmt.Errorf("cannot delete the active theme")
	}
	if _, ok := p.themes[themeID]; !ok {
		return fmt.Errorf("theme not found: %s", themeID)
	}
	delete(p.themes, themeID)
	return nil
}

// Theme returns the active theme's type for the host context payload.
func (p *Provider) Theme() string {
	return p.Current().Type
}

// Styles returns the active theme's style payload for the host context.
func (p *Provider) Styles() map[string]interface{} {
	t := p.Current()
	return map[string]interface{}{
		"colors": t.Colors,
		"fonts":  t.Fonts,
	}
}

func defaults() []Theme {
	sans := "Inter, system-ui, sans-serif"
	mono := "JetBrains Mono, monospace"

	return []Theme{
		{
			ID:   "dark",
			Name: "Dark",
			Type: "dark",
			Colors: map[string]string{
				"background": "#1a1a1a",
				"surface":    "#252525",
				"primary":    "#3b82f6",
				"secondary":  "#8b5cf6",
				"accent":     "#10b981",
				"text":       "#ffffff",
				"textMuted":  "#a0a0a0",
				"border":     "#404040",
			},
			Fonts: map[string]string{"sans": sans, "mono": mono},
		},
		{
			ID:   "light",
			Name: "Light",
			Type: "light",
			Colors: map[string]string{
				"background": "#ffffff",
				"surface":    "#f5f5f5",
				"primary":    "#3b82f6",
				"secondary":  "#8b5cf6",
				"accent":     "#10b981",
				"text":       "#1a1a1a",
				"textMuted":  "#666666",
				"border":     "#e0e0e0",
			},
			Fonts: map[string]string{"sans": sans, "mono": mono},
		},
		{
			ID:   "high-contrast",
			Name: "High Contrast",
			Type: "dark",
			Colors: map[string]string{
				"background": "#000000",
				"surface":    "#1a1a1a",
				"primary":    "#00ffff",
				"secondary":  "#ff00ff",
				"accent":     "#00ff00",
				"text":       "#ffffff",
				"textMuted":  "#cccccc",
				"border":     "#ffffff",
			},
			Fonts: map[string]string{"sans": sans, "mono": mono},
		},
	}
}
