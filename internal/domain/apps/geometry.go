package apps

// PiP window geometry. The window is anchored to the bottom-right corner of
// the viewport with a fixed margin; PipPosition offsets it left and up from
// that anchor.
const (
	PipWidth  = 320
	PipHeight = 240
	PipMargin = 16

	// Keyboard nudge steps
	PipStepSmall = 10
	PipStepLarge = 50
)

// PipPosition is the offset from the bottom-right anchor. X moves the window
// left, Y moves it up; both are always >= 0.
type PipPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Viewport holds the current viewport dimensions in pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ClampPip constrains an offset so the window's bounding rectangle stays
// reachable within the viewport. Degenerate viewports collapse the range to
// zero rather than allowing unreachable offsets.
func ClampPip(p PipPosition, vp Viewport) PipPosition {
	maxX := vp.Width - PipWidth - 2*PipMargin
	maxY := vp.Height - PipHeight - 2*PipMargin

	return PipPosition{
		X: clamp(p.X, 0, maxX),
		Y: clamp(p.Y, 0, maxY),
	}
}

// Nudge applies a keyboard adjustment. Large selects the modifier step.
func (p PipPosition) Nudge(dx, dy int, large bool, vp Viewport) PipPosition {
	step := PipStepSmall
	if large {
		step = PipStepLarge
	}
	return ClampPip(PipPosition{X: p.X + dx*step, Y: p.Y + dy*step}, vp)
}

// Translate applies a drag delta and clamps the result.
func (p PipPosition) Translate(dx, dy int, vp Viewport) PipPosition {
	return ClampPip(PipPosition{X: p.X + dx, Y: p.Y + dy}, vp)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
