package canvas

import "github.com/f3rmion/kakitori/internal/kakitori"

// PointerKind distinguishes mouse from touch input.
type PointerKind int

const (
	Mouse PointerKind = iota
	Touch
)

// PointerPhase is the stage of a pointer gesture.
type PointerPhase int

const (
	PointerDown PointerPhase = iota
	PointerMove
	PointerUp
	PointerLeave
	PointerCancel
)

// PointerEvent is a platform pointer event in screen coordinates.
type PointerEvent struct {
	Kind    PointerKind
	Phase   PointerPhase
	X, Y    float64 // Client coordinates
	ID      int     // Touch identifier; ignored for mouse input
	Primary bool    // Touch only: first finger of a multi-touch gesture
}

// Input adapts mouse and touch events to the canvas stroke contract.
// It is not safe for concurrent use; feed it from the UI goroutine.
type Input struct {
	canvas *Canvas

	// Origin is the on-screen position of the surface's top-left corner.
	Origin kakitori.Point
	// ScaleX and ScaleY convert screen units to surface pixels. Zero means 1.
	ScaleX, ScaleY float64

	touchID  int
	tracking bool
}

// NewInput returns an adapter feeding c, with the surface at origin and a
// 1:1 scale.
func NewInput(c *Canvas, origin kakitori.Point) *Input {
	return &Input{canvas: c, Origin: origin, ScaleX: 1, ScaleY: 1}
}

// Translate converts a client coordinate to a surface coordinate.
func (in *Input) Translate(x, y float64) kakitori.Point {
	sx, sy := in.ScaleX, in.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return kakitori.Point{X: (x - in.Origin.X) * sx, Y: (y - in.Origin.Y) * sy}
}

// Handle applies ev to the canvas. It reports whether the platform's default
// gesture handling (scroll, zoom) must be suppressed for this event.
func (in *Input) Handle(ev PointerEvent) bool {
	if ev.Kind == Touch && !in.primaryTouch(ev) {
		// Secondary fingers neither draw nor scroll the page mid-stroke.
		return in.tracking
	}

	p := in.Translate(ev.X, ev.Y)
	switch ev.Phase {
	case PointerDown:
		in.canvas.BeginStroke(p)
		in.tracking = true
		in.touchID = ev.ID
		return true
	case PointerMove:
		if !in.tracking {
			return false
		}
		in.canvas.ExtendStroke(p)
		return true
	case PointerUp, PointerLeave, PointerCancel:
		was := in.tracking
		in.canvas.EndStroke()
		in.tracking = false
		return was
	}
	return false
}

// primaryTouch reports whether ev belongs to the contact being tracked, or
// may start tracking.
func (in *Input) primaryTouch(ev PointerEvent) bool {
	if in.tracking {
		return ev.ID == in.touchID
	}
	return ev.Phase != PointerDown || ev.Primary
}
