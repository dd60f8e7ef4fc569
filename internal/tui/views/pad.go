package views

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/f3rmion/kakitori/internal/canvas"
	"github.com/f3rmion/kakitori/internal/kakitori"
	"github.com/f3rmion/kakitori/internal/tui/bigchar"
)

// Drawing pad size in terminal cells. Cells are about twice as tall as they
// are wide, so 40x20 shows the square canvas undistorted.
const (
	PadCols = 40
	PadRows = 20
)

var padStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#FDBA74")).
	Foreground(lipgloss.Color("#1F2937")).
	Background(lipgloss.Color("#FFFFFF"))

var padBusyStyle = padStyle.BorderForeground(lipgloss.Color("#9CA3AF"))

// Pad turns mouse drags over a block of terminal cells into canvas strokes.
type Pad struct {
	canvas *canvas.Canvas
	input  *canvas.Input

	cols, rows int
	x, y       int // Screen cell of the pad's top-left interior cell
}

// NewPad creates a pad of cols x rows cells drawing onto c.
func NewPad(c *canvas.Canvas, cols, rows int) *Pad {
	in := canvas.NewInput(c, kakitori.Point{})
	in.ScaleX = float64(c.Size()) / float64(cols)
	in.ScaleY = float64(c.Size()) / float64(rows)
	return &Pad{canvas: c, input: in, cols: cols, rows: rows}
}

// SetOrigin places the pad's interior top-left at screen cell (x, y).
func (p *Pad) SetOrigin(x, y int) {
	p.x, p.y = x, y
	p.input.Origin = kakitori.Point{X: float64(x), Y: float64(y)}
}

// Contains reports whether screen cell (x, y) is inside the pad.
func (p *Pad) Contains(x, y int) bool {
	return x >= p.x && x < p.x+p.cols && y >= p.y && y < p.y+p.rows
}

// HandleMouse feeds a mouse event to the canvas. Cell centers are used as
// pointer positions. It reports whether the event was consumed.
func (p *Pad) HandleMouse(msg tea.MouseMsg) bool {
	ev := canvas.PointerEvent{
		Kind: canvas.Mouse,
		X:    float64(msg.X) + 0.5,
		Y:    float64(msg.Y) + 0.5,
	}
	inside := p.Contains(msg.X, msg.Y)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !inside {
			return false
		}
		ev.Phase = canvas.PointerDown
	case tea.MouseActionMotion:
		ev.Phase = canvas.PointerMove
		if !inside {
			ev.Phase = canvas.PointerLeave
		}
	case tea.MouseActionRelease:
		ev.Phase = canvas.PointerUp
	default:
		return false
	}
	return p.input.Handle(ev)
}

// Clear wipes the drawing.
func (p *Pad) Clear() { p.canvas.Clear() }

// View renders the drawing inside a border. A busy pad is drawn greyed.
func (p *Pad) View(busy bool) string {
	art := bigchar.Render(p.canvas.Snapshot(), p.cols, p.rows)
	if busy {
		return padBusyStyle.Render(art)
	}
	return padStyle.Render(art)
}
