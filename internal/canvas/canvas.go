// Package canvas captures freehand strokes onto a fixed-size raster surface.
package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"github.com/f3rmion/kakitori/internal/kakitori"
	"github.com/golang/freetype/raster"
	"golang.org/x/image/math/fixed"
)

const (
	// DefaultSize is the side length of the drawing surface in pixels.
	DefaultSize = 280
	// DefaultStrokeWidth is the ink width in pixels. The recognition model
	// was trained on drawings made with this width at DefaultSize.
	DefaultStrokeWidth = 20
)

var (
	// Background is the colour of an empty surface.
	Background = color.White
	// Ink is the colour strokes are drawn with.
	Ink = color.Black
)

// Canvas owns the raster surface and is the only writer to it.
// All methods are safe for concurrent use.
type Canvas struct {
	mu sync.Mutex

	img     *image.RGBA
	width   fixed.Int26_6
	ras     *raster.Rasterizer
	painter *raster.RGBAPainter

	drawing bool
	last    kakitori.Point
	strokes []kakitori.Stroke
}

// New creates a blank square canvas of the given size and ink width.
// Non-positive arguments fall back to the defaults.
func New(size int, strokeWidth float64) *Canvas {
	if size <= 0 {
		size = DefaultSize
	}
	if strokeWidth <= 0 {
		strokeWidth = DefaultStrokeWidth
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	ras := raster.NewRasterizer(size, size)
	ras.UseNonZeroWinding = true
	painter := raster.NewRGBAPainter(img)
	painter.SetColor(Ink)

	c := &Canvas{
		img:     img,
		width:   toFixed(strokeWidth),
		ras:     ras,
		painter: painter,
	}
	c.fill()
	return c
}

// Size returns the side length of the surface in pixels.
func (c *Canvas) Size() int {
	return c.img.Bounds().Dx()
}

// BeginStroke starts a new stroke at p. A begin that arrives while a stroke
// is already active closes that stroke and starts over at p. Points with a
// NaN or infinite coordinate are ignored.
func (c *Canvas) BeginStroke(p kakitori.Point) {
	if !finite(p) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.drawing = true
	c.last = p
	c.strokes = append(c.strokes, kakitori.Stroke{Points: []kakitori.Point{p}})
}

// ExtendStroke draws a segment from the previous point to p. It does nothing
// unless a stroke is active or when p is not finite. Points far off the
// surface are accepted; only the visible part of the segment is drawn.
func (c *Canvas) ExtendStroke(p kakitori.Point) {
	if !finite(p) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.drawing {
		return
	}

	c.segment(c.last, p)
	c.last = p
	cur := &c.strokes[len(c.strokes)-1]
	cur.Points = append(cur.Points, p)
}

// EndStroke closes the active stroke, if any.
func (c *Canvas) EndStroke() {
	c.mu.Lock()
	c.drawing = false
	c.mu.Unlock()
}

// Clear resets the surface to the background colour and discards the
// drawing, including a stroke still in progress.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.drawing = false
	c.strokes = nil
	c.fill()
}

// Drawing reports whether a stroke is in progress.
func (c *Canvas) Drawing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drawing
}

// Strokes returns a copy of the strokes drawn since the last Clear.
func (c *Canvas) Strokes() []kakitori.Stroke {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]kakitori.Stroke, len(c.strokes))
	for i, s := range c.strokes {
		out[i] = kakitori.Stroke{Points: append([]kakitori.Point(nil), s.Points...)}
	}
	return out
}

// Snapshot returns a copy of the raster surface.
func (c *Canvas) Snapshot() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := image.NewRGBA(c.img.Bounds())
	copy(out.Pix, c.img.Pix)
	return out
}

func (c *Canvas) fill() {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
}

// segment rasterizes one line from a to b with round caps and joins.
func (c *Canvas) segment(a, b kakitori.Point) {
	// The 26.6 stroker overflows (and spins) on coordinates in the
	// millions, so cut the line to a box one stroke width larger than the
	// surface. A cap on the cut end cannot reach the surface.
	pad := float64(c.width) / 64
	a, b, ok := clip(a, b, -pad, float64(c.Size())+pad)
	if !ok {
		return
	}

	start := toPoint(a)
	end := toPoint(b)
	if start == end {
		// The stroker needs a direction; nudge by one 26.6 unit so a
		// tap still leaves a round dot.
		end.X++
	}

	var path raster.Path
	path.Start(start)
	path.Add1(end)

	c.ras.Clear()
	raster.Stroke(c.ras, path, c.width, raster.RoundCapper, raster.RoundJoiner)
	c.ras.Rasterize(c.painter)
}

// clip returns the part of segment a-b inside the square [lo,hi]x[lo,hi]
// (Liang-Barsky), or false when none of it is.
func clip(a, b kakitori.Point, lo, hi float64) (kakitori.Point, kakitori.Point, bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	if math.IsInf(dx, 0) || math.IsInf(dy, 0) {
		return a, b, false
	}

	t0, t1 := 0.0, 1.0
	for _, e := range [4][2]float64{
		{-dx, a.X - lo},
		{dx, hi - a.X},
		{-dy, a.Y - lo},
		{dy, hi - a.Y},
	} {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return a, b, false
			}
			t0 = max(t0, r)
		} else {
			if r < t0 {
				return a, b, false
			}
			t1 = min(t1, r)
		}
	}

	end := kakitori.Point{X: a.X + t1*dx, Y: a.Y + t1*dy}
	start := kakitori.Point{X: a.X + t0*dx, Y: a.Y + t0*dy}
	return start, end, true
}

func finite(p kakitori.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

func toPoint(p kakitori.Point) fixed.Point26_6 {
	return fixed.Point26_6{X: toFixed(p.X), Y: toFixed(p.Y)}
}
