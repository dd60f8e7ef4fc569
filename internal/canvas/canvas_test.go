package canvas

import (
	"image"
	"math"
	"testing"
	"time"

	"github.com/f3rmion/kakitori/internal/kakitori"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inked(img *image.RGBA, x, y int) bool {
	c := img.RGBAAt(x, y)
	return c.R < 128 && c.G < 128 && c.B < 128
}

func blank(img *image.RGBA) bool {
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff || img.Pix[i+1] != 0xff || img.Pix[i+2] != 0xff || img.Pix[i+3] != 0xff {
			return false
		}
	}
	return true
}

func TestNewCanvasIsBlank(t *testing.T) {
	c := New(0, 0)
	assert.Equal(t, DefaultSize, c.Size())
	assert.True(t, blank(c.Snapshot()))
	assert.False(t, c.Drawing())
}

func TestStrokeRendersInk(t *testing.T) {
	c := New(100, 10)
	c.BeginStroke(kakitori.Point{X: 10, Y: 50})
	c.ExtendStroke(kakitori.Point{X: 90, Y: 50})
	c.EndStroke()

	img := c.Snapshot()
	assert.True(t, inked(img, 50, 50), "segment midpoint")
	assert.True(t, inked(img, 50, 47), "within half width")
	assert.False(t, inked(img, 50, 30), "well outside stroke")
	// Round cap extends past the endpoint.
	assert.True(t, inked(img, 92, 50))
	assert.False(t, c.Drawing())
}

func TestTapLeavesDot(t *testing.T) {
	c := New(100, 10)
	c.BeginStroke(kakitori.Point{X: 40, Y: 40})
	c.ExtendStroke(kakitori.Point{X: 40, Y: 40})

	assert.True(t, inked(c.Snapshot(), 40, 40))
}

func TestExtendWithoutBeginIsNoop(t *testing.T) {
	c := New(100, 10)
	c.ExtendStroke(kakitori.Point{X: 10, Y: 10})
	c.ExtendStroke(kakitori.Point{X: 90, Y: 90})

	assert.True(t, blank(c.Snapshot()))
	assert.Empty(t, c.Strokes())
}

func TestDuplicateBeginStartsFresh(t *testing.T) {
	c := New(100, 6)
	c.BeginStroke(kakitori.Point{X: 10, Y: 10})
	c.BeginStroke(kakitori.Point{X: 10, Y: 90})
	c.ExtendStroke(kakitori.Point{X: 90, Y: 90})

	img := c.Snapshot()
	// No segment from the abandoned start to the new one.
	assert.False(t, inked(img, 10, 50))
	assert.True(t, inked(img, 50, 90))
	assert.Len(t, c.Strokes(), 2)
}

func TestEndStrokeIsIdempotent(t *testing.T) {
	c := New(100, 6)
	c.EndStroke()
	c.BeginStroke(kakitori.Point{X: 10, Y: 10})
	c.EndStroke()
	c.EndStroke()
	c.ExtendStroke(kakitori.Point{X: 90, Y: 90})

	assert.False(t, inked(c.Snapshot(), 50, 50))
}

func TestClearIsIdempotent(t *testing.T) {
	c := New(100, 10)
	c.BeginStroke(kakitori.Point{X: 10, Y: 10})
	c.ExtendStroke(kakitori.Point{X: 90, Y: 90})

	c.Clear()
	once := c.Snapshot()
	c.Clear()
	twice := c.Snapshot()

	assert.True(t, blank(once))
	assert.Equal(t, once.Pix, twice.Pix)
}

func TestClearMidStrokeTerminatesStroke(t *testing.T) {
	c := New(100, 10)
	c.BeginStroke(kakitori.Point{X: 10, Y: 10})
	c.Clear()

	assert.False(t, c.Drawing())
	c.ExtendStroke(kakitori.Point{X: 90, Y: 90})
	assert.True(t, blank(c.Snapshot()))
	assert.Empty(t, c.Strokes())
}

func TestSnapshotIsACopy(t *testing.T) {
	c := New(50, 4)
	snap := c.Snapshot()
	c.BeginStroke(kakitori.Point{X: 5, Y: 25})
	c.ExtendStroke(kakitori.Point{X: 45, Y: 25})

	assert.True(t, blank(snap))
	assert.True(t, inked(c.Snapshot(), 25, 25))
}

func TestStrokesRecordPoints(t *testing.T) {
	c := New(100, 4)
	c.BeginStroke(kakitori.Point{X: 1, Y: 2})
	c.ExtendStroke(kakitori.Point{X: 3, Y: 4})
	c.ExtendStroke(kakitori.Point{X: 5, Y: 6})
	c.EndStroke()

	strokes := c.Strokes()
	require.Len(t, strokes, 1)
	assert.Equal(t, []kakitori.Point{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}}, strokes[0].Points)

	strokes[0].Points[0].X = 99
	assert.Equal(t, 1.0, c.Strokes()[0].Points[0].X)
}

func TestFarPointsDrawVisiblePart(t *testing.T) {
	c := New(280, 20)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.BeginStroke(kakitori.Point{X: 140, Y: 140})
		c.ExtendStroke(kakitori.Point{X: 1e9, Y: 1e9})
		c.ExtendStroke(kakitori.Point{X: -1e9, Y: 1e9})
		c.EndStroke()
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("extending to a far point did not return")
	}

	img := c.Snapshot()
	assert.True(t, inked(img, 200, 200), "diagonal towards the far point")
	assert.True(t, inked(img, 278, 278), "reaches the corner")
	assert.False(t, inked(img, 20, 140), "the off-surface return leg stays off")
	require.Len(t, c.Strokes(), 1)
	assert.Len(t, c.Strokes()[0].Points, 3)
}

func TestSegmentOutsideSurfaceLeavesNoInk(t *testing.T) {
	c := New(100, 10)
	c.BeginStroke(kakitori.Point{X: -500, Y: -500})
	c.ExtendStroke(kakitori.Point{X: 5000, Y: -500})
	c.ExtendStroke(kakitori.Point{X: -500, Y: -500})

	assert.True(t, blank(c.Snapshot()))
	assert.True(t, c.Drawing())
}

func TestNonFinitePointsAreIgnored(t *testing.T) {
	c := New(100, 10)
	c.BeginStroke(kakitori.Point{X: math.NaN(), Y: 10})
	assert.False(t, c.Drawing())

	c.BeginStroke(kakitori.Point{X: 10, Y: 10})
	c.ExtendStroke(kakitori.Point{X: math.NaN(), Y: math.NaN()})
	c.ExtendStroke(kakitori.Point{X: math.Inf(1), Y: 50})
	c.ExtendStroke(kakitori.Point{X: 90, Y: 10})

	require.Len(t, c.Strokes(), 1)
	assert.Equal(t, []kakitori.Point{{X: 10, Y: 10}, {X: 90, Y: 10}}, c.Strokes()[0].Points)
	img := c.Snapshot()
	assert.True(t, inked(img, 50, 10))
	assert.False(t, inked(img, 50, 50))
}

func TestClip(t *testing.T) {
	a, b, ok := clip(kakitori.Point{X: 50, Y: 50}, kakitori.Point{X: 150, Y: 50}, 0, 100)
	require.True(t, ok)
	assert.Equal(t, kakitori.Point{X: 50, Y: 50}, a)
	assert.Equal(t, kakitori.Point{X: 100, Y: 50}, b)

	a, b, ok = clip(kakitori.Point{X: -100, Y: -100}, kakitori.Point{X: 200, Y: 200}, 0, 100)
	require.True(t, ok)
	assert.InDelta(t, 0, a.X, 1e-9)
	assert.InDelta(t, 100, b.Y, 1e-9)

	_, _, ok = clip(kakitori.Point{X: -10, Y: 0}, kakitori.Point{X: -10, Y: 100}, 0, 100)
	assert.False(t, ok)
	_, _, ok = clip(kakitori.Point{X: -1e308, Y: 0}, kakitori.Point{X: 1e308, Y: 0}, 0, 100)
	assert.False(t, ok)
}
