// Package bigchar renders images and kanji as terminal block art using
// half-block characters.
package bigchar

import (
	"image"
	"image/color"
	"image/draw"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/nfnt/resize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Threshold is the darkness (0-255) above which a half cell counts as ink.
const Threshold = 96

// fontPaths lists CJK fonts with Japanese glyph shapes first.
var fontPaths = []string{
	// macOS
	"/System/Library/Fonts/ヒラギノ角ゴシック W3.ttc",
	"/System/Library/Fonts/Hiragino Sans GB.ttc",
	"/Library/Fonts/Arial Unicode.ttf",
	// Linux
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/opentype/ipafont-gothic/ipag.ttf",
	"/usr/share/fonts/truetype/droid/DroidSansFallbackFull.ttf",
	// Windows
	"C:\\Windows\\Fonts\\msgothic.ttc",
	"C:\\Windows\\Fonts\\YuGothR.ttc",
}

var (
	faceOnce sync.Once
	face     font.Face
)

func loadFace() font.Face {
	faceOnce.Do(func() {
		for _, path := range fontPaths {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if f := parseFace(data); f != nil {
				face = f
				return
			}
		}
	})
	return face
}

func parseFace(data []byte) font.Face {
	opts := &opentype.FaceOptions{Size: 64, DPI: 72}

	if coll, err := opentype.ParseCollection(data); err == nil && coll.NumFonts() > 0 {
		if fnt, err := coll.Font(0); err == nil {
			if f, err := opentype.NewFace(fnt, opts); err == nil {
				return f
			}
		}
	}
	if fnt, err := opentype.Parse(data); err == nil {
		if f, err := opentype.NewFace(fnt, opts); err == nil {
			return f
		}
	}
	return nil
}

// IsAvailable reports whether a CJK font was found for Glyph.
func IsAvailable() bool {
	return loadFace() != nil
}

// Render draws img as cols x rows cells of half blocks. Dark pixels are
// ink; each cell covers two vertically stacked samples.
func Render(img image.Image, cols, rows int) string {
	if img == nil || cols <= 0 || rows <= 0 || img.Bounds().Empty() {
		return ""
	}
	small := resize.Resize(uint(cols), uint(rows*2), img, resize.Bilinear)
	b := small.Bounds()

	ink := func(x, y int) bool {
		if y >= b.Dy() {
			return false
		}
		g := color.GrayModel.Convert(small.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
		return 255-int(g.Y) > Threshold
	}

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			top, bottom := ink(col, row*2), ink(col, row*2+1)
			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		if row < rows-1 {
			sb.WriteRune('\n')
		}
	}
	return sb.String()
}

// Glyph renders char in black on white, or returns nil when no CJK font is
// installed.
func Glyph(char string) *image.Gray {
	f := loadFace()
	if char == "" || f == nil {
		return nil
	}
	r := []rune(char)[0]

	bounds, _, ok := f.GlyphBounds(r)
	if !ok {
		return nil
	}
	w := (bounds.Max.X - bounds.Min.X).Ceil()
	h := (bounds.Max.Y - bounds.Min.Y).Ceil()

	const padding = 4
	side := max(w, h, 64) + padding*2

	img := image.NewGray(image.Rect(0, 0, side, side))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: f,
		Dot:  fixed.P((side-w)/2-bounds.Min.X.Floor(), (side-h)/2-bounds.Min.Y.Floor()),
	}
	d.DrawString(string(r))
	return img
}

var (
	cacheMu sync.Mutex
	cache   = make(map[string]string)
)

// GetCached returns the block art for char at the given size, rendering it
// on first use. It returns "" when no CJK font is installed.
func GetCached(char string, cols, rows int) string {
	key := char + "/" + strconv.Itoa(cols) + "x" + strconv.Itoa(rows)

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if s, ok := cache[key]; ok {
		return s
	}

	g := Glyph(char)
	if g == nil {
		return ""
	}
	s := Render(g, cols, rows)
	cache[key] = s
	return s
}
