package watermark

import (
	"github.com/rideon/docguard/utils"
	"github.com/ztrue/tracerr"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"image"
	"image/color"
	"image/draw"
	"math"
)

const (
	minFontSize    = 12
	fontSizeRatio  = 0.03
	tileAngle      = -math.Pi / 6 // -30°
	minTilePadding = 40
	stampMargin    = 10
)

var (
	overlayColor = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	stampColor   = color.RGBA{R: 80, G: 80, B: 80, A: 255}
)

// Renderer provides drawing surfaces.
type Renderer interface {
	NewCanvas(width, height int) (draw.Image, error)
}

// MemoryRenderer allocates in-memory RGBA canvases.
type MemoryRenderer struct{}

func (MemoryRenderer) NewCanvas(width, height int) (draw.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, width, height)), nil
}

type VisibleOptions struct {
	// Text is tiled over the whole image, typically the masked email and the date.
	Text string
	// Opacity of the tiled text, in [0, 1].
	Opacity float64
	// StampText is drawn once, in bold, in the bottom-right corner. Skipped when empty.
	StampText    string
	StampOpacity float64
}

// FontSize scales with the smaller image dimension, with a legible minimum.
func FontSize(bounds image.Rectangle) int {
	return utils.Max(minFontSize, int(math.Floor(fontSizeRatio*float64(utils.Min(bounds.Dx(), bounds.Dy())))))
}

func newFace(ttf []byte, size int) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, tracerr.Wrap(ErrorRenderingUnavailable.AddDetails(err.Error()))
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, tracerr.Wrap(ErrorRenderingUnavailable.AddDetails(err.Error()))
	}
	return face, nil
}

// NewRaster acquires a canvas from r, and copies src onto it.
func NewRaster(r Renderer, src image.Image) (*image.RGBA, error) {
	b := src.Bounds()
	if b.Empty() {
		return nil, tracerr.Wrap(ErrorRenderingUnavailable.AddDetails("empty image"))
	}
	canvas, err := r.NewCanvas(b.Dx(), b.Dy())
	if err != nil {
		return nil, tracerr.Wrap(ErrorRenderingUnavailable.AddDetails(err.Error()))
	}
	if canvas == nil {
		return nil, tracerr.Wrap(ErrorRenderingUnavailable.AddDetails("no canvas"))
	}
	draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Src)

	if rgba, ok := canvas.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba, nil
	}
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), canvas, canvas.Bounds().Min, draw.Src)
	return rgba, nil
}

// RenderVisible returns a copy of src with the tiled overlay and the corner stamp.
func RenderVisible(r Renderer, src image.Image, opts VisibleOptions) (*image.RGBA, error) {
	raster, err := NewRaster(r, src)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	err = drawVisible(raster, opts)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return raster, nil
}

func drawVisible(raster *image.RGBA, opts VisibleOptions) error {
	fontSize := FontSize(raster.Bounds())
	if opts.Text != "" && opts.Opacity > 0 {
		face, err := newFace(goregular.TTF, fontSize)
		if err != nil {
			return tracerr.Wrap(err)
		}
		defer face.Close()
		drawTiles(raster, face, opts.Text, utils.Clamp(opts.Opacity, 0, 1))
	}
	if opts.StampText != "" && opts.StampOpacity > 0 {
		face, err := newFace(gobold.TTF, fontSize)
		if err != nil {
			return tracerr.Wrap(err)
		}
		defer face.Close()
		drawStamp(raster, face, opts.StampText, utils.Clamp(opts.StampOpacity, 0, 1))
	}
	return nil
}

// textMask renders text once, as an alpha mask fitted to the text extent.
func textMask(face font.Face, text string) *image.Alpha {
	metrics := face.Metrics()
	width := utils.Max(font.MeasureString(face, text).Ceil(), 1)
	height := utils.Max((metrics.Ascent + metrics.Descent).Ceil(), 1)
	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	d := font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: metrics.Ascent},
	}
	d.DrawString(text)
	return mask
}

// drawTiles repeats the text over a grid rotated around the image center.
// Every canvas pixel is mapped back into the grid, so the tiling extends past the full diagonal
// and no corner is left out whatever the rotation.
func drawTiles(raster *image.RGBA, face font.Face, text string, opacity float64) {
	tile := textMask(face, text)
	tileWidth, tileHeight := tile.Rect.Dx(), tile.Rect.Dy()
	padding := float64(utils.Max(minTilePadding, 2*FontSize(raster.Bounds())))
	spacingX := float64(tileWidth) + padding
	spacingY := float64(tileHeight) + padding

	b := raster.Bounds()
	cx, cy := float64(b.Min.X+b.Max.X)/2, float64(b.Min.Y+b.Max.Y)/2
	cos, sin := math.Cos(tileAngle), math.Sin(tileAngle)

	overlay := image.NewAlpha(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		dy := float64(y) + 0.5 - cy
		for x := b.Min.X; x < b.Max.X; x++ {
			dx := float64(x) + 0.5 - cx
			u := dx*cos + dy*sin
			v := -dx*sin + dy*cos

			row := math.Floor(v / spacingY)
			if int(row)%2 != 0 {
				u += spacingX / 2 // stagger every other row
			}
			tu := u - math.Floor(u/spacingX)*spacingX
			tv := v - row*spacingY
			if tu >= float64(tileWidth) || tv >= float64(tileHeight) {
				continue
			}
			a := tile.AlphaAt(int(tu), int(tv)).A
			if a == 0 {
				continue
			}
			overlay.SetAlpha(x, y, color.Alpha{A: uint8(math.Round(float64(a) * opacity))})
		}
	}
	draw.DrawMask(raster, b, image.NewUniform(overlayColor), image.Point{}, overlay, b.Min, draw.Over)
}

// drawStamp draws text once in the bottom-right corner. Text wider than the image is anchored to the left edge.
func drawStamp(raster *image.RGBA, face font.Face, text string, opacity float64) {
	b := raster.Bounds()
	metrics := face.Metrics()
	width := font.MeasureString(face, text).Ceil()
	x := utils.Max(b.Max.X-stampMargin-width, b.Min.X)
	y := b.Max.Y - stampMargin - metrics.Descent.Ceil()

	mask := image.NewAlpha(b)
	d := font.Drawer{
		Dst:  mask,
		Src:  image.NewUniform(color.Alpha{A: uint8(math.Round(255 * opacity))}),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
	draw.DrawMask(raster, b, image.NewUniform(stampColor), image.Point{}, mask, b.Min, draw.Over)
}
