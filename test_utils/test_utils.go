package test_utils

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"github.com/rideon/docguard/common_models"
	"github.com/rideon/docguard/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/ztrue/tracerr"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"testing"
)

var (
	ErrorSyntheticTestError = utils.NewDocGuardError("SYNTHETIC_TEST_ERROR", "Synthetic test error")
)

// PDFFixture is a minimal single page PDF.
var PDFFixture = []byte("%PDF-1.4\n" +
	"1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n" +
	"2 0 obj << /Type /Pages /Kids [3 0 R] /Count 1 >> endobj\n" +
	"3 0 obj << /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >> endobj\n" +
	"trailer << /Root 1 0 R >>\n" +
	"%%EOF\n")

// GradientImage returns an opaque image where every channel varies, and none is a flat mid gray.
func GradientImage(width int, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(200 + (x*55)/utils.Max(width, 1)),
				G: uint8(180 + (y*75)/utils.Max(height, 1)),
				B: uint8((x + 3*y) % 256),
				A: 255,
			})
		}
	}
	return img
}

func SolidImage(width int, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func EncodePNG(t testing.TB, img image.Image) []byte {
	var buff bytes.Buffer
	require.NoError(t, png.Encode(&buff, img))
	return buff.Bytes()
}

func EncodeJPEG(t testing.TB, img image.Image) []byte {
	var buff bytes.Buffer
	require.NoError(t, jpeg.Encode(&buff, img, &jpeg.Options{Quality: 90}))
	return buff.Bytes()
}

// DocumentFile wraps content as a user-selected file.
func DocumentFile(name string, mediaType string, content []byte) *common_models.DocumentFile {
	return &common_models.DocumentFile{
		Name:      name,
		MediaType: mediaType,
		Size:      int64(len(content)),
		Content:   bytes.NewReader(content),
	}
}

// FailingRenderer cannot provide any drawing surface.
type FailingRenderer struct{}

func (FailingRenderer) NewCanvas(_ int, _ int) (draw.Image, error) {
	return nil, tracerr.Wrap(ErrorSyntheticTestError)
}

// FailingReader fails on first read.
type FailingReader struct{}

func (FailingReader) Read(_ []byte) (int, error) {
	return 0, tracerr.Wrap(ErrorSyntheticTestError)
}

// SilentLogger discards everything.
func SilentLogger() zerolog.Logger {
	return zerolog.Nop()
}

// BufferLogger writes JSON lines to buff, at every level.
func BufferLogger(buff *bytes.Buffer) zerolog.Logger {
	return zerolog.New(buff).Level(zerolog.TraceLevel).With().Timestamp().Logger()
}

func GetRandomString(length int) string {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		panic("Error generating random in GetRandomString:" + err.Error())
	}
	str := hex.EncodeToString(b)
	return str[0:length]
}
