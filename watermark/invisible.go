package watermark

import (
	"fmt"
	"github.com/rideon/docguard/utils"
	"github.com/ztrue/tracerr"
	"image"
)

const maxRegionSide = 100

// ReservedRegion is the square holding the invisible payload: bottom-right corner,
// with a side of min(100, width/10, height/10).
func ReservedRegion(bounds image.Rectangle) image.Rectangle {
	side := utils.Min(maxRegionSide, utils.Min(bounds.Dx()/10, bounds.Dy()/10))
	side = utils.Max(side, 0)
	return image.Rect(bounds.Max.X-side, bounds.Max.Y-side, bounds.Max.X, bounds.Max.Y).Intersect(bounds)
}

// Capacity is the number of payload bits the reserved region of bounds can carry, one per pixel.
func Capacity(bounds image.Rectangle) int {
	region := ReservedRegion(bounds)
	return region.Dx() * region.Dy()
}

// EmbedInvisible writes the bits of payload into the blue channel LSB of the reserved region, in raster order.
// Pixels after the last bit, and every other bit of the image, are left untouched.
func EmbedInvisible(img *image.RGBA, payload []byte) error {
	bits := ToBits(payload)
	capacity := Capacity(img.Bounds())
	if len(bits) > capacity {
		return tracerr.Wrap(ErrorPayloadTooLarge.AddDetails(fmt.Sprintf("%d bits, capacity %d", len(bits), capacity)))
	}
	region := ReservedRegion(img.Bounds())
	i := 0
	for y := region.Min.Y; y < region.Max.Y && i < len(bits); y++ {
		for x := region.Min.X; x < region.Max.X && i < len(bits); x++ {
			blue := img.PixOffset(x, y) + 2
			img.Pix[blue] = img.Pix[blue]&^1 | utils.Ternary[uint8](bits[i], 1, 0)
			i++
		}
	}
	return nil
}

// ExtractInvisible reads nbits back from the reserved region of img.
func ExtractInvisible(img image.Image, nbits int) ([]byte, error) {
	capacity := Capacity(img.Bounds())
	if nbits > capacity {
		return nil, tracerr.Wrap(ErrorPayloadTooLarge.AddDetails(fmt.Sprintf("%d bits, capacity %d", nbits, capacity)))
	}
	region := ReservedRegion(img.Bounds())
	bits := make([]bool, 0, nbits)
	for y := region.Min.Y; y < region.Max.Y && len(bits) < nbits; y++ {
		for x := region.Min.X; x < region.Max.X && len(bits) < nbits; x++ {
			bits = append(bits, blueLSB(img, x, y))
		}
	}
	return FromBits(bits), nil
}

func blueLSB(img image.Image, x, y int) bool {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba.Pix[rgba.PixOffset(x, y)+2]&1 == 1
	}
	_, _, b, _ := img.At(x, y).RGBA()
	return (b>>8)&1 == 1
}

// ExtractMetadata reads a payload of nbytes and parses it as Metadata.
func ExtractMetadata(img image.Image, nbytes int) (*Metadata, error) {
	payload, err := ExtractInvisible(img, nbytes*8)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return ParseMetadata(payload)
}
