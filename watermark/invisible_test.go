package watermark

import (
	"github.com/rideon/docguard/common_models"
	"github.com/rideon/docguard/test_utils"
	"github.com/rideon/docguard/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image"
	"testing"
	"time"
)

func cloneRGBA(img *image.RGBA) *image.RGBA {
	clone := image.NewRGBA(img.Rect)
	copy(clone.Pix, img.Pix)
	return clone
}

func TestReservedRegion(t *testing.T) {
	t.Parallel()
	assert.Equal(t, image.Rect(461, 461, 512, 512), ReservedRegion(image.Rect(0, 0, 512, 512)))
	assert.Equal(t, image.Rect(1900, 1400, 2000, 1500), ReservedRegion(image.Rect(0, 0, 2000, 1500)))
	assert.Equal(t, image.Rect(370, 270, 400, 300), ReservedRegion(image.Rect(0, 0, 400, 300)))
	assert.Equal(t, image.Rect(910, 910, 1010, 1010), ReservedRegion(image.Rect(10, 10, 1010, 1010)))
	assert.True(t, ReservedRegion(image.Rect(0, 0, 5, 5)).Empty())

	assert.Equal(t, 51*51, Capacity(image.Rect(0, 0, 512, 512)))
	assert.Equal(t, 100*100, Capacity(image.Rect(0, 0, 4000, 3000)))
	assert.Equal(t, 0, Capacity(image.Rect(0, 0, 9, 400)))
}

func TestEmbedInvisible(t *testing.T) {
	t.Parallel()

	t.Run("embeds exactly the payload", func(t *testing.T) {
		t.Parallel()
		img := test_utils.GradientImage(400, 300)
		original := cloneRGBA(img)
		region := ReservedRegion(img.Bounds())

		payload, err := utils.GenerateRandomBytes(100)
		require.NoError(t, err)
		require.NoError(t, EmbedInvisible(img, payload))

		extracted, err := ExtractInvisible(img, len(payload)*8)
		require.NoError(t, err)
		assert.Equal(t, payload, extracted)

		written := 0
		for y := 0; y < 300; y++ {
			for x := 0; x < 400; x++ {
				i := img.PixOffset(x, y)
				before, after := original.Pix[i:i+4], img.Pix[i:i+4]
				inRegion := image.Pt(x, y).In(region)
				if !inRegion || written >= len(payload)*8 {
					require.Equal(t, before, after, "pixel %d,%d", x, y)
					continue
				}
				written++
				require.Equal(t, before[0], after[0])
				require.Equal(t, before[1], after[1])
				require.Equal(t, before[3], after[3])
				require.Equal(t, before[2]&^1, after[2]&^1)
			}
		}
		assert.Equal(t, len(payload)*8, written)
	})
	t.Run("full capacity", func(t *testing.T) {
		t.Parallel()
		img := test_utils.GradientImage(400, 300)
		payload, err := utils.GenerateRandomBytes(Capacity(img.Bounds()) / 8)
		require.NoError(t, err)
		require.NoError(t, EmbedInvisible(img, payload))
		extracted, err := ExtractInvisible(img, len(payload)*8)
		require.NoError(t, err)
		assert.Equal(t, payload, extracted)
	})
	t.Run("payload too large", func(t *testing.T) {
		t.Parallel()
		img := test_utils.GradientImage(400, 300)
		original := cloneRGBA(img)
		err := EmbedInvisible(img, make([]byte, Capacity(img.Bounds())/8+1))
		assert.ErrorIs(t, err, ErrorPayloadTooLarge)
		assert.Equal(t, original.Pix, img.Pix)

		_, err = ExtractInvisible(img, Capacity(img.Bounds())+1)
		assert.ErrorIs(t, err, ErrorPayloadTooLarge)

		tiny := test_utils.GradientImage(8, 8)
		err = EmbedInvisible(tiny, []byte{1})
		assert.ErrorIs(t, err, ErrorPayloadTooLarge)
	})
	t.Run("metadata survives PNG", func(t *testing.T) {
		t.Parallel()
		img := test_utils.GradientImage(512, 512)
		meta := NewMetadata("2b1c8d34-9f0e-4a51-b6c2-11d0e5f7a9c3", "jane.doe@example.com", time.Now(), "")
		payload, err := meta.Serialize()
		require.NoError(t, err)
		require.NoError(t, EmbedInvisible(img, payload))

		encoded, err := EncodeImage(img, common_models.MediaTypePNG)
		require.NoError(t, err)
		decoded, err := DecodeImage(encoded, common_models.MediaTypePNG)
		require.NoError(t, err)

		extracted, err := ExtractMetadata(decoded, len(payload))
		require.NoError(t, err)
		assert.Equal(t, meta, *extracted)
	})
}
