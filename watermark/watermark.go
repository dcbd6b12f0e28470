// Package watermark marks document images, visibly and invisibly.
//
// The visible mark is a rotated tiled text overlay with a bold corner stamp. The invisible mark is the serialized
// Metadata, written one bit per pixel in the blue channel LSB of a square region in the bottom-right corner.
//
// The invisible mark only survives lossless encodings of opaque images: PNG keeps it bit for bit, while JPEG
// recompression, cropping or resizing of the corner destroy it. PDF documents are not rasterized: DeferPDF
// packages them with their metadata for server-side watermarking.
package watermark

import (
	"errors"
	"github.com/rideon/docguard/utils"
	"github.com/ztrue/tracerr"
	"image"
)

var (
	// ErrorRenderingUnavailable is returned when no drawing surface or font can be obtained
	ErrorRenderingUnavailable = utils.NewDocGuardError("WATERMARK_RENDERING_UNAVAILABLE", "rendering is unavailable")
	// ErrorPayloadTooLarge is returned when a payload does not fit in the reserved region
	ErrorPayloadTooLarge = utils.NewDocGuardError("WATERMARK_PAYLOAD_TOO_LARGE", "payload exceeds the reserved region capacity")
	// ErrorDecodeImage is returned when image data cannot be decoded
	ErrorDecodeImage = utils.NewDocGuardError("WATERMARK_DECODE_IMAGE", "cannot decode image")
	// ErrorEncodeImage is returned when a watermarked image cannot be encoded
	ErrorEncodeImage = utils.NewDocGuardError("WATERMARK_ENCODE_IMAGE", "cannot encode image")
	// ErrorInvalidPDF is returned when a document declared as PDF does not start with a PDF header
	ErrorInvalidPDF = utils.NewDocGuardError("WATERMARK_INVALID_PDF", "not a PDF document")
	// ErrorInvalidMetadata is returned when an extracted payload is not valid metadata
	ErrorInvalidMetadata = utils.NewDocGuardError("WATERMARK_INVALID_METADATA", "invalid metadata payload")
)

// IsRecoverable reports whether err is a watermarking failure the original document can stand in for.
func IsRecoverable(err error) bool {
	for _, recoverable := range []error{
		ErrorRenderingUnavailable,
		ErrorPayloadTooLarge,
		ErrorDecodeImage,
		ErrorEncodeImage,
		ErrorInvalidPDF,
	} {
		if errors.Is(err, recoverable) {
			return true
		}
	}
	return false
}

type Request struct {
	Metadata Metadata
	// Visible is nil when no visible mark is requested.
	Visible   *VisibleOptions
	Invisible bool
}

type Result struct {
	Content []byte
	Width   int
	Height  int
	// MetadataHash is set when the metadata was embedded.
	MetadataHash string
	// PayloadLength is the embedded payload size in bytes, as needed by ExtractMetadata.
	PayloadLength int
	// SkippedInvisible holds why the invisible mark was left out while the visible mark was kept.
	SkippedInvisible error
}

// Apply decodes data, applies the requested marks, and re-encodes the image in its original format.
// When the metadata does not fit in the reserved region, the visible mark alone is kept and the reason is set in
// Result.SkippedInvisible. With no visible mark requested, that case is an ErrorPayloadTooLarge.
func Apply(r Renderer, data []byte, mediaType string, req Request) (*Result, error) {
	img, err := DecodeImage(data, mediaType)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	b := img.Bounds()
	if req.Visible == nil && !req.Invisible {
		return &Result{Content: data, Width: b.Dx(), Height: b.Dy()}, nil
	}

	var raster *image.RGBA
	if req.Visible != nil {
		raster, err = RenderVisible(r, img, *req.Visible)
	} else {
		raster, err = NewRaster(r, img)
	}
	if err != nil {
		return nil, tracerr.Wrap(err)
	}

	res := &Result{Width: b.Dx(), Height: b.Dy()}
	if req.Invisible {
		payload, err := req.Metadata.Serialize()
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
		err = EmbedInvisible(raster, payload)
		switch {
		case errors.Is(err, ErrorPayloadTooLarge) && req.Visible != nil:
			res.SkippedInvisible = err
		case err != nil:
			return nil, tracerr.Wrap(err)
		default:
			res.MetadataHash, err = req.Metadata.Hash()
			if err != nil {
				return nil, tracerr.Wrap(err)
			}
			res.PayloadLength = len(payload)
		}
	}

	res.Content, err = EncodeImage(raster, mediaType)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return res, nil
}
