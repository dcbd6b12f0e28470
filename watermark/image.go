package watermark

import (
	"bytes"
	"github.com/rideon/docguard/codec"
	"github.com/rideon/docguard/common_models"
	"github.com/ztrue/tracerr"
	"image"
	"image/jpeg"
	"image/png"
)

const JPEGQuality = 92

// DecodeImage decodes a PNG or JPEG document.
func DecodeImage(data []byte, mediaType string) (image.Image, error) {
	var img image.Image
	var err error
	switch codec.NormalizeMediaType(mediaType) {
	case common_models.MediaTypePNG:
		img, err = png.Decode(bytes.NewReader(data))
	case common_models.MediaTypeJPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
	default:
		return nil, tracerr.Wrap(common_models.ErrorUnsupportedFormat.AddDetails(mediaType))
	}
	if err != nil {
		return nil, tracerr.Wrap(ErrorDecodeImage.AddDetails(err.Error()))
	}
	return img, nil
}

// EncodeImage encodes img to mediaType. PNG is lossless, JPEG uses JPEGQuality.
func EncodeImage(img image.Image, mediaType string) ([]byte, error) {
	var buff bytes.Buffer
	var err error
	switch codec.NormalizeMediaType(mediaType) {
	case common_models.MediaTypePNG:
		encoder := png.Encoder{CompressionLevel: png.DefaultCompression}
		err = encoder.Encode(&buff, img)
	case common_models.MediaTypeJPEG:
		err = jpeg.Encode(&buff, img, &jpeg.Options{Quality: JPEGQuality})
	default:
		return nil, tracerr.Wrap(common_models.ErrorUnsupportedFormat.AddDetails(mediaType))
	}
	if err != nil {
		return nil, tracerr.Wrap(ErrorEncodeImage.AddDetails(err.Error()))
	}
	return buff.Bytes(), nil
}
