package watermark

import (
	"bytes"
	"github.com/ztrue/tracerr"
)

var pdfMagic = []byte("%PDF-")

// DeferredDocument is a PDF left untouched, with the metadata the server must embed.
type DeferredDocument struct {
	Content                 []byte
	Metadata                Metadata
	SerializedMetadata      []byte
	MetadataHash            string
	RequiresServerWatermark bool
}

// DeferPDF flags a PDF for server-side watermarking. Raster watermarks do not apply to PDF content.
func DeferPDF(data []byte, meta Metadata) (*DeferredDocument, error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, tracerr.Wrap(ErrorInvalidPDF)
	}
	serialized, err := meta.Serialize()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	hash, err := meta.Hash()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &DeferredDocument{
		Content:                 data,
		Metadata:                meta,
		SerializedMetadata:      serialized,
		MetadataHash:            hash,
		RequiresServerWatermark: true,
	}, nil
}
