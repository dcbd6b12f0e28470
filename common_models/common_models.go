package common_models

import (
	"github.com/rideon/docguard/utils"
	"io"
	"time"
)

var (
	// ErrorUnsupportedFormat is returned when a document's media type is neither a supported image type nor PDF. Details hold the offending MIME type.
	ErrorUnsupportedFormat = utils.NewDocGuardError("UNSUPPORTED_FORMAT", "unsupported document format")
)

const (
	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"
	MediaTypePDF  = "application/pdf"
)

// DocumentFile is a user-supplied candidate document, as handed over by the registration UI.
type DocumentFile struct {
	// Name is the original file name.
	Name string
	// MediaType is the declared MIME type.
	MediaType string
	// Size is the declared byte size. 0 means unknown.
	Size int64
	// Content is read exactly once, by the processor.
	Content io.Reader
}

// ProcessDocumentOptions configures the processing of one document.
type ProcessDocumentOptions struct {
	// UserEmail is the submitter's email. It is only ever embedded as a hash, and masked in the visible watermark.
	UserEmail string
	// DocumentType is the registration document type, e.g. "drivingLicense".
	DocumentType string
	// AddVisibleWatermark enables the tiled overlay and the corner stamp.
	AddVisibleWatermark bool
	// AddInvisibleWatermark enables the LSB metadata payload.
	AddInvisibleWatermark bool
}

type ProcessingState string

const (
	StatePending          ProcessingState = "pending"
	StateProcessed        ProcessingState = "processed"
	StateFallbackOriginal ProcessingState = "fallback-original"
)

// ProcessedDocument is the output of the processor. Content is always a well-formed binary of MimeType.
type ProcessedDocument struct {
	Content      []byte
	OriginalName string
	MimeType     string
	// MetadataHash is the SHA-256 hex digest of the embedded metadata. Empty when nothing was embedded.
	MetadataHash string
	// WatermarkId is the session id used as a watermark correlation id.
	WatermarkId string
	ProcessedAt time.Time
	State       ProcessingState
	// RequiresServerWatermark is set for PDF documents, whose watermarking is deferred to the server.
	RequiresServerWatermark bool
	// SerializedMetadata is the metadata to embed server-side for deferred documents.
	SerializedMetadata []byte
	// FallbackReason is set when State is StateFallbackOriginal.
	FallbackReason string
	// SkippedInvisibleReason is set when the invisible mark was requested but only the visible mark could be applied.
	SkippedInvisibleReason string
}

// IsFallback reports whether the document was packaged unprocessed.
func (d *ProcessedDocument) IsFallback() bool {
	return d.State == StateFallbackOriginal
}

// EncryptedDocument wraps a ProcessedDocument's content for transport.
type EncryptedDocument struct {
	Ciphertext []byte
	IV         []byte
	Tag        []byte
	// WrappedKey is the document key encrypted for the recipient.
	WrappedKey []byte
	// RecipientKeyHash identifies the recipient public key.
	RecipientKeyHash string
	DocumentType     string
	OriginalName     string
	MimeType         string
	// Checksum is the SHA-256 hex digest of the clear content.
	Checksum    string
	WatermarkId string
}

// EncryptedDocumentHeader is the BSON header of a sealed document envelope.
type EncryptedDocumentHeader struct {
	Version          string `bson:"v"`
	DocumentType     string `bson:"dt"`
	OriginalName     string `bson:"fn"`
	MimeType         string `bson:"mt"`
	Checksum         string `bson:"cs"`
	WatermarkId      string `bson:"wid"`
	WrappedKey       []byte `bson:"wk"`
	RecipientKeyHash string `bson:"rk,omitempty"`
	IVLength         int32  `bson:"ivl"`
	TagLength        int32  `bson:"tl"`
}
