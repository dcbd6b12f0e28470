package document_processor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"github.com/rideon/docguard/common_models"
	"github.com/rideon/docguard/symmetric_key"
	"github.com/rideon/docguard/utils"
	"github.com/ztrue/tracerr"
	"go.mongodb.org/mongo-driver/bson"
)

const envelopeMagic = "DOCGUARD_"
const envelopeVersion = "1"

var (
	// ErrorEnvelopeNoHeader is returned when the envelope does not start with the expected magic string
	ErrorEnvelopeNoHeader = utils.NewDocGuardError("ENVELOPE_NO_HEADER", "envelope does not include correct header")
	// ErrorEnvelopeIncorrectHeaderLength is returned when the header length does not fit in the envelope
	ErrorEnvelopeIncorrectHeaderLength = utils.NewDocGuardError("ENVELOPE_INCORRECT_HEADER_LENGTH", "unexpected end of envelope - bad header length")
	// ErrorEnvelopeUnknownVersion is returned when the header version is not supported
	ErrorEnvelopeUnknownVersion = utils.NewDocGuardError("ENVELOPE_UNKNOWN_VERSION", "unknown envelope version")
	// ErrorEnvelopeUnexpectedEOF is returned when the envelope is too short for the lengths its header declares
	ErrorEnvelopeUnexpectedEOF = utils.NewDocGuardError("ENVELOPE_UNEXPECTED_EOF", "unexpected end of envelope - bad data length")
)

// SealEnvelope serializes an encrypted document:
// "DOCGUARD_" | uint32 LE header length | BSON header | IV | ciphertext | tag
func SealEnvelope(enc *common_models.EncryptedDocument) ([]byte, error) {
	if enc == nil {
		return nil, tracerr.Wrap(ErrorEncryptNoDocument)
	}
	header := common_models.EncryptedDocumentHeader{
		Version:          envelopeVersion,
		DocumentType:     enc.DocumentType,
		OriginalName:     enc.OriginalName,
		MimeType:         enc.MimeType,
		Checksum:         enc.Checksum,
		WatermarkId:      enc.WatermarkId,
		WrappedKey:       enc.WrappedKey,
		RecipientKeyHash: enc.RecipientKeyHash,
		IVLength:         int32(len(enc.IV)),
		TagLength:        int32(len(enc.Tag)),
	}
	bsonHeader, err := bson.Marshal(header)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}

	bsonLength := make([]byte, 4)
	binary.LittleEndian.PutUint32(bsonLength, uint32(len(bsonHeader)))

	output := bytes.Buffer{}
	output.WriteString(envelopeMagic)
	output.Write(bsonLength)
	output.Write(bsonHeader)
	output.Write(enc.IV)
	output.Write(enc.Ciphertext)
	output.Write(enc.Tag)

	return output.Bytes(), nil
}

// OpenEnvelope parses an envelope built by SealEnvelope. It does not decrypt anything.
func OpenEnvelope(envelope []byte) (*common_models.EncryptedDocument, error) {
	if !bytes.HasPrefix(envelope, []byte(envelopeMagic)) {
		return nil, tracerr.Wrap(ErrorEnvelopeNoHeader)
	}
	rest := envelope[len(envelopeMagic):]
	if len(rest) < 4 {
		return nil, tracerr.Wrap(ErrorEnvelopeIncorrectHeaderLength)
	}
	headerLength := binary.LittleEndian.Uint32(rest[:4])
	rest = rest[4:]
	if uint64(headerLength) > uint64(len(rest)) {
		return nil, tracerr.Wrap(ErrorEnvelopeIncorrectHeaderLength.AddDetails(fmt.Sprintf("%d > %d", headerLength, len(rest))))
	}

	var header common_models.EncryptedDocumentHeader
	err := bson.Unmarshal(rest[:headerLength], &header)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	if header.Version != envelopeVersion {
		return nil, tracerr.Wrap(ErrorEnvelopeUnknownVersion.AddDetails(header.Version))
	}
	if header.IVLength != symmetric_key.IVSize || header.TagLength != symmetric_key.TagSize {
		return nil, tracerr.Wrap(ErrorEnvelopeIncorrectHeaderLength.AddDetails(fmt.Sprintf("iv %d, tag %d", header.IVLength, header.TagLength)))
	}
	data := rest[headerLength:]
	ivLength, tagLength := int(header.IVLength), int(header.TagLength)
	if len(data) < ivLength+tagLength {
		return nil, tracerr.Wrap(ErrorEnvelopeUnexpectedEOF)
	}

	return &common_models.EncryptedDocument{
		IV:               bytes.Clone(data[:ivLength]),
		Ciphertext:       bytes.Clone(data[ivLength : len(data)-tagLength]),
		Tag:              bytes.Clone(data[len(data)-tagLength:]),
		WrappedKey:       header.WrappedKey,
		RecipientKeyHash: header.RecipientKeyHash,
		DocumentType:     header.DocumentType,
		OriginalName:     header.OriginalName,
		MimeType:         header.MimeType,
		Checksum:         header.Checksum,
		WatermarkId:      header.WatermarkId,
	}, nil
}
