package document_processor

import (
	"encoding/binary"
	"github.com/rideon/docguard/asymkey"
	"github.com/rideon/docguard/common_models"
	"github.com/rideon/docguard/integrity"
	"github.com/rideon/docguard/symmetric_key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"testing"
)

func TestEncryptDocument(t *testing.T) {
	t.Parallel()
	recipient, err := asymkey.Generate(2048)
	require.NoError(t, err)
	doc := &common_models.ProcessedDocument{
		Content:      []byte("\x89PNG watermarked content"),
		OriginalName: "license.png",
		MimeType:     common_models.MediaTypePNG,
		WatermarkId:  "9b2e4f6a-1c3d-4e5f-8a7b-6c5d4e3f2a1b",
		State:        common_models.StateProcessed,
	}

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		enc, err := EncryptDocument(doc, "drivingLicense", recipient.Public())
		require.NoError(t, err)
		assert.Len(t, enc.IV, symmetric_key.IVSize)
		assert.Len(t, enc.Tag, symmetric_key.TagSize)
		assert.Len(t, enc.Ciphertext, len(doc.Content))
		assert.NotEqual(t, doc.Content, enc.Ciphertext)
		assert.Equal(t, integrity.Hash(doc.Content), enc.Checksum)
		assert.Equal(t, "drivingLicense", enc.DocumentType)
		assert.Equal(t, doc.OriginalName, enc.OriginalName)
		assert.Equal(t, doc.MimeType, enc.MimeType)
		assert.Equal(t, doc.WatermarkId, enc.WatermarkId)
		assert.Equal(t, recipient.Public().Fingerprint(), enc.RecipientKeyHash)

		clearContent, err := DecryptDocument(enc, recipient)
		require.NoError(t, err)
		assert.Equal(t, doc.Content, clearContent)
	})
	t.Run("fresh key and IV per document", func(t *testing.T) {
		t.Parallel()
		first, err := EncryptDocument(doc, "drivingLicense", recipient.Public())
		require.NoError(t, err)
		second, err := EncryptDocument(doc, "drivingLicense", recipient.Public())
		require.NoError(t, err)
		assert.NotEqual(t, first.IV, second.IV)
		assert.NotEqual(t, first.Ciphertext, second.Ciphertext)
		assert.NotEqual(t, first.WrappedKey, second.WrappedKey)
	})
	t.Run("tampering is detected", func(t *testing.T) {
		t.Parallel()
		enc, err := EncryptDocument(doc, "drivingLicense", recipient.Public())
		require.NoError(t, err)

		enc.Ciphertext[0] ^= 0x01
		_, err = DecryptDocument(enc, recipient)
		assert.ErrorIs(t, err, symmetric_key.ErrorAuthentication)
		enc.Ciphertext[0] ^= 0x01

		enc.Tag[15] ^= 0x80
		_, err = DecryptDocument(enc, recipient)
		assert.ErrorIs(t, err, symmetric_key.ErrorAuthentication)
		enc.Tag[15] ^= 0x80

		enc.Checksum = integrity.HashString("something else")
		_, err = DecryptDocument(enc, recipient)
		assert.ErrorIs(t, err, symmetric_key.ErrorAuthentication)
	})
	t.Run("header fields are authenticated", func(t *testing.T) {
		t.Parallel()
		for name, tamper := range map[string]func(*common_models.EncryptedDocument){
			"document type": func(enc *common_models.EncryptedDocument) { enc.DocumentType = "workPatent" },
			"file name":     func(enc *common_models.EncryptedDocument) { enc.OriginalName = "other.png" },
			"mime type":     func(enc *common_models.EncryptedDocument) { enc.MimeType = common_models.MediaTypeJPEG },
			"watermark id":  func(enc *common_models.EncryptedDocument) { enc.WatermarkId = "00000000-0000-0000-0000-000000000000" },
			"recipient":     func(enc *common_models.EncryptedDocument) { enc.RecipientKeyHash = "" },
		} {
			enc, err := EncryptDocument(doc, "drivingLicense", recipient.Public())
			require.NoError(t, err)
			tamper(enc)
			_, err = DecryptDocument(enc, recipient)
			assert.ErrorIs(t, err, symmetric_key.ErrorAuthentication, name)
		}
	})
	t.Run("checksum mismatch", func(t *testing.T) {
		t.Parallel()
		key, err := symmetric_key.Generate()
		require.NoError(t, err)
		iv, err := symmetric_key.NewIV()
		require.NoError(t, err)
		enc := &common_models.EncryptedDocument{
			IV:               iv,
			RecipientKeyHash: recipient.Public().Fingerprint(),
			DocumentType:     "drivingLicense",
			OriginalName:     doc.OriginalName,
			MimeType:         doc.MimeType,
			Checksum:         integrity.HashString("not the content"),
			WatermarkId:      doc.WatermarkId,
		}
		additionalData, err := associatedData(enc)
		require.NoError(t, err)
		enc.Ciphertext, enc.Tag, err = key.Seal(iv, doc.Content, additionalData)
		require.NoError(t, err)
		enc.WrappedKey, err = recipient.Public().WrapKey(key)
		require.NoError(t, err)

		_, err = DecryptDocument(enc, recipient)
		assert.ErrorIs(t, err, ErrorChecksumMismatch)
	})
	t.Run("wrong recipient", func(t *testing.T) {
		t.Parallel()
		other, err := asymkey.Generate(1024)
		require.NoError(t, err)
		enc, err := EncryptDocument(doc, "drivingLicense", recipient.Public())
		require.NoError(t, err)
		_, err = DecryptDocument(enc, other)
		assert.ErrorIs(t, err, asymkey.ErrorUnwrapKey)
	})
	t.Run("missing arguments", func(t *testing.T) {
		t.Parallel()
		_, err := EncryptDocument(nil, "drivingLicense", recipient.Public())
		assert.ErrorIs(t, err, ErrorEncryptNoDocument)
		_, err = EncryptDocument(doc, "drivingLicense", nil)
		assert.ErrorIs(t, err, ErrorNoRecipientKey)
		_, err = DecryptDocument(nil, recipient)
		assert.ErrorIs(t, err, ErrorEncryptNoDocument)
		_, err = DecryptDocument(&common_models.EncryptedDocument{}, nil)
		assert.ErrorIs(t, err, ErrorNoRecipientKey)
	})
}

func TestEnvelope(t *testing.T) {
	t.Parallel()
	recipient, err := asymkey.Generate(1024)
	require.NoError(t, err)
	doc := &common_models.ProcessedDocument{
		Content:      []byte("%PDF-1.4 insurance document"),
		OriginalName: "insurance.pdf",
		MimeType:     common_models.MediaTypePDF,
		WatermarkId:  "1a2b3c4d-5e6f-4a8b-9c0d-e1f2a3b4c5d6",
	}
	enc, err := EncryptDocument(doc, "insuranceDocument", recipient.Public())
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		envelope, err := SealEnvelope(enc)
		require.NoError(t, err)
		assert.Equal(t, "DOCGUARD_", string(envelope[:9]))

		opened, err := OpenEnvelope(envelope)
		require.NoError(t, err)
		assert.Equal(t, enc, opened)

		clearContent, err := DecryptDocument(opened, recipient)
		require.NoError(t, err)
		assert.Equal(t, doc.Content, clearContent)
	})
	t.Run("malformed", func(t *testing.T) {
		t.Parallel()
		envelope, err := SealEnvelope(enc)
		require.NoError(t, err)
		headerLength := binary.LittleEndian.Uint32(envelope[9:13])

		_, err = OpenEnvelope([]byte("PKZIP.IO_"))
		assert.ErrorIs(t, err, ErrorEnvelopeNoHeader)
		_, err = OpenEnvelope([]byte("DOCGUARD_\x01"))
		assert.ErrorIs(t, err, ErrorEnvelopeIncorrectHeaderLength)
		_, err = OpenEnvelope(envelope[:13+headerLength-1])
		assert.ErrorIs(t, err, ErrorEnvelopeIncorrectHeaderLength)
		_, err = OpenEnvelope(envelope[:13+int(headerLength)+symmetric_key.IVSize])
		assert.ErrorIs(t, err, ErrorEnvelopeUnexpectedEOF)

		_, err = SealEnvelope(nil)
		assert.ErrorIs(t, err, ErrorEncryptNoDocument)
	})
	t.Run("rewritten header", func(t *testing.T) {
		t.Parallel()
		envelope, err := SealEnvelope(enc)
		require.NoError(t, err)
		opened, err := OpenEnvelope(envelope)
		require.NoError(t, err)

		opened.OriginalName = "renamed.pdf"
		rewritten, err := SealEnvelope(opened)
		require.NoError(t, err)
		reopened, err := OpenEnvelope(rewritten)
		require.NoError(t, err)
		assert.Equal(t, "renamed.pdf", reopened.OriginalName)

		_, err = DecryptDocument(reopened, recipient)
		assert.ErrorIs(t, err, symmetric_key.ErrorAuthentication)
	})
	t.Run("unknown version", func(t *testing.T) {
		t.Parallel()
		header, err := bson.Marshal(common_models.EncryptedDocumentHeader{Version: "2", IVLength: 12, TagLength: 16})
		require.NoError(t, err)
		length := make([]byte, 4)
		binary.LittleEndian.PutUint32(length, uint32(len(header)))
		envelope := append([]byte("DOCGUARD_"), length...)
		envelope = append(envelope, header...)
		envelope = append(envelope, make([]byte, 28)...)

		_, err = OpenEnvelope(envelope)
		assert.ErrorIs(t, err, ErrorEnvelopeUnknownVersion)
	})
}
