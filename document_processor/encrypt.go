package document_processor

import (
	"github.com/rideon/docguard/asymkey"
	"github.com/rideon/docguard/common_models"
	"github.com/rideon/docguard/integrity"
	"github.com/rideon/docguard/symmetric_key"
	"github.com/rideon/docguard/utils"
	"github.com/ztrue/tracerr"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	// ErrorEncryptNoDocument is returned when trying to encrypt a nil document
	ErrorEncryptNoDocument = utils.NewDocGuardError("DOCUMENT_PROCESSOR_ENCRYPT_NO_DOCUMENT", "no document to encrypt")
	// ErrorNoRecipientKey is returned when no recipient key is given to encrypt or decrypt a document
	ErrorNoRecipientKey = utils.NewDocGuardError("DOCUMENT_PROCESSOR_NO_RECIPIENT_KEY", "a recipient key is required")
	// ErrorChecksumMismatch is returned when a decrypted document does not match its checksum
	ErrorChecksumMismatch = utils.NewDocGuardError("DOCUMENT_PROCESSOR_CHECKSUM_MISMATCH", "decrypted content does not match its checksum")
)

// EncryptDocument encrypts the content of doc under a fresh document key, and wraps that key for recipient.
// The descriptive fields of the result are authenticated along with the content.
func EncryptDocument(doc *common_models.ProcessedDocument, documentType string, recipient *asymkey.PublicKey) (*common_models.EncryptedDocument, error) {
	if doc == nil {
		return nil, tracerr.Wrap(ErrorEncryptNoDocument)
	}
	if recipient == nil {
		return nil, tracerr.Wrap(ErrorNoRecipientKey)
	}
	key, err := symmetric_key.Generate()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	iv, err := symmetric_key.NewIV()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	enc := &common_models.EncryptedDocument{
		IV:               iv,
		RecipientKeyHash: recipient.Fingerprint(),
		DocumentType:     documentType,
		OriginalName:     doc.OriginalName,
		MimeType:         doc.MimeType,
		Checksum:         integrity.Hash(doc.Content),
		WatermarkId:      doc.WatermarkId,
	}
	additionalData, err := associatedData(enc)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	enc.Ciphertext, enc.Tag, err = key.Seal(iv, doc.Content, additionalData)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	enc.WrappedKey, err = recipient.WrapKey(key)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return enc, nil
}

// headerBinding holds the envelope header fields that the tag authenticates.
// The wrapped key is left out: a tampered wrapped key already fails to unwrap.
type headerBinding struct {
	Version          string `bson:"v"`
	DocumentType     string `bson:"dt"`
	OriginalName     string `bson:"fn"`
	MimeType         string `bson:"mt"`
	Checksum         string `bson:"cs"`
	WatermarkId      string `bson:"wid"`
	RecipientKeyHash string `bson:"rk"`
}

func associatedData(enc *common_models.EncryptedDocument) ([]byte, error) {
	additionalData, err := bson.Marshal(headerBinding{
		Version:          envelopeVersion,
		DocumentType:     enc.DocumentType,
		OriginalName:     enc.OriginalName,
		MimeType:         enc.MimeType,
		Checksum:         enc.Checksum,
		WatermarkId:      enc.WatermarkId,
		RecipientKeyHash: enc.RecipientKeyHash,
	})
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return additionalData, nil
}

// DecryptDocument is the inverse of EncryptDocument, for the holder of the recipient private key.
func DecryptDocument(enc *common_models.EncryptedDocument, recipient *asymkey.PrivateKey) ([]byte, error) {
	if enc == nil {
		return nil, tracerr.Wrap(ErrorEncryptNoDocument)
	}
	if recipient == nil {
		return nil, tracerr.Wrap(ErrorNoRecipientKey)
	}
	key, err := recipient.UnwrapKey(enc.WrappedKey)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	additionalData, err := associatedData(enc)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	clearContent, err := key.Open(enc.IV, enc.Ciphertext, enc.Tag, additionalData)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	if integrity.Hash(clearContent) != enc.Checksum {
		return nil, tracerr.Wrap(ErrorChecksumMismatch)
	}
	return clearContent, nil
}
