package submission

import (
	"encoding/json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rideon/docguard/codec"
	"github.com/rideon/docguard/common_models"
	"github.com/rideon/docguard/integrity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func processedDocument(content string, state common_models.ProcessingState) *common_models.ProcessedDocument {
	doc := &common_models.ProcessedDocument{
		Content:      []byte(content),
		OriginalName: "document.png",
		MimeType:     common_models.MediaTypePNG,
		WatermarkId:  integrity.HashString(content)[:36],
		State:        state,
	}
	if state == common_models.StateProcessed {
		doc.MetadataHash = integrity.HashString("metadata of " + content)
	} else {
		doc.FallbackReason = "WATERMARK_RENDERING_UNAVAILABLE"
	}
	return doc
}

func TestFieldName(t *testing.T) {
	t.Parallel()
	for documentType, expected := range map[string]string{
		"drivingLicense":      "driving_license",
		"vehicleRegistration": "vehicle_registration",
		"insuranceDocument":   "insurance_document",
		"workPatent":          "work_patent",
	} {
		field, err := FieldName(documentType)
		require.NoError(t, err)
		assert.Equal(t, expected, field)
	}
	assert.Len(t, DocumentTypes, len(fieldNames))

	_, err := FieldName("passport")
	assert.ErrorIs(t, err, ErrorUnknownDocumentType)
	_, err = FieldName("driving_license")
	assert.ErrorIs(t, err, ErrorUnknownDocumentType)
}

func TestPayload(t *testing.T) {
	t.Parallel()

	t.Run("documents and fields", func(t *testing.T) {
		t.Parallel()
		payload := NewPayload()
		license := processedDocument("license", common_models.StateProcessed)
		insurance := processedDocument("insurance", common_models.StateFallbackOriginal)

		require.NoError(t, payload.Add("drivingLicense", license))
		require.NoError(t, payload.Add("insuranceDocument", insurance))
		require.NoError(t, payload.Set("first_name", "Jane"))

		fields := payload.Fields()
		assert.Equal(t, codec.BufferToBase64(license.Content), fields["driving_license"])
		assert.Equal(t, codec.BufferToBase64(insurance.Content), fields["insurance_document"])
		assert.Equal(t, true, fields["insurance_document_unprocessed"])
		assert.NotContains(t, fields, "driving_license_unprocessed")
		assert.Equal(t, "Jane", fields["first_name"])
		assert.True(t, payload.HasUnprocessed())

		marshalled, err := json.Marshal(payload)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(marshalled, &decoded))
		assert.Equal(t, "bGljZW5zZQ==", decoded["driving_license"])
		assert.Equal(t, true, decoded["insurance_document_unprocessed"])

		manifest := payload.Manifest()
		require.Len(t, manifest, 2)
		assert.Equal(t, "driving_license", manifest[0].Field)
		assert.Equal(t, license.WatermarkId, manifest[0].WatermarkId)
		assert.Equal(t, license.MetadataHash, manifest[0].MetadataHash)
		assert.Equal(t, integrity.Hash(license.Content), manifest[0].ContentHash)
		assert.False(t, manifest[0].Unprocessed)
		assert.Equal(t, "insurance_document", manifest[1].Field)
		assert.True(t, manifest[1].Unprocessed)
		assert.Empty(t, manifest[1].MetadataHash)
	})
	t.Run("encrypted", func(t *testing.T) {
		t.Parallel()
		payload := NewPayload()
		doc := processedDocument("patent", common_models.StateProcessed)
		envelope := []byte("DOCGUARD_ sealed bytes")
		require.NoError(t, payload.AddEncrypted("workPatent", doc, envelope))

		fields := payload.Fields()
		assert.Equal(t, codec.BufferToBase64(envelope), fields["work_patent"])
		assert.Equal(t, true, fields["work_patent_encrypted"])
		manifest := payload.Manifest()
		require.Len(t, manifest, 1)
		assert.True(t, manifest[0].Encrypted)
		assert.Equal(t, integrity.Hash(doc.Content), manifest[0].ContentHash)
		assert.False(t, payload.HasUnprocessed())
	})
	t.Run("errors", func(t *testing.T) {
		t.Parallel()
		payload := NewPayload()
		doc := processedDocument("license", common_models.StateProcessed)
		require.NoError(t, payload.Add("drivingLicense", doc))

		assert.ErrorIs(t, payload.Add("drivingLicense", doc), ErrorDuplicateDocument)
		assert.ErrorIs(t, payload.Add("passport", doc), ErrorUnknownDocumentType)
		assert.ErrorIs(t, payload.Add("vehicleRegistration", nil), ErrorNoDocument)
		assert.ErrorIs(t, payload.Set("driving_license", "overwrite"), ErrorReservedField)
		assert.ErrorIs(t, payload.Set("work_patent_unprocessed", false), ErrorReservedField)
		assert.Len(t, payload.Manifest(), 1)
	})
	t.Run("failed add leaves the payload unchanged", func(t *testing.T) {
		t.Parallel()
		payload := NewPayload()
		require.NoError(t, payload.Add("insuranceDocument", processedDocument("insurance", common_models.StateProcessed)))
		before := payload.Fields()

		fallback := processedDocument("other insurance", common_models.StateFallbackOriginal)
		assert.ErrorIs(t, payload.Add("insuranceDocument", fallback), ErrorDuplicateDocument)
		assert.ErrorIs(t, payload.AddEncrypted("insuranceDocument", fallback, []byte("envelope")), ErrorDuplicateDocument)

		assert.Equal(t, before, payload.Fields())
		assert.NotContains(t, payload.Fields(), "insurance_document_unprocessed")
		assert.NotContains(t, payload.Fields(), "insurance_document_encrypted")
		assert.False(t, payload.HasUnprocessed())
	})
	t.Run("merge", func(t *testing.T) {
		t.Parallel()
		payload := NewPayload()
		require.NoError(t, payload.Set("first_name", "Jane"))
		require.NoError(t, payload.Add("drivingLicense", processedDocument("license", common_models.StateProcessed)))

		staged := NewPayload()
		require.NoError(t, staged.Add("insuranceDocument", processedDocument("insurance", common_models.StateFallbackOriginal)))
		require.NoError(t, staged.AddEncrypted("workPatent", processedDocument("patent", common_models.StateProcessed), []byte("envelope")))
		require.NoError(t, payload.Merge(staged))

		fields := payload.Fields()
		assert.Equal(t, "Jane", fields["first_name"])
		assert.Contains(t, fields, "driving_license")
		assert.Equal(t, true, fields["insurance_document_unprocessed"])
		assert.Equal(t, true, fields["work_patent_encrypted"])
		assert.Len(t, payload.Manifest(), 3)
		assert.True(t, payload.HasUnprocessed())
	})
	t.Run("merge with a duplicate changes nothing", func(t *testing.T) {
		t.Parallel()
		payload := NewPayload()
		require.NoError(t, payload.Add("insuranceDocument", processedDocument("insurance", common_models.StateProcessed)))
		before := payload.Fields()

		staged := NewPayload()
		require.NoError(t, staged.Add("drivingLicense", processedDocument("license", common_models.StateProcessed)))
		require.NoError(t, staged.Add("insuranceDocument", processedDocument("other insurance", common_models.StateFallbackOriginal)))
		assert.ErrorIs(t, payload.Merge(staged), ErrorDuplicateDocument)

		assert.Equal(t, before, payload.Fields())
		require.Len(t, payload.Manifest(), 1)
		assert.Equal(t, "insurance_document", payload.Manifest()[0].Field)
	})
	t.Run("Fields is a copy", func(t *testing.T) {
		t.Parallel()
		payload := NewPayload()
		require.NoError(t, payload.Set("phone", "+33600000000"))
		fields := payload.Fields()
		fields["phone"] = "changed"
		assert.Equal(t, "+33600000000", payload.Fields()["phone"])
	})
}

func TestManifest(t *testing.T) {
	t.Parallel()
	secret := []byte("manifest-shared-secret")
	payload := NewPayload()
	require.NoError(t, payload.Add("drivingLicense", processedDocument("license", common_models.StateProcessed)))
	require.NoError(t, payload.Add("vehicleRegistration", processedDocument("registration", common_models.StateFallbackOriginal)))
	entries := payload.Manifest()

	t.Run("sign and verify", func(t *testing.T) {
		t.Parallel()
		token, err := SignManifest(entries, secret, "session-1", time.Hour, time.Now())
		require.NoError(t, err)

		claims, err := VerifyManifest(token, secret)
		require.NoError(t, err)
		assert.Equal(t, entries, claims.Documents)
		assert.Equal(t, "session-1", claims.ID)
		assert.Equal(t, manifestIssuer, claims.Issuer)
	})
	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		token, err := SignManifest(entries, secret, "session-1", time.Hour, time.Now())
		require.NoError(t, err)
		_, err = VerifyManifest(token, []byte("another secret"))
		assert.ErrorIs(t, err, ErrorInvalidManifest)
		_, err = VerifyManifest(token+"x", secret)
		assert.ErrorIs(t, err, ErrorInvalidManifest)
	})
	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		token, err := SignManifest(entries, secret, "session-1", time.Hour, time.Now().Add(-2*time.Hour))
		require.NoError(t, err)
		_, err = VerifyManifest(token, secret)
		assert.ErrorIs(t, err, ErrorManifestExpired)
	})
	t.Run("other signing method", func(t *testing.T) {
		t.Parallel()
		token := jwt.NewWithClaims(jwt.SigningMethodNone, ManifestClaims{Documents: entries})
		unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = VerifyManifest(unsigned, secret)
		assert.ErrorIs(t, err, ErrorInvalidManifest)
	})
	t.Run("no secret", func(t *testing.T) {
		t.Parallel()
		_, err := SignManifest(entries, nil, "session-1", time.Hour, time.Now())
		assert.ErrorIs(t, err, ErrorManifestNoSecret)
		_, err = VerifyManifest("token", nil)
		assert.ErrorIs(t, err, ErrorManifestNoSecret)
	})
}
