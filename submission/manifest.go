package submission

import (
	"errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rideon/docguard/utils"
	"github.com/ztrue/tracerr"
	"time"
)

const manifestIssuer = "docguard"

var (
	// ErrorManifestNoSecret is returned when signing or verifying a manifest without a secret
	ErrorManifestNoSecret = utils.NewDocGuardError("SUBMISSION_MANIFEST_NO_SECRET", "a manifest secret is required")
	// ErrorInvalidManifest is returned when a manifest token does not verify
	ErrorInvalidManifest = utils.NewDocGuardError("SUBMISSION_INVALID_MANIFEST", "invalid manifest")
	// ErrorManifestExpired is returned when a manifest token is past its expiry
	ErrorManifestExpired = utils.NewDocGuardError("SUBMISSION_MANIFEST_EXPIRED", "manifest has expired")
)

// ManifestEntry binds a payload field to the watermark it carries.
type ManifestEntry struct {
	Field        string `json:"field"`
	WatermarkId  string `json:"watermarkId"`
	MetadataHash string `json:"metadataHash,omitempty"`
	// ContentHash is the SHA-256 hex of the clear document content.
	ContentHash string `json:"contentHash"`
	Unprocessed bool   `json:"unprocessed,omitempty"`
	Encrypted   bool   `json:"encrypted,omitempty"`
}

type ManifestClaims struct {
	Documents []ManifestEntry `json:"documents"`
	jwt.RegisteredClaims
}

// SignManifest returns an HS256 token listing the documents of a registration session.
func SignManifest(entries []ManifestEntry, secret []byte, sessionId string, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", tracerr.Wrap(ErrorManifestNoSecret)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ManifestClaims{
		Documents: entries,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    manifestIssuer,
			ID:        sessionId,
		},
	})
	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", tracerr.Wrap(err)
	}
	return signedToken, nil
}

// VerifyManifest checks the signature and expiry of a manifest token, and returns its claims.
func VerifyManifest(tokenString string, secret []byte) (*ManifestClaims, error) {
	if len(secret) == 0 {
		return nil, tracerr.Wrap(ErrorManifestNoSecret)
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &ManifestClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return secret, nil
	}, jwt.WithIssuer(manifestIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, tracerr.Wrap(ErrorManifestExpired)
		}
		return nil, tracerr.Wrap(ErrorInvalidManifest.AddDetails(err.Error()))
	}
	claims, ok := parsed.Claims.(*ManifestClaims)
	if !ok || !parsed.Valid {
		return nil, tracerr.Wrap(ErrorInvalidManifest)
	}
	return claims, nil
}
