package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"github.com/google/uuid"
	"github.com/rideon/docguard/utils"
	"github.com/ztrue/tracerr"
	"strings"
)

// sessionIdBytes gives 128 bits of entropy. No UUID version bits are forced, so all of them stay random.
const sessionIdBytes = 16

// GenerateSessionId returns a random identifier in the 8-4-4-4-12 hex form.
func GenerateSessionId() (string, error) {
	raw, err := utils.GenerateRandomBytes(sessionIdBytes)
	if err != nil {
		return "", tracerr.Wrap(err)
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return "", tracerr.Wrap(err)
	}
	return id.String(), nil
}

// Hash returns the lowercase hex SHA-256 digest of data.
func Hash(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}

func HashString(s string) string {
	return Hash([]byte(s))
}

// HashEmail hashes the canonical form of an email address.
func HashEmail(email string) string {
	return Hash(utils.NormalizeString(strings.ToLower(strings.TrimSpace(email))))
}

// MaskEmail keeps the first character of the local part and the domain: "jane.doe@example.com" -> "j***@example.com".
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	local, domain, found := strings.Cut(email, "@")
	if !found || local == "" {
		return "***"
	}
	first := []rune(local)[0]
	return string(first) + "***@" + domain
}
