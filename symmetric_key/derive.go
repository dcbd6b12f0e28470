package symmetric_key

import (
	"crypto/sha256"
	"fmt"
	"github.com/rideon/docguard/utils"
	"github.com/ztrue/tracerr"
	"golang.org/x/crypto/pbkdf2"
)

const MinIterations = 100000

var (
	// ErrorIterationsTooLow is returned when deriving a key with fewer than MinIterations PBKDF2 rounds
	ErrorIterationsTooLow = utils.NewDocGuardError("SYMKEY_ITERATIONS_TOO_LOW", "PBKDF2 iteration count is too low")
	// ErrorInvalidSalt is returned when deriving a key with an empty salt
	ErrorInvalidSalt = utils.NewDocGuardError("SYMKEY_INVALID_SALT", "salt cannot be empty")
)

// DeriveKey derives a SymKey from a password with PBKDF2-HMAC-SHA256.
func DeriveKey(password string, salt []byte, iterations int) (*SymKey, error) {
	if iterations < MinIterations {
		return nil, tracerr.Wrap(ErrorIterationsTooLow.AddDetails(fmt.Sprintf("%d < %d", iterations, MinIterations)))
	}
	if len(salt) == 0 {
		return nil, tracerr.Wrap(ErrorInvalidSalt)
	}
	key := pbkdf2.Key(utils.NormalizeString(password), salt, iterations, KeySize, sha256.New)
	return &SymKey{encryptionKey: key}, nil
}
