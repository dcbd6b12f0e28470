package symmetric_key

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"github.com/rideon/docguard/utils"
	"github.com/ztrue/tracerr"
)

const (
	KeySize = 32 // AES-256
	IVSize  = 12 // 96 bits, the GCM standard nonce size
	TagSize = 16
)

var (
	// ErrorDecodeInvalidLength is returned when decoding a key of invalid length
	ErrorDecodeInvalidLength = utils.NewDocGuardError("SYMKEY_DECODE_INVALID_LENGTH", "can't decode SymKey, invalid length")
	// ErrorInvalidKeySize is returned when the key has an invalid size
	ErrorInvalidKeySize = utils.NewDocGuardError("SYMKEY_INVALID_KEY_SIZE", "invalid key size")
	// ErrorInvalidIVSize is returned when an IV is not exactly 96 bits
	ErrorInvalidIVSize = utils.NewDocGuardError("SYMKEY_INVALID_IV_SIZE", "invalid IV size")
	// ErrorDecryptCipherTooShort is returned when the encrypted package cannot even hold an IV and a tag
	ErrorDecryptCipherTooShort = utils.NewDocGuardError("SYMKEY_DECRYPT_CIPHER_TOO_SHORT", "encrypted package is too short")
	// ErrorAuthentication is returned when the authentication tag does not verify
	ErrorAuthentication = utils.NewDocGuardError("SYMKEY_AUTHENTICATION", "authentication tag mismatch")
)

// SymKey is an AES-256-GCM key.
type SymKey struct {
	encryptionKey []byte
}

func Generate() (*SymKey, error) {
	randomData, err := utils.GenerateRandomBytes(KeySize)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &SymKey{encryptionKey: randomData}, nil
}

// Encode exports the raw key material.
func (symKey *SymKey) Encode() []byte {
	encodedSymKey := make([]byte, len(symKey.encryptionKey))
	copy(encodedSymKey, symKey.encryptionKey)
	return encodedSymKey
}

func Decode(key []byte) (SymKey, error) {
	if len(key) != KeySize {
		return SymKey{}, tracerr.Wrap(ErrorDecodeInvalidLength.AddDetails(fmt.Sprintf("%d", len(key))))
	}
	encryptionKey := make([]byte, KeySize)
	copy(encryptionKey, key)
	return SymKey{encryptionKey: encryptionKey}, nil
}

func (symKey *SymKey) aead() (cipher.AEAD, error) {
	if len(symKey.encryptionKey) != KeySize {
		return nil, tracerr.Wrap(ErrorInvalidKeySize.AddDetails(fmt.Sprintf("%d", len(symKey.encryptionKey))))
	}
	aesCipher, err := aes.NewCipher(symKey.encryptionKey)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	gcm, err := cipher.NewGCM(aesCipher)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return gcm, nil
}

// NewIV returns a fresh random IV. An IV must never be reused with the same key.
func NewIV() ([]byte, error) {
	return utils.GenerateRandomBytes(IVSize)
}

// Seal encrypts plaintext under the given IV, and returns the ciphertext and the tag separately.
// additionalData is authenticated by the tag but not encrypted. It may be nil.
func (symKey *SymKey) Seal(iv []byte, plaintext []byte, additionalData []byte) ([]byte, []byte, error) {
	if len(iv) != IVSize {
		return nil, nil, tracerr.Wrap(ErrorInvalidIVSize.AddDetails(fmt.Sprintf("%d", len(iv))))
	}
	gcm, err := symKey.aead()
	if err != nil {
		return nil, nil, tracerr.Wrap(err)
	}
	sealed := gcm.Seal(nil, iv, plaintext, additionalData)
	cipherTextLength := len(sealed) - TagSize
	return sealed[:cipherTextLength], sealed[cipherTextLength:], nil
}

// Open is the inverse of Seal. additionalData must match the one given to Seal.
func (symKey *SymKey) Open(iv []byte, cipherText []byte, tag []byte, additionalData []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, tracerr.Wrap(ErrorInvalidIVSize.AddDetails(fmt.Sprintf("%d", len(iv))))
	}
	if len(tag) != TagSize {
		return nil, tracerr.Wrap(ErrorAuthentication.AddDetails("invalid tag length"))
	}
	gcm, err := symKey.aead()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	sealed := make([]byte, 0, len(cipherText)+TagSize)
	sealed = append(sealed, cipherText...)
	sealed = append(sealed, tag...)
	plainText, err := gcm.Open(nil, iv, sealed, additionalData)
	if err != nil {
		return nil, tracerr.Wrap(ErrorAuthentication)
	}
	return plainText, nil
}

// Encrypt returns IV || ciphertext || tag, with a fresh IV for every call.
func (symKey *SymKey) Encrypt(plaintext []byte) ([]byte, error) {
	iv, err := NewIV()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	cipherText, tag, err := symKey.Seal(iv, plaintext, nil)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}

	res := make([]byte, 0, IVSize+len(cipherText)+TagSize)
	res = append(res, iv...)
	res = append(res, cipherText...)
	res = append(res, tag...)
	return res, nil
}

func (symKey *SymKey) Decrypt(encryptedMessage []byte) ([]byte, error) {
	if len(symKey.encryptionKey) != KeySize {
		return nil, tracerr.Wrap(ErrorInvalidKeySize.AddDetails(fmt.Sprintf("%d", len(symKey.encryptionKey))))
	}
	if len(encryptedMessage) < IVSize+TagSize {
		return nil, tracerr.Wrap(ErrorDecryptCipherTooShort)
	}

	iv := encryptedMessage[:IVSize]
	cipherText := encryptedMessage[IVSize : len(encryptedMessage)-TagSize]
	tag := encryptedMessage[len(encryptedMessage)-TagSize:]

	return symKey.Open(iv, cipherText, tag, nil)
}

// EncryptToB64 returns the base64 encoded IV || ciphertext || tag package.
func (symKey *SymKey) EncryptToB64(plaintext []byte) (string, error) {
	encrypted, err := symKey.Encrypt(plaintext)
	if err != nil {
		return "", tracerr.Wrap(err)
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

func (symKey *SymKey) DecryptFromB64(b64 string) ([]byte, error) {
	encrypted, err := utils.Base64DecodeString(b64)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return symKey.Decrypt(encrypted)
}
