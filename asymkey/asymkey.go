// Package asymkey holds the RSA keys used to protect document keys for transport to the registration backend.
package asymkey

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"github.com/rideon/docguard/symmetric_key"
	"github.com/rideon/docguard/utils"
	"github.com/ztrue/tracerr"
	"hash/crc32"
)

var (
	// ErrorPrivateKeyDecodeUnknownKeyType is returned when a decoded private key is of an invalid type
	ErrorPrivateKeyDecodeUnknownKeyType = utils.NewDocGuardError("ASYMKEY_PRIVATE_KEY_DECODE_UNKNOWN_KEY_TYPE", "PrivateKeyDecode: unknown key type")
	// ErrorPublicKeyDecodeUnknownKeyType is returned when a decoded public key is of an invalid type
	ErrorPublicKeyDecodeUnknownKeyType = utils.NewDocGuardError("ASYMKEY_PUBLIC_KEY_DECODE_UNKNOWN_KEY_TYPE", "PublicKeyDecode: unknown key type")
	// ErrorGenerateInvalidSize is returned when an invalid key size is given at key generation
	ErrorGenerateInvalidSize = utils.NewDocGuardError("ASYMKEY_GENERATE_INVALID_SIZE", "Cannot generate a Private Key of given bit length. Acceptable values are 1024, 2048 and 4096")
	// ErrorUnwrapKey is returned when a wrapped document key cannot be recovered
	ErrorUnwrapKey = utils.NewDocGuardError("ASYMKEY_UNWRAP_KEY", "Cannot unwrap key")
	// ErrorWrapNoKey is returned when trying to wrap a nil key
	ErrorWrapNoKey = utils.NewDocGuardError("ASYMKEY_WRAP_NO_KEY", "no key to wrap")
)

func calculateCRC32(message []byte) []byte {
	checksumBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(checksumBytes, crc32.ChecksumIEEE(message))
	return checksumBytes
}

type PrivateKey struct {
	key rsa.PrivateKey
}

type PublicKey struct {
	key rsa.PublicKey
}

func PrivateKeyDecode(key []byte) (*PrivateKey, error) {
	privateKey, err := x509.ParsePKCS8PrivateKey(key)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	switch k := privateKey.(type) {
	case *rsa.PrivateKey:
		return &PrivateKey{*k}, nil
	default:
		return nil, tracerr.Wrap(ErrorPrivateKeyDecodeUnknownKeyType.AddDetails(fmt.Sprintf("%T", privateKey)))
	}
}

func PrivateKeyFromB64(b64 string) (*PrivateKey, error) {
	pkcs, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return PrivateKeyDecode(pkcs)
}

func Generate(bits int) (*PrivateKey, error) {
	if bits != 1024 && bits != 2048 && bits != 4096 {
		return nil, tracerr.Wrap(ErrorGenerateInvalidSize.AddDetails(fmt.Sprintf("%d is invalid", bits)))
	}
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil { // cannot cover
		return nil, tracerr.Wrap(err)
	}
	return &PrivateKey{*privateKey}, nil
}

func (k *PrivateKey) Encode() []byte {
	b, err := x509.MarshalPKCS8PrivateKey(&k.key)
	if err != nil {
		// Only non-RSA keys can fail here, which the typing excludes.
		panic(err)
	}
	return b
}

func (k *PrivateKey) ToB64() string {
	return base64.StdEncoding.EncodeToString(k.Encode())
}

func (k *PrivateKey) Public() *PublicKey {
	return &PublicKey{k.key.PublicKey}
}

func (k *PrivateKey) BitLen() int {
	return k.key.N.BitLen()
}

// UnwrapKey recovers a document key wrapped with PublicKey.WrapKey.
func (k *PrivateKey) UnwrapKey(wrappedKey []byte) (*symmetric_key.SymKey, error) {
	decrypted, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, &k.key, wrappedKey, nil)
	if err != nil {
		return nil, tracerr.Wrap(ErrorUnwrapKey.AddDetails(err.Error()))
	}
	if len(decrypted) < 4 {
		return nil, tracerr.Wrap(ErrorUnwrapKey.AddDetails("cleartext is too short, cannot find crc32"))
	}
	checksumBytes := decrypted[:4]
	rawKey := decrypted[4:]
	if subtle.ConstantTimeCompare(calculateCRC32(rawKey), checksumBytes) != 1 {
		return nil, tracerr.Wrap(ErrorUnwrapKey.AddDetails("crc32 do not match"))
	}
	symKey, err := symmetric_key.Decode(rawKey)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &symKey, nil
}

func PublicKeyDecode(key []byte) (*PublicKey, error) {
	publicKey, err := x509.ParsePKIXPublicKey(key)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	switch k := publicKey.(type) {
	case *rsa.PublicKey:
		return &PublicKey{*k}, nil
	default:
		return nil, tracerr.Wrap(ErrorPublicKeyDecodeUnknownKeyType.AddDetails(fmt.Sprintf("%T", publicKey)))
	}
}

func PublicKeyFromB64(b64 string) (*PublicKey, error) {
	pkix, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return PublicKeyDecode(pkix)
}

func (k *PublicKey) Encode() []byte {
	b, err := x509.MarshalPKIXPublicKey(&k.key)
	if err != nil {
		// Only non-RSA keys can fail here, which the typing excludes.
		panic(err)
	}
	return b
}

func (k *PublicKey) ToB64() string {
	return base64.StdEncoding.EncodeToString(k.Encode())
}

func (k *PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.ToB64())
}

func (k *PublicKey) UnmarshalJSON(b []byte) error {
	var data string
	err := json.Unmarshal(b, &data)
	if err != nil {
		return tracerr.Wrap(err)
	}
	key, err := PublicKeyFromB64(data)
	if err != nil {
		return tracerr.Wrap(err)
	}
	k.key = key.key
	return nil
}

// Fingerprint is the base64 SHA-256 of the PKIX encoding.
func (k *PublicKey) Fingerprint() string {
	h := sha256.Sum256(k.Encode())
	return base64.StdEncoding.EncodeToString(h[:])
}

func (k *PublicKey) BitLen() int {
	return k.key.N.BitLen()
}

// WrapKey encrypts the raw document key for this recipient, with RSA-OAEP over a CRC32-prefixed payload.
func (k *PublicKey) WrapKey(symKey *symmetric_key.SymKey) ([]byte, error) {
	if symKey == nil {
		return nil, tracerr.Wrap(ErrorWrapNoKey)
	}
	rawKey := symKey.Encode()
	toEncrypt := append(calculateCRC32(rawKey), rawKey...)

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, &k.key, toEncrypt, nil)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return wrapped, nil
}
