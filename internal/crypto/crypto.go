// Package crypto provides the cryptographic operations for PassVault.
// It implements AES-256-CBC for vault secret encryption and bcrypt for
// account password hashing. Encryption happens server-side with a single
// process-wide key; this is not client-side (zero-knowledge) encryption.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// KeySize is the size of AES-256 keys in bytes.
	KeySize = 32

	// IVSize is the size of CBC initialization vectors in bytes.
	IVSize = aes.BlockSize

	// EnvelopeDelimiter separates the hex-encoded IV from the hex-encoded
	// ciphertext in a stored secret.
	EnvelopeDelimiter = ":"

	// BcryptCost is the work factor for account password hashing.
	BcryptCost = 10
)

var (
	// ErrInvalidKeySize is returned when a key has an incorrect size.
	ErrInvalidKeySize = errors.New("key must be 32 bytes")

	// ErrDecryptionFailed is returned when a stored envelope cannot be
	// decrypted: missing delimiter, invalid hex, truncated IV, ragged
	// ciphertext length, or bad padding.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password must not be empty")
)

// Cipher encrypts and decrypts vault secrets under a fixed AES-256 key.
// It is immutable after construction and safe for concurrent use.
type Cipher struct {
	key []byte
}

// NewCipher creates a Cipher from a 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	c := &Cipher{key: make([]byte, KeySize)}
	copy(c.key, key)
	return c, nil
}

// DeriveKey derives the 32-byte cipher key from a configured seed string.
// The derivation is stable: the same seed always yields the same key, so
// stored secrets stay readable across restarts.
func DeriveKey(seed string) []byte {
	sum := sha256.Sum256([]byte(seed))
	return sum[:]
}

// EncryptString encrypts plaintext and returns the envelope
// hex(iv) + ":" + hex(ciphertext). A fresh random IV is generated per
// call, so encrypting the same plaintext twice yields different envelopes.
func (c *Cipher) EncryptString(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + EnvelopeDelimiter + hex.EncodeToString(ciphertext), nil
}

// DecryptString reverses EncryptString. Any malformed or corrupt envelope
// yields an error wrapping ErrDecryptionFailed; callers cannot distinguish
// the underlying cause.
func (c *Cipher) DecryptString(envelope string) (string, error) {
	ivHex, ctHex, ok := strings.Cut(envelope, EnvelopeDelimiter)
	if !ok {
		return "", fmt.Errorf("%w: missing delimiter", ErrDecryptionFailed)
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != IVSize {
		return "", fmt.Errorf("%w: invalid IV", ErrDecryptionFailed)
	}

	ciphertext, err := hex.DecodeString(ctHex)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: invalid ciphertext", ErrDecryptionFailed)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: bad padding", ErrDecryptionFailed)
	}

	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("invalid padding byte")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}

// HashPassword hashes an account password with bcrypt.
// This covers login credentials only; vault secrets go through Cipher.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a bcrypt hash.
// Returns false on any mismatch, including a malformed hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
