package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100000
	saltLength       = 16
	nonceLength      = 12
	keyLength        = 32
)

// AESEncryptor implements Encryptor with AES-256-GCM under a key derived
// from a deployment passphrase via PBKDF2-SHA256. Each token carries its own
// random salt and nonce: base64(salt || nonce || ciphertext).
type AESEncryptor struct {
	passphrase []byte
}

// NewAESEncryptor creates an AESEncryptor from the deployment passphrase.
func NewAESEncryptor(passphrase string) *AESEncryptor {
	return &AESEncryptor{passphrase: []byte(passphrase)}
}

func (e *AESEncryptor) gcm(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(e.passphrase, salt, pbkdf2Iterations, keyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals the plaintext under a freshly derived key and returns the
// encoded token.
func (e *AESEncryptor) Encrypt(_ context.Context, plaintext string) (string, error) {
	buf := make([]byte, saltLength+nonceLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt and nonce: %w", err)
	}
	salt, nonce := buf[:saltLength], buf[saltLength:]

	aead, err := e.gcm(salt)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	sealed := aead.Seal(buf, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Every failure mode collapses to ErrDecryption;
// it never returns partial plaintext.
func (e *AESEncryptor) Decrypt(_ context.Context, encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecryption
	}
	if len(raw) < saltLength+nonceLength {
		return "", ErrDecryption
	}
	salt := raw[:saltLength]
	nonce := raw[saltLength : saltLength+nonceLength]
	ciphertext := raw[saltLength+nonceLength:]

	aead, err := e.gcm(salt)
	if err != nil {
		return "", ErrDecryption
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryption
	}
	return string(plaintext), nil
}
