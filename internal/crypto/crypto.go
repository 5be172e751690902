// Package crypto encrypts the user's outliner API key for storage inside the
// session cookie. The cipher is authenticated so a tampered token is rejected
// outright instead of decrypting into a garbage credential that would fail
// remote calls with confusing errors.
package crypto

import (
	"context"
	"errors"
)

// ErrDecryption is returned for any decryption failure: malformed encoding,
// truncated data, tampering, or a wrong key. Callers must not distinguish
// the causes to avoid an oracle on the passphrase.
var ErrDecryption = errors.New("decryption failed")

// Encryptor turns a plaintext credential into an opaque string and back.
type Encryptor interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}
