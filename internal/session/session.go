// Package session turns the user's outliner API key into an opaque,
// tamper-evident, time-limited token the client holds in a cookie. There is
// no server-side session store: the token itself carries the encrypted
// credential, and every request decrypts it anew.
package session

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jun/jotflow/internal/crypto"
)

var (
	// ErrNoToken means no session token was presented.
	ErrNoToken = errors.New("no session token")

	// ErrTokenExpired means the token was valid once but its validity window
	// has passed.
	ErrTokenExpired = errors.New("session token expired")

	// ErrTokenInvalid covers every other verification failure: malformed
	// encoding, bad signature, failed decryption. The causes are deliberately
	// not distinguished.
	ErrTokenInvalid = errors.New("session token invalid")
)

// Expiration policies selectable at login.
const (
	Expire1Hour  = "1hour"
	Expire1Day   = "1day"
	Expire7Days  = "7days"
	Expire30Days = "30days"
	ExpireNever  = "never"
	ExpireCustom = "custom"
)

// TTL maps an expiration policy to a duration. customDays only applies to
// the custom policy; unknown policies default to 30 days.
func TTL(policy string, customDays int) time.Duration {
	switch policy {
	case Expire1Hour:
		return time.Hour
	case Expire1Day:
		return 24 * time.Hour
	case Expire7Days:
		return 7 * 24 * time.Hour
	case Expire30Days:
		return 30 * 24 * time.Hour
	case ExpireNever:
		// Effectively never: ten years.
		return 10 * 365 * 24 * time.Hour
	case ExpireCustom:
		if customDays < 1 || customDays > 365 {
			customDays = 30
		}
		return time.Duration(customDays) * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

type claims struct {
	Credential string `json:"cred"`
	jwt.RegisteredClaims
}

// Manager issues and verifies credential session tokens. The credential is
// encrypted by the Encryptor and the result is wrapped in a signed claim set
// so that absence, tampering, and expiry are told apart server-side without
// any stored state.
type Manager struct {
	encryptor  crypto.Encryptor
	signingKey []byte
	now        func() time.Time
}

// NewManager builds a Manager. The signing key is derived from the same
// deployment secret that drives the encryptor, so one secret configures the
// whole session mechanism.
func NewManager(encryptor crypto.Encryptor, deploymentSecret string) *Manager {
	sum := sha256.Sum256([]byte("jotflow-session-signing:" + deploymentSecret))
	return &Manager{
		encryptor:  encryptor,
		signingKey: sum[:],
		now:        time.Now,
	}
}

// Issue encrypts the API key and returns a signed token valid for ttl.
func (m *Manager) Issue(ctx context.Context, apiKey string, ttl time.Duration) (string, error) {
	encrypted, err := m.encryptor.Encrypt(ctx, apiKey)
	if err != nil {
		return "", fmt.Errorf("encrypt credential: %w", err)
	}

	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Credential: encrypted,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(m.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the token and returns the original API key. Failures are
// classified as ErrNoToken, ErrTokenExpired, or ErrTokenInvalid; it never
// returns a partially decrypted credential.
func (m *Manager) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNoToken
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.signingKey, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if !parsed.Valid || c.Credential == "" {
		return "", ErrTokenInvalid
	}

	apiKey, err := m.encryptor.Decrypt(ctx, c.Credential)
	if err != nil {
		return "", ErrTokenInvalid
	}
	return apiKey, nil
}
