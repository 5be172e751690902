// Package config holds the typed environment configuration for the service.
// Every tunable lives here; handlers receive what they need through
// constructor injection rather than reading the environment themselves.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration, populated from environment
// variables at startup.
type Config struct {
	// DevMode switches to in-memory storage, the mock encryptor and the
	// env-var secret resolver.
	DevMode bool `env:"DEV_MODE"`

	// AllowedOrigins is the CORS allowlist. Empty means same-origin only.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// Timezone is the zone used for timestamps and server-side date keys
	// when the client does not supply its local date.
	Timezone string `env:"TIMEZONE" envDefault:"Asia/Tokyo"`

	// OutlinerBaseURL is the remote outliner API root.
	OutlinerBaseURL string `env:"OUTLINER_BASE_URL" envDefault:"https://beta.workflowy.com/api/v1"`

	// EncryptionKeyParam names the SSM parameter (or env var in dev mode)
	// holding the credential-encryption passphrase.
	EncryptionKeyParam string `env:"ENCRYPTION_KEY_PARAM" envDefault:"/jotflow/encryption-key"`

	// KMSKeyID, when set, encrypts session credentials with KMS instead of
	// the passphrase-derived cipher.
	KMSKeyID string `env:"KMS_KEY_ID"`

	// CookieName is the session cookie carrying the encrypted credential.
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"auth"`

	// FetchTimeout bounds best-effort page-title lookups.
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"5s"`

	// SubmitTimeout bounds calls to the outliner API.
	SubmitTimeout time.Duration `env:"SUBMIT_TIMEOUT" envDefault:"30s"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Location resolves the configured timezone, falling back to UTC if the
// zone database does not know it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
