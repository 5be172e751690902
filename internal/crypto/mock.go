package crypto

import (
	"context"
	"strings"
)

const mockPrefix = "mock:"

// MockEncryptor is a reversible pass-through for tests and local dev.
type MockEncryptor struct{}

func NewMockEncryptor() *MockEncryptor {
	return &MockEncryptor{}
}

func (m *MockEncryptor) Encrypt(_ context.Context, plaintext string) (string, error) {
	return mockPrefix + plaintext, nil
}

func (m *MockEncryptor) Decrypt(_ context.Context, ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, mockPrefix) {
		return "", ErrDecryption
	}
	return strings.TrimPrefix(ciphertext, mockPrefix), nil
}
