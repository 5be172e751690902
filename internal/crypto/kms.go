package crypto

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// KMSEncryptor implements Encryptor using an AWS KMS key. Deployments that
// prefer a managed key over the passphrase-derived cipher set KMS_KEY_ID.
type KMSEncryptor struct {
	client *kms.Client
	keyID  string
}

// NewKMSEncryptor creates a KMSEncryptor. keyID can be a key ID, key ARN,
// or alias name (e.g. "alias/jotflow-credential-key").
func NewKMSEncryptor(client *kms.Client, keyID string) *KMSEncryptor {
	return &KMSEncryptor{client: client, keyID: keyID}
}

// Encrypt encrypts the credential under the configured KMS key and returns
// base64 ciphertext.
func (e *KMSEncryptor) Encrypt(ctx context.Context, plaintext string) (string, error) {
	out, err := e.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(e.keyID),
		Plaintext: []byte(plaintext),
	})
	if err != nil {
		return "", fmt.Errorf("kms encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(out.CiphertextBlob), nil
}

// Decrypt reverses Encrypt. Failures collapse to ErrDecryption so the caller
// surfaces the same "not authenticated" condition as the AES path.
func (e *KMSEncryptor) Decrypt(ctx context.Context, encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecryption
	}

	out, err := e.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: raw,
		KeyId:          aws.String(e.keyID),
	})
	if err != nil {
		return "", ErrDecryption
	}
	return string(out.Plaintext), nil
}
