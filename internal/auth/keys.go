package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const (
	// KeyPrefix marks the public half of an api key pair.
	KeyPrefix = "fk_"
	// SecretPrefix marks the secret half, shown once at creation.
	SecretPrefix = "fs_"

	keyRawBytes    = 12
	secretRawBytes = 32
)

// GenerateApiKey creates a new key/secret pair. Only the SHA-256 hash
// of the secret is meant to be stored.
func GenerateApiKey() (key, secret, secretHash string, err error) {
	rawKey := make([]byte, keyRawBytes)
	if _, err = rand.Read(rawKey); err != nil {
		return "", "", "", err
	}
	rawSecret := make([]byte, secretRawBytes)
	if _, err = rand.Read(rawSecret); err != nil {
		return "", "", "", err
	}
	key = KeyPrefix + base64.RawURLEncoding.EncodeToString(rawKey)
	secret = SecretPrefix + base64.RawURLEncoding.EncodeToString(rawSecret)
	return key, secret, HashSecret(secret), nil
}

// HashSecret returns the SHA-256 hex digest of an api key secret.
func HashSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}
