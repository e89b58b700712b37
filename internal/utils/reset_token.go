package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/yukikurage/hierarchy-api/internal/constants"
)

// GenerateResetToken returns a random hex token and the sha256 digest to persist.
func GenerateResetToken() (token string, digest string, err error) {
	raw := make([]byte, constants.ResetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	token = hex.EncodeToString(raw)
	return token, HashResetToken(token), nil
}

// HashResetToken digests a token received from a client.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
