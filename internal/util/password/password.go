// Package password generates random credentials for generated Secrets.
package password

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// DefaultBytes of entropy in a generated password.
const DefaultBytes = 16

// Generate returns a hex encoded password of n random bytes. Hex keeps the
// value safe inside shell scripts and YAML without quoting.
func Generate(n int) (string, error) {
	if n < 8 {
		return "", fmt.Errorf("password must have at least 8 bytes of entropy, got %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
