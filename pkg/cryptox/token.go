package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Sizes in raw bytes, before base64url encoding.
const (
	TokenSize128 = 16
	TokenSize256 = 32
	// TokenSize512 is the refresh token size: 64 bytes, 86 characters encoded.
	TokenSize512 = 64
)

// GenerateToken returns size random bytes encoded as unpadded base64url, so
// the value is safe in cookies and URLs without escaping.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func MustGenerateToken(size int) string {
	token, err := GenerateToken(size)
	if err != nil {
		panic(fmt.Sprintf("cryptox: failed to generate token: %v", err))
	}
	return token
}

// FingerprintToken is the stored form of an opaque token: SHA-256, base64url.
// Lookups hash the presented value and compare fingerprints, so a database
// dump does not hand out live refresh tokens.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
