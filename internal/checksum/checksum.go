// Package checksum fingerprints post lists so that changes can be detected
// without keeping the posts themselves.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/starford/postdeck/internal/models"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Posts returns the digest of the JSON encoding of posts. Order matters.
func Posts(posts []models.Post) (string, error) {
	data, err := json.Marshal(posts)
	if err != nil {
		return "", err
	}
	return Sum(data), nil
}
