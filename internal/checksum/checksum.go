// Package checksum computes content digests used as ETags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag returns the quoted entity tag for data.
func ETag(data []byte) string {
	return `"` + Sum(data) + `"`
}

// Match reports whether etag (quoted, weak, or bare) names data.
func Match(data []byte, etag string) bool {
	etag = strings.TrimPrefix(strings.TrimSpace(etag), "W/")
	return strings.Trim(etag, `"`) == Sum(data)
}
