package hasher

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the hex encoded SHA-256 of s.
func Hash(s string) string {
	return SumBytes([]byte(s))
}

// SumBytes returns the hex encoded SHA-256 of b.
func SumBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// ETag returns a strong HTTP entity tag for body.
func ETag(body []byte) string {
	return `"` + SumBytes(body)[:32] + `"`
}

// MatchETag reports whether an If-None-Match header value matches etag.
func MatchETag(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	return ifNoneMatch == "*" || ifNoneMatch == etag || ifNoneMatch == "W/"+etag
}
