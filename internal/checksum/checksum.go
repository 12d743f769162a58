// Package checksum computes content digests for the object store.
package checksum

import (
	"crypto/sha1" //nolint:gosec // digest format is fixed to 160-bit SHA-1
	"encoding/hex"
	"strconv"
)

// Size is the length of a hex-encoded digest.
const Size = sha1.Size * 2

// Frame returns data prefixed with the "blob <len>\x00" header.
func Frame(data []byte) []byte {
	header := "blob " + strconv.Itoa(len(data)) + "\x00"
	out := make([]byte, 0, len(header)+len(data))
	out = append(out, header...)
	return append(out, data...)
}

// Sum returns the hex-encoded SHA-1 of the framed data.
func Sum(data []byte) string {
	h := sha1.Sum(Frame(data)) //nolint:gosec
	return hex.EncodeToString(h[:])
}

// Valid reports whether s looks like a digest produced by Sum.
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
