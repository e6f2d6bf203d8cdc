package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewConnID generates a short (16 hex char) identifier used to correlate a
// connection's open/close/error log lines.
func NewConnID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
