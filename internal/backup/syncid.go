package backup

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
)

// SyncIDAlphabet omits I, O, 0 and 1, which are easily confused.
const SyncIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// SyncIDLength is the number of symbols in a sync ID.
const SyncIDLength = 6

// NewSyncID draws SyncIDLength symbols uniformly from SyncIDAlphabet.
// A nil r uses crypto/rand.
func NewSyncID(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, SyncIDLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("generate sync id: %w", err)
	}
	// 256 is a multiple of the alphabet size, so the modulo is unbiased.
	for i, b := range buf {
		buf[i] = SyncIDAlphabet[int(b)%len(SyncIDAlphabet)]
	}
	return string(buf), nil
}

// NormalizeSyncID upper-cases and trims user input.
func NormalizeSyncID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// ValidSyncID reports whether id is a well-formed sync ID.
func ValidSyncID(id string) bool {
	if len(id) != SyncIDLength {
		return false
	}
	for _, c := range id {
		if !strings.ContainsRune(SyncIDAlphabet, c) {
			return false
		}
	}
	return true
}
