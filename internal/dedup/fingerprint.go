// Package dedup derives the fingerprint that identifies equivalent message submissions.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Prefix marks values produced by Fingerprint
const Prefix = "fp_"

const separator = "\x1f"

// NormalizeText lowercases and trims. Punctuation and digits are kept because
// fraud messages often differ only in amounts.
func NormalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// NormalizeSender lowercases and trims the sender address
func NormalizeSender(sender string) string {
	return strings.ToLower(strings.TrimSpace(sender))
}

// Fingerprint is a pure function of normalized text, sender and observedAt
// rendered as UTC Unix milliseconds.
func Fingerprint(text, sender string, observedAt time.Time) string {
	var b strings.Builder
	b.WriteString(NormalizeText(text))
	b.WriteString(separator)
	b.WriteString(NormalizeSender(sender))
	b.WriteString(separator)
	b.WriteString(strconv.FormatInt(observedAt.UTC().UnixMilli(), 10))

	sum := sha256.Sum256([]byte(b.String()))
	return Prefix + hex.EncodeToString(sum[:])
}

// IsFingerprint reports whether s has the shape Fingerprint produces
func IsFingerprint(s string) bool {
	if !strings.HasPrefix(s, Prefix) || len(s) != len(Prefix)+sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s[len(Prefix):])
	return err == nil
}
