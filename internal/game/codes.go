package game

import (
	"crypto/rand"
	"strings"
)

// codeAlphabet omits visually confusable glyphs (0/O, 1/I) so codes survive
// being read aloud or typed from a projector.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed length of session codes.
const CodeLength = 6

// CodeFunc generates candidate session codes. The registry retries on
// collision, so implementations only need randomness, not uniqueness.
type CodeFunc func() string

// RandomCode returns a random session code drawn from the unambiguous
// alphabet.
func RandomCode() string {
	buf := make([]byte, CodeLength)
	_, _ = rand.Read(buf)
	out := make([]byte, CodeLength)
	for i, b := range buf {
		// alphabet length is 32, so masking avoids modulo bias
		out[i] = codeAlphabet[b&31]
	}
	return string(out)
}

// NormalizeCode canonicalizes player-entered codes for case-insensitive
// lookup.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// PlayerKey derives the session-unique identity key from a nickname. Display
// casing is preserved on the player record; identity comparison is not.
func PlayerKey(nickname string) string {
	return strings.ToLower(nickname)
}
