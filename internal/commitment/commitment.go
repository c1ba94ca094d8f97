// Package commitment binds a request identifier to a fixed-length digest.
//
// The same function runs inside the fetch program and in the verifying
// process, so it must not depend on anything but its input.
package commitment

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Size is the length of a commitment in hex characters.
const Size = 2 * sha256.Size

// Compute returns the lowercase hex SHA-256 digest of identifier.
func Compute(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(sum[:])
}

// Matches recomputes the commitment of identifier and compares it
// byte-for-byte with got.
func Matches(identifier, got string) bool {
	want := Compute(identifier)
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
