// Package canon derives content-addressed document keys from arbitrary
// JSON payloads. Go's encoding/json sorts map[string]any keys
// alphabetically when marshaling, which is what gives Key a stable,
// platform-independent result for I1/I3 without a third-party
// canonical-JSON library.
package canon

import (
	"crypto/md5" //nolint:gosec // content-addressing, not a security boundary
	"encoding/hex"
	"encoding/json"
)

// Key returns the hex-encoded md5 digest of v's canonical JSON encoding.
// v should be a map[string]any/[]any/primitive tree (e.g. decoded from a
// JSONB column), not a struct with non-deterministic field ordering
// concerns — structs already serialize in declared-field order, which is
// deterministic on its own.
func Key(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Marshal only fails on unsupported types (channels, funcs); a
		// JSON-decoded tree of maps/slices/primitives never hits this.
		panic(err)
	}
	sum := md5.Sum(b) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// KeyString is Key for callers that already have the exact string to
// hash, e.g. the witness edge key "challengee+witness".
func KeyString(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
