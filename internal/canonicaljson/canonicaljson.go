// Package canonicaljson implements the canonical hashing rule of spec §3:
// serialize with keys sorted lexicographically and no superfluous
// whitespace, then SHA-256 and hex-encode. Go's encoding/json already sorts
// the keys of any map[string]any it marshals, and json.Marshal never emits
// extraneous whitespace, so the rule is satisfied by routing any hashed
// value through a generic map first rather than hashing a struct's own
// field order directly.
package canonicaljson

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Canonicalize re-encodes v (typically a struct) into its canonical form by
// round-tripping it through a map[string]any, which forces lexicographic
// key ordering on every nesting level. The result has no insignificant
// whitespace.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicaljson: marshal: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("canonicaljson: unmarshal to generic: %w", err)
	}

	canon, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("canonicaljson: remarshal: %w", err)
	}
	return canon, nil
}

// Hash returns the lowercase hex-encoded SHA-256 digest of v's canonical
// JSON form. Normative per spec §3: two implementations must produce
// byte-identical hashes for the same logical content.
func Hash(v any) (string, error) {
	canon, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// MustHash is Hash but panics on error, for call sites where v is known to
// be JSON-marshalable (e.g. a struct with only exported, tagged fields).
func MustHash(v any) string {
	h, err := Hash(v)
	if err != nil {
		panic(err)
	}
	return h
}
