package datacat

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Field/value and pair separators for the digest input. Both are ASCII
// control characters so no printable metadata value can forge a boundary.
const (
	unitSep   = "\x1f"
	recordSep = "\x1e"
)

// IDLength is the length of a derived identifier in hex characters.
const IDLength = sha256.Size * 2

// deriveID produces the deterministic identifier for a metadata mapping.
// Fields are serialized in the schema's declared order, so callers passing
// keys in any order converge to the same identifier. The key set must equal
// the schema exactly; payload content is never part of the digest, which is
// what makes identical metadata deduplicate (the later save wins).
func deriveID(fields []string, metadata map[string]string) (string, error) {
	if err := checkSchema(fields, metadata); err != nil {
		return "", err
	}
	h := sha256.New()
	for _, f := range fields {
		h.Write([]byte(f))
		h.Write([]byte(unitSep))
		h.Write([]byte(metadata[f]))
		h.Write([]byte(recordSep))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// checkSchema verifies that the metadata key set equals the declared field
// set exactly, before any hashing or I/O.
func checkSchema(fields []string, metadata map[string]string) error {
	if len(metadata) != len(fields) {
		return fmt.Errorf("%w: got %d keys, schema has %d fields", ErrSchemaMismatch, len(metadata), len(fields))
	}
	for _, f := range fields {
		if _, ok := metadata[f]; !ok {
			return fmt.Errorf("%w: missing field %q", ErrSchemaMismatch, f)
		}
	}
	return nil
}

// checkPatch verifies that every key of a partial metadata patch is a
// declared schema field. Unlike checkSchema, omitted fields are allowed.
func checkPatch(fields []string, patch map[string]string) error {
	for k := range patch {
		found := false
		for _, f := range fields {
			if f == k {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: unknown field %q", ErrSchemaMismatch, k)
		}
	}
	return nil
}

// validIDHex reports whether s looks like a derived identifier.
func validIDHex(s string) bool {
	if len(s) != IDLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
