// Package id generates prefixed entity identifiers.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for server-generated identifiers.
const (
	PrefixFlat        = "flat"
	PrefixJoinRequest = "jr"
	PrefixEvent       = "evt"
)

// Generate creates a prefixed NanoID, e.g. "flat-V1StGXR8_Z5jdHi6B-myT".
// It fails only when the system cannot supply secure randomness.
func Generate(prefix string) (string, error) {
	nid, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + nid, nil
}
