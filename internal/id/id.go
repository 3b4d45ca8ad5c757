// Package id generates the prefixed identifiers used across PromptNote.
package id

import (
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// TempPrefix marks client-generated identifiers that have not yet been
// replaced by a server-issued id.
const TempPrefix = "temp_"

// shareAlphabet matches the compact base36 suffix the share links use.
const shareAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Generate creates a prefixed unique ID using NanoID
// Format: prefix_nanoid (e.g., "col_V1StGXR8_Z5jdHi6B-myT")
//
// NanoIDs are URL-friendly, compact (21 characters vs UUID's 36),
// and use a larger alphabet for better entropy per character.
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "_" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
// Use this only when you're certain the system entropy is available,
// or when failure should crash the program (e.g., during initialization).
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// NewTemp creates a temporary client-side item id.
// Format: temp_<unix-millis>_<random>; the temp_ prefix is part of the wire
// contract: the server recognizes it when a create must substitute for an
// update that targeted an unsynced item.
func NewTemp() string {
	suffix, err := gonanoid.Generate(shareAlphabet, 7)
	if err != nil {
		// Entropy exhaustion is not survivable for id generation.
		panic(fmt.Sprintf("failed to generate temp ID: %v", err))
	}
	return fmt.Sprintf("%s%d_%s", TempPrefix, time.Now().UnixMilli(), suffix)
}

// NewShare creates an opaque share token.
// Format: share_<unix-millis>_<random>, matching the links already in the wild.
func NewShare() string {
	suffix, err := gonanoid.Generate(shareAlphabet, 9)
	if err != nil {
		panic(fmt.Sprintf("failed to generate share ID: %v", err))
	}
	return fmt.Sprintf("share_%d_%s", time.Now().UnixMilli(), suffix)
}

// IsTemp reports whether the id is a client-generated temporary id.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, TempPrefix)
}
