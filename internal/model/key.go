package model

import (
	"errors"
	"regexp"
	"strings"
)

const (
	// KeyLength is the length of a hex-encoded ed25519 public key.
	KeyLength = 64

	// EmptyKey marks a synthetic placeholder node whose identity is unknown.
	EmptyKey Key = ""
)

// Key validation errors.
var (
	// ErrEmptyKey is returned when an empty string is parsed as a Key.
	ErrEmptyKey = errors.New("empty node key")

	// ErrInvalidKey is returned when a string is not 64 hexadecimal characters.
	ErrInvalidKey = errors.New("invalid node key: expected 64 hex characters")
)

var keyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Key is the stable cryptographic identity of a mesh node.
// Keys are compared as strings, so they are always stored lower-cased.
type Key string

// ParseKey validates s and returns it as a lower-cased Key.
func ParseKey(s string) (Key, error) {
	if s == "" {
		return EmptyKey, ErrEmptyKey
	}

	normalized := strings.ToLower(strings.TrimSpace(s))
	if !keyPattern.MatchString(normalized) {
		return EmptyKey, ErrInvalidKey
	}
	return Key(normalized), nil
}

// IsEmpty reports whether k is the placeholder key.
func (k Key) IsEmpty() bool {
	return k == EmptyKey
}

// Short returns the first eight characters of the key for log output.
func (k Key) Short() string {
	if len(k) <= 8 {
		return string(k)
	}
	return string(k[:8])
}

// String returns the key as a plain string.
func (k Key) String() string {
	return string(k)
}
