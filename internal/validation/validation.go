// Package validation provides input validation for package identifiers.
package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidID is returned for malformed package identifiers.
var ErrInvalidID = errors.New("invalid package id")

// idLen is the canonical package id width in hex digits (32 bytes).
const idLen = 64

// NormalizePackageID normalizes a package id to its canonical form:
// lowercase, no 0x prefix, left-padded with zeros to 64 hex digits.
// Short ids like "0x2" are accepted and padded.
func NormalizePackageID(id string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(id), "0x")
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if len(trimmed) > idLen {
		return "", fmt.Errorf("%w: %q exceeds %d hex digits", ErrInvalidID, id, idLen)
	}
	trimmed = strings.ToLower(trimmed)
	for _, c := range trimmed {
		isDigit := c >= '0' && c <= '9'
		isHex := c >= 'a' && c <= 'f'
		if !isDigit && !isHex {
			return "", fmt.Errorf("%w: %q contains non-hex characters", ErrInvalidID, id)
		}
	}
	return strings.Repeat("0", idLen-len(trimmed)) + trimmed, nil
}

// ValidatePackageID checks that an id normalizes cleanly.
func ValidatePackageID(id string) error {
	_, err := NormalizePackageID(id)
	return err
}

// HexLiteral renders a normalized id (or any hex string) in short 0x
// literal form with leading zeros stripped, matching the on-chain
// rendering of addresses ("0x2" rather than "0x000...002").
func HexLiteral(id string) string {
	trimmed := strings.TrimLeft(strings.TrimPrefix(id, "0x"), "0")
	if trimmed == "" {
		trimmed = "0"
	}
	return "0x" + strings.ToLower(trimmed)
}
