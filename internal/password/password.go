// Package password holds the client-side password rules and the digest the
// backend receives instead of the plain password.
package password

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const MinLength = 8

const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

var (
	ErrMismatch      = errors.New("passwords do not match")
	ErrTooShort      = errors.New("password must be at least 8 characters")
	ErrInvalidChar   = errors.New("password may only contain ASCII letters, digits and punctuation")
	ErrMissingLower  = errors.New("password needs a lowercase letter")
	ErrMissingUpper  = errors.New("password needs an uppercase letter")
	ErrMissingDigit  = errors.New("password needs a digit")
	ErrMissingSymbol = errors.New("password needs a punctuation character")
)

// Check returns the first rule p1 and its confirmation p2 violate, or nil.
func Check(p1, p2 string) error {
	if p1 != p2 {
		return ErrMismatch
	}
	if len(p1) < MinLength {
		return ErrTooShort
	}
	var lower, upper, digit, symbol bool
	for _, c := range p1 {
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		case c < 0x80 && strings.ContainsRune(punctuation, c):
			symbol = true
		default:
			return ErrInvalidChar
		}
	}
	switch {
	case !lower:
		return ErrMissingLower
	case !upper:
		return ErrMissingUpper
	case !digit:
		return ErrMissingDigit
	case !symbol:
		return ErrMissingSymbol
	}
	return nil
}

// Verify reports whether Check accepts the pair.
func Verify(p1, p2 string) bool {
	return Check(p1, p2) == nil
}

// Digest is the lowercase hex SHA-256 of p, sent as password_hash.
func Digest(p string) string {
	sum := sha256.Sum256([]byte(p))
	return hex.EncodeToString(sum[:])
}
