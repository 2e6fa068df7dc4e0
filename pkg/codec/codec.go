// Package codec provides encoding and decoding between numeric identifiers
// and compact short codes, plus collision-resistant code generation.
//
// The alphabet deliberately excludes visually ambiguous characters
// (0, O, I, l, 1) so codes survive being read aloud or retyped.
package codec

import (
	"errors"
	"fmt"
)

// Alphabet is the character set used for all short codes.
// Order is significant: the first character is the zero digit and is used
// for left-padding.
const Alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Base is the number of characters in the alphabet.
const Base = uint64(len(Alphabet))

// ErrInvalidCharacter is returned when a code contains a character outside
// the alphabet.
var ErrInvalidCharacter = errors.New("invalid character in short code")

// charToValue maps alphabet characters to their positional value.
// Built once at init and read-only afterwards, safe for concurrent use.
var charToValue map[byte]uint64

func init() {
	charToValue = make(map[byte]uint64, Base)
	for i := 0; i < len(Alphabet); i++ {
		charToValue[Alphabet[i]] = uint64(i)
	}
}

// Encode converts a non-negative identifier into a short code, left-padded
// with the alphabet's first character to reach minLength.
//
// Encode is a pure function: the same (id, minLength) always yields the
// same code. Encode(0, n) returns n copies of the first alphabet character.
func Encode(id uint64, minLength int) string {
	if minLength < 1 {
		minLength = 1
	}

	buf := make([]byte, 0, minLength)
	if id == 0 {
		buf = append(buf, Alphabet[0])
	}
	for id > 0 {
		buf = append(buf, Alphabet[id%Base])
		id /= Base
	}

	for len(buf) < minLength {
		buf = append(buf, Alphabet[0])
	}

	// Digits were produced least-significant first.
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// Decode converts a short code back into its numeric identifier.
// It is the inverse of Encode; left-padding decodes to the same value.
func Decode(code string) (uint64, error) {
	if code == "" {
		return 0, fmt.Errorf("%w: empty code", ErrInvalidCharacter)
	}

	var id uint64
	for i := 0; i < len(code); i++ {
		v, ok := charToValue[code[i]]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrInvalidCharacter, code[i])
		}
		id = id*Base + v
	}
	return id, nil
}

// IsValidCode reports whether code is non-empty and consists solely of
// alphabet characters.
func IsValidCode(code string) bool {
	if code == "" {
		return false
	}
	for i := 0; i < len(code); i++ {
		if _, ok := charToValue[code[i]]; !ok {
			return false
		}
	}
	return true
}
