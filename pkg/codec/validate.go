package codec

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	DefaultMinCustomLength = 3
	DefaultMaxCustomLength = 20
)

// DefaultReservedWords are substrings rejected in custom codes,
// case-insensitively.
var DefaultReservedWords = []string{"api", "admin", "static", "assets", "health"}

var (
	ErrReservedCode = errors.New("short code contains a reserved word")
)

// CustomCodeRules validates user-supplied short codes.
type CustomCodeRules struct {
	MinLength int
	MaxLength int
	Reserved  []string
}

// NewCustomCodeRules creates rules with the given bounds; non-positive
// bounds fall back to the defaults, a nil reserved list to
// DefaultReservedWords.
func NewCustomCodeRules(minLength, maxLength int, reserved []string) CustomCodeRules {
	if minLength <= 0 {
		minLength = DefaultMinCustomLength
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxCustomLength
	}
	if reserved == nil {
		reserved = DefaultReservedWords
	}
	return CustomCodeRules{MinLength: minLength, MaxLength: maxLength, Reserved: reserved}
}

// Validate checks a custom code against length bounds, alphabet conformance
// and the reserved-word denylist.
func (r CustomCodeRules) Validate(code string) error {
	if err := validation.Validate(code,
		validation.Required.Error("short code is required"),
		validation.Length(r.MinLength, r.MaxLength),
		validation.By(func(value interface{}) error {
			if s, _ := value.(string); !IsValidCode(s) {
				return ErrInvalidCharacter
			}
			return nil
		}),
	); err != nil {
		return err
	}

	lower := strings.ToLower(code)
	for _, word := range r.Reserved {
		if strings.Contains(lower, strings.ToLower(word)) {
			return ErrReservedCode
		}
	}
	return nil
}
