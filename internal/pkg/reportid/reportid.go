package reportid

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	Prefix = "URB"
	Digits = 6
	// MaxAttempts bounds the collision retries of Next.
	MaxAttempts = 5
)

var ErrExhausted = errors.New("could not generate a unique report id")

// ExistsFunc reports whether a candidate id is already taken.
type ExistsFunc func(candidate string) (bool, error)

// Generate returns a candidate id: the prefix followed by the leading digits
// of a random UUID read as an unsigned integer.
func Generate() string {
	return fromUUID(uuid.New())
}

func fromUUID(u uuid.UUID) string {
	n := new(big.Int).SetBytes(u[:])
	digits := n.String()
	// a UUID integer below 10^5 is practically impossible but keep the width fixed
	if len(digits) < Digits {
		digits = strings.Repeat("0", Digits-len(digits)) + digits
	}
	return Prefix + digits[:Digits]
}

// Next draws candidates until exists reports a free one.
func Next(exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		candidate := Generate()
		taken, err := exists(candidate)
		if err != nil {
			return "", fmt.Errorf("check report id %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrExhausted
}

// Normalize trims and upper-cases user input of a report id.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsWellFormed reports whether s has the shape of a generated report id.
func IsWellFormed(s string) bool {
	if len(s) != len(Prefix)+Digits || !strings.HasPrefix(s, Prefix) {
		return false
	}
	for _, r := range s[len(Prefix):] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
