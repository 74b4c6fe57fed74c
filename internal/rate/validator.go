package rate

import (
	"errors"

	"fxsync/internal/domain"
)

var (
	ErrCodeRequired  = errors.New("currency code is required")
	ErrCodeMalformed = errors.New("currency code must be 3 latin letters")
)

// ParseCode normalizes a code received from a caller. Well formed codes missing from the
// rate table are accepted, conversion falls back to the base currency for them.
func ParseCode(raw string) (domain.CurrencyCode, error) {
	code := domain.NormalizeCode(raw)
	if code == "" {
		return "", ErrCodeRequired
	}
	if len(code) != 3 {
		return "", ErrCodeMalformed
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", ErrCodeMalformed
		}
	}
	return code, nil
}
