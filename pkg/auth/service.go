package auth

import (
	"crypto/subtle"
	"errors"
)

var (
	ErrMissingServiceToken = errors.New("service token not provided")
	ErrInvalidServiceToken = errors.New("invalid service token")
)

// ValidateServiceToken accepts token if it equals any non-empty accepted
// token. Listing the previous token next to the current one lets the
// directory rotate SERVICE_TOKEN without downtime.
func ValidateServiceToken(token string, accepted ...string) error {
	if token == "" {
		return ErrMissingServiceToken
	}
	ok := 0
	for _, want := range accepted {
		if want == "" {
			continue
		}
		ok |= subtle.ConstantTimeCompare([]byte(token), []byte(want))
	}
	if ok != 1 {
		return ErrInvalidServiceToken
	}
	return nil
}
