package endorse

import (
	"fmt"
	"time"
)

// ErrorKind values are part of the public API and must stay stable
type ErrorKind string

const (
	ErrNotLoggedIn       ErrorKind = "NOT_LOGGED_IN"
	ErrInvalidIDFormat   ErrorKind = "INVALID_ID_FORMAT"
	ErrInvalidType       ErrorKind = "INVALID_TYPE"
	ErrNotOwner          ErrorKind = "NOT_OWNER"
	ErrItemNameMismatch  ErrorKind = "ITEM_NAME_MISMATCH"
	ErrRequestExpired    ErrorKind = "REQUEST_EXPIRED"
	ErrNotFound          ErrorKind = "NOT_FOUND"
	ErrCooldown          ErrorKind = "COOLDOWN"
	ErrSecurityViolation ErrorKind = "SECURITY_VIOLATION"
	ErrServerError       ErrorKind = "SERVER_ERROR"
)

type Class string

const (
	ClassInput          Class = "input"
	ClassAuthorization  Class = "authorization"
	ClassState          Class = "state"
	ClassIntegrity      Class = "integrity"
	ClassInfrastructure Class = "infrastructure"
)

func (k ErrorKind) Class() Class {
	switch k {
	case ErrInvalidIDFormat, ErrInvalidType:
		return ClassInput
	case ErrNotLoggedIn, ErrNotOwner:
		return ClassAuthorization
	case ErrCooldown, ErrNotFound:
		return ClassState
	case ErrItemNameMismatch, ErrRequestExpired, ErrSecurityViolation:
		return ClassIntegrity
	default:
		return ClassInfrastructure
	}
}

// Retryable is true only for infrastructure failures
func (k ErrorKind) Retryable() bool {
	return k.Class() == ClassInfrastructure
}

// rejection aborts the cooldown transaction with a client-facing outcome
type rejection struct {
	kind      ErrorKind
	remaining time.Duration
}

func (r *rejection) Error() string {
	if r.kind == ErrCooldown {
		return fmt.Sprintf("%s (%s remaining)", r.kind, r.remaining)
	}
	return string(r.kind)
}

func reject(kind ErrorKind) error {
	return &rejection{kind: kind}
}
