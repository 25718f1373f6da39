package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized covers unknown passes and wrong tokens alike.
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SigningError wraps a failure of the signing collaborator.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return "pass signing failed: " + e.Err.Error()
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// DeliveryError wraps a failed push to one device token.
type DeliveryError struct {
	Token string
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("push delivery to %s failed: %v", e.Token, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
