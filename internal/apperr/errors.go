// Package apperr defines the error taxonomy shared by the client packages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for presentation
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthentication
	KindEntitlement
	KindConnectivity
	KindRequest
	KindGeneration
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindEntitlement:
		return "entitlement"
	case KindConnectivity:
		return "connectivity"
	case KindRequest:
		return "request"
	case KindGeneration:
		return "generation"
	default:
		return "unknown"
	}
}

// Fallback messages used when the server supplies none
const (
	MsgRequestFailed      = "Request failed"
	MsgBackendUnavailable = "Backend unavailable. Please make sure the API server is running."
	MsgLoginRequired      = "Please login to generate images"
	MsgNoTrials           = "No trials remaining. Please contact support for more generations."
	MsgGenerationFailed   = "Image generation failed"
)

// ValidationError is a local, pre-network field error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid returns a ValidationError for field
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AuthenticationError means login/registration was rejected or a session is required
type AuthenticationError struct {
	Message       string
	LoginRequired bool // no session at all, as opposed to rejected credentials
	Err           error
}

func (e *AuthenticationError) Error() string { return e.Message }
func (e *AuthenticationError) Unwrap() error { return e.Err }

// EntitlementError means a trial check or consumption was rejected
type EntitlementError struct {
	Message   string
	Exhausted bool
	Err       error
}

func (e *EntitlementError) Error() string { return e.Message }
func (e *EntitlementError) Unwrap() error { return e.Err }

// ConnectivityError means the backend could not be reached at all
type ConnectivityError struct {
	Endpoint string
	Err      error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: %v", MsgBackendUnavailable, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// RequestError is a non-success HTTP status with the server message
type RequestError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *RequestError) Error() string { return e.Message }

// GenerationError means the backend accepted the request but produced no images
type GenerationError struct {
	Message string
	Err     error
}

func (e *GenerationError) Error() string { return e.Message }
func (e *GenerationError) Unwrap() error { return e.Err }

// KindOf returns the most specific kind found in err's chain
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var (
		ve *ValidationError
		ae *AuthenticationError
		ee *EntitlementError
		ce *ConnectivityError
		ge *GenerationError
		re *RequestError
	)
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ae):
		return KindAuthentication
	case errors.As(err, &ee):
		return KindEntitlement
	case errors.As(err, &ge):
		return KindGeneration
	case errors.As(err, &ce):
		return KindConnectivity
	case errors.As(err, &re):
		return KindRequest
	default:
		return KindUnknown
	}
}

// ServerMessage extracts the user-facing message of a RequestError, or fallback
func ServerMessage(err error, fallback string) string {
	var re *RequestError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return fallback
}

// IsConnectivity reports whether err is a transport failure
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}
