package session

import (
	"errors"
	"fmt"
)

// ErrorKind classifies gateway failures so callers can decide policy
// without inspecting transport details.
type ErrorKind string

const (
	// KindNetwork covers transport-level failures: refused connections,
	// DNS errors, timeouts.
	KindNetwork ErrorKind = "network"
	// KindUnauthorized covers 401/403 responses that mean "anonymous".
	KindUnauthorized ErrorKind = "unauthorized"
	// KindCredentialsRejected covers a 403 the server explicitly marks
	// as bad username/password.
	KindCredentialsRejected ErrorKind = "credentials_rejected"
	// KindServer covers 5xx responses and undecodable payloads.
	KindServer ErrorKind = "server"
)

// GatewayError is the normalized failure shape returned by the Gateway.
type GatewayError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	cause      error
}

func (e *GatewayError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("session gateway: %s: %v", e.Kind, e.cause)
	}
	if e.Message != "" {
		return fmt.Sprintf("session gateway: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("session gateway: %s", e.Kind)
}

func (e *GatewayError) Unwrap() error {
	return e.cause
}

// IsCredentialsRejected reports whether err is the server explicitly
// rejecting a username/password pair.
func IsCredentialsRejected(err error) bool {
	return errorKind(err) == KindCredentialsRejected
}

// IsNetworkError reports whether err is a transport-level failure.
func IsNetworkError(err error) bool {
	return errorKind(err) == KindNetwork
}

// IsUnauthorized reports whether err is a 401/403 that means the caller
// has no server-side session.
func IsUnauthorized(err error) bool {
	return errorKind(err) == KindUnauthorized
}

func errorKind(err error) ErrorKind {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}
