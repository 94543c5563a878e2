package session

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Gateway holds the three network operations the session core depends on.
// Expected failures (network loss, 401/403, rejected credentials) are
// returned as *GatewayError values, never as panics.
type Gateway interface {
	FetchCurrentIdentity(ctx context.Context) (*Identity, error)
	SubmitCredentials(ctx context.Context, identifier, password string) (*Identity, error)
	TerminateSession(ctx context.Context) error
}

// Store persists the last-known identity between processes. It is a
// cache only; the Manager re-verifies anything it loads before trusting
// it. Load returns (nil, nil) when no snapshot exists.
type Store interface {
	Load(ctx context.Context) (*Identity, error)
	Save(ctx context.Context, identity *Identity) error
	Clear(ctx context.Context) error
}

// TokenSource is the single typed accessor for the anti-forgery token.
type TokenSource interface {
	Token() (string, bool)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
