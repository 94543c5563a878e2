package session_test

import (
	"context"
	"sync"

	session "github.com/blogkit/go-session"
)

// mockGateway lets tests script each network operation and count calls.
type mockGateway struct {
	mu sync.Mutex

	fetchFn  func(ctx context.Context) (*session.Identity, error)
	submitFn func(ctx context.Context, identifier, password string) (*session.Identity, error)
	termFn   func(ctx context.Context) error

	fetchCalls  int
	submitCalls int
	termCalls   int
}

func (m *mockGateway) FetchCurrentIdentity(ctx context.Context) (*session.Identity, error) {
	m.mu.Lock()
	m.fetchCalls++
	fn := m.fetchFn
	m.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx)
}

func (m *mockGateway) SubmitCredentials(ctx context.Context, identifier, password string) (*session.Identity, error) {
	m.mu.Lock()
	m.submitCalls++
	fn := m.submitFn
	m.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, identifier, password)
}

func (m *mockGateway) TerminateSession(ctx context.Context) error {
	m.mu.Lock()
	m.termCalls++
	fn := m.termFn
	m.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (m *mockGateway) calls() (fetch, submit, term int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls, m.submitCalls, m.termCalls
}

// mockStore is an in-memory Store with scriptable failures.
type mockStore struct {
	mu sync.Mutex

	identity *session.Identity
	loadErr  error
	saveErr  error
	clearErr error

	saveCalls  int
	clearCalls int
}

func (m *mockStore) Load(ctx context.Context) (*session.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.identity.Clone(), nil
}

func (m *mockStore) Save(ctx context.Context, identity *session.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.identity = identity.Clone()
	return nil
}

func (m *mockStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCalls++
	if m.clearErr != nil {
		return m.clearErr
	}
	m.identity = nil
	return nil
}

func (m *mockStore) snapshot() *session.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity.Clone()
}

// quietLogger keeps test output clean.
type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}

func writerIdentity() *session.Identity {
	return &session.Identity{
		ID:       "7",
		Username: "poe",
		Email:    "poe@example.com",
		Roles:    []session.Role{{Name: session.RoleWriter}},
	}
}

func adminIdentity() *session.Identity {
	return &session.Identity{
		ID:       "1",
		Username: "root",
		Roles:    []session.Role{{Name: session.RoleAdmin}},
	}
}
