package session

import (
	"context"
	"fmt"
	"sync"
)

// Status is the lifecycle state of the session.
type Status string

const (
	// StatusUninitialized is the state before Bootstrap runs.
	StatusUninitialized Status = "uninitialized"
	// StatusBootstrapping covers the token prime, snapshot read and
	// server verification sequence.
	StatusBootstrapping Status = "bootstrapping"
	// StatusAuthenticated means a server-verified identity is present.
	StatusAuthenticated Status = "authenticated"
	// StatusAnonymous means no identity is present.
	StatusAnonymous Status = "anonymous"
)

// State is the canonical, observable session state.
type State struct {
	Status   Status
	Identity *Identity
	Loading  bool
	Err      error
}

// IsAuthenticated is derived: true iff an identity is present.
func (s State) IsAuthenticated() bool {
	return s.Identity != nil
}

func (s State) String() string {
	user := "<nil>"
	if s.Identity != nil {
		user = s.Identity.Username
	}
	return fmt.Sprintf("status=%s user=%s loading=%t err=%v", s.Status, user, s.Loading, s.Err)
}

// Manager owns canonical session state. It is the only writer: feature
// code reads snapshots or requests changes through Bootstrap, Login,
// Logout, UpdateUser and ClearError. All mutation is serialized behind
// one mutex, so UI-triggered actions racing the bootstrap sequence are
// linearized.
type Manager struct {
	gateway Gateway
	store   Store
	tokens  *TokenBootstrap
	logger  Logger

	transitions map[Status]map[Status]struct{}

	mu           sync.Mutex
	status       Status
	identity     *Identity
	loading      bool
	err          error
	bootstrapped bool
	loggedOut    bool
	observers    []func(State)
}

// ManagerOption customizes Manager construction.
type ManagerOption func(*Manager)

// WithLogger overrides the logger.
func WithLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithManagerTokenBootstrap has Bootstrap prime the anti-forgery token
// before restoring the session.
func WithManagerTokenBootstrap(tokens *TokenBootstrap) ManagerOption {
	return func(m *Manager) {
		m.tokens = tokens
	}
}

// WithObserver registers a callback fired after every state change.
func WithObserver(fn func(State)) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.observers = append(m.observers, fn)
		}
	}
}

// NewManager returns a Manager in the uninitialized, loading state.
func NewManager(gateway Gateway, store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		gateway: gateway,
		store:   store,
		logger:  defLogger{},
		status:  StatusUninitialized,
		loading: true,
		transitions: map[Status]map[Status]struct{}{
			StatusUninitialized: {
				StatusBootstrapping: {},
				StatusAnonymous:     {},
			},
			StatusBootstrapping: {
				StatusAuthenticated: {},
				StatusAnonymous:     {},
			},
			StatusAuthenticated: {
				StatusAnonymous: {},
			},
			StatusAnonymous: {
				StatusAuthenticated: {},
			},
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Bootstrap runs the startup sequence exactly once: prime the
// anti-forgery token (best effort), read the cached snapshot, and when
// one exists verify it against the server. The verified or rejected
// result becomes canonical state, and Loading flips to false exactly
// once at the end, whatever happened on the network.
func (m *Manager) Bootstrap(ctx context.Context) State {
	m.mu.Lock()
	if m.bootstrapped {
		st := m.snapshotLocked()
		m.mu.Unlock()
		m.logger.Debug("bootstrap requested twice, ignoring")
		return st
	}
	m.bootstrapped = true
	m.applyLocked(StatusBootstrapping)
	m.mu.Unlock()

	if m.tokens != nil {
		if err := m.tokens.Prime(ctx); err != nil {
			// Non-fatal: mutating requests will be rejected individually
			// until a later prime succeeds.
			m.logger.Warn("anti-forgery bootstrap failed: %v", err)
		}
	}

	cached, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("snapshot load failed: %v", err)
		cached = nil
	}

	if cached == nil {
		// Definitely anonymous, skip the round-trip.
		return m.finishBootstrap(ctx, nil, nil)
	}

	ident, err := m.gateway.FetchCurrentIdentity(ctx)
	if err != nil || ident == nil {
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Warn("snapshot clear failed: %v", err)
		}
		if err != nil && !IsUnauthorized(err) {
			return m.finishBootstrap(ctx, nil, err)
		}
		return m.finishBootstrap(ctx, nil, nil)
	}

	// Server-verified identity wins over the cached snapshot.
	if err := m.store.Save(ctx, ident); err != nil {
		m.logger.Warn("snapshot refresh failed: %v", err)
	}
	return m.finishBootstrap(ctx, ident, nil)
}

func (m *Manager) finishBootstrap(ctx context.Context, ident *Identity, err error) State {
	m.mu.Lock()
	// A logout issued while bootstrap was in flight wins; the session
	// must not be resurrected.
	resurrected := m.loggedOut && ident != nil
	if resurrected {
		ident = nil
	}

	m.identity = ident.Clone()
	m.err = err
	m.loading = false
	if ident != nil {
		m.applyLocked(StatusAuthenticated)
	} else {
		m.applyLocked(StatusAnonymous)
	}
	st := m.snapshotLocked()
	obs := m.observersLocked()
	m.mu.Unlock()

	if resurrected {
		if cerr := m.store.Clear(ctx); cerr != nil {
			m.logger.Warn("snapshot clear failed: %v", cerr)
		}
	}

	notify(obs, st)
	return st
}

// Login installs an identity obtained from a successful credential
// exchange and persists it. It does not call the network: the login
// flow already performed the exchange through the Gateway.
func (m *Manager) Login(ctx context.Context, identity *Identity) State {
	if identity == nil {
		return m.Snapshot()
	}

	m.mu.Lock()
	m.loggedOut = false
	m.identity = identity.Clone()
	m.err = nil
	m.applyLocked(StatusAuthenticated)
	st := m.snapshotLocked()
	obs := m.observersLocked()
	m.mu.Unlock()

	if err := m.store.Save(ctx, identity); err != nil {
		m.logger.Warn("snapshot save failed: %v", err)
	}

	notify(obs, st)
	return st
}

// Logout terminates the server session best-effort and clears local
// state unconditionally: the user's intent to leave always succeeds
// locally, even when the network call fails.
func (m *Manager) Logout(ctx context.Context) State {
	if err := m.gateway.TerminateSession(ctx); err != nil {
		m.logger.Warn("terminate session failed, clearing local state anyway: %v", err)
	}

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("snapshot clear failed: %v", err)
	}

	m.mu.Lock()
	m.loggedOut = true
	m.identity = nil
	m.applyLocked(StatusAnonymous)
	st := m.snapshotLocked()
	obs := m.observersLocked()
	m.mu.Unlock()

	notify(obs, st)
	return st
}

// UpdateUser shallow-merges patch into the current identity without a
// network round-trip, used after profile edits. No-op when anonymous.
func (m *Manager) UpdateUser(ctx context.Context, patch IdentityPatch) State {
	m.mu.Lock()
	if m.identity == nil {
		st := m.snapshotLocked()
		m.mu.Unlock()
		return st
	}
	merged := m.identity.Merge(patch)
	m.identity = merged
	st := m.snapshotLocked()
	obs := m.observersLocked()
	m.mu.Unlock()

	if err := m.store.Save(ctx, merged); err != nil {
		m.logger.Warn("snapshot save failed: %v", err)
	}

	notify(obs, st)
	return st
}

// ClearError clears the diagnostic error field only.
func (m *Manager) ClearError() State {
	m.mu.Lock()
	m.err = nil
	st := m.snapshotLocked()
	obs := m.observersLocked()
	m.mu.Unlock()

	notify(obs, st)
	return st
}

// OnChange registers a callback fired after every state change.
func (m *Manager) OnChange(fn func(State)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// Snapshot returns a copy of the canonical state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Identity returns a copy of the current identity, or nil when anonymous.
func (m *Manager) Identity() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity.Clone()
}

// IsAuthenticated reports whether an identity is present.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity != nil
}

// Loading reports whether the bootstrap sequence is still running.
// Consumers must not render role-gated UI while true.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Err returns the last non-fatal error, or nil.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Capability checks, delegating to the current identity. All are pure
// reads and hold for a nil (anonymous) identity by returning false.

func (m *Manager) HasRole(name string) bool          { return m.Identity().HasRole(name) }
func (m *Manager) HasAnyRole(names ...string) bool   { return m.Identity().HasAnyRole(names...) }
func (m *Manager) IsAdmin() bool                     { return m.Identity().IsAdmin() }
func (m *Manager) IsEditor() bool                    { return m.Identity().IsEditor() }
func (m *Manager) CanCreatePosts() bool              { return m.Identity().CanCreatePosts() }
func (m *Manager) CanEditPost(post PostRef) bool     { return m.Identity().CanEditPost(post) }
func (m *Manager) CanDeletePost(post PostRef) bool   { return m.Identity().CanDeletePost(post) }

func (m *Manager) snapshotLocked() State {
	return State{
		Status:   m.status,
		Identity: m.identity.Clone(),
		Loading:  m.loading,
		Err:      m.err,
	}
}

func (m *Manager) observersLocked() []func(State) {
	if len(m.observers) == 0 {
		return nil
	}
	out := make([]func(State), len(m.observers))
	copy(out, m.observers)
	return out
}

// applyLocked moves to target, tolerating self-transitions. An attempt
// outside the transition table is a programming error and logged loudly.
func (m *Manager) applyLocked(target Status) {
	if m.status == target {
		return
	}
	if allowed, ok := m.transitions[m.status]; ok {
		if _, ok := allowed[target]; ok {
			m.status = target
			return
		}
	}
	m.logger.Error("invalid session transition %s -> %s", m.status, target)
	m.status = target
}

func notify(observers []func(State), st State) {
	for _, fn := range observers {
		fn(st)
	}
}
