package session

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

var _ TokenSource = &CookieTokenSource{}

// CookieTokenSource reads the anti-forgery cookie out of a cookie jar.
// It is the only place cookie access happens.
type CookieTokenSource struct {
	jar    http.CookieJar
	origin *url.URL
	name   string
}

// NewCookieTokenSource returns a TokenSource backed by jar, scoped to
// the given origin and cookie name.
func NewCookieTokenSource(jar http.CookieJar, origin *url.URL, cookieName string) *CookieTokenSource {
	return &CookieTokenSource{jar: jar, origin: origin, name: cookieName}
}

func (s *CookieTokenSource) Token() (string, bool) {
	if s.jar == nil || s.origin == nil {
		return "", false
	}
	for _, c := range s.jar.Cookies(s.origin) {
		if c.Name == s.name && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

// StaticTokenSource returns a TokenSource that always yields token.
// Useful for tests and non-cookie transports.
func StaticTokenSource(token string) TokenSource {
	return staticTokenSource(token)
}

type staticTokenSource string

func (s staticTokenSource) Token() (string, bool) {
	return string(s), s != ""
}

// TokenBootstrap acquires the anti-forgery cookie with a harmless GET
// before any mutating request is attempted. Failures are logged, never
// propagated: mutating calls will simply be rejected individually until
// a later prime succeeds.
type TokenBootstrap struct {
	client   *http.Client
	primeURL string
	source   TokenSource
	settle   time.Duration
	logger   Logger

	mu     sync.Mutex
	primed bool
}

// TokenBootstrapOption customizes TokenBootstrap construction.
type TokenBootstrapOption func(*TokenBootstrap)

// WithTokenBootstrapLogger overrides the logger.
func WithTokenBootstrapLogger(logger Logger) TokenBootstrapOption {
	return func(tb *TokenBootstrap) {
		if logger != nil {
			tb.logger = logger
		}
	}
}

// NewTokenBootstrap builds a TokenBootstrap from the configuration. The
// client must share its cookie jar with source for the primed cookie to
// be visible.
func NewTokenBootstrap(cfg Config, client *http.Client, source TokenSource, opts ...TokenBootstrapOption) (*TokenBootstrap, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	prime, err := url.Parse(cfg.CSRFPath)
	if err != nil {
		return nil, err
	}

	tb := &TokenBootstrap{
		client:   client,
		primeURL: base.ResolveReference(prime).String(),
		source:   source,
		settle:   cfg.SettleDelay,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(tb)
		}
	}

	return tb, nil
}

// Source exposes the underlying TokenSource.
func (tb *TokenBootstrap) Source() TokenSource {
	return tb.source
}

// Prime performs the cookie-setting GET. It is idempotent: once a prime
// succeeds, later calls are no-ops.
func (tb *TokenBootstrap) Prime(ctx context.Context) error {
	tb.mu.Lock()
	if tb.primed {
		tb.mu.Unlock()
		return nil
	}
	tb.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tb.primeURL, nil)
	if err != nil {
		return err
	}

	resp, err := tb.client.Do(req)
	if err != nil {
		return &GatewayError{Kind: KindNetwork, cause: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode >= http.StatusInternalServerError {
		return &GatewayError{Kind: KindServer, StatusCode: resp.StatusCode}
	}

	tb.mu.Lock()
	tb.primed = true
	tb.mu.Unlock()

	return nil
}

// Ensure primes the token if needed and waits, bounded by the settle
// delay, until the cookie is readable. The login flow calls this before
// submitting credentials so the first mutating request carries a token.
func (tb *TokenBootstrap) Ensure(ctx context.Context) (string, bool) {
	if err := tb.Prime(ctx); err != nil {
		tb.logger.Warn("anti-forgery prime failed: %v", err)
	}

	if token, ok := tb.source.Token(); ok {
		return token, true
	}

	tick := tb.settle / 10
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}

	deadline := time.Now().Add(tb.settle)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(tick):
		}
		if token, ok := tb.source.Token(); ok {
			return token, true
		}
	}

	return "", false
}
