package session_test

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/blogkit/go-session"
)

func newTokenFixture(t *testing.T, handler http.Handler) (session.Config, *http.Client, *url.URL) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	origin, err := url.Parse(srv.URL)
	require.NoError(t, err)

	return cfg, &http.Client{Jar: jar, Timeout: cfg.Timeout}, origin
}

func TestPrimeSetsCookie(t *testing.T) {
	var primes int32
	cfg, client, origin := newTokenFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/csrf", r.URL.Path)
		atomic.AddInt32(&primes, 1)
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok-abc", Path: "/"})
	}))

	source := session.NewCookieTokenSource(client.Jar, origin, cfg.CSRFCookieName)
	tb, err := session.NewTokenBootstrap(cfg, client, source,
		session.WithTokenBootstrapLogger(quietLogger{}))
	require.NoError(t, err)

	_, ok := source.Token()
	assert.False(t, ok, "no token before priming")

	require.NoError(t, tb.Prime(context.Background()))

	token, ok := source.Token()
	assert.True(t, ok)
	assert.Equal(t, "tok-abc", token)
}

func TestPrimeIsIdempotent(t *testing.T) {
	var primes int32
	cfg, client, origin := newTokenFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&primes, 1)
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok-abc", Path: "/"})
	}))

	source := session.NewCookieTokenSource(client.Jar, origin, cfg.CSRFCookieName)
	tb, err := session.NewTokenBootstrap(cfg, client, source,
		session.WithTokenBootstrapLogger(quietLogger{}))
	require.NoError(t, err)

	require.NoError(t, tb.Prime(context.Background()))
	require.NoError(t, tb.Prime(context.Background()))
	require.NoError(t, tb.Prime(context.Background()))

	assert.Equal(t, int32(1), atomic.LoadInt32(&primes))
}

func TestPrimeFailureIsReportedNotFatal(t *testing.T) {
	cfg, client, origin := newTokenFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	source := session.NewCookieTokenSource(client.Jar, origin, cfg.CSRFCookieName)
	tb, err := session.NewTokenBootstrap(cfg, client, source,
		session.WithTokenBootstrapLogger(quietLogger{}))
	require.NoError(t, err)

	err = tb.Prime(context.Background())
	require.Error(t, err)

	// Ensure still answers, just without a token.
	token, ok := tb.Ensure(context.Background())
	assert.False(t, ok)
	assert.Empty(t, token)
}

func TestEnsureReturnsTokenAfterPrime(t *testing.T) {
	cfg, client, origin := newTokenFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok-xyz", Path: "/"})
	}))

	source := session.NewCookieTokenSource(client.Jar, origin, cfg.CSRFCookieName)
	tb, err := session.NewTokenBootstrap(cfg, client, source,
		session.WithTokenBootstrapLogger(quietLogger{}))
	require.NoError(t, err)

	token, ok := tb.Ensure(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "tok-xyz", token)
}

func TestCookieTokenSource(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	origin, err := url.Parse("http://api.local/")
	require.NoError(t, err)

	source := session.NewCookieTokenSource(jar, origin, "csrftoken")
	_, ok := source.Token()
	assert.False(t, ok)

	jar.SetCookies(origin, []*http.Cookie{{Name: "csrftoken", Value: "abc"}})
	token, ok := source.Token()
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
}

func TestStaticTokenSource(t *testing.T) {
	token, ok := session.StaticTokenSource("fixed").Token()
	assert.True(t, ok)
	assert.Equal(t, "fixed", token)

	_, ok = session.StaticTokenSource("").Token()
	assert.False(t, ok)
}
