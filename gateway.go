package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
)

var _ Gateway = &HTTPGateway{}

type credentialPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (p credentialPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required),
		validation.Field(&p.Password, validation.Required),
	)
}

// serverError is the error envelope the API uses on 4xx responses.
type serverError struct {
	ErrorType string `json:"error_type"`
	Detail    string `json:"detail"`
}

const errorTypeAuthenticationRequired = "authentication_required"

// HTTPGateway implements Gateway against the blogkit REST API.
type HTTPGateway struct {
	client     *http.Client
	base       *url.URL
	mePath     string
	loginPath  string
	logoutPath string
	headerName string
	tokens     *TokenBootstrap
	logger     Logger
}

// GatewayOption customizes HTTPGateway construction.
type GatewayOption func(*HTTPGateway)

// WithHTTPClient overrides the HTTP client. The client should share its
// cookie jar with the TokenBootstrap's source.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *HTTPGateway) {
		if client != nil {
			g.client = client
		}
	}
}

// WithTokenBootstrap wires the anti-forgery bootstrap into mutating
// requests. SubmitCredentials awaits it before hitting the wire.
func WithTokenBootstrap(tokens *TokenBootstrap) GatewayOption {
	return func(g *HTTPGateway) {
		g.tokens = tokens
	}
}

// WithGatewayLogger overrides the logger.
func WithGatewayLogger(logger Logger) GatewayOption {
	return func(g *HTTPGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewHTTPGateway builds the gateway from the configuration. When no
// client is supplied, one with a fresh cookie jar and the configured
// timeout is created.
func NewHTTPGateway(cfg Config, opts ...GatewayOption) (*HTTPGateway, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	g := &HTTPGateway{
		base:       base,
		mePath:     cfg.MePath,
		loginPath:  cfg.LoginPath,
		logoutPath: cfg.LogoutPath,
		headerName: cfg.CSRFHeaderName,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	if g.client == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		g.client = &http.Client{Jar: jar, Timeout: cfg.Timeout}
	}

	return g, nil
}

// FetchCurrentIdentity asks the server who the cookie session belongs
// to. 401/403 means anonymous and is reported as KindUnauthorized.
func (g *HTTPGateway) FetchCurrentIdentity(ctx context.Context) (*Identity, error) {
	resp, err := g.do(ctx, http.MethodGet, g.mePath, nil, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return decodeIdentity(resp.Body)
	}
	return nil, g.classify(resp)
}

// SubmitCredentials exchanges a username/email and password for an
// authenticated session. The anti-forgery token is ensured first; a 403
// the server marks as authentication_required is surfaced as
// KindCredentialsRejected so the UI can say "invalid credentials".
func (g *HTTPGateway) SubmitCredentials(ctx context.Context, identifier, password string) (*Identity, error) {
	payload := credentialPayload{Username: identifier, Password: password}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := g.do(ctx, http.MethodPost, g.loginPath, body, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return decodeIdentity(resp.Body)
	}
	return nil, g.classify(resp)
}

// TerminateSession ends the server-side session. Callers clear local
// state regardless of the result.
func (g *HTTPGateway) TerminateSession(ctx context.Context) error {
	resp, err := g.do(ctx, http.MethodPost, g.logoutPath, nil, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode >= http.StatusBadRequest {
		return g.classify(resp)
	}
	return nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body []byte, mutating bool) (*http.Response, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.base.ResolveReference(ref).String(), reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if mutating && g.tokens != nil {
		if token, ok := g.tokens.Ensure(ctx); ok {
			req.Header.Set(g.headerName, token)
		} else {
			g.logger.Warn("no anti-forgery token for %s %s, server will likely reject", method, path)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &GatewayError{Kind: KindNetwork, cause: err}
	}
	return resp, nil
}

// classify converts a non-200 response into a GatewayError. The body is
// consumed.
func (g *HTTPGateway) classify(resp *http.Response) *GatewayError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &GatewayError{Kind: KindUnauthorized, StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusForbidden:
		var se serverError
		if err := json.Unmarshal(raw, &se); err == nil && se.ErrorType == errorTypeAuthenticationRequired {
			return &GatewayError{
				Kind:       KindCredentialsRejected,
				StatusCode: resp.StatusCode,
				Message:    se.Detail,
			}
		}
		return &GatewayError{Kind: KindUnauthorized, StatusCode: resp.StatusCode}
	case resp.StatusCode >= http.StatusInternalServerError:
		return &GatewayError{Kind: KindServer, StatusCode: resp.StatusCode}
	default:
		return &GatewayError{
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Message:    string(raw),
		}
	}
}

func decodeIdentity(r io.Reader) (*Identity, error) {
	var ident Identity
	if err := json.NewDecoder(r).Decode(&ident); err != nil {
		return nil, &GatewayError{Kind: KindServer, Message: "undecodable identity payload", cause: err}
	}
	if ident.ID == "" {
		// The server answered 200 with an empty principal, treat as anonymous.
		return nil, nil
	}
	return &ident, nil
}
