package session

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the session core configuration, loaded from environment
// variables with the SESSION_ prefix.
type Config struct {
	// BaseURL is the API origin all gateway paths are resolved against.
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8000"`

	// MePath answers with the current identity, or 401/403 when anonymous.
	MePath string `envconfig:"ME_PATH" default:"/auth/me"`
	// LoginPath accepts a credential payload and answers with the identity.
	LoginPath string `envconfig:"LOGIN_PATH" default:"/auth/login"`
	// LogoutPath terminates the server-side session.
	LogoutPath string `envconfig:"LOGOUT_PATH" default:"/auth/logout"`
	// CSRFPath is a harmless GET whose response sets the anti-forgery cookie.
	CSRFPath string `envconfig:"CSRF_PATH" default:"/auth/csrf"`

	CSRFCookieName string `envconfig:"CSRF_COOKIE" default:"csrftoken"`
	CSRFHeaderName string `envconfig:"CSRF_HEADER" default:"X-CSRF-Token"`

	// Timeout bounds every gateway request. A timeout is reported as a
	// network failure.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"10s"`
	// SettleDelay bounds how long the login flow waits for the
	// anti-forgery cookie to become readable after priming.
	SettleDelay time.Duration `envconfig:"SETTLE_DELAY" default:"250ms"`

	// SnapshotPath is where the FileStore keeps the cached identity.
	SnapshotPath string `envconfig:"SNAPSHOT_PATH" default:"session.json"`

	// LoginRoute is the front-end route the Gate redirects anonymous
	// visitors to.
	LoginRoute string `envconfig:"LOGIN_ROUTE" default:"/login"`
	// NextParam carries the originally requested location through the
	// login redirect.
	NextParam string `envconfig:"NEXT_PARAM" default:"next"`
}

// LoadConfig reads configuration from the environment and validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("SESSION", &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.MePath, validation.Required),
		validation.Field(&c.LoginPath, validation.Required),
		validation.Field(&c.LogoutPath, validation.Required),
		validation.Field(&c.CSRFPath, validation.Required),
		validation.Field(&c.CSRFCookieName, validation.Required),
		validation.Field(&c.CSRFHeaderName, validation.Required),
		validation.Field(&c.LoginRoute, validation.Required),
		validation.Field(&c.NextParam, validation.Required),
	)
}
