package session

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RoleRequirement is the set of role names a protected resource
// requires; any one of them satisfies the gate.
type RoleRequirement []string

// Action is the outcome of a gate evaluation.
type Action string

const (
	// ActionLoading means bootstrap has not finished; render a neutral
	// loading indicator and nothing else.
	ActionLoading Action = "loading"
	// ActionAllow means render the protected content.
	ActionAllow Action = "allow"
	// ActionRedirect means send the visitor to the login route,
	// preserving the originally requested location.
	ActionRedirect Action = "redirect"
	// ActionDeny means the visitor is authenticated but lacks the
	// required roles. This is a renderable state, not an error.
	ActionDeny Action = "deny"
)

// Decision is what the routing layer acts on.
type Decision struct {
	Action      Action
	RedirectURL string
	Missing     RoleRequirement
}

// GateConfig customizes Gate behavior.
type GateConfig struct {
	// LoginRoute is where anonymous visitors are sent. Defaults to /login.
	LoginRoute string
	// NextParam is the query parameter carrying the original location.
	// Defaults to next.
	NextParam string
	// LoadingHandler renders while bootstrap is in flight. Defaults to
	// 503 with a Retry-After hint.
	LoadingHandler http.Handler
	// DeniedHandler renders the access-denied view. Defaults to a 403
	// naming the required roles.
	DeniedHandler func(missing RoleRequirement) http.Handler
}

// Gate reads Manager state and decides whether a request may see
// protected content.
type Gate struct {
	manager *Manager
	cfg     GateConfig
}

// NewGate returns a Gate over the manager's state.
func NewGate(manager *Manager, config ...GateConfig) *Gate {
	return &Gate{manager: manager, cfg: gateConfigDefault(config...)}
}

// Evaluate decides what to do with a request for location, which must
// include the query string so it can be restored after login.
func (g *Gate) Evaluate(location string, requirement RoleRequirement) Decision {
	st := g.manager.Snapshot()

	if st.Loading {
		return Decision{Action: ActionLoading}
	}

	if !st.IsAuthenticated() {
		return Decision{Action: ActionRedirect, RedirectURL: g.LoginURL(location)}
	}

	if len(requirement) > 0 && !st.Identity.HasAnyRole(requirement...) {
		return Decision{Action: ActionDeny, Missing: requirement}
	}

	return Decision{Action: ActionAllow}
}

// LoginURL builds the login route carrying next as the return location.
func (g *Gate) LoginURL(next string) string {
	if next == "" {
		return g.cfg.LoginRoute
	}
	return g.cfg.LoginRoute + "?" + g.cfg.NextParam + "=" + url.QueryEscape(next)
}

// Middleware adapts the gate for net/http routers. Protected handlers
// only run for ActionAllow.
func (g *Gate) Middleware(requirement RoleRequirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := g.Evaluate(r.URL.RequestURI(), requirement)

			switch decision.Action {
			case ActionLoading:
				g.cfg.LoadingHandler.ServeHTTP(w, r)
			case ActionRedirect:
				http.Redirect(w, r, decision.RedirectURL, http.StatusFound)
			case ActionDeny:
				g.cfg.DeniedHandler(decision.Missing).ServeHTTP(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// Protect wraps a single handler, for routers without middleware chains.
func (g *Gate) Protect(h http.Handler, requirement RoleRequirement) http.Handler {
	return g.Middleware(requirement)(h)
}

func gateConfigDefault(config ...GateConfig) GateConfig {
	var cfg GateConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.LoginRoute == "" {
		cfg.LoginRoute = "/login"
	}
	if cfg.NextParam == "" {
		cfg.NextParam = "next"
	}
	if cfg.LoadingHandler == nil {
		cfg.LoadingHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "session initializing", http.StatusServiceUnavailable)
		})
	}
	if cfg.DeniedHandler == nil {
		cfg.DeniedHandler = func(missing RoleRequirement) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				msg := fmt.Sprintf("access denied: requires one of %s", strings.Join(missing, ", "))
				http.Error(w, msg, http.StatusForbidden)
			})
		}
	}

	return cfg
}
