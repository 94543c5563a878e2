package session

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// RegisterAuthRoutes mounts the controller's login and logout routes.
func RegisterAuthRoutes(r chi.Router, controller *AuthController) {
	r.Get(controller.Routes.Login, controller.LoginShow)
	r.Post(controller.Routes.Login, controller.LoginPost)
	r.Get(controller.Routes.Logout, controller.LogOut)
	r.Post(controller.Routes.Logout, controller.LogOut)
}

// AuthControllerRoutes holds the paths the controller answers on.
type AuthControllerRoutes struct {
	Login  string
	Logout string
}

// AuthController serves the credential-submission flow: it renders the
// login form, exchanges credentials through the Gateway, and installs
// the result in the Manager. It never mutates session state directly.
type AuthController struct {
	Logger      Logger
	Manager     *Manager
	Gateway     Gateway
	Routes      *AuthControllerRoutes
	NextParam   string
	DefaultNext string
}

// AuthControllerOption customizes controller construction.
type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger overrides the logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerRoutes overrides the mounted paths.
func WithControllerRoutes(routes AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes.Login != "" {
			c.Routes.Login = routes.Login
		}
		if routes.Logout != "" {
			c.Routes.Logout = routes.Logout
		}
		return c
	}
}

// NewAuthController builds the controller over manager and gateway.
func NewAuthController(manager *Manager, gateway Gateway, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:  defLogger{},
		Manager: manager,
		Gateway: gateway,
		Routes: &AuthControllerRoutes{
			Login:  "/login",
			Logout: "/logout",
		},
		NextParam:   "next",
		DefaultNext: "/",
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Manager == nil {
		panic("Missing Manager in auth controller...")
	}
	if c.Gateway == nil {
		panic("Missing Gateway in auth controller...")
	}

	return c
}

var loginView = template.Must(template.New("login").Parse(`<!doctype html>
<title>Sign in</title>
<h1>Sign in</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post">
  <input type="hidden" name="{{.NextParam}}" value="{{.Next}}">
  <label>Username or email <input name="identifier" value="{{.Identifier}}"></label>
  <label>Password <input type="password" name="password"></label>
  <button type="submit">Sign in</button>
</form>`))

type loginViewData struct {
	Error      string
	Identifier string
	Next       string
	NextParam  string
}

// LoginShow renders the login form.
func (c *AuthController) LoginShow(w http.ResponseWriter, r *http.Request) {
	c.render(w, http.StatusOK, loginViewData{
		Next:      r.URL.Query().Get(c.NextParam),
		NextParam: c.NextParam,
	})
}

// LoginPost exchanges the submitted credentials for an identity and
// installs it. Rejected credentials re-render the form with a
// user-actionable message; transport failures get a generic one.
func (c *AuthController) LoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	identifier := r.PostFormValue("identifier")
	password := r.PostFormValue("password")
	next := r.PostFormValue(c.NextParam)

	ident, err := c.Gateway.SubmitCredentials(r.Context(), identifier, password)
	if err != nil {
		data := loginViewData{
			Identifier: identifier,
			Next:       next,
			NextParam:  c.NextParam,
		}
		if IsCredentialsRejected(err) {
			data.Error = "Invalid username or password."
			c.render(w, http.StatusOK, data)
			return
		}
		c.Logger.Error("credential exchange failed: %v", err)
		data.Error = "Sign in is temporarily unavailable, try again shortly."
		c.render(w, http.StatusOK, data)
		return
	}

	c.Manager.Login(r.Context(), ident)
	http.Redirect(w, r, c.safeNext(next), http.StatusSeeOther)
}

// LogOut clears the session and returns to the login form. The
// Manager honors the user's intent even when the network call fails.
func (c *AuthController) LogOut(w http.ResponseWriter, r *http.Request) {
	c.Manager.Logout(r.Context())
	http.Redirect(w, r, c.Routes.Login, http.StatusSeeOther)
}

// safeNext only honors same-site relative locations, anything else
// falls back to the default.
func (c *AuthController) safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return c.DefaultNext
	}
	return next
}

func (c *AuthController) render(w http.ResponseWriter, status int, data loginViewData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := loginView.Execute(w, data); err != nil {
		c.Logger.Error("login view render failed: %v", err)
	}
}
