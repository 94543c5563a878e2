// Package session implements the client-side authentication and
// authorization core for the blogkit front end: it primes the
// anti-forgery token, restores a cached identity, verifies it against
// the server, and exposes role-derived capability checks used to gate
// routes and UI.
//
// The Manager is the only writer of session state. Feature code reads
// state through Manager accessors or requests changes through Login,
// Logout, UpdateUser and ClearError. The Gate consumes Manager state to
// allow, redirect or deny access to protected routes.
package session
