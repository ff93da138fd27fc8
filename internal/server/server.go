// package server contains the loopback HTTP plumbing for CLI OAuth flows
package server

import (
	"net/http"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows which path patterns it serves, so a
// handler can register all of its routes in one call.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers handlers and middleware over one [http.ServeMux].
type Router interface {
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}
