// Package httpmiddleware contains net/http middlewares shared by back-office
// servers.
package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/gorilla/mux"
)

// Middleware is a net/http middleware.
type Middleware = func(http.Handler) http.Handler

// Wrap applies middlewares to h. The first middleware is the outermost.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Route identifies a registered route.
type Route struct {
	// Name is the route name, used as the operation name.
	Name string
	// Template is the path template, e.g. /api/menu/{id}.
	Template string
}

// RouteFinder resolves the route serving r.
type RouteFinder func(r *http.Request) (Route, bool)

// MakeRouteFinder returns a RouteFinder backed by router.
func MakeRouteFinder(router *mux.Router) RouteFinder {
	return func(r *http.Request) (Route, bool) {
		var match mux.RouteMatch
		if !router.Match(r, &match) || match.Route == nil {
			return Route{}, false
		}
		tmpl, err := match.Route.GetPathTemplate()
		if err != nil {
			return Route{}, false
		}
		name := match.Route.GetName()
		if name == "" {
			name = tmpl
		}
		return Route{Name: name, Template: tmpl}, true
	}
}

// WriteMessage writes a {"message": msg} JSON body with the given status.
func WriteMessage(w http.ResponseWriter, code int, msg string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.Obj(func(e *jx.Encoder) {
		e.Field("message", func(e *jx.Encoder) {
			e.Str(msg)
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
