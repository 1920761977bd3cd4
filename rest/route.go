package rest

import (
	"fmt"
)

// Route identifies one kind of remote operation as a method plus a bound
// path. A Route is immutable once built.
type Route struct {
	Method string
	Path   string

	// Base overrides the client base URL when set. Used for media and
	// asset endpoints that live outside the main API host.
	Base string
}

// NewRoute builds a route from a printf-style path format and its
// parameters. Parameters are typically the typed identifiers from this
// package.
func NewRoute(method, format string, params ...any) *Route {
	return &Route{
		Method: method,
		Path:   fmt.Sprintf(format, params...),
	}
}

// NewExternalRoute builds a route against an absolute URL, bypassing the
// client base URL entirely. Used for asset downloads and media uploads.
func NewExternalRoute(method, rawURL string) *Route {
	return &Route{
		Method: method,
		Base:   rawURL,
	}
}

// String returns the method and path for logging.
func (r *Route) String() string {
	if r.Base != "" {
		return r.Method + " " + r.Base + r.Path
	}
	return r.Method + " " + r.Path
}
