package http

import (
	"fmt"
	"maps"
	"strings"
)

// Routes maps a path segment to the handlers registered for it per method.
type Routes map[string]map[Method]Handler

// Resolve looks up the handler for method under segment. ErrRouteNotFound
// means the segment is unknown, ErrMethodNotAllowed that the segment exists
// without a handler for method.
func (routes Routes) Resolve(method Method, segment string) (Handler, error) {
	handlers, found := routes[segment]
	if !found {
		return nil, ErrRouteNotFound
	}

	handler, found := handlers[method]
	if !found {
		return nil, ErrMethodNotAllowed
	}

	return handler, nil
}

func (routes Routes) set(key string, method Method, handler Handler) {
	handlers, found := routes[key]
	if !found {
		handlers = make(map[Method]Handler)
		routes[key] = handlers
	}
	handlers[method] = handler
}

func (routes Routes) clone() Routes {
	cloned := make(Routes, len(routes))
	for key, handlers := range routes {
		cloned[key] = maps.Clone(handlers)
	}
	return cloned
}

// routeKey joins base and path into a single segment key.
func routeKey(base, path string) string {
	base = strings.Trim(base, "/")
	path = strings.Trim(path, "/")

	var key string
	switch {
	case base == "":
		key = path
	case path == "":
		key = base
	default:
		key = base + "/" + path
	}

	if key == "" {
		return RootSegment
	}
	if strings.Contains(key, "/") {
		panic(fmt.Sprintf("http: route %q spans more than one path segment", key))
	}
	return key
}

var NotFoundHandler Handler = HandlerFunc(func(req *Request, res *Response) (*Response, error) {
	return res.WithStatus(StatusNotFound), nil
})
