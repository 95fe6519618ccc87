package http

// Router collects routes under a base segment. It is only written to during
// setup; the server keeps its own copy of the table.
type Router struct {
	Base   string
	Routes Routes
}

func NewRouter(base string) *Router {
	return &Router{
		Base:   base,
		Routes: make(Routes),
	}
}

func (router *Router) Get(path string, handler HandlerFunc, middleware ...Middleware) *Router {
	return router.Add(MethodGet, path, handler, middleware...)
}

func (router *Router) Post(path string, handler HandlerFunc, middleware ...Middleware) *Router {
	return router.Add(MethodPost, path, handler, middleware...)
}

func (router *Router) Put(path string, handler HandlerFunc, middleware ...Middleware) *Router {
	return router.Add(MethodPut, path, handler, middleware...)
}

func (router *Router) Patch(path string, handler HandlerFunc, middleware ...Middleware) *Router {
	return router.Add(MethodPatch, path, handler, middleware...)
}

func (router *Router) Delete(path string, handler HandlerFunc, middleware ...Middleware) *Router {
	return router.Add(MethodDelete, path, handler, middleware...)
}

// Add registers handler for method under the router base joined with path.
// A later registration for the same segment and method replaces the earlier one.
func (router *Router) Add(method Method, path string, handler Handler, middleware ...Middleware) *Router {
	for _, mw := range middleware {
		handler = mw(handler)
	}

	router.Routes.set(routeKey(router.Base, path), method, handler)
	return router
}

// Merge copies every route of other into router, overwriting existing entries.
func (router *Router) Merge(other *Router) *Router {
	for key, handlers := range other.Routes {
		for method, handler := range handlers {
			router.Routes.set(key, method, handler)
		}
	}
	return router
}

func (router *Router) Resolve(method Method, segment string) (Handler, error) {
	return router.Routes.Resolve(method, segment)
}
