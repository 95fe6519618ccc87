package http

import (
	"testing"

	"github.com/freekieb7/corehttp/test"
)

func textHandler(body string) HandlerFunc {
	return func(req *Request, res *Response) (*Response, error) {
		return res.WithText(body), nil
	}
}

func handle(t *testing.T, handler Handler) string {
	t.Helper()

	res, err := handler.Handle(&Request{}, NewResponse())
	test.NoError(t, err)
	return string(res.Body)
}

func TestRouteKey(t *testing.T) {
	tests := []struct {
		base, path, key string
	}{
		{"", "", RootSegment},
		{"", "/", RootSegment},
		{"/", "/", RootSegment},
		{"", "echo", "echo"},
		{"", "/echo/", "echo"},
		{"files", "", "files"},
		{"/files/", "/", "files"},
		{"/", "user-agent", "user-agent"},
	}

	for _, tt := range tests {
		if key := routeKey(tt.base, tt.path); key != tt.key {
			t.Errorf("routeKey(%q, %q): expected %q, got %q", tt.base, tt.path, tt.key, key)
		}
	}
}

func TestRouteKeyPanicsOnNestedPath(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nested route")
		}
	}()

	NewRouter("api").Get("users", textHandler("x"))
}

func TestRouterResolve(t *testing.T) {
	router := NewRouter("").
		Get("/", textHandler("root")).
		Get("echo", textHandler("echo")).
		Post("echo", textHandler("echo-post"))

	handler, err := router.Resolve(MethodGet, RootSegment)
	test.NoError(t, err)
	test.Equal(t, "root", handle(t, handler))

	handler, err = router.Resolve(MethodPost, "echo")
	test.NoError(t, err)
	test.Equal(t, "echo-post", handle(t, handler))

	_, err = router.Resolve(MethodGet, "missing")
	test.ErrorIs(t, err, ErrRouteNotFound)

	_, err = router.Resolve(MethodDelete, "echo")
	test.ErrorIs(t, err, ErrMethodNotAllowed)
}

func TestRouterLastRegistrationWins(t *testing.T) {
	router := NewRouter("").
		Get("echo", textHandler("first")).
		Get("echo", textHandler("second"))

	handler, err := router.Resolve(MethodGet, "echo")
	test.NoError(t, err)
	test.Equal(t, "second", handle(t, handler))
}

func TestRouterMerge(t *testing.T) {
	files := NewRouter("files").
		Get("", textHandler("read")).
		Post("/", textHandler("write"))

	router := NewRouter("").
		Get("files", textHandler("old-read")).
		Put("files", textHandler("replace")).
		Merge(files)

	for method, expected := range map[Method]string{
		MethodGet:  "read",
		MethodPost: "write",
		MethodPut:  "replace",
	} {
		handler, err := router.Resolve(method, "files")
		test.NoError(t, err)
		test.Equal(t, expected, handle(t, handler))
	}

	// Merging copies entries; later changes to the source are not seen.
	files.Delete("", textHandler("delete"))
	_, err := router.Resolve(MethodDelete, "files")
	test.ErrorIs(t, err, ErrMethodNotAllowed)
}

func TestRouterMiddlewareOrder(t *testing.T) {
	tag := func(name string) Middleware {
		return func(next Handler) Handler {
			return HandlerFunc(func(req *Request, res *Response) (*Response, error) {
				res, err := next.Handle(req, res)
				if err != nil {
					return res, err
				}
				return res.WithBody(append(res.Body, name...)), nil
			})
		}
	}

	router := NewRouter("").Get("echo", textHandler("x"), tag("a"), tag("b"))

	handler, err := router.Resolve(MethodGet, "echo")
	test.NoError(t, err)
	test.Equal(t, "xab", handle(t, handler))
}

func TestRoutesClone(t *testing.T) {
	routes := NewRouter("").Get("echo", textHandler("x")).Routes
	cloned := routes.clone()

	routes.set("echo", MethodPost, textHandler("y"))

	_, err := cloned.Resolve(MethodPost, "echo")
	test.ErrorIs(t, err, ErrMethodNotAllowed)
}

func TestRecover(t *testing.T) {
	handler := Recover(HandlerFunc(func(req *Request, res *Response) (*Response, error) {
		panic("boom")
	}))

	res, err := handler.Handle(&Request{}, NewResponse())
	test.ErrorIs(t, err, ErrHandlerPanic)
	if res != nil {
		t.Errorf("expected nil response, got %v", res)
	}
}
