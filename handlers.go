package main

import (
	"errors"
	"strings"

	"github.com/freekieb7/corehttp/filesystem"
	"github.com/freekieb7/corehttp/http"
)

func routes(b *http.Builder, files filesystem.Filesystem) *http.Builder {
	return b.
		Get("/", rootHandler).
		Get("echo", echoHandler).
		Get("user-agent", userAgentHandler).
		WithRouter(filesRouter(files))
}

func rootHandler(req *http.Request, res *http.Response) (*http.Response, error) {
	return res.WithStatus(http.StatusOK), nil
}

// echoHandler responds with everything after /echo/.
func echoHandler(req *http.Request, res *http.Response) (*http.Response, error) {
	return res.
		WithContentType(http.ContentTypeTextPlain).
		Encode([]byte(rest(req)), req.PreferredEncoding())
}

func userAgentHandler(req *http.Request, res *http.Response) (*http.Response, error) {
	return res.WithText(req.UserAgent), nil
}

func filesRouter(files filesystem.Filesystem) *http.Router {
	h := filesHandler{files: files}

	return http.NewRouter("files").
		Get("", h.read).
		Post("", h.write).
		Delete("", h.delete)
}

type filesHandler struct {
	files filesystem.Filesystem
}

func (h filesHandler) read(req *http.Request, res *http.Response) (*http.Response, error) {
	content, err := h.files.ReadFile(rest(req))
	if err != nil {
		return notFound(res, err)
	}

	return res.WithContentType(http.ContentTypeOctetStream).WithBody(content), nil
}

func (h filesHandler) write(req *http.Request, res *http.Response) (*http.Response, error) {
	if err := h.files.WriteFile(rest(req), req.Body); err != nil {
		return notFound(res, err)
	}

	return res.WithStatus(http.StatusCreated), nil
}

func (h filesHandler) delete(req *http.Request, res *http.Response) (*http.Response, error) {
	if err := h.files.DeleteFile(rest(req)); err != nil {
		return notFound(res, err)
	}

	return res.WithStatus(http.StatusOK), nil
}

// notFound maps expected file errors to 404 and passes anything else on.
func notFound(res *http.Response, err error) (*http.Response, error) {
	if errors.Is(err, filesystem.ErrFileNotFound) || errors.Is(err, filesystem.ErrInvalidPath) {
		return res.WithStatus(http.StatusNotFound), nil
	}
	return nil, err
}

// rest returns the request path below its routing segment.
func rest(req *http.Request) string {
	_, after, _ := strings.Cut(req.Path, "/")
	return after
}
