package http

import "errors"

const (
	DefaultWorkerCount     = 5
	DefaultReadBufferSize  = 4096 // 4kB
	DefaultWriteBufferSize = 4096 // 4kB
	MaxRequestHeaders      = 255
	MaxRequestBodySize     = 2 * 1024 * 1024 // 2MB
)

// Handler turns a parsed request into a response. The request must not be
// modified; the response is owned by the handler for the duration of the call.
type Handler interface {
	Handle(req *Request, res *Response) (*Response, error)
}

type HandlerFunc func(req *Request, res *Response) (*Response, error)

func (f HandlerFunc) Handle(req *Request, res *Response) (*Response, error) {
	return f(req, res)
}

var (
	ErrParse                = errors.New("http: malformed request")
	ErrEmptyRequest         = errors.New("http: empty request")
	ErrMalformedRequestLine = errors.New("http: malformed request line")
	ErrTooManyHeaders       = errors.New("http: too many header lines")
	ErrLineTooLong          = errors.New("http: header line too long")
	ErrBodyTooLarge         = errors.New("http: request body too large")
	ErrInvalidBody          = errors.New("http: request body is not valid utf-8")

	ErrUnknownMethod      = errors.New("http: unknown method")
	ErrUnknownStatus      = errors.New("http: unknown status")
	ErrUnknownContentType = errors.New("http: unknown content type")

	ErrRouteNotFound    = errors.New("http: route not found")
	ErrMethodNotAllowed = errors.New("http: method not allowed")
	ErrNilResponse      = errors.New("http: handler returned nil response")
	ErrHandlerPanic     = errors.New("http: handler panicked")

	ErrInvalidPoolSize = errors.New("http: worker pool size must be at least 1")
	ErrPoolClosed      = errors.New("http: worker pool is closed")
	ErrServerClosed    = errors.New("http: server closed")
	ErrServerStarted   = errors.New("http: server already running")
)

var (
	protocolHttp11 = "HTTP/1.1"
	crlf           = "\r\n"

	headerHost            = "Host"
	headerUserAgent       = "User-Agent"
	headerContentType     = "Content-Type"
	headerAccept          = "Accept"
	headerAcceptEncoding  = "Accept-Encoding"
	headerContentLength   = "Content-Length"
	headerContentEncoding = "Content-Encoding"
)
