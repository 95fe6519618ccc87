package http

import (
	"fmt"
	"runtime"
)

type Middleware func(next Handler) Handler

// Recover turns a panicking handler into an ErrHandlerPanic error so the
// worker running it survives.
func Recover(next Handler) Handler {
	return HandlerFunc(func(req *Request, res *Response) (out *Response, err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				const size = 64 << 10
				buf := make([]byte, size)
				buf = buf[:runtime.Stack(buf, false)]
				out, err = nil, fmt.Errorf("%w: %v\n%s", ErrHandlerPanic, recovered, buf)
			}
		}()

		return next.Handle(req, res)
	})
}
