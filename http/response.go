package http

import (
	"bytes"
	"compress/gzip"
	"io"
	"strconv"
)

// Response is filled in by a handler through its With* methods and then
// serialized once by the server.
type Response struct {
	Status      Status
	ContentType ContentType
	Encoding    EncodingType
	Body        []byte
}

func NewResponse() *Response {
	return &Response{
		Status:      StatusOK,
		ContentType: ContentTypeTextPlain,
		Encoding:    EncodingNone,
	}
}

func (res *Response) WithStatus(status Status) *Response {
	res.Status = status
	return res
}

func (res *Response) WithContentType(contentType ContentType) *Response {
	res.ContentType = contentType
	return res
}

// WithEncoding only labels the body. Use Encode to compress and label in one step.
func (res *Response) WithEncoding(encoding EncodingType) *Response {
	res.Encoding = encoding
	return res
}

func (res *Response) WithBody(body []byte) *Response {
	res.Body = body
	return res
}

func (res *Response) WithText(payload string) *Response {
	res.ContentType = ContentTypeTextPlain
	res.Body = []byte(payload)
	return res
}

// Encode stores payload encoded with encoding as the body.
func (res *Response) Encode(payload []byte, encoding EncodingType) (*Response, error) {
	body, err := EncodePayload(payload, encoding)
	if err != nil {
		return res, err
	}

	res.Body = body
	res.Encoding = encoding
	return res, nil
}

// EncodePayload gzips payload at the default level when encoding is
// EncodingGzip and returns it unchanged otherwise.
func EncodePayload(payload []byte, encoding EncodingType) ([]byte, error) {
	if encoding != EncodingGzip {
		return payload, nil
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(payload); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Bytes serializes the response in wire format. Content-Length always
// reflects the body as it is at the time of the call.
func (res *Response) Bytes() []byte {
	buf := make([]byte, 0, 128+len(res.Body))

	buf = append(buf, protocolHttp11...)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(res.Status.Code()), 10)
	buf = append(buf, ' ')
	buf = append(buf, res.Status.Reason()...)
	buf = append(buf, crlf...)

	buf = appendHeader(buf, headerContentType, res.ContentType.String())
	buf = append(buf, headerContentLength...)
	buf = append(buf, ": "...)
	buf = strconv.AppendInt(buf, int64(len(res.Body)), 10)
	buf = append(buf, crlf...)
	buf = appendHeader(buf, headerContentEncoding, res.Encoding.String())

	buf = append(buf, crlf...)
	buf = append(buf, res.Body...)

	return buf
}

func (res *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(res.Bytes())
	return int64(n), err
}

func appendHeader(buf []byte, name, value string) []byte {
	buf = append(buf, name...)
	buf = append(buf, ": "...)
	buf = append(buf, value...)
	return append(buf, crlf...)
}
