package http

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// RootSegment is the routing key for requests to "/".
const RootSegment = "/"

// Request is built once per connection by ReadRequest and never modified afterwards.
type Request struct {
	Method Method
	Path   string

	// Query holds the value of the first key=value pair of the query string,
	// up to any further '='. HasQuery is false when the target has no query
	// or the pair has no '='.
	Query    string
	HasQuery bool

	Host           string
	UserAgent      string
	Accept         string
	ContentType    string
	ContentLength  uint
	AcceptEncoding []EncodingType

	Body []byte
}

// Segment returns the routing key: the first non-empty path component, or
// RootSegment when the path has none.
func (req *Request) Segment() string {
	if segment := firstSegment(req.Path); segment != "" {
		return segment
	}
	return RootSegment
}

func (req *Request) Text() string {
	return string(req.Body)
}

func (req *Request) PreferredEncoding() EncodingType {
	return Negotiate(req.AcceptEncoding)
}

// ReadRequest parses a single request from reader. Any error wraps ErrParse.
func ReadRequest(reader *bufio.Reader) (*Request, error) {
	lines, err := readHead(reader)
	if err != nil {
		return nil, parseError(err)
	}

	var req Request
	if err := req.parseRequestLine(lines[0]); err != nil {
		return nil, parseError(err)
	}

	headers := lines[1:]
	req.Host = lastField(headerValue(headers, headerHost))
	req.UserAgent = lastField(headerValue(headers, headerUserAgent))
	req.ContentType = lastField(headerValue(headers, headerContentType))
	req.Accept = lastField(headerValue(headers, headerAccept))
	req.AcceptEncoding = ParseAcceptEncoding(headerValue(headers, headerAcceptEncoding))
	if n, err := atou(lastField(headerValue(headers, headerContentLength))); err == nil {
		req.ContentLength = n
	}

	if err := req.readBody(reader); err != nil {
		return nil, parseError(err)
	}

	return &req, nil
}

func parseError(err error) error {
	if errors.Is(err, ErrParse) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrParse, err)
}

// readHead reads the request line and header lines up to the blank line.
// EOF ends the head early as long as something was read. A line that does
// not fit in the reader's buffer fails with ErrLineTooLong.
func readHead(reader *bufio.Reader) ([]string, error) {
	lines := make([]string, 0, 8)
	for {
		raw, err := reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			return nil, fmt.Errorf("%w: over %d bytes", ErrLineTooLong, reader.Size())
		}
		line := strings.TrimRight(string(raw), "\r\n")
		if line != "" {
			if len(lines) > MaxRequestHeaders {
				return nil, ErrTooManyHeaders
			}
			lines = append(lines, line)
		}

		if err != nil {
			if err != io.EOF {
				return nil, err
			}
			break
		}
		if line == "" {
			break
		}
	}

	if len(lines) == 0 {
		return nil, ErrEmptyRequest
	}
	return lines, nil
}

func (req *Request) parseRequestLine(line string) error {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return fmt.Errorf("%w: %q", ErrMalformedRequestLine, line)
	}
	method, target := parts[0], parts[1]

	m, err := ParseMethod(method)
	if err != nil {
		return err
	}
	req.Method = m

	path, query, hasQuery := strings.Cut(target, "?")
	req.Path = strings.TrimLeft(path, "/")
	if hasQuery {
		pair, _, _ := strings.Cut(query, "&")
		req.Query, req.HasQuery = splitQueryValue(pair)
	}

	return nil
}

// splitQueryValue returns the text between the first and second '=' of pair.
func splitQueryValue(pair string) (string, bool) {
	_, rest, found := strings.Cut(pair, "=")
	value, _, _ := strings.Cut(rest, "=")
	return value, found
}

// headerValue returns everything after the colon of the first header line
// whose name is exactly name.
func headerValue(headers []string, name string) string {
	for _, line := range headers {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if strings.TrimSpace(key) == name {
			return value
		}
	}
	return ""
}

func (req *Request) readBody(reader *bufio.Reader) error {
	if req.ContentLength == 0 {
		return nil
	}
	if req.ContentLength > MaxRequestBodySize {
		return fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, req.ContentLength)
	}

	body := make([]byte, req.ContentLength)
	n, err := io.ReadFull(reader, body)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return err
	}
	body = body[:n]

	if !utf8.Valid(body) {
		return ErrInvalidBody
	}
	req.Body = body

	return nil
}
