package http

import (
	"fmt"
	"strconv"
	"strings"
)

type Status uint16

const (
	StatusOK       Status = 200 // RFC 7231, 6.3.1
	StatusCreated  Status = 201 // RFC 7231, 6.3.2
	StatusAccepted Status = 202 // RFC 7231, 6.3.3
	StatusNotFound Status = 404 // RFC 7231, 6.5.4
)

var statusMessages = map[Status]string{
	StatusOK:       "OK",
	StatusCreated:  "Created",
	StatusAccepted: "Accepted",
	StatusNotFound: "Not Found",
}

func (s Status) Code() int {
	return int(s)
}

func (s Status) Reason() string {
	return statusMessages[s]
}

// String returns the status as it appears on the status line, e.g. "404 Not Found".
func (s Status) String() string {
	return strconv.Itoa(int(s)) + " " + s.Reason()
}

// ParseStatus accepts either a bare code ("201") or a code followed by its
// reason phrase ("201 Created").
func ParseStatus(s string) (Status, error) {
	code, reason, hasReason := strings.Cut(strings.TrimSpace(s), " ")

	n, err := strconv.ParseUint(code, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}

	status := Status(n)
	message, found := statusMessages[status]
	if !found || (hasReason && reason != message) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}

	return status, nil
}
