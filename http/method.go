package http

import (
	"fmt"
	"strings"
)

type Method uint8

const (
	MethodGet Method = iota
	MethodPost
	MethodPut
	MethodPatch
	MethodDelete
)

var methodNames = [...]string{
	MethodGet:    "GET",
	MethodPost:   "POST",
	MethodPut:    "PUT",
	MethodPatch:  "PATCH",
	MethodDelete: "DELETE",
}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return fmt.Sprintf("Method(%d)", uint8(m))
}

// ParseMethod matches s case-insensitively against the supported methods.
func ParseMethod(s string) (Method, error) {
	for m, name := range methodNames {
		if strings.EqualFold(s, name) {
			return Method(m), nil
		}
	}
	return MethodGet, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}
