package http

import (
	"errors"
	"math"
	"strings"
)

var errInvalidNumber = errors.New("invalid number")

// atou parses a decimal unsigned integer without accepting signs or spaces.
func atou(s string) (uint, error) {
	if s == "" {
		return 0, errInvalidNumber
	}

	var n uint
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, errInvalidNumber
		}
		d := uint(c - '0')
		if n > (math.MaxUint-d)/10 {
			return 0, errInvalidNumber
		}
		n = n*10 + d
	}
	return n, nil
}

// lastField returns the last whitespace-delimited token of s.
func lastField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// firstSegment returns the first non-empty '/'-delimited component of path.
func firstSegment(path string) string {
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			return part
		}
	}
	return ""
}
