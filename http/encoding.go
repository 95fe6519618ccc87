package http

import (
	"slices"
	"strings"
	"unicode"
)

type EncodingType uint8

const (
	EncodingNone EncodingType = iota
	EncodingGzip
)

// String returns the Content-Encoding value. EncodingNone has an empty wire form.
func (enc EncodingType) String() string {
	if enc == EncodingGzip {
		return "gzip"
	}
	return ""
}

// ParseEncoding never fails: anything other than a bare "gzip" is EncodingNone.
// A coding with parameters ("gzip;q=0") is not understood and so is never chosen.
func ParseEncoding(token string) EncodingType {
	if strings.EqualFold(strings.TrimSpace(token), "gzip") {
		return EncodingGzip
	}
	return EncodingNone
}

// ParseAcceptEncoding splits an Accept-Encoding value on commas and whitespace.
// Order and duplicates are kept.
func ParseAcceptEncoding(value string) []EncodingType {
	tokens := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	encodings := make([]EncodingType, 0, len(tokens))
	for _, token := range tokens {
		// "gzip; q=0" splits into "gzip;" and "q=0". The parameter carries no
		// coding name; the coding it belongs to already maps to EncodingNone.
		if strings.HasPrefix(token, ";") || strings.HasPrefix(token, "q=") {
			continue
		}
		encodings = append(encodings, ParseEncoding(token))
	}
	return encodings
}

// Negotiate picks gzip when the client accepts it.
func Negotiate(accepted []EncodingType) EncodingType {
	if slices.Contains(accepted, EncodingGzip) {
		return EncodingGzip
	}
	return EncodingNone
}
