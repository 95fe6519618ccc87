package http

import (
	"fmt"
	"strings"
)

type ContentType uint8

const (
	ContentTypeTextPlain ContentType = iota
	ContentTypeOctetStream
	ContentTypeJSON
)

var contentTypeNames = [...]string{
	ContentTypeTextPlain:   "text/plain",
	ContentTypeOctetStream: "application/octet-stream",
	ContentTypeJSON:        "application/json",
}

func (ct ContentType) String() string {
	if int(ct) < len(contentTypeNames) {
		return contentTypeNames[ct]
	}
	return fmt.Sprintf("ContentType(%d)", uint8(ct))
}

// ParseContentType ignores media type parameters such as "; charset=utf-8".
func ParseContentType(s string) (ContentType, error) {
	mediaType, _, _ := strings.Cut(s, ";")
	mediaType = strings.TrimSpace(mediaType)

	for ct, name := range contentTypeNames {
		if strings.EqualFold(mediaType, name) {
			return ContentType(ct), nil
		}
	}
	return ContentTypeTextPlain, fmt.Errorf("%w: %q", ErrUnknownContentType, s)
}
