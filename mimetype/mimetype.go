// Enumeration-like type for content mimetypes.
package mimetype

import (
	"strings"
)

/*
MimeType is used to enumerate the default representation for content encoding types.
Non default MimeTypes can be used by wrapping a custom string:

	MimeType("text/html")
*/
type MimeType string

const (
	JSON    = MimeType("application/json")
	BSON    = MimeType("application/bson")
	YAML    = MimeType("application/yaml")
	MSGPACK = MimeType("application/msgpack")
	CBOR    = MimeType("application/cbor")
	BINC    = MimeType("application/binc")
	CSV     = MimeType("text/csv")
	TEXT    = MimeType("text/plain")
	// UNKNOWN is used when the incoming string is blank
	UNKNOWN = MimeType("")
)

// List of default mimeTypes that are encoded to / from objects (as opposed to raw
// text).
var objectMimeTypes = []MimeType{JSON, BSON, YAML, MSGPACK, CBOR, BINC, CSV}

// Interface for object used to set headers such as http.Request.Header or
// http.Response.Header
type headerFetcher interface {
	Get(string) string
}

// Extract content type from a message / request header.
func FromHeader(headers headerFetcher) MimeType {
	return FromString(headers.Get("Content-Type"))
}

/*
Convert MimeType from a string. Ignores case and media type parameters. If the MimeType
is a default type, multiple formats are respected. For instance, all of the following
will yield "mimetype.JSON":

• "application/json"

• "application/JSON"

• "application/x-json"

• "application/json; charset=utf-8"

• "json"

• "x-json"
*/
func FromString(incoming string) MimeType {
	if separator := strings.IndexByte(incoming, ';'); separator >= 0 {
		incoming = incoming[:separator]
	}
	incoming = strings.ToLower(strings.TrimSpace(incoming))

	if incoming == "" {
		return UNKNOWN
	}
	if incoming == "text/plain" || incoming == "text" {
		return TEXT
	}

	for _, mimeType := range objectMimeTypes {
		mimeTypeLower := strings.ToLower(string(mimeType))
		mimeTypeLower = strings.Split(mimeTypeLower, "/")[1]
		if strings.HasSuffix(incoming, mimeTypeLower) {
			return mimeType
		}
	}

	return MimeType(incoming)
}

// Type returns the top-level type, e.g. "application".
func (mimeType MimeType) Type() string {
	mediaRange, err := ParseMediaType(string(mimeType))
	if err != nil {
		return ""
	}
	return mediaRange.Type
}

// Subtype returns the subtype, e.g. "json".
func (mimeType MimeType) Subtype() string {
	mediaRange, err := ParseMediaType(string(mimeType))
	if err != nil {
		return ""
	}
	return mediaRange.Subtype
}
