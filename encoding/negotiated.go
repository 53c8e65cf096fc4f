package encoding

import (
	"io"
	"log/slog"
	"strings"

	"github.com/illuscio-dev/spangraph-go/mimetype"
	"github.com/illuscio-dev/spangraph-go/negotiate"
	"github.com/illuscio-dev/spangraph-go/spanerrors"
)

// Interface for object used to read headers such as http.Request.Header.
type headerFetcher interface {
	Get(key string) string
}

// Interface for object used to set headers such as http.ResponseWriter.Header().
type headerSetter interface {
	Set(key string, value string)
}

// Charset of every textual format the engine writes.
const utf8Charset = "utf-8"

// Representation is the outcome of negotiating the encoding of a response.
type Representation struct {
	// Media type to encode with.
	MimeType mimetype.MimeType
	// Character set of textual media types. Empty for binary ones.
	Charset string
	// Content-coding to apply. negotiate.Identity when the payload is not compressed.
	Coding string
}

// ContentType renders the Content-Type header value.
func (representation Representation) ContentType() string {
	if representation.Charset == "" {
		return string(representation.MimeType)
	}
	return string(representation.MimeType) + "; charset=" + representation.Charset
}

// ToHeader writes Content-Type, and Content-Encoding for a non-identity coding.
func (representation Representation) ToHeader(setter headerSetter) {
	setter.Set("Content-Type", representation.ContentType())
	if representation.Coding != "" && representation.Coding != negotiate.Identity {
		setter.Set("Content-Encoding", representation.Coding)
	}
}

// Whether a media type is text and takes a charset parameter.
func isTextual(mimeType mimetype.MimeType) bool {
	switch mimeType {
	case mimetype.JSON, mimetype.YAML:
		return true
	default:
		return mimeType.Type() == "text"
	}
}

func toStrings(mimeTypes []mimetype.MimeType) []string {
	values := make([]string, len(mimeTypes))
	for i, mimeType := range mimeTypes {
		values[i] = string(mimeType)
	}
	return values
}

/*
NegotiateRepresentation picks the media type, charset and content-coding for a
response from the Accept, Accept-Charset and Accept-Encoding headers. When nothing is
acceptable a NotAcceptableError is returned whose data lists what is supported.
*/
func (engine *SpanEngine) NegotiateRepresentation(
	headers headerFetcher,
) (Representation, error) {
	accept := headers.Get("Accept")
	mimeType, ok := engine.Negotiate(accept)
	if !ok {
		return Representation{}, spanerrors.NotAcceptableError.New(
			"no supported media type is acceptable",
			map[string]interface{}{
				"accept":    accept,
				"supported": toStrings(engine.encodeTypes),
			},
			nil,
		)
	}

	representation := Representation{MimeType: mimeType}

	if isTextual(mimeType) {
		acceptCharset := headers.Get("Accept-Charset")
		charset, ok := negotiate.Charset(acceptCharset, []string{utf8Charset})
		if !ok {
			return Representation{}, spanerrors.NotAcceptableError.New(
				"no supported charset is acceptable",
				map[string]interface{}{
					"acceptCharset": acceptCharset,
					"supported":     []string{utf8Charset},
				},
				nil,
			)
		}
		representation.Charset = charset
	}

	acceptEncoding := headers.Get("Accept-Encoding")
	coding, ok := negotiate.Encoding(acceptEncoding, engine.codingNames)
	if !ok {
		return Representation{}, spanerrors.NotAcceptableError.New(
			"no supported content coding is acceptable",
			map[string]interface{}{
				"acceptEncoding": acceptEncoding,
				"supported":      append(engine.Codings(), negotiate.Identity),
			},
			nil,
		)
	}
	representation.Coding = coding

	engine.logger.Debug(
		"negotiated representation",
		slog.String("contentType", representation.ContentType()),
		slog.String("coding", representation.Coding),
	)
	return representation, nil
}

/*
EncodeNegotiated encodes content to writer in the representation negotiated from
headers, compressing it when a content-coding was chosen. The representation is
returned so the caller can set response headers with Representation.ToHeader.
*/
func (engine *SpanEngine) EncodeNegotiated(
	headers headerFetcher, content interface{}, writer io.Writer,
) (Representation, error) {
	representation, err := engine.NegotiateRepresentation(headers)
	if err != nil {
		return representation, err
	}

	coding := engine.codings[representation.Coding]
	if coding == nil {
		return representation, engine.Encode(representation.MimeType, content, writer)
	}

	codingWriter, err := coding.NewWriter(writer)
	if err != nil {
		return representation, spanerrors.EncodingError.New(
			"error opening "+representation.Coding+" writer", nil, err,
		)
	}

	if err := engine.Encode(representation.MimeType, content, codingWriter); err != nil {
		_ = codingWriter.Close()
		return representation, err
	}

	if err := codingWriter.Close(); err != nil {
		return representation, spanerrors.EncodingError.New(
			"error closing "+representation.Coding+" writer", nil, err,
		)
	}
	return representation, nil
}

// Hides the Close method of a reader so Decode leaves it open.
type noCloseReader struct {
	io.Reader
}

/*
DecodeContent decodes reader into contentReceiver using the Content-Type and
Content-Encoding headers. A missing Content-Type is treated as an unknown mimetype.
Unsupported media types, charsets and codings fail with UnsupportedMediaTypeError.
reader is closed if it is an io.ReadCloser.
*/
func (engine *SpanEngine) DecodeContent(
	headers headerFetcher, contentReceiver interface{}, reader io.Reader,
) error {
	if readCloser, ok := reader.(io.ReadCloser); ok {
		defer func() {
			_ = readCloser.Close()
		}()
	}

	contentType := headers.Get("Content-Type")
	mimeType := mimetype.FromString(contentType)
	if mimeType != mimetype.UNKNOWN && !engine.HandlesDecode(mimeType) {
		return spanerrors.UnsupportedMediaTypeError.New(
			"unsupported content type "+contentType,
			map[string]interface{}{
				"contentType": contentType,
				"supported":   toStrings(engine.decodeTypes()),
			},
			nil,
		)
	}

	if mediaType, err := mimetype.ParseMediaType(contentType); err == nil {
		charset, ok := mediaType.Param("charset")
		if ok && !strings.EqualFold(charset, utf8Charset) &&
			!strings.EqualFold(charset, "us-ascii") {
			return spanerrors.UnsupportedMediaTypeError.New(
				"unsupported charset "+charset,
				map[string]interface{}{"charset": charset},
				nil,
			)
		}
	}

	decoded, closeCodings, err := decodeCodings(
		headers.Get("Content-Encoding"), reader, engine.decodingFor,
	)
	if err != nil {
		return err
	}
	defer closeCodings()

	return engine.Decode(mimeType, contentReceiver, noCloseReader{decoded})
}

// Resolves a Content-Encoding name to the engine's coding for it, falling back on the
// built-in codings.
func (engine *SpanEngine) decodingFor(name string) (Coding, bool) {
	if coding, ok := engine.codings[strings.ToLower(strings.TrimSpace(name))]; ok {
		return coding, true
	}
	return lookupCoding(name)
}

// Mimetypes with a registered decoder, in registration order.
func (engine *SpanEngine) decodeTypes() []mimetype.MimeType {
	decodeTypes := make([]mimetype.MimeType, len(engine.decoderList))
	for i, registered := range engine.decoderList {
		decodeTypes[i] = registered.mimeType
	}
	return decodeTypes
}
