package spanerrors

import (
	"io"
	"strconv"
	"strings"

	"github.com/illuscio-dev/spangraph-go/mimetype"
	uuid "github.com/satori/go.uuid"
	"golang.org/x/xerrors"
)

// Returns a span error type definition. Each definition should only need to be declared
// once in a shared library, ensuring consistent error codes and names for the error
// type across all users of the library.
func NewSpanErrorType(
	name string,
	apiCode int,
	httpCode int,
) *SpanErrorType {
	spanError := &SpanErrorType{
		name:     name,
		apiCode:  apiCode,
		httpCode: httpCode,
	}
	return spanError
}

// A value's shape does not fit the target type.
var TypeMismatchError = NewSpanErrorType(
	"TypeMismatchError",
	1101,
	400,
)

// A value was reached twice while walking a single branch of an object graph.
var CyclicReferenceError = NewSpanErrorType(
	"CyclicReferenceError",
	1102,
	500,
)

// The configured maximum recursion depth was exceeded.
var MaxDepthExceededError = NewSpanErrorType(
	"MaxDepthExceededError",
	1103,
	500,
)

// A mapping carried a key the target bean has no property for.
var UnknownPropertyError = NewSpanErrorType(
	"UnknownPropertyError",
	1104,
	400,
)

// A user supplied swap function failed. The original failure is the source error.
var SwapConversionError = NewSpanErrorType(
	"SwapConversionError",
	1105,
	500,
)

// Input could not be read as a neutral tree.
var ParseError = NewSpanErrorType(
	"ParseError",
	1106,
	400,
)

// None of the available representations satisfies the client's Accept headers.
var NotAcceptableError = NewSpanErrorType(
	"NotAcceptableError",
	1107,
	406,
)

// The content type or content coding of a payload is not supported.
var UnsupportedMediaTypeError = NewSpanErrorType(
	"UnsupportedMediaTypeError",
	1108,
	415,
)

// A format encoder failed while writing a neutral tree.
var EncodingError = NewSpanErrorType(
	"EncodingError",
	1109,
	500,
)

// Reading or writing a bean property failed.
var PropertyAccessError = NewSpanErrorType(
	"PropertyAccessError",
	1110,
	500,
)

// List of default SpanError definitions.
var ErrorList = [10]*SpanErrorType{
	TypeMismatchError,
	CyclicReferenceError,
	MaxDepthExceededError,
	UnknownPropertyError,
	SwapConversionError,
	ParseError,
	NotAcceptableError,
	UnsupportedMediaTypeError,
	EncodingError,
	PropertyAccessError,
}

// Used to make ErrorTypeCodeIndex.
func makeDefaultErrorCodeIndex() map[int]*SpanErrorType {
	index := make(map[int]*SpanErrorType)
	for _, errorType := range ErrorList {
		index[errorType.apiCode] = errorType
	}
	return index
}

// ApiCode:*ErrorType indexing of default errors.
var ErrorTypeCodeIndex = makeDefaultErrorCodeIndex()

type headerFetcher interface {
	Get(key string) string
}

// Interface for the content engine used to read error data from headers.
type dataDecoder interface {
	Decode(mimeType mimetype.MimeType, contentReceiver interface{}, reader io.Reader) error
}

/*
ErrorFromHeaders generates error object from headers written by SpanError.ToHeader.
If a spanError object can be made from the header data, a pointer to it is returned.
If a spanError code is detected in the headers, but the header data is malformed and
cannot be loaded, then hasError is returned as True, and a description of the parsing
issue is returned in err.

If the headers do not contain an error and hasError will be False, spanError will
be returned as a nil pointer, and err will specify that no error was found.
*/
func ErrorFromHeaders(
	headers headerFetcher,
	dataEngine dataDecoder,
	errorTypeCodeIndex map[int]*SpanErrorType,
) (spanError *SpanError, hasError bool, err error) {

	// If there is no error code, then there is no error
	errorCodeStr := headers.Get("error-code")
	if errorCodeStr == "" {
		return nil, false, xerrors.New("no error in headers")
	}

	// If the error code is not an int, then there is no error
	errorCode, err := strconv.Atoi(errorCodeStr)
	if err != nil {
		return nil, false, xerrors.New("error-code not int")
	}

	if errorTypeCodeIndex == nil {
		return nil,
			true,
			xerrors.New("no error index provided")
	}
	errorType, ok := errorTypeCodeIndex[errorCode]
	if !ok {
		return nil,
			true,
			xerrors.New("no known error for code " + errorCodeStr)
	}

	errorMessage := headers.Get("error-message")
	errorIDStr := headers.Get("error-id")

	errorID, err := uuid.FromString(errorIDStr)
	if err != nil {
		return nil,
			true,
			xerrors.New("error id is not valid UUID")
	}

	var errorData map[string]interface{}
	if errorDataStr := headers.Get("error-data"); errorDataStr != "" {
		stringReader := strings.NewReader(errorDataStr)
		err := dataEngine.Decode(mimetype.JSON, &errorData, stringReader)
		if err != nil {
			return nil,
				true,
				xerrors.Errorf("error data could not be parsed as JSON: %w", err)
		}
	}

	spanError = errorType.New(
		errorMessage, errorData, nil,
	)
	spanError.ID = errorID

	if errorPath := headers.Get("error-path"); errorPath != "" {
		spanError.Path = splitPath(errorPath)
	}

	return spanError, true, nil
}

// Reverses SpanError.PathString. Quoted key segments containing dots or brackets
// are kept intact.
func splitPath(path string) []string {
	var segments []string
	current := strings.Builder{}
	inQuotes := false

	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(path); i++ {
		char := path[i]
		switch {
		case inQuotes:
			current.WriteByte(char)
			if char == '\\' && i+1 < len(path) {
				i++
				current.WriteByte(path[i])
			} else if char == '"' {
				inQuotes = false
			}
		case char == '"':
			inQuotes = true
			current.WriteByte(char)
		case char == '.':
			flush()
		case char == '[':
			flush()
			current.WriteByte(char)
		case char == ']':
			current.WriteByte(char)
			flush()
		default:
			current.WriteByte(char)
		}
	}
	flush()

	return segments
}
