package spanerrors

import (
	"bytes"
	"fmt"
	"io"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/illuscio-dev/spangraph-go/mimetype"
	uuid "github.com/satori/go.uuid"
	"golang.org/x/xerrors"
)

// Interface for object that can set header information.
type headerSetter interface {
	Set(key string, value string)
}

// Interface for the content engine used to write error data to headers.
type dataEncoder interface {
	Encode(mimeType mimetype.MimeType, content interface{}, writer io.Writer) error
}

/*
SpanErrorType defines a class of failure that marshalling or negotiation can return.

Each SpanErrorType should have a unique Name and APICode.

Since types are declared as pointers, to protect against accidental mutation of the
error type by other packages, the underlying fields of this struct are private and
accessed through functions. Define new error types using NewSpanErrorType()
*/
type SpanErrorType struct {
	// Unique human-readable name of the error type.
	name string

	// Unique number to identify the error type.
	apiCode int

	// HTTP code a caller should answer with when this error reaches a client.
	httpCode int
}

// Returns a new span error of this type.
func (errorType *SpanErrorType) New(
	message string,
	errorData map[string]interface{},
	source error,
) *SpanError {
	spanError := SpanError{
		SpanErrorType: errorType,
		Message:       message,
		ID:            uuid.NewV4(),
		ErrorData:     errorData,
		sourceErr:     source,
		sourceStack:   debug.Stack(),
		frame:         xerrors.Caller(1),
	}
	return &spanError
}

// Newf is New with a formatted message and no error data.
func (errorType *SpanErrorType) Newf(
	source error, format string, args ...interface{},
) *SpanError {
	spanError := errorType.New(fmt.Sprintf(format, args...), nil, source)
	spanError.frame = xerrors.Caller(1)
	return spanError
}

// Unique human-readable name of the error type.
func (errorType *SpanErrorType) Name() string {
	return errorType.name
}

// Unique number to identify the error type.
func (errorType *SpanErrorType) ApiCode() int {
	return errorType.apiCode
}

// HTTP code that should be returned when this error type reaches a client.
func (errorType *SpanErrorType) HttpCode() int {
	return errorType.httpCode
}

// Returns a copy of the error type with the given http code replaced.
func (errorType *SpanErrorType) WithHttpCode(newHttpCode int) *SpanErrorType {
	return &SpanErrorType{
		name:     errorType.name,
		apiCode:  errorType.apiCode,
		httpCode: newHttpCode,
	}
}

// Allows the error type definition itself to also be a valid error for things like
// testing error equality.
func (errorType *SpanErrorType) Error() string {
	return errorType.name +
		" (" + strconv.Itoa(errorType.apiCode) + ")"
}

// Used to return a specific error instance.
type SpanError struct {
	// The type of error we are returning.
	*SpanErrorType

	// A message detailing what caused the error.
	Message string

	// An id for the error being returned.
	ID uuid.UUID

	// A string / any mapping of data related to the error.
	ErrorData map[string]interface{}

	// Property names and "[index]" segments leading from the root value to the value
	// that failed. Filled in while the recursion unwinds.
	Path []string

	// If this error was returned because of another error, the original error is stored
	// here.
	sourceErr error

	// The debug.Stack() from where this error was instantiated.
	sourceStack []byte

	// The xerrors.Frame from where this error was instantiated.
	frame xerrors.Frame
}

// Returns true if the underlying type of this error is the same as errorType. Some
// errors may have multiple http codes possible, se we can't just compare ErrorType
// field equality directly.
func (spanError *SpanError) IsType(errorType *SpanErrorType) bool {
	return spanError.SpanErrorType.Error() == errorType.Error()
}

// Is lets errors.Is match a SpanError against its SpanErrorType.
func (spanError *SpanError) Is(target error) bool {
	switch typed := target.(type) {
	case *SpanErrorType:
		return spanError.IsType(typed)
	case *SpanError:
		return uuid.Equal(spanError.ID, typed.ID)
	default:
		return false
	}
}

// Error string to conform to builtin error interface.
func (spanError *SpanError) Error() string {
	message := spanError.SpanErrorType.Error() + " - " + spanError.Message
	if len(spanError.Path) > 0 {
		message += " (at " + spanError.PathString() + ")"
	}
	return message
}

// Unwrap returns the source error.
func (spanError *SpanError) Unwrap() error {
	return spanError.sourceErr
}

// FormatError implements xerrors.Formatter.
func (spanError *SpanError) FormatError(printer xerrors.Printer) error {
	printer.Print(spanError.Error())
	spanError.frame.Format(printer)
	return spanError.sourceErr
}

// Format implements fmt.Formatter through xerrors so "%+v" prints the frame chain.
func (spanError *SpanError) Format(state fmt.State, verb rune) {
	xerrors.FormatError(spanError, state, verb)
}

// PathString renders Path, e.g. "people[2].address.street".
func (spanError *SpanError) PathString() string {
	return JoinPath(spanError.Path)
}

// JoinPath renders path segments the way PathString does.
func JoinPath(path []string) string {
	builder := strings.Builder{}
	for _, segment := range path {
		if builder.Len() > 0 && !strings.HasPrefix(segment, "[") {
			builder.WriteByte('.')
		}
		builder.WriteString(segment)
	}
	return builder.String()
}

// More verbose error message that includes a debug.Stack() and source error
// information. This is not part of the Error(), Message, or ErrorData by default since
// it may contain sensitive information that is not desirable to return to the client.
func (spanError *SpanError) LogMessage() string {
	loggerMessage := fmt.Sprint(
		// print the error
		"\nMESSAGE: ",
		spanError.Error(),
		"\nORIGINAL: ",
		spanError.sourceErr,
		"\nPANIC STACK:\n",
		string(spanError.sourceStack),
	)
	return loggerMessage
}

// Writes error to an object which implements a Set(key string, value string) method
// like http.Header.
func (spanError *SpanError) ToHeader(
	setter headerSetter, dataEngine dataEncoder,
) error {
	setter.Set("error-name", spanError.name)
	setter.Set("error-code", strconv.Itoa(spanError.apiCode))
	setter.Set("error-message", spanError.Message)
	setter.Set("error-id", spanError.ID.String())

	if len(spanError.Path) > 0 {
		setter.Set("error-path", spanError.PathString())
	}

	if spanError.ErrorData != nil {
		dataBytes := bytes.Buffer{}
		err := dataEngine.Encode(mimetype.JSON, spanError.ErrorData, &dataBytes)
		if err != nil {
			return err
		}
		setter.Set("error-data", strings.TrimSpace(dataBytes.String()))
	}

	return nil
}

// PrependPath adds segment to the front of the path of err if err is, or wraps, a
// *SpanError. err is returned unchanged so calls can be chained in return statements.
func PrependPath(err error, segment string) error {
	var spanError *SpanError
	if xerrors.As(err, &spanError) {
		spanError.Path = append([]string{segment}, spanError.Path...)
	}
	return err
}

// IndexSegment renders a sequence index path segment.
func IndexSegment(index int) string {
	return "[" + strconv.Itoa(index) + "]"
}

// KeySegment renders a map key path segment.
func KeySegment(key string) string {
	return "[" + strconv.Quote(key) + "]"
}
