package encoding

import (
	"bytes"
	"fmt"
	"io"

	"github.com/illuscio-dev/spangraph-go/neutral"
	"github.com/illuscio-dev/spangraph-go/spanerrors"
)

// Handles encoding to / decoding from text/plain. Strings are written as-is and
// neutral trees in their JSON form. Anything else goes through fmt.Sprint.
type textEncoder struct{}

func (encoder *textEncoder) Encode(
	engine ContentEngine, writer io.Writer, content interface{},
) error {
	contentString := fmt.Sprint(content)
	_, err := io.WriteString(writer, contentString)

	return err
}

// Decodes into a *string directly. Other receivers are parsed from a String leaf, so
// numbers, booleans and swapped types can be read from plain text.
func (encoder *textEncoder) Decode(
	engine ContentEngine, reader io.Reader, contentReceiver interface{},
) error {
	buffer := new(bytes.Buffer)
	if _, err := buffer.ReadFrom(reader); err != nil {
		return err
	}

	if stringPointer, ok := contentReceiver.(*string); ok {
		*stringPointer = buffer.String()
		return nil
	}

	err := FromTree(engine, neutral.String(buffer.String()), contentReceiver)
	if err != nil {
		return spanerrors.ParseError.New(
			"text content does not fit the receiver", nil, err,
		)
	}
	return nil
}
