package encoding

import (
	"io"

	"github.com/illuscio-dev/spangraph-go/neutral"
	"github.com/illuscio-dev/spangraph-go/spanerrors"
)

// JSON encoder for SpanEngine. Mapping order is kept in both directions.
type jsonEncoder struct{}

func (encoder *jsonEncoder) Encode(
	engine ContentEngine, writer io.Writer, content interface{},
) error {
	tree, err := ToTree(engine, content)
	if err != nil {
		return err
	}

	if err := neutral.WriteJSON(writer, tree); err != nil {
		return spanerrors.EncodingError.New("error writing json", nil, err)
	}
	return nil
}

func (encoder *jsonEncoder) Decode(
	engine ContentEngine, reader io.Reader, contentReceiver interface{},
) error {
	tree, err := neutral.ReadJSON(reader)
	if err != nil {
		return spanerrors.ParseError.New("content is not valid json", nil, err)
	}
	return FromTree(engine, tree, contentReceiver)
}
