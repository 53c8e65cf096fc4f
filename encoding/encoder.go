package encoding

import (
	"io"

	"github.com/illuscio-dev/spangraph-go/neutral"
)

// Interface for defining a content encoder.
type Encoder interface {
	// To be implemented by content encoder. Implementation is expected to write content
	// to writer. The content engine which is calling Encode is made available through
	// engine, allowing encoders to access engine-level settings such as its graph.
	Encode(engine ContentEngine, writer io.Writer, content interface{}) error
}

// Interface for defining a content decoder.
type Decoder interface {
	// To be implemented by content decoder. Implementation is expected to read content
	// from reader and unmarshal it into contentReceiver. The content engine which is
	// calling Decode is made available through engine, allowing decoders to access
	// engine-level settings.
	Decode(engine ContentEngine, reader io.Reader, contentReceiver interface{}) error
}

/*
ToTree converts content into a neutral tree with the engine's graph. A *neutral.Value
is used as-is. Format encoders call this before writing.
*/
func ToTree(engine ContentEngine, content interface{}) (*neutral.Value, error) {
	if tree, ok := content.(*neutral.Value); ok {
		return tree, nil
	}
	return engine.Graph().Serialize(content)
}

/*
FromTree fills contentReceiver from a decoded neutral tree with the engine's graph. A
*neutral.Value receiver is overwritten with the tree itself.
*/
func FromTree(engine ContentEngine, tree *neutral.Value, contentReceiver interface{}) error {
	if target, ok := contentReceiver.(*neutral.Value); ok {
		*target = *tree
		return nil
	}
	return engine.Graph().Parse(tree, contentReceiver)
}
