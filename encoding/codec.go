package encoding

import (
	"io"
	"reflect"

	"github.com/illuscio-dev/spangraph-go/neutral"
	"github.com/illuscio-dev/spangraph-go/spanerrors"
	"github.com/ugorji/go/codec"
)

// Mapping entries as alternating keys and values. Encodes as a map in the stream,
// keeping entry order.
type orderedMap []interface{}

// MapBySlice marks orderedMap for codec.
func (orderedMap) MapBySlice() {}

// Converts a neutral tree into values codec can encode without reflection surprises.
func toCodecValue(tree *neutral.Value) interface{} {
	switch tree.Kind() {
	case neutral.KindSequence:
		items := make([]interface{}, tree.Len())
		for i, item := range tree.Items() {
			items[i] = toCodecValue(item)
		}
		return items
	case neutral.KindMapping:
		entries := make(orderedMap, 0, tree.Len()*2)
		for _, entry := range tree.Entries() {
			entries = append(entries, entry.Key, toCodecValue(entry.Value))
		}
		return entries
	default:
		return neutral.ToInterface(tree)
	}
}

var mapStringType = reflect.TypeOf(map[string]interface{}(nil))

func newMsgpackHandle() *codec.MsgpackHandle {
	handle := new(codec.MsgpackHandle)
	handle.WriteExt = true
	handle.RawToString = true
	handle.MapType = mapStringType
	return handle
}

func newCborHandle() *codec.CborHandle {
	handle := new(codec.CborHandle)
	handle.MapType = mapStringType
	return handle
}

func newBincHandle() *codec.BincHandle {
	handle := new(codec.BincHandle)
	handle.MapType = mapStringType
	return handle
}

/*
Binary encoder backed by a codec.Handle, shared by msgpack, cbor and binc. Mapping
order is kept when encoding. Decoded mappings come back with their keys sorted, since
the schema-less decoder produces Go maps.
*/
type codecEncoder struct {
	name   string
	handle codec.Handle
}

func (encoder *codecEncoder) Encode(
	engine ContentEngine, writer io.Writer, content interface{},
) error {
	tree, err := ToTree(engine, content)
	if err != nil {
		return err
	}

	codecEncoder := codec.NewEncoder(writer, encoder.handle)
	if err := codecEncoder.Encode(toCodecValue(tree)); err != nil {
		return spanerrors.EncodingError.New("error writing "+encoder.name, nil, err)
	}
	return nil
}

func (encoder *codecEncoder) Decode(
	engine ContentEngine, reader io.Reader, contentReceiver interface{},
) error {
	var natural interface{}

	codecDecoder := codec.NewDecoder(reader, encoder.handle)
	if err := codecDecoder.Decode(&natural); err != nil {
		return spanerrors.ParseError.New(
			"content is not valid "+encoder.name, nil, err,
		)
	}

	tree, err := neutral.FromInterface(natural)
	if err != nil {
		return spanerrors.ParseError.New(
			encoder.name+" content has no neutral form", nil, err,
		)
	}
	return FromTree(engine, tree, contentReceiver)
}
