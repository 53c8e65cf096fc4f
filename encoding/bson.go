package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"reflect"
	"time"

	"github.com/illuscio-dev/spangraph-go/neutral"
	"github.com/illuscio-dev/spangraph-go/spanerrors"
	"github.com/illuscio-dev/spangraph-go/spantypes"
	uuid "github.com/satori/go.uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"golang.org/x/xerrors"
)

// BsonListSepString is a delimiter for top-level bson lists, which bson does not not
// normally support. When multiple documents are being sent in a single payload, the
// unicode SYMBOL FOR RECORD SEPARATOR is used.
// (http://fileformat.info/info/unicode/char/241e/index.htm)
const BsonListSepString = "\u241E"

// BsonListSepBytes is a byte representation of BsonListSepString.
var BsonListSepBytes = []byte(BsonListSepString)

// split function used to separate the bson records.
func splitBsonFunc(data []byte, atEOF bool) (advance int, token []byte, err error) {

	// Return nothing if at end of file and no data passed
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// Find the index of a separator
	if i := bytes.Index(data, BsonListSepBytes); i >= 0 {
		return i + len(BsonListSepBytes), data[0:i], nil
	}

	// If at end of file with data return the data
	if atEOF {
		return len(data), data, nil
	}

	return advance, token, err
}

// Converts a neutral tree into bson values. Mappings become ordered bson.D documents.
func toBsonValue(tree *neutral.Value) interface{} {
	switch tree.Kind() {
	case neutral.KindSequence:
		items := make(bson.A, tree.Len())
		for i, item := range tree.Items() {
			items[i] = toBsonValue(item)
		}
		return items
	case neutral.KindMapping:
		return toBsonDocument(tree)
	case neutral.KindNumber:
		number, _ := tree.NumberValue()
		if number.IsFloat() {
			return number.Float64()
		}
		// bson has no unsigned integers.
		if signed, ok := number.Int64(); ok {
			return signed
		}
		return number.String()
	default:
		return neutral.ToInterface(tree)
	}
}

func toBsonDocument(tree *neutral.Value) bson.D {
	document := make(bson.D, 0, tree.Len())
	for _, entry := range tree.Entries() {
		document = append(document, bson.E{Key: entry.Key, Value: toBsonValue(entry.Value)})
	}
	return document
}

// Converts a bson value into a neutral tree. Binary data becomes a uuid string for
// subtype 0x3 and a hex string for subtype 0x0, object ids become hex strings and
// datetimes RFC 3339 strings.
func fromBsonValue(value bson.RawValue) (*neutral.Value, error) {
	switch value.Type {
	case bsontype.Null, bsontype.Undefined:
		return neutral.Null(), nil
	case bsontype.Boolean:
		return neutral.Bool(value.Boolean()), nil
	case bsontype.Int32:
		return neutral.Int(int64(value.Int32())), nil
	case bsontype.Int64:
		return neutral.Int(value.Int64()), nil
	case bsontype.Double:
		return neutral.Float(value.Double()), nil
	case bsontype.String:
		return neutral.String(value.StringValue()), nil
	case bsontype.Decimal128:
		return neutral.String(value.Decimal128().String()), nil
	case bsontype.ObjectID:
		return neutral.String(value.ObjectID().Hex()), nil
	case bsontype.DateTime:
		moment := time.Unix(0, value.DateTime()*int64(time.Millisecond)).UTC()
		return neutral.String(moment.Format(time.RFC3339Nano)), nil
	case bsontype.Binary:
		subtype, data := value.Binary()
		switch subtype {
		case 0x3, 0x4:
			valueUUID, err := uuid.FromBytes(data)
			if err != nil {
				return nil, xerrors.Errorf("error converting bson uuid: %w", err)
			}
			return neutral.String(valueUUID.String()), nil
		case 0x0:
			return neutral.String(spantypes.BinData(data).Hex()), nil
		default:
			return nil, xerrors.Errorf("unsupported bson binary subtype 0x%x", subtype)
		}
	case bsontype.EmbeddedDocument:
		return fromBsonDocument(value.Document())
	case bsontype.Array:
		values, err := value.Array().Values()
		if err != nil {
			return nil, err
		}
		sequence := neutral.Sequence()
		for _, item := range values {
			converted, err := fromBsonValue(item)
			if err != nil {
				return nil, err
			}
			sequence.Append(converted)
		}
		return sequence, nil
	default:
		return nil, xerrors.New("unsupported bson type " + value.Type.String())
	}
}

func fromBsonDocument(document bson.Raw) (*neutral.Value, error) {
	elements, err := document.Elements()
	if err != nil {
		return nil, err
	}

	mapping := neutral.Mapping()
	for _, element := range elements {
		converted, err := fromBsonValue(element.Value())
		if err != nil {
			return nil, xerrors.Errorf("bson field %q: %w", element.Key(), err)
		}
		mapping.Set(element.Key(), converted)
	}
	return mapping, nil
}

// BSON Encoder for writing BSON Data to content.
type bsonEncoder struct{}

func (encoder *bsonEncoder) encodeSingle(writer io.Writer, document *neutral.Value) error {
	if document.Kind() != neutral.KindMapping {
		return spanerrors.EncodingError.New(
			fmt.Sprintf("bson documents must be mappings, got %v", document.Kind()),
			map[string]interface{}{"kind": document.Kind().String()},
			nil,
		)
	}

	marshalled, err := bson.Marshal(toBsonDocument(document))
	if err != nil {
		return spanerrors.EncodingError.New("error writing bson", nil, err)
	}

	_, err = writer.Write(marshalled)
	return err
}

// Used to encode multiple bson objects to s single payload.
func (encoder *bsonEncoder) encodeMany(writer io.Writer, documents *neutral.Value) error {
	// We need to know when we are on the final index so if we hit the last item we
	// know that we don't need to write the separator.
	finalIndex := documents.Len() - 1

	for index, document := range documents.Items() {
		if err := encoder.encodeSingle(writer, document); err != nil {
			return spanerrors.PrependPath(err, spanerrors.IndexSegment(index))
		}

		// Write the delimiter if we are not on the final item.
		if index != finalIndex {
			if _, err := writer.Write(BsonListSepBytes); err != nil {
				return xerrors.Errorf(
					"error writing document separator: %w", err,
				)
			}
		}
	}
	return nil
}

/*
Encodes bson content. A raw document (bson.Raw or *bson.Raw) is written unchanged. A
top-level sequence is written as documents joined by BsonListSepBytes.
*/
func (encoder *bsonEncoder) Encode(
	engine ContentEngine, writer io.Writer, content interface{},
) error {
	switch raw := content.(type) {
	case bson.Raw:
		_, err := writer.Write(raw)
		return err
	case *bson.Raw:
		_, err := writer.Write(*raw)
		return err
	}

	tree, err := ToTree(engine, content)
	if err != nil {
		return err
	}

	if tree.Kind() == neutral.KindSequence {
		return encoder.encodeMany(writer, tree)
	}
	return encoder.encodeSingle(writer, tree)
}

// Decodes a single bson document
func (encoder *bsonEncoder) decodeSingle(data []byte) (*neutral.Value, error) {
	document := bson.Raw(data)
	if err := document.Validate(); err != nil {
		return nil, spanerrors.ParseError.New("content is not valid bson", nil, err)
	}

	tree, err := fromBsonDocument(document)
	if err != nil {
		return nil, spanerrors.ParseError.New("bson document has no neutral form", nil, err)
	}
	return tree, nil
}

/*
Decode bson content. Payloads holding BsonListSepBytes are read as a sequence of
documents. A single document is a mapping, unless the receiver is a slice or array, in
which case it is a sequence of one. Empty content only fits slice or array receivers.
*/
func (encoder *bsonEncoder) Decode(
	engine ContentEngine, reader io.Reader, contentReceiver interface{},
) error {
	documents := neutral.Sequence()

	docScanner := bufio.NewScanner(reader)
	docScanner.Buffer(nil, math.MaxInt32)
	docScanner.Split(splitBsonFunc)

	// Iterate through documents.
	for docScanner.Scan() {
		document, err := encoder.decodeSingle(docScanner.Bytes())
		if err != nil {
			return spanerrors.PrependPath(err, spanerrors.IndexSegment(documents.Len()))
		}
		documents.Append(document)
	}
	if err := docScanner.Err(); err != nil {
		return spanerrors.ParseError.New("error reading bson documents", nil, err)
	}

	sequenceReceiver := isSequenceReceiver(contentReceiver)

	switch {
	case documents.Len() == 0 && !sequenceReceiver:
		return spanerrors.ParseError.New("bson content is empty", nil, nil)
	case documents.Len() == 1 && !sequenceReceiver:
		return FromTree(engine, documents.Index(0), contentReceiver)
	default:
		return FromTree(engine, documents, contentReceiver)
	}
}

// Reports whether contentReceiver points to a slice or array.
func isSequenceReceiver(contentReceiver interface{}) bool {
	receiverType := reflect.TypeOf(contentReceiver)
	if receiverType == nil || receiverType.Kind() != reflect.Ptr {
		return false
	}
	kind := receiverType.Elem().Kind()
	return kind == reflect.Slice || kind == reflect.Array
}
