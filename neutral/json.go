package neutral

import (
	"bytes"
	"io"

	"github.com/go-json-experiment/json/jsontext"
	"golang.org/x/xerrors"
)

// WriteJSON streams value to writer as JSON, keeping Mapping order.
func WriteJSON(writer io.Writer, value *Value) error {
	encoder := jsontext.NewEncoder(writer)
	return writeJSONValue(encoder, value)
}

// MarshalJSON returns the compact JSON form of value without a trailing newline.
func MarshalJSON(value *Value) ([]byte, error) {
	buffer := new(bytes.Buffer)
	if err := WriteJSON(buffer, value); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buffer.Bytes(), "\n"), nil
}

func writeJSONValue(encoder *jsontext.Encoder, value *Value) error {
	switch value.Kind() {
	case KindNull:
		return encoder.WriteToken(jsontext.Null)
	case KindBool:
		return encoder.WriteToken(jsontext.Bool(value.boolVal))
	case KindString:
		return encoder.WriteToken(jsontext.String(value.stringVal))
	case KindNumber:
		return encoder.WriteToken(numberToken(value.numberVal))
	case KindSequence:
		if err := encoder.WriteToken(jsontext.ArrayStart); err != nil {
			return err
		}
		for _, item := range value.items {
			if err := writeJSONValue(encoder, item); err != nil {
				return err
			}
		}
		return encoder.WriteToken(jsontext.ArrayEnd)
	default:
		if err := encoder.WriteToken(jsontext.ObjectStart); err != nil {
			return err
		}
		for _, entry := range value.entries {
			if err := encoder.WriteToken(jsontext.String(entry.Key)); err != nil {
				return err
			}
			if err := writeJSONValue(encoder, entry.Value); err != nil {
				return err
			}
		}
		return encoder.WriteToken(jsontext.ObjectEnd)
	}
}

func numberToken(number Number) jsontext.Token {
	switch number.form {
	case formInt:
		return jsontext.Int(number.intVal)
	case formUint:
		return jsontext.Uint(number.uintVal)
	default:
		return jsontext.Float(number.floatVal)
	}
}

// ReadJSON reads exactly one JSON value from reader. Object member order is kept and
// integer literals stay integers.
func ReadJSON(reader io.Reader) (*Value, error) {
	decoder := jsontext.NewDecoder(reader)

	value, err := readJSONValue(decoder)
	if err != nil {
		return nil, err
	}

	if _, err := decoder.ReadToken(); err != io.EOF {
		if err == nil {
			return nil, xerrors.New("unexpected data after top-level json value")
		}
		return nil, err
	}

	return value, nil
}

// UnmarshalJSON parses a single JSON document.
func UnmarshalJSON(data []byte) (*Value, error) {
	return ReadJSON(bytes.NewReader(data))
}

func readJSONValue(decoder *jsontext.Decoder) (*Value, error) {
	if decoder.PeekKind() == '0' {
		raw, err := decoder.ReadValue()
		if err != nil {
			return nil, err
		}
		number, err := ParseNumber(string(raw))
		if err != nil {
			return nil, xerrors.Errorf("invalid json number %q: %w", string(raw), err)
		}
		return FromNumber(number), nil
	}

	token, err := decoder.ReadToken()
	if err != nil {
		return nil, err
	}

	switch token.Kind() {
	case 'n':
		return Null(), nil
	case 't', 'f':
		return Bool(token.Bool()), nil
	case '"':
		return String(token.String()), nil
	case '[':
		sequence := Sequence()
		for decoder.PeekKind() != ']' {
			item, err := readJSONValue(decoder)
			if err != nil {
				return nil, err
			}
			sequence.items = append(sequence.items, item)
		}
		if _, err := decoder.ReadToken(); err != nil {
			return nil, err
		}
		return sequence, nil
	case '{':
		mapping := Mapping()
		for decoder.PeekKind() != '}' {
			keyToken, err := decoder.ReadToken()
			if err != nil {
				return nil, err
			}
			// Tokens are voided by the next decoder call.
			key := keyToken.String()
			item, err := readJSONValue(decoder)
			if err != nil {
				return nil, err
			}
			mapping.Set(key, item)
		}
		if _, err := decoder.ReadToken(); err != nil {
			return nil, err
		}
		return mapping, nil
	default:
		return nil, xerrors.Errorf("unexpected json token %v", token.Kind())
	}
}
