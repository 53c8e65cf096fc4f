package neutral

import (
	"fmt"
	"sort"

	"golang.org/x/xerrors"
)

// FromInterface converts a natural Go tree, as produced by generic decoders, into a
// Value. Maps with non-string keys have their keys rendered with fmt.Sprint. Go maps
// carry no order, so their entries are added in sorted key order.
func FromInterface(natural interface{}) (*Value, error) {
	switch typed := natural.(type) {
	case nil:
		return Null(), nil
	case *Value:
		return typed.Clone(), nil
	case bool:
		return Bool(typed), nil
	case string:
		return String(typed), nil
	case []byte:
		return String(string(typed)), nil
	case int:
		return Int(int64(typed)), nil
	case int8:
		return Int(int64(typed)), nil
	case int16:
		return Int(int64(typed)), nil
	case int32:
		return Int(int64(typed)), nil
	case int64:
		return Int(typed), nil
	case uint:
		return Uint(uint64(typed)), nil
	case uint8:
		return Uint(uint64(typed)), nil
	case uint16:
		return Uint(uint64(typed)), nil
	case uint32:
		return Uint(uint64(typed)), nil
	case uint64:
		return Uint(typed), nil
	case float32:
		return Float(float64(typed)), nil
	case float64:
		return Float(typed), nil
	case []interface{}:
		sequence := Sequence()
		for _, item := range typed {
			converted, err := FromInterface(item)
			if err != nil {
				return nil, err
			}
			sequence.items = append(sequence.items, converted)
		}
		return sequence, nil
	case map[string]interface{}:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return mappingFromKeys(keys, func(key string) interface{} { return typed[key] })
	case map[interface{}]interface{}:
		rendered := make(map[string]interface{}, len(typed))
		for key, item := range typed {
			rendered[fmt.Sprint(key)] = item
		}
		return FromInterface(rendered)
	default:
		return nil, xerrors.Errorf("cannot convert %T to a neutral value", natural)
	}
}

func mappingFromKeys(
	keys []string, lookup func(key string) interface{},
) (*Value, error) {
	mapping := Mapping()
	for _, key := range keys {
		converted, err := FromInterface(lookup(key))
		if err != nil {
			return nil, xerrors.Errorf("key %q: %w", key, err)
		}
		mapping.Set(key, converted)
	}
	return mapping, nil
}

// ToInterface converts value into a natural Go tree: nil, bool, int64, uint64,
// float64, string, []interface{} and map[string]interface{}. Mapping order is lost.
func ToInterface(value *Value) interface{} {
	switch value.Kind() {
	case KindNull:
		return nil
	case KindBool:
		return value.boolVal
	case KindString:
		return value.stringVal
	case KindNumber:
		return value.numberVal.Interface()
	case KindSequence:
		items := make([]interface{}, len(value.items))
		for i, item := range value.items {
			items[i] = ToInterface(item)
		}
		return items
	default:
		mapping := make(map[string]interface{}, len(value.entries))
		for _, entry := range value.entries {
			mapping[entry.Key] = ToInterface(entry.Value)
		}
		return mapping
	}
}

// Interface returns the number as int64, uint64 or float64 depending on its form.
// Unsigned values that fit an int64 are returned as int64.
func (number Number) Interface() interface{} {
	switch number.form {
	case formInt:
		return number.intVal
	case formUint:
		if signed, ok := number.Int64(); ok {
			return signed
		}
		return number.uintVal
	default:
		return number.floatVal
	}
}
