/*
Package neutral holds the format-agnostic tree that object graphs are serialized to
and parsed from.

A Value is a tagged union of Null, Bool, Number, String, Sequence and Mapping. Every
format encoder in the encoding package reads a Value and every decoder produces one,
so the graph walker and builder never need to know which wire format is in use.

Mapping Order

Mapping keys are unique and keep insertion order. Setting a key that already exists
replaces its value without moving it.
*/
package neutral

import (
	"math"
	"strconv"

	"golang.org/x/xerrors"
)

// Kind enumerates the shapes a Value can take.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

// String returns the kind name.
func (kind Kind) String() string {
	switch kind {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

type numberForm uint8

const (
	formInt numberForm = iota
	formUint
	formFloat
)

// Number is a numeric scalar that remembers whether it was produced from a signed
// integer, an unsigned integer or a float so integers survive a round trip exactly.
type Number struct {
	form     numberForm
	intVal   int64
	uintVal  uint64
	floatVal float64
}

// IntNumber returns a Number holding a signed integer.
func IntNumber(value int64) Number {
	return Number{form: formInt, intVal: value}
}

// UintNumber returns a Number holding an unsigned integer.
func UintNumber(value uint64) Number {
	return Number{form: formUint, uintVal: value}
}

// FloatNumber returns a Number holding a float.
func FloatNumber(value float64) Number {
	return Number{form: formFloat, floatVal: value}
}

// IsInteger reports whether the number has no fractional component.
func (number Number) IsInteger() bool {
	if number.form != formFloat {
		return true
	}
	return !math.IsInf(number.floatVal, 0) &&
		!math.IsNaN(number.floatVal) &&
		number.floatVal == math.Trunc(number.floatVal)
}

// IsFloat reports whether the number was created from a float.
func (number Number) IsFloat() bool {
	return number.form == formFloat
}

// Int64 returns the number as an int64. ok is false if the number has a fractional
// component or does not fit.
func (number Number) Int64() (value int64, ok bool) {
	switch number.form {
	case formInt:
		return number.intVal, true
	case formUint:
		if number.uintVal > math.MaxInt64 {
			return 0, false
		}
		return int64(number.uintVal), true
	default:
		if !number.IsInteger() ||
			number.floatVal < math.MinInt64 ||
			number.floatVal >= math.MaxInt64 {
			return 0, false
		}
		return int64(number.floatVal), true
	}
}

// Uint64 returns the number as a uint64. ok is false for negative, fractional or
// out of range numbers.
func (number Number) Uint64() (value uint64, ok bool) {
	switch number.form {
	case formInt:
		if number.intVal < 0 {
			return 0, false
		}
		return uint64(number.intVal), true
	case formUint:
		return number.uintVal, true
	default:
		if !number.IsInteger() || number.floatVal < 0 ||
			number.floatVal >= math.MaxUint64 {
			return 0, false
		}
		return uint64(number.floatVal), true
	}
}

// Float64 returns the number as a float64, losing precision for very large integers.
func (number Number) Float64() float64 {
	switch number.form {
	case formInt:
		return float64(number.intVal)
	case formUint:
		return float64(number.uintVal)
	default:
		return number.floatVal
	}
}

// Equal compares two numbers by numeric value regardless of their form.
func (number Number) Equal(other Number) bool {
	if number.form != formFloat && other.form != formFloat {
		if leftInt, ok := number.Int64(); ok {
			rightInt, ok := other.Int64()
			return ok && leftInt == rightInt
		}
		leftUint, _ := number.Uint64()
		rightUint, ok := other.Uint64()
		return ok && leftUint == rightUint
	}
	return number.Float64() == other.Float64()
}

// String renders the number the way JSON would.
func (number Number) String() string {
	switch number.form {
	case formInt:
		return strconv.FormatInt(number.intVal, 10)
	case formUint:
		return strconv.FormatUint(number.uintVal, 10)
	default:
		return strconv.FormatFloat(number.floatVal, 'g', -1, 64)
	}
}

// ParseNumber reads a locale-independent numeric literal. Literals without a
// fraction or exponent are kept as integers when they fit.
func ParseNumber(text string) (Number, error) {
	isFloat := false
	for _, char := range text {
		if char == '.' || char == 'e' || char == 'E' {
			isFloat = true
			break
		}
	}

	if !isFloat {
		if value, err := strconv.ParseInt(text, 10, 64); err == nil {
			return IntNumber(value), nil
		}
		if value, err := strconv.ParseUint(text, 10, 64); err == nil {
			return UintNumber(value), nil
		}
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Number{}, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Number{}, xerrors.Errorf("%q is not a finite number", text)
	}
	return FloatNumber(value), nil
}

// Entry is a single key/value pair of a Mapping.
type Entry struct {
	Key   string
	Value *Value
}

// Value is a node of the neutral tree. The zero Value is Null. A nil *Value is also
// treated as Null by every accessor.
type Value struct {
	kind Kind

	boolVal   bool
	numberVal Number
	stringVal string

	items   []*Value
	entries []Entry
	index   map[string]int
}

// Null returns a Null value.
func Null() *Value {
	return &Value{kind: KindNull}
}

// Bool returns a Bool value.
func Bool(value bool) *Value {
	return &Value{kind: KindBool, boolVal: value}
}

// Int returns a Number value holding a signed integer.
func Int(value int64) *Value {
	return &Value{kind: KindNumber, numberVal: IntNumber(value)}
}

// Uint returns a Number value holding an unsigned integer.
func Uint(value uint64) *Value {
	return &Value{kind: KindNumber, numberVal: UintNumber(value)}
}

// Float returns a Number value holding a float.
func Float(value float64) *Value {
	return &Value{kind: KindNumber, numberVal: FloatNumber(value)}
}

// FromNumber wraps an existing Number.
func FromNumber(number Number) *Value {
	return &Value{kind: KindNumber, numberVal: number}
}

// String returns a String value.
func String(value string) *Value {
	return &Value{kind: KindString, stringVal: value}
}

// Sequence returns a Sequence holding items in order.
func Sequence(items ...*Value) *Value {
	return &Value{kind: KindSequence, items: append([]*Value{}, items...)}
}

// Mapping returns a Mapping built from entries. Later duplicates replace earlier
// ones.
func Mapping(entries ...Entry) *Value {
	value := &Value{kind: KindMapping}
	for _, entry := range entries {
		value.Set(entry.Key, entry.Value)
	}
	return value
}

// Kind returns the shape of the value.
func (value *Value) Kind() Kind {
	if value == nil {
		return KindNull
	}
	return value.kind
}

// IsNull reports whether the value is Null.
func (value *Value) IsNull() bool {
	return value.Kind() == KindNull
}

// BoolValue returns the boolean payload. ok is false if the value is not a Bool.
func (value *Value) BoolValue() (result bool, ok bool) {
	if value.Kind() != KindBool {
		return false, false
	}
	return value.boolVal, true
}

// NumberValue returns the numeric payload. ok is false if the value is not a Number.
func (value *Value) NumberValue() (result Number, ok bool) {
	if value.Kind() != KindNumber {
		return Number{}, false
	}
	return value.numberVal, true
}

// StringValue returns the string payload. ok is false if the value is not a String.
func (value *Value) StringValue() (result string, ok bool) {
	if value.Kind() != KindString {
		return "", false
	}
	return value.stringVal, true
}

// Len returns the number of items of a Sequence or entries of a Mapping.
func (value *Value) Len() int {
	switch value.Kind() {
	case KindSequence:
		return len(value.items)
	case KindMapping:
		return len(value.entries)
	default:
		return 0
	}
}

// Items returns the items of a Sequence. The returned slice must not be modified.
func (value *Value) Items() []*Value {
	if value.Kind() != KindSequence {
		return nil
	}
	return value.items
}

// Index returns the item at position i of a Sequence.
func (value *Value) Index(i int) *Value {
	if value.Kind() != KindSequence || i < 0 || i >= len(value.items) {
		return nil
	}
	return value.items[i]
}

// Append adds items to the end of a Sequence.
func (value *Value) Append(items ...*Value) {
	if value.kind != KindSequence {
		panic("neutral: Append called on " + value.kind.String())
	}
	value.items = append(value.items, items...)
}

// Entries returns the entries of a Mapping in insertion order. The returned slice
// must not be modified.
func (value *Value) Entries() []Entry {
	if value.Kind() != KindMapping {
		return nil
	}
	return value.entries
}

// Keys returns the keys of a Mapping in insertion order.
func (value *Value) Keys() []string {
	entries := value.Entries()
	keys := make([]string, len(entries))
	for i, entry := range entries {
		keys[i] = entry.Key
	}
	return keys
}

// Get returns the value stored under key in a Mapping.
func (value *Value) Get(key string) (*Value, bool) {
	if value.Kind() != KindMapping {
		return nil, false
	}
	i, ok := value.index[key]
	if !ok {
		return nil, false
	}
	return value.entries[i].Value, true
}

// Set stores item under key in a Mapping, replacing an existing entry in place.
func (value *Value) Set(key string, item *Value) {
	if value.kind != KindMapping {
		panic("neutral: Set called on " + value.kind.String())
	}
	if item == nil {
		item = Null()
	}
	if value.index == nil {
		value.index = make(map[string]int)
	}
	if i, ok := value.index[key]; ok {
		value.entries[i].Value = item
		return
	}
	value.index[key] = len(value.entries)
	value.entries = append(value.entries, Entry{Key: key, Value: item})
}

// Prepend stores item under key as the first entry of a Mapping. An existing entry
// for key is removed first.
func (value *Value) Prepend(key string, item *Value) {
	value.Delete(key)
	value.Set(key, item)
	last := len(value.entries) - 1
	moved := value.entries[last]
	copy(value.entries[1:], value.entries[:last])
	value.entries[0] = moved
	value.reindex()
}

// Delete removes key from a Mapping. It reports whether the key was present.
func (value *Value) Delete(key string) bool {
	if value.Kind() != KindMapping {
		return false
	}
	i, ok := value.index[key]
	if !ok {
		return false
	}
	value.entries = append(value.entries[:i], value.entries[i+1:]...)
	value.reindex()
	return true
}

func (value *Value) reindex() {
	value.index = make(map[string]int, len(value.entries))
	for i, entry := range value.entries {
		value.index[entry.Key] = i
	}
}

// Clone returns a deep copy of the value.
func (value *Value) Clone() *Value {
	switch value.Kind() {
	case KindNull:
		return Null()
	case KindSequence:
		items := make([]*Value, len(value.items))
		for i, item := range value.items {
			items[i] = item.Clone()
		}
		return &Value{kind: KindSequence, items: items}
	case KindMapping:
		cloned := &Value{kind: KindMapping}
		for _, entry := range value.entries {
			cloned.Set(entry.Key, entry.Value.Clone())
		}
		return cloned
	default:
		copied := *value
		return &copied
	}
}

// Equal reports structural equality. Mapping order is not significant, Sequence
// order is.
func (value *Value) Equal(other *Value) bool {
	if value.Kind() != other.Kind() {
		return false
	}

	switch value.Kind() {
	case KindNull:
		return true
	case KindBool:
		return value.boolVal == other.boolVal
	case KindNumber:
		return value.numberVal.Equal(other.numberVal)
	case KindString:
		return value.stringVal == other.stringVal
	case KindSequence:
		if len(value.items) != len(other.items) {
			return false
		}
		for i := range value.items {
			if !value.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	default:
		if len(value.entries) != len(other.entries) {
			return false
		}
		for _, entry := range value.entries {
			otherItem, ok := other.Get(entry.Key)
			if !ok || !entry.Value.Equal(otherItem) {
				return false
			}
		}
		return true
	}
}

// String renders the value as compact JSON. Intended for logs, text output and
// test failures.
func (value *Value) String() string {
	encoded, err := MarshalJSON(value)
	if err != nil {
		return "<" + value.Kind().String() + ": " + err.Error() + ">"
	}
	return string(encoded)
}
