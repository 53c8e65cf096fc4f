package swaps

import (
	"encoding"
	"encoding/base64"
	"reflect"
	"time"

	"github.com/illuscio-dev/spangraph-go/spantypes"
	uuid "github.com/satori/go.uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/xerrors"
)

// TimeSwap renders time.Time as an RFC 3339 string with nanoseconds.
var TimeSwap = New(
	func(value time.Time) (string, error) {
		return value.Format(time.RFC3339Nano), nil
	},
	func(text string) (time.Time, error) {
		return time.Parse(time.RFC3339Nano, text)
	},
)

// DurationSwap renders time.Duration in time.Duration.String form, e.g. "1m30s".
var DurationSwap = New(
	func(value time.Duration) (string, error) {
		return value.String(), nil
	},
	time.ParseDuration,
)

// BytesSwap renders []byte as standard base64.
var BytesSwap = New(
	func(value []byte) (string, error) {
		return base64.StdEncoding.EncodeToString(value), nil
	},
	base64.StdEncoding.DecodeString,
)

// UUIDSwap renders uuid.UUID in canonical form.
var UUIDSwap = New(
	func(value uuid.UUID) (string, error) {
		return value.String(), nil
	},
	uuid.FromString,
)

// ObjectIDSwap renders a BSON ObjectID as a hex string.
var ObjectIDSwap = New(
	func(value primitive.ObjectID) (string, error) {
		return value.Hex(), nil
	},
	primitive.ObjectIDFromHex,
)

// BinDataSwap renders spantypes.BinData as a hex string.
var BinDataSwap = New(
	func(value spantypes.BinData) (string, error) {
		return value.Hex(), nil
	},
	spantypes.BinDataFromHex,
)

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// TextSwap applies to every type implementing encoding.TextMarshaler. The reverse
// conversion needs the target to implement encoding.TextUnmarshaler.
var TextSwap = NewSwap(
	textMarshalerType,
	reflect.TypeOf(""),
	func(value reflect.Value) (reflect.Value, error) {
		marshaler := implementor(value, textMarshalerType).Interface().(encoding.TextMarshaler)
		text, err := marshaler.MarshalText()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(string(text)), nil
	},
	func(swapped reflect.Value, target reflect.Type) (reflect.Value, error) {
		receiverType := target
		if receiverType.Kind() == reflect.Ptr {
			receiverType = receiverType.Elem()
		}

		pointer := reflect.New(receiverType)
		unmarshaler, ok := pointer.Interface().(encoding.TextUnmarshaler)
		if !ok {
			return reflect.Value{}, xerrors.Errorf(
				"%v does not implement %v", pointer.Type(), textUnmarshalerType,
			)
		}
		if err := unmarshaler.UnmarshalText([]byte(swapped.String())); err != nil {
			return reflect.Value{}, err
		}

		if target.Kind() == reflect.Ptr {
			return pointer, nil
		}
		return pointer.Elem(), nil
	},
)

// Defaults returns the swaps installed by NewDefaultRegistry, in resolution order.
func Defaults() []*Swap {
	return []*Swap{
		TimeSwap,
		DurationSwap,
		BytesSwap,
		UUIDSwap,
		ObjectIDSwap,
		BinDataSwap,
		TextSwap,
	}
}

// NewDefaultRegistry returns a registry holding Defaults.
func NewDefaultRegistry() *Registry {
	registry, err := NewRegistry(Defaults()...)
	if err != nil {
		// Defaults never overlap.
		panic(err)
	}
	return registry
}
