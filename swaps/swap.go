/*
Package swaps converts custom Go types to and from simpler types the graph already
knows how to marshal.

A Swap pairs a forward conversion (normal type to swapped type) with a reverse
conversion. Swaps are held in a Registry and looked up by type:

	durations := swaps.New(
		func(value time.Duration) (string, error) { return value.String(), nil },
		func(text string) (time.Duration, error) { return time.ParseDuration(text) },
	)
	registry, err := swaps.NewRegistry(durations)

A swap whose normal type is an interface applies to every non-pointer type that
implements it directly or through its pointer.
*/
package swaps

import (
	"fmt"
	"reflect"

	"github.com/illuscio-dev/spangraph-go/spanerrors"
	"golang.org/x/xerrors"
)

// ForwardFunc converts a value of the normal type to the swapped type.
type ForwardFunc func(value reflect.Value) (reflect.Value, error)

// ReverseFunc converts a swapped value back. target is the concrete type the parser
// is filling, which differs from the normal type for interface swaps.
type ReverseFunc func(swapped reflect.Value, target reflect.Type) (reflect.Value, error)

// Swap is an immutable pair of conversions between a normal type and a swapped type.
type Swap struct {
	normal  reflect.Type
	swapped reflect.Type
	forward ForwardFunc
	reverse ReverseFunc
}

// NewSwap builds a swap from reflection level functions. reverse may be nil for a
// serialize-only swap.
func NewSwap(
	normal reflect.Type, swapped reflect.Type, forward ForwardFunc, reverse ReverseFunc,
) *Swap {
	return &Swap{
		normal:  normal,
		swapped: swapped,
		forward: forward,
		reverse: reverse,
	}
}

// Returns the reflect.Type of T, including when T is an interface.
func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Copies value into a new T. Invalid values leave the zero T.
func valueAs[T any](value reflect.Value) T {
	var result T
	if value.IsValid() {
		reflect.ValueOf(&result).Elem().Set(value)
	}
	return result
}

/*
New builds a swap from typed functions. N is the normal type and S the swapped type.
reverse may be nil for a serialize-only swap. If N is an interface the swap applies to
every type implementing it.
*/
func New[N any, S any](forward func(N) (S, error), reverse func(S) (N, error)) *Swap {
	normal := typeOf[N]()

	swap := &Swap{
		normal:  normal,
		swapped: typeOf[S](),
	}

	swap.forward = func(value reflect.Value) (reflect.Value, error) {
		if normal.Kind() == reflect.Interface {
			value = implementor(value, normal)
		}
		result, err := forward(valueAs[N](value))
		return reflect.ValueOf(&result).Elem(), err
	}

	if reverse != nil {
		swap.reverse = func(swapped reflect.Value, _ reflect.Type) (reflect.Value, error) {
			result, err := reverse(valueAs[S](swapped))
			return reflect.ValueOf(&result).Elem(), err
		}
	}

	return swap
}

// Returns value, or a pointer to a copy of it when only the pointer implements
// iface.
func implementor(value reflect.Value, iface reflect.Type) reflect.Value {
	if value.Type().Implements(iface) {
		return value
	}
	pointer := reflect.New(value.Type())
	pointer.Elem().Set(value)
	return pointer
}

// Normal returns the custom type the swap converts from.
func (swap *Swap) Normal() reflect.Type {
	return swap.normal
}

// Swapped returns the type values are converted to for marshalling.
func (swap *Swap) Swapped() reflect.Type {
	return swap.swapped
}

// IsInterface reports whether the swap applies to implementations of an interface.
func (swap *Swap) IsInterface() bool {
	return swap.normal.Kind() == reflect.Interface
}

// CanReverse reports whether the swap can be used by the parser.
func (swap *Swap) CanReverse() bool {
	return swap.reverse != nil
}

// Matches reports whether the swap applies to valueType.
func (swap *Swap) Matches(valueType reflect.Type) bool {
	if valueType == swap.normal {
		return true
	}
	if !swap.IsInterface() || valueType.Kind() == reflect.Ptr {
		return false
	}
	return valueType.Implements(swap.normal) ||
		reflect.PtrTo(valueType).Implements(swap.normal)
}

func (swap *Swap) String() string {
	return "swap(" + swap.normal.String() + " <-> " + swap.swapped.String() + ")"
}

// Forward converts value to the swapped type. Errors and panics raised by the
// conversion become SwapConversionError.
func (swap *Swap) Forward(value reflect.Value) (result reflect.Value, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = swap.conversionError("forward", value.Type(), panicError(recovered))
		}
	}()

	result, err = swap.forward(value)
	if err != nil {
		return reflect.Value{}, swap.conversionError("forward", value.Type(), err)
	}
	return result, nil
}

// Reverse converts swapped back into a value assignable to target. Errors and panics
// raised by the conversion become SwapConversionError.
func (swap *Swap) Reverse(
	swapped reflect.Value, target reflect.Type,
) (result reflect.Value, err error) {
	if swap.reverse == nil {
		return reflect.Value{}, spanerrors.SwapConversionError.New(
			fmt.Sprintf("%v is serialize-only", swap),
			map[string]interface{}{"type": target.String()},
			nil,
		)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			err = swap.conversionError("reverse", target, panicError(recovered))
		}
	}()

	result, err = swap.reverse(swapped, target)
	if err != nil {
		return reflect.Value{}, swap.conversionError("reverse", target, err)
	}

	fitted, err := fit(result, target)
	if err != nil {
		return reflect.Value{}, swap.conversionError("reverse", target, err)
	}
	return fitted, nil
}

func (swap *Swap) conversionError(
	direction string, valueType reflect.Type, cause error,
) *spanerrors.SpanError {
	return spanerrors.SwapConversionError.New(
		fmt.Sprintf("%v %v conversion of %v failed: %v", swap, direction, valueType, cause),
		map[string]interface{}{"type": valueType.String()},
		cause,
	)
}

func panicError(recovered interface{}) error {
	if err, ok := recovered.(error); ok {
		return xerrors.Errorf("panic: %w", err)
	}
	return xerrors.Errorf("panic: %v", recovered)
}

// Adapts the result of a reverse conversion to target.
func fit(result reflect.Value, target reflect.Type) (reflect.Value, error) {
	if !result.IsValid() {
		return reflect.Zero(target), nil
	}
	if result.Kind() == reflect.Interface {
		if result.IsNil() {
			return reflect.Zero(target), nil
		}
		result = result.Elem()
	}

	resultType := result.Type()
	switch {
	case resultType.AssignableTo(target):
		return result, nil
	case resultType.Kind() == reflect.Ptr && resultType.Elem().AssignableTo(target):
		if result.IsNil() {
			return reflect.Zero(target), nil
		}
		return result.Elem(), nil
	case target.Kind() == reflect.Ptr && resultType.AssignableTo(target.Elem()):
		pointer := reflect.New(target.Elem())
		pointer.Elem().Set(result)
		return pointer, nil
	case resultType.ConvertibleTo(target):
		return result.Convert(target), nil
	default:
		return reflect.Value{}, xerrors.Errorf("%v is not assignable to %v", resultType, target)
	}
}
