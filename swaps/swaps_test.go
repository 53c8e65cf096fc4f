package swaps_test

//revive:disable:import-shadowing reason: Disabled for assert := assert.New(), which is
// the preferred method of using multiple asserts in a test.

import (
	"errors"
	"math/big"
	"net"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/illuscio-dev/spangraph-go/spanerrors"
	"github.com/illuscio-dev/spangraph-go/spantypes"
	"github.com/illuscio-dev/spangraph-go/swaps"
	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/xerrors"
)

type Temperature float64

type Labeled interface {
	Label() string
}

type Color struct {
	Name string
}

func (color Color) Label() string {
	return "color:" + color.Name
}

type Size struct {
	Value int
}

func (size *Size) Label() string {
	return "size"
}

var celsius = swaps.New(
	func(value Temperature) (string, error) {
		return big.NewFloat(float64(value)).Text('f', 1) + "C", nil
	},
	func(text string) (Temperature, error) {
		parsed, _, err := big.ParseFloat(strings.TrimSuffix(text, "C"), 10, 64, big.ToNearestEven)
		if err != nil {
			return 0, err
		}
		value, _ := parsed.Float64()
		return Temperature(value), nil
	},
)

var labels = swaps.New(
	func(value Labeled) (string, error) {
		return value.Label(), nil
	},
	func(text string) (Labeled, error) {
		return Color{Name: strings.TrimPrefix(text, "color:")}, nil
	},
)

func TestTypedSwapRoundTrip(test *testing.T) {
	assert := assert.New(test)

	assert.Equal(reflect.TypeOf(Temperature(0)), celsius.Normal())
	assert.Equal(reflect.TypeOf(""), celsius.Swapped())
	assert.False(celsius.IsInterface())
	assert.True(celsius.CanReverse())

	swapped, err := celsius.Forward(reflect.ValueOf(Temperature(21.5)))
	assert.NoError(err)
	assert.Equal("21.5C", swapped.Interface())

	back, err := celsius.Reverse(swapped, reflect.TypeOf(Temperature(0)))
	assert.NoError(err)
	assert.Equal(Temperature(21.5), back.Interface())
}

func TestSwapFailuresAreConversionErrors(test *testing.T) {
	assert := assert.New(test)

	_, err := celsius.Reverse(reflect.ValueOf("hot"), reflect.TypeOf(Temperature(0)))
	assert.Error(err)
	assert.True(errors.Is(err, spanerrors.SwapConversionError))
	assert.NotNil(xerrors.Unwrap(err))

	panicky := swaps.New(
		func(value int) (string, error) {
			panic("boom")
		},
		nil,
	)
	assert.False(panicky.CanReverse())

	_, err = panicky.Forward(reflect.ValueOf(1))
	assert.True(errors.Is(err, spanerrors.SwapConversionError))
	assert.Contains(err.Error(), "panic: boom")

	_, err = panicky.Reverse(reflect.ValueOf("1"), reflect.TypeOf(1))
	assert.True(errors.Is(err, spanerrors.SwapConversionError))
	assert.Contains(err.Error(), "serialize-only")
}

func TestInterfaceSwapMatching(test *testing.T) {
	assert := assert.New(test)

	assert.True(labels.IsInterface())
	assert.True(labels.Matches(reflect.TypeOf(Color{})))
	// Implemented through the pointer receiver.
	assert.True(labels.Matches(reflect.TypeOf(Size{})))
	// Pointers are dereferenced by the walker instead.
	assert.False(labels.Matches(reflect.TypeOf(&Size{})))
	assert.False(labels.Matches(reflect.TypeOf(1)))

	swapped, err := labels.Forward(reflect.ValueOf(Size{Value: 1}))
	assert.NoError(err)
	assert.Equal("size", swapped.Interface())

	// Reverse adapts the interface result to the concrete target.
	back, err := labels.Reverse(reflect.ValueOf("color:red"), reflect.TypeOf(Color{}))
	assert.NoError(err)
	assert.Equal(Color{Name: "red"}, back.Interface())

	back, err = labels.Reverse(reflect.ValueOf("color:red"), reflect.TypeOf(&Color{}))
	assert.NoError(err)
	assert.Equal(&Color{Name: "red"}, back.Interface())

	_, err = labels.Reverse(reflect.ValueOf("size"), reflect.TypeOf(Size{}))
	assert.True(errors.Is(err, spanerrors.SwapConversionError))
}

func TestRegistryResolveOrder(test *testing.T) {
	assert := assert.New(test)

	colorSwap := swaps.New(
		func(value Color) (string, error) { return value.Name, nil },
		func(text string) (Color, error) { return Color{Name: text}, nil },
	)

	otherLabels := swaps.New(
		func(value interface{ Label() string }) (int, error) { return 1, nil },
		nil,
	)

	registry, err := swaps.NewRegistry(labels, otherLabels, colorSwap)
	assert.NoError(err)
	assert.Len(registry.Swaps(), 3)

	// Exact beats interface.
	swap, ok := registry.Resolve(reflect.TypeOf(Color{}))
	assert.True(ok)
	assert.Same(colorSwap, swap)

	// First registered interface swap wins.
	swap, ok = registry.Resolve(reflect.TypeOf(Size{}))
	assert.True(ok)
	assert.Same(labels, swap)

	_, ok = registry.Resolve(reflect.TypeOf(""))
	assert.False(ok)
	_, ok = registry.Resolve(nil)
	assert.False(ok)
}

func TestRegistryRejectsDuplicates(test *testing.T) {
	assert := assert.New(test)

	registry, err := swaps.NewRegistry(celsius)
	assert.NoError(err)

	another := swaps.New(
		func(value Temperature) (float64, error) { return float64(value), nil },
		nil,
	)
	err = registry.Register(another)
	assert.Error(err)

	_, err = swaps.NewRegistry(labels, labels)
	assert.Error(err)

	// A failed call registers nothing.
	err = registry.Register(labels, another)
	assert.Error(err)
	_, ok := registry.Resolve(reflect.TypeOf(Color{}))
	assert.False(ok)

	assert.Error(registry.Register(nil))
}

func TestOverridesComeFirst(test *testing.T) {
	assert := assert.New(test)

	base := swaps.NewDefaultRegistry()

	unixTime := swaps.New(
		func(value time.Time) (int64, error) { return value.Unix(), nil },
		func(seconds int64) (time.Time, error) { return time.Unix(seconds, 0).UTC(), nil },
	)
	overrides, err := swaps.NewRegistry(unixTime)
	assert.NoError(err)

	resolver := base.WithOverrides(overrides)
	swap, ok := resolver.Resolve(reflect.TypeOf(time.Time{}))
	assert.True(ok)
	assert.Same(unixTime, swap)

	swap, ok = resolver.Resolve(reflect.TypeOf(time.Second))
	assert.True(ok)
	assert.Same(swaps.DurationSwap, swap)

	assert.Equal(swaps.Resolver(base), base.WithOverrides(nil))
}

func TestDefaultSwaps(test *testing.T) {
	id := uuid.Must(uuid.FromString("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
	objectID, err := primitive.ObjectIDFromHex("5e1b2b3c4d5e6f7a8b9c0d1e")
	assert.NoError(test, err)
	moment := time.Date(2020, 1, 2, 3, 4, 5, 600, time.UTC)

	testCases := []struct {
		value    interface{}
		expected interface{}
	}{
		{moment, "2020-01-02T03:04:05.0000006Z"},
		{90 * time.Second, "1m30s"},
		{[]byte("hi"), "aGk="},
		{id, "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{objectID, "5e1b2b3c4d5e6f7a8b9c0d1e"},
		{spantypes.BinData{0xde, 0xad}, "dead"},
		{net.ParseIP("10.0.0.1"), "10.0.0.1"},
		{*big.NewInt(12345), "12345"},
	}

	registry := swaps.NewDefaultRegistry()

	for _, thisCase := range testCases {
		valueType := reflect.TypeOf(thisCase.value)

		swap, ok := registry.Resolve(valueType)
		if !assert.True(test, ok, valueType.String()) {
			continue
		}

		swapped, err := swap.Forward(reflect.ValueOf(thisCase.value))
		assert.NoError(test, err, valueType.String())
		assert.Equal(test, thisCase.expected, swapped.Interface(), valueType.String())

		back, err := swap.Reverse(swapped, valueType)
		assert.NoError(test, err, valueType.String())
		assert.Equal(test, thisCase.value, back.Interface(), valueType.String())
	}
}

func TestTextSwapNeedsUnmarshaler(test *testing.T) {
	_, err := swaps.TextSwap.Reverse(reflect.ValueOf("x"), reflect.TypeOf(Color{}))
	assert.True(test, errors.Is(err, spanerrors.SwapConversionError))
}

func TestConcurrentResolve(test *testing.T) {
	registry := swaps.NewDefaultRegistry()

	group := sync.WaitGroup{}
	for i := 0; i < 16; i++ {
		group.Add(1)
		go func() {
			defer group.Done()
			swap, ok := registry.Resolve(reflect.TypeOf(time.Time{}))
			assert.True(test, ok)
			assert.Same(test, swaps.TimeSwap, swap)
		}()
	}
	group.Wait()
}
