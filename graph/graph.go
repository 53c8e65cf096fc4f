/*
Package graph converts Go object graphs to and from neutral trees.

The walker (Serialize) turns any value into a *neutral.Value: scalars become numbers,
strings and booleans, slices and arrays become sequences, maps and beans become
mappings. The builder (Parse) does the reverse for a target type. Both consult the
swap registry first, so custom types can travel as simpler ones.

A Graph is immutable and safe for concurrent use. Every call keeps its own cycle set,
depth counter and path.
*/
package graph

import (
	"reflect"

	"github.com/illuscio-dev/spangraph-go/beans"
	"github.com/illuscio-dev/spangraph-go/neutral"
	"github.com/illuscio-dev/spangraph-go/spanerrors"
	"github.com/illuscio-dev/spangraph-go/swaps"
)

// Graph walks and builds object graphs with one configuration.
type Graph struct {
	config    Config
	beans     *beans.Registry
	swaps     *swaps.Registry
	overrides swaps.Resolver
	listener  Listener
}

// Option adjusts a Graph built by NewGraph.
type Option func(graph *Graph)

// WithBeans sets the type descriptor registry. Graphs sharing a registry share its
// cache and type dictionary.
func WithBeans(registry *beans.Registry) Option {
	return func(graph *Graph) {
		graph.beans = registry
	}
}

// WithSwaps sets the swap registry. The default is swaps.NewDefaultRegistry().
func WithSwaps(registry *swaps.Registry) Option {
	return func(graph *Graph) {
		graph.swaps = registry
	}
}

// WithListener sets the listener for events. The default is NopListener.
func WithListener(listener Listener) Option {
	return func(graph *Graph) {
		graph.listener = listener
	}
}

// NewGraph returns a graph for config.
func NewGraph(config Config, options ...Option) *Graph {
	graph := &Graph{
		config:   config,
		listener: NopListener{},
	}
	for _, option := range options {
		option(graph)
	}

	if graph.beans == nil {
		graph.beans = beans.NewRegistry()
	}
	if graph.swaps == nil {
		graph.swaps = swaps.NewDefaultRegistry()
	}
	if graph.listener == nil {
		graph.listener = NopListener{}
	}
	return graph
}

// Config returns the graph's configuration.
func (graph *Graph) Config() Config {
	return graph.config
}

// Beans returns the type descriptor registry.
func (graph *Graph) Beans() *beans.Registry {
	return graph.beans
}

// Swaps returns the swap registry.
func (graph *Graph) Swaps() *swaps.Registry {
	return graph.swaps
}

// WithListener returns a copy of the graph reporting to listener. The registries are
// shared.
func (graph *Graph) WithListener(listener Listener) *Graph {
	copied := *graph
	if listener == nil {
		listener = NopListener{}
	}
	copied.listener = listener
	return &copied
}

/*
WithSwapOverrides returns a copy of the graph that resolves swaps in overrides before
the registry. Use it for per-session pairings that should not change the shared
registry.
*/
func (graph *Graph) WithSwapOverrides(overrides *swaps.Registry) *Graph {
	copied := *graph
	copied.overrides = nil
	if overrides != nil {
		copied.overrides = overrides
	}
	return &copied
}

// WithConfig returns a copy of the graph using config. The registries are shared.
func (graph *Graph) WithConfig(config Config) *Graph {
	copied := *graph
	copied.config = config
	return &copied
}

func (graph *Graph) resolver() swaps.Resolver {
	return graph.swaps.WithOverrides(graph.overrides)
}

var anyType = reflect.TypeOf((*interface{})(nil)).Elem()

/*
Serialize converts value into a neutral tree. The root is treated as held in an
interface{}, so with AddTypeDiscriminator a registered bean at the root carries its
type name.
*/
func (graph *Graph) Serialize(value interface{}) (*neutral.Value, error) {
	holder := reflect.ValueOf(&value).Elem()
	return graph.SerializeValue(holder, graph.beans.Describe(anyType))
}

// SerializeValue converts value, whose static type is described by descriptor.
func (graph *Graph) SerializeValue(
	value reflect.Value, descriptor *beans.TypeDescriptor,
) (*neutral.Value, error) {
	walker := newWalker(graph)
	return walker.serialize(value, descriptor)
}

/*
Parse fills receiver, a non-nil pointer, from in. On failure receiver is left
untouched. Null yields the zero value except for bool and number targets, root or
bean property, which fail with TypeMismatchError.
*/
func (graph *Graph) Parse(in *neutral.Value, receiver interface{}) error {
	pointer := reflect.ValueOf(receiver)
	if pointer.Kind() != reflect.Ptr || pointer.IsNil() {
		return spanerrors.TypeMismatchError.New(
			"parse receiver must be a non-nil pointer",
			map[string]interface{}{"receiver": typeName(pointer)},
			nil,
		)
	}

	value, err := graph.ParseValue(in, graph.beans.Describe(pointer.Type().Elem()))
	if err != nil {
		return err
	}
	pointer.Elem().Set(value)
	return nil
}

// ParseValue builds a value of the type described by descriptor from in.
func (graph *Graph) ParseValue(
	in *neutral.Value, descriptor *beans.TypeDescriptor,
) (reflect.Value, error) {
	builder := newBuilder(graph)
	return builder.parse(in, descriptor)
}

// ParseInto builds a T from in.
func ParseInto[T any](graph *Graph, in *neutral.Value) (T, error) {
	var result T
	err := graph.Parse(in, &result)
	return result, err
}

func typeName(value reflect.Value) string {
	if !value.IsValid() {
		return "nil"
	}
	return value.Type().String()
}
