package swaps

import (
	"reflect"
	"sync"
	"sync/atomic"

	"golang.org/x/xerrors"
)

// Resolver finds the swap that applies to a type.
type Resolver interface {
	Resolve(valueType reflect.Type) (*Swap, bool)
}

// Published registry contents. Never mutated after it is stored.
type swapSet struct {
	exact      map[reflect.Type]*Swap
	interfaces []*Swap
	ordered    []*Swap
}

/*
Registry holds at most one swap per type. Resolve never locks: Register publishes a
new set. An exact type swap beats an interface swap, and among interface swaps the
first registered wins.
*/
type Registry struct {
	lock    sync.Mutex
	current atomic.Value
}

// NewRegistry returns a registry holding swaps.
func NewRegistry(swaps ...*Swap) (*Registry, error) {
	registry := &Registry{}
	registry.current.Store(&swapSet{exact: make(map[reflect.Type]*Swap)})

	if err := registry.Register(swaps...); err != nil {
		return nil, err
	}
	return registry, nil
}

func (registry *Registry) load() *swapSet {
	return registry.current.Load().(*swapSet)
}

/*
Register adds swaps to the registry. Registering a second swap for a type already
covered, whether in this call or an earlier one, is an error and leaves the registry
unchanged.
*/
func (registry *Registry) Register(swaps ...*Swap) error {
	registry.lock.Lock()
	defer registry.lock.Unlock()

	current := registry.load()
	next := &swapSet{
		exact:      make(map[reflect.Type]*Swap, len(current.exact)+len(swaps)),
		interfaces: append([]*Swap(nil), current.interfaces...),
		ordered:    append([]*Swap(nil), current.ordered...),
	}
	for key, value := range current.exact {
		next.exact[key] = value
	}

	for _, swap := range swaps {
		if swap == nil {
			return xerrors.New("cannot register nil swap")
		}
		if existing, ok := next.exact[swap.normal]; ok {
			return xerrors.Errorf(
				"cannot register %v: %v already registered", swap, existing,
			)
		}
		next.exact[swap.normal] = swap
		if swap.IsInterface() {
			next.interfaces = append(next.interfaces, swap)
		}
		next.ordered = append(next.ordered, swap)
	}

	registry.current.Store(next)
	return nil
}

// Swaps lists the registered swaps in registration order.
func (registry *Registry) Swaps() []*Swap {
	return append([]*Swap(nil), registry.load().ordered...)
}

// Resolve returns the swap for valueType, if any.
func (registry *Registry) Resolve(valueType reflect.Type) (*Swap, bool) {
	if valueType == nil {
		return nil, false
	}

	set := registry.load()
	if swap, ok := set.exact[valueType]; ok {
		return swap, true
	}
	for _, swap := range set.interfaces {
		if swap.Matches(valueType) {
			return swap, true
		}
	}
	return nil, false
}

/*
WithOverrides returns a Resolver that consults overrides before the registry. An
override applies even when the registry holds a more specific swap for the type. A nil
overrides returns the registry itself.
*/
func (registry *Registry) WithOverrides(overrides Resolver) Resolver {
	if overrides == nil {
		return registry
	}
	return layered{overrides: overrides, base: registry}
}

type layered struct {
	overrides Resolver
	base      Resolver
}

func (resolver layered) Resolve(valueType reflect.Type) (*Swap, bool) {
	if swap, ok := resolver.overrides.Resolve(valueType); ok {
		return swap, true
	}
	return resolver.base.Resolve(valueType)
}
