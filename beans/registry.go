package beans

import (
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/xerrors"
)

// Published registry state. Never mutated after it is stored.
type snapshot struct {
	descriptors map[reflect.Type]*TypeDescriptor
	configs     map[reflect.Type]BeanConfig
	dictionary  map[string]reflect.Type
}

/*
Registry builds and caches TypeDescriptors. Reads are lock-free: every change
publishes a new snapshot, and construction of missing descriptors is serialized by a
mutex. A Registry is safe for concurrent use.
*/
type Registry struct {
	lock    sync.Mutex
	current atomic.Value
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	registry := &Registry{}
	registry.current.Store(&snapshot{
		descriptors: make(map[reflect.Type]*TypeDescriptor),
		configs:     make(map[reflect.Type]BeanConfig),
		dictionary:  make(map[string]reflect.Type),
	})
	return registry
}

func (registry *Registry) load() *snapshot {
	return registry.current.Load().(*snapshot)
}

// Register configures the struct type of sample, which may be a struct value or a
// pointer to one.
func (registry *Registry) Register(sample interface{}, config BeanConfig) error {
	return registry.RegisterType(reflect.TypeOf(sample), config)
}

/*
RegisterType configures beanType. Property names in the config must exist on the
struct, and TypeName must not already name another type. Descriptors built before the
call are discarded so the new configuration applies everywhere.
*/
func (registry *Registry) RegisterType(beanType reflect.Type, config BeanConfig) error {
	if beanType == nil {
		return xerrors.New("cannot register nil type")
	}
	for beanType.Kind() == reflect.Ptr {
		beanType = beanType.Elem()
	}
	if beanType.Kind() != reflect.Struct {
		return xerrors.Errorf("cannot register %v: bean types must be structs", beanType)
	}

	if err := validateConfig(beanType, config); err != nil {
		return err
	}

	registry.lock.Lock()
	defer registry.lock.Unlock()

	current := registry.load()

	if config.TypeName != "" {
		existing, ok := current.dictionary[config.TypeName]
		if ok && existing != beanType {
			return xerrors.Errorf(
				"type name %q already registered for %v", config.TypeName, existing,
			)
		}
	}

	next := &snapshot{
		descriptors: make(map[reflect.Type]*TypeDescriptor),
		configs:     make(map[reflect.Type]BeanConfig, len(current.configs)+1),
		dictionary:  make(map[string]reflect.Type, len(current.dictionary)+1),
	}
	for key, value := range current.configs {
		next.configs[key] = value
	}
	for key, value := range current.dictionary {
		if value != beanType {
			next.dictionary[key] = value
		}
	}

	next.configs[beanType] = config
	if config.TypeName != "" {
		next.dictionary[config.TypeName] = beanType
	}

	registry.current.Store(next)
	return nil
}

func validateConfig(beanType reflect.Type, config BeanConfig) error {
	known := make(map[string]bool)
	for _, info := range structFields(beanType) {
		known[info.name] = true
	}
	for name, accessor := range config.Accessors {
		if accessor.Get == nil || accessor.Type == nil {
			return xerrors.Errorf("accessor %q on %v needs Get and Type", name, beanType)
		}
		known[name] = true
	}

	lists := [][]string{config.PropertyOrder, config.Ignore, config.ReadOnly}
	for _, names := range lists {
		for _, name := range names {
			if !known[name] {
				return xerrors.Errorf("%v has no property %q", beanType, name)
			}
		}
	}
	return nil
}

// Lookup returns the type registered under a discriminator type name.
func (registry *Registry) Lookup(typeName string) (reflect.Type, bool) {
	valueType, ok := registry.load().dictionary[typeName]
	return valueType, ok
}

// TypeNames lists the registered discriminator names in sorted order.
func (registry *Registry) TypeNames() []string {
	dictionary := registry.load().dictionary
	names := make([]string, 0, len(dictionary))
	for name := range dictionary {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DescribeValue returns the descriptor for the dynamic type of value.
func (registry *Registry) DescribeValue(value interface{}) *TypeDescriptor {
	return registry.Describe(reflect.TypeOf(value))
}

// Describe returns the descriptor for valueType, building and caching it on first
// use. A nil type is described as interface{}.
func (registry *Registry) Describe(valueType reflect.Type) *TypeDescriptor {
	if valueType == nil {
		valueType = anyType
	}

	if descriptor, ok := registry.load().descriptors[valueType]; ok {
		return descriptor
	}

	registry.lock.Lock()
	defer registry.lock.Unlock()

	current := registry.load()
	if descriptor, ok := current.descriptors[valueType]; ok {
		return descriptor
	}

	builder := descriptorBuilder{
		published: current,
		pending:   make(map[reflect.Type]*TypeDescriptor),
	}
	descriptor := builder.build(valueType)

	next := &snapshot{
		descriptors: make(
			map[reflect.Type]*TypeDescriptor,
			len(current.descriptors)+len(builder.pending),
		),
		configs:    current.configs,
		dictionary: current.dictionary,
	}
	for key, value := range current.descriptors {
		next.descriptors[key] = value
	}
	for key, value := range builder.pending {
		next.descriptors[key] = value
	}
	registry.current.Store(next)

	return descriptor
}

var anyType = reflect.TypeOf((*interface{})(nil)).Elem()

// Builds descriptors for a type and everything reachable from it. Descriptors enter
// pending before their children are built so recursive types resolve to themselves.
type descriptorBuilder struct {
	published *snapshot
	pending   map[reflect.Type]*TypeDescriptor
}

func (builder *descriptorBuilder) build(valueType reflect.Type) *TypeDescriptor {
	if descriptor, ok := builder.published.descriptors[valueType]; ok {
		return descriptor
	}
	if descriptor, ok := builder.pending[valueType]; ok {
		return descriptor
	}

	descriptor := &TypeDescriptor{
		Type:     valueType,
		Category: categoryOf(valueType),
	}
	builder.pending[valueType] = descriptor

	switch descriptor.Category {
	case CategoryPointer, CategoryCollection:
		descriptor.Elem = builder.build(valueType.Elem())
	case CategoryMap:
		descriptor.Key = builder.build(valueType.Key())
		descriptor.Elem = builder.build(valueType.Elem())
	case CategoryBean:
		builder.buildBean(descriptor)
	}

	return descriptor
}

func (builder *descriptorBuilder) buildBean(descriptor *TypeDescriptor) {
	config := builder.published.configs[descriptor.Type]
	descriptor.TypeName = config.TypeName

	var properties []*Property
	for _, info := range structFields(descriptor.Type) {
		if contains(config.Ignore, info.name) {
			continue
		}
		if _, replaced := config.Accessors[info.name]; replaced {
			continue
		}
		properties = append(properties, &Property{
			Name:       info.name,
			Descriptor: builder.build(info.field.Type),
			OmitEmpty:  info.tag.omitEmpty,
			ReadOnly:   info.tag.readOnly || contains(config.ReadOnly, info.name),
			index:      info.index,
		})
	}

	accessorNames := make([]string, 0, len(config.Accessors))
	for name := range config.Accessors {
		accessorNames = append(accessorNames, name)
	}
	sort.Strings(accessorNames)

	for _, name := range accessorNames {
		if contains(config.Ignore, name) {
			continue
		}
		accessor := config.Accessors[name]
		properties = append(properties, &Property{
			Name:       name,
			Descriptor: builder.build(accessor.Type),
			ReadOnly:   accessor.Set == nil || contains(config.ReadOnly, name),
			accessor:   &accessor,
		})
	}

	descriptor.Properties = orderProperties(properties, config.PropertyOrder)
	descriptor.indexProperties()
}

// Moves the properties named in order to the front.
func orderProperties(properties []*Property, order []string) []*Property {
	if len(order) == 0 {
		return properties
	}

	ordered := make([]*Property, 0, len(properties))
	used := make(map[*Property]bool)
	for _, name := range order {
		for _, property := range properties {
			if property.Name == name && !used[property] {
				ordered = append(ordered, property)
				used[property] = true
			}
		}
	}
	for _, property := range properties {
		if !used[property] {
			ordered = append(ordered, property)
		}
	}
	return ordered
}
