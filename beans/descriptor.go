/*
Package beans describes Go types for the marshalling graph.

A TypeDescriptor is computed once per reflect.Type and cached by a Registry. It tells
the graph walker how a type is shaped: a scalar, a collection, a map, a pointer or
interface, or a bean with named properties. Beans are structs; their properties are
the exported fields plus any accessors registered through a BeanConfig.

Struct tags use the "bean" key and fall back to "json":

	type Person struct {
		Name    string `bean:"name"`
		Email   string `bean:"email,omitempty"`
		Created time.Time `bean:"created,readonly"`
		secret  string
		Skipped int `bean:"-"`
	}
*/
package beans

import (
	"reflect"
	"sort"
	"strconv"

	"github.com/illuscio-dev/spangraph-go/neutral"
)

// Category is the marshalling shape of a type.
type Category uint8

const (
	// Empty interface. Parsed into natural Go values.
	CategoryAny Category = iota
	// Non-empty interface. Parsed through the type dictionary.
	CategoryInterface
	CategoryBool
	// Every integer and float kind.
	CategoryNumber
	CategoryString
	CategoryPointer
	// Slices and arrays.
	CategoryCollection
	CategoryMap
	// Structs.
	CategoryBean
	// *neutral.Value, passed through as is.
	CategoryNeutral
	// Channels, functions, complex numbers and unsafe pointers.
	CategoryUnsupported
)

var categoryNames = [...]string{
	"Any",
	"Interface",
	"Bool",
	"Number",
	"String",
	"Pointer",
	"Collection",
	"Map",
	"Bean",
	"Neutral",
	"Unsupported",
}

func (category Category) String() string {
	if int(category) < len(categoryNames) {
		return categoryNames[category]
	}
	return "Category(" + strconv.Itoa(int(category)) + ")"
}

var neutralType = reflect.TypeOf((*neutral.Value)(nil))

/*
TypeDescriptor is the static shape of a Go type. Descriptors are immutable once a
Registry publishes them and may reference themselves through Elem or property
descriptors when the type is recursive.
*/
type TypeDescriptor struct {
	// The described type.
	Type reflect.Type

	Category Category

	// Pointer target, collection element or map value.
	Elem *TypeDescriptor

	// Map key.
	Key *TypeDescriptor

	// Bean properties in declaration order, or in the order given by
	// BeanConfig.PropertyOrder.
	Properties []*Property

	// Name written under the type discriminator key. Empty unless registered.
	TypeName string

	byName map[string]*Property
	sorted []*Property
}

// String returns the described type's name.
func (descriptor *TypeDescriptor) String() string {
	return descriptor.Type.String()
}

// Property looks up a bean property by its marshalled name.
func (descriptor *TypeDescriptor) Property(name string) (*Property, bool) {
	property, ok := descriptor.byName[name]
	return property, ok
}

// SortedProperties returns the bean properties in alphabetical order.
func (descriptor *TypeDescriptor) SortedProperties() []*Property {
	return descriptor.sorted
}

// IsArray reports whether the type is a fixed length array.
func (descriptor *TypeDescriptor) IsArray() bool {
	return descriptor.Type.Kind() == reflect.Array
}

// IsReference reports whether values of the type can take part in a reference cycle.
func (descriptor *TypeDescriptor) IsReference() bool {
	switch descriptor.Type.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice:
		return true
	default:
		return false
	}
}

// Finishes a bean descriptor once all properties are known.
func (descriptor *TypeDescriptor) indexProperties() {
	descriptor.byName = make(map[string]*Property, len(descriptor.Properties))
	for _, property := range descriptor.Properties {
		descriptor.byName[property.Name] = property
	}

	descriptor.sorted = make([]*Property, len(descriptor.Properties))
	copy(descriptor.sorted, descriptor.Properties)
	sort.SliceStable(descriptor.sorted, func(i, j int) bool {
		return descriptor.sorted[i].Name < descriptor.sorted[j].Name
	})
}

// Returns the category for a type without looking at its element types.
func categoryOf(valueType reflect.Type) Category {
	if valueType == neutralType {
		return CategoryNeutral
	}

	switch valueType.Kind() {
	case reflect.Interface:
		if valueType.NumMethod() == 0 {
			return CategoryAny
		}
		return CategoryInterface
	case reflect.Bool:
		return CategoryBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.Float32, reflect.Float64:
		return CategoryNumber
	case reflect.String:
		return CategoryString
	case reflect.Ptr:
		return CategoryPointer
	case reflect.Slice, reflect.Array:
		return CategoryCollection
	case reflect.Map:
		return CategoryMap
	case reflect.Struct:
		return CategoryBean
	default:
		return CategoryUnsupported
	}
}
