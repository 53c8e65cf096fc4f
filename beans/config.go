package beans

import (
	"reflect"
)

// Accessor is a computed bean property. Both functions receive a pointer to the bean.
type Accessor struct {
	// Value type of the property.
	Type reflect.Type

	// Reads the property. Required.
	Get func(bean interface{}) (interface{}, error)

	// Writes the property. A nil Set makes the property read-only.
	Set func(bean interface{}, value interface{}) error
}

/*
BeanConfig adjusts how a struct is marshalled. It is supplied once, at registration,
and applies to every descriptor built for the type afterwards.
*/
type BeanConfig struct {
	// Discriminator value for the type. Also registers the type in the dictionary used
	// to parse into interface targets.
	TypeName string

	// Property names to emit first, in this order. Properties not listed follow in
	// declaration order.
	PropertyOrder []string

	// Properties to leave out entirely.
	Ignore []string

	// Properties that are serialized but never set by the parser.
	ReadOnly []string

	// Computed properties by name. An accessor replaces a field of the same name.
	Accessors map[string]Accessor
}

func contains(values []string, value string) bool {
	for _, thisValue := range values {
		if thisValue == value {
			return true
		}
	}
	return false
}
