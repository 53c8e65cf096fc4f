package beans

import (
	"reflect"
	"strings"

	"golang.org/x/xerrors"
)

// Property is a named, readable and possibly writable member of a bean.
type Property struct {
	// Marshalled name.
	Name string

	// Descriptor of the property's value type.
	Descriptor *TypeDescriptor

	// Empty values are left out when serializing.
	OmitEmpty bool

	// The property is serialized but never set by the parser.
	ReadOnly bool

	// Struct field index path. Nil for accessor properties.
	index []int

	accessor *Accessor
}

// CanRead reports whether the property can be read. Every property is readable.
func (property *Property) CanRead() bool {
	return true
}

// CanWrite reports whether the parser may set the property.
func (property *Property) CanWrite() bool {
	if property.ReadOnly {
		return false
	}
	if property.accessor != nil {
		return property.accessor.Set != nil
	}
	return true
}

/*
Get reads the property from bean, a struct value. The returned value is invalid when
the property sits behind a nil embedded pointer.
*/
func (property *Property) Get(bean reflect.Value) (value reflect.Value, err error) {
	if property.accessor != nil {
		return property.getAccessor(bean)
	}

	for i, fieldIndex := range property.index {
		if i > 0 {
			if bean.Kind() == reflect.Ptr {
				if bean.IsNil() {
					return reflect.Value{}, nil
				}
				bean = bean.Elem()
			}
		}
		bean = bean.Field(fieldIndex)
	}
	return bean, nil
}

// Set writes value into bean, an addressable struct value. Nil embedded pointers on
// the way to the field are allocated.
func (property *Property) Set(bean reflect.Value, value reflect.Value) error {
	if !property.CanWrite() {
		return xerrors.Errorf("property %q is read-only", property.Name)
	}
	if property.accessor != nil {
		return property.setAccessor(bean, value)
	}

	for i, fieldIndex := range property.index {
		if i > 0 {
			if bean.Kind() == reflect.Ptr {
				if bean.IsNil() {
					if !bean.CanSet() {
						return xerrors.Errorf(
							"property %q sits behind a nil pointer to unexported struct %v",
							property.Name,
							bean.Type().Elem(),
						)
					}
					bean.Set(reflect.New(bean.Type().Elem()))
				}
				bean = bean.Elem()
			}
		}
		bean = bean.Field(fieldIndex)
	}

	if !bean.CanSet() {
		return xerrors.Errorf("property %q is not settable", property.Name)
	}
	bean.Set(value)
	return nil
}

// Accessor functions receive a pointer to the bean.
func beanPointer(bean reflect.Value) interface{} {
	if bean.CanAddr() {
		return bean.Addr().Interface()
	}
	copied := reflect.New(bean.Type())
	copied.Elem().Set(bean)
	return copied.Interface()
}

func (property *Property) getAccessor(bean reflect.Value) (value reflect.Value, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			value, err = reflect.Value{}, property.accessorPanic("getter", recovered)
		}
	}()

	result, err := property.accessor.Get(beanPointer(bean))
	if err != nil {
		return reflect.Value{}, err
	}
	if result == nil {
		return reflect.Zero(property.Descriptor.Type), nil
	}

	value = reflect.ValueOf(result)
	if !value.Type().AssignableTo(property.Descriptor.Type) {
		return reflect.Value{}, xerrors.Errorf(
			"accessor %q returned %v, expected %v",
			property.Name,
			value.Type(),
			property.Descriptor.Type,
		)
	}
	return value, nil
}

func (property *Property) setAccessor(bean reflect.Value, value reflect.Value) (err error) {
	if !bean.CanAddr() {
		return xerrors.Errorf("property %q needs an addressable bean", property.Name)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			err = property.accessorPanic("setter", recovered)
		}
	}()
	return property.accessor.Set(bean.Addr().Interface(), value.Interface())
}

func (property *Property) accessorPanic(kind string, recovered interface{}) error {
	if cause, ok := recovered.(error); ok {
		return xerrors.Errorf("%s for %q panicked: %w", kind, property.Name, cause)
	}
	return xerrors.Errorf("%s for %q panicked: %v", kind, property.Name, recovered)
}

// IsEmpty reports whether value counts as empty for omitempty.
func IsEmpty(value reflect.Value) bool {
	if !value.IsValid() {
		return true
	}
	switch value.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return value.Len() == 0
	case reflect.Bool:
		return !value.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr:
		return value.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return value.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return value.IsNil()
	default:
		return false
	}
}

// Parsed form of a "bean" or "json" struct tag.
type fieldTag struct {
	name      string
	skip      bool
	omitEmpty bool
	readOnly  bool
}

func parseFieldTag(field reflect.StructField) fieldTag {
	raw, ok := field.Tag.Lookup("bean")
	if !ok {
		raw = field.Tag.Get("json")
	}
	if raw == "-" {
		return fieldTag{skip: true}
	}

	parts := strings.Split(raw, ",")
	tag := fieldTag{name: parts[0]}
	for _, option := range parts[1:] {
		switch strings.TrimSpace(option) {
		case "omitempty":
			tag.omitEmpty = true
		case "readonly":
			tag.readOnly = true
		}
	}
	return tag
}

// A struct field found while flattening embedded structs.
type fieldInfo struct {
	field reflect.StructField
	tag   fieldTag
	name  string
	index []int
}

/*
Lists the exported fields of structType in declaration order. Fields of embedded
structs without a tag name are promoted. A field at a shallower depth hides promoted
fields with the same name.
*/
func structFields(structType reflect.Type) []fieldInfo {
	var fields []fieldInfo
	depths := make(map[string]int)

	var walk func(current reflect.Type, prefix []int, depth int, visited map[reflect.Type]bool)
	walk = func(current reflect.Type, prefix []int, depth int, visited map[reflect.Type]bool) {
		if visited[current] {
			return
		}
		visited[current] = true
		defer delete(visited, current)

		for i := 0; i < current.NumField(); i++ {
			field := current.Field(i)
			tag := parseFieldTag(field)
			if tag.skip {
				continue
			}

			index := make([]int, len(prefix)+1)
			copy(index, prefix)
			index[len(prefix)] = i

			if field.Anonymous && tag.name == "" {
				embedded := field.Type
				if embedded.Kind() == reflect.Ptr {
					embedded = embedded.Elem()
				}
				if embedded.Kind() == reflect.Struct {
					walk(embedded, index, depth+1, visited)
					continue
				}
			}

			if field.PkgPath != "" {
				continue
			}

			name := tag.name
			if name == "" {
				name = field.Name
			}

			if existing, ok := depths[name]; ok && existing <= depth {
				continue
			}
			depths[name] = depth

			fields = removeField(fields, name)
			fields = append(fields, fieldInfo{
				field: field,
				tag:   tag,
				name:  name,
				index: index,
			})
		}
	}

	walk(structType, nil, 0, make(map[reflect.Type]bool))
	return fields
}

func removeField(fields []fieldInfo, name string) []fieldInfo {
	for i, info := range fields {
		if info.name == name {
			return append(fields[:i], fields[i+1:]...)
		}
	}
	return fields
}
