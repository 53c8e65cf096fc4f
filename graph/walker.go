package graph

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/illuscio-dev/spangraph-go/beans"
	"github.com/illuscio-dev/spangraph-go/neutral"
	"github.com/illuscio-dev/spangraph-go/spanerrors"
	"github.com/illuscio-dev/spangraph-go/swaps"
	"golang.org/x/xerrors"
)

// Identity of a reference value. Length and type tell apart a slice from its
// prefix and a struct pointer from a pointer to its first field.
type visitKey struct {
	pointer   uintptr
	length    int
	valueType reflect.Type
}

// State of one serialize call.
type walker struct {
	graph    *Graph
	config   Config
	resolver swaps.Resolver
	listener Listener
	visited  map[visitKey]struct{}
	path     []string
	depth    int
}

func newWalker(graph *Graph) *walker {
	return &walker{
		graph:    graph,
		config:   graph.config,
		resolver: graph.resolver(),
		listener: graph.listener,
		visited:  make(map[visitKey]struct{}),
	}
}

// Name of the innermost path segment, reported to the listener.
func currentName(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}

// Serializes a child value under segment, prefixing errors with the segment.
func (walker *walker) child(
	segment string, value reflect.Value, descriptor *beans.TypeDescriptor,
) (*neutral.Value, error) {
	walker.path = append(walker.path, segment)
	result, err := walker.serialize(value, descriptor)
	walker.path = walker.path[:len(walker.path)-1]

	if err != nil {
		return nil, spanerrors.PrependPath(err, segment)
	}
	return result, nil
}

// Counts one more level of nesting. The returned function undoes it.
func (walker *walker) enter() (leave func(), err error) {
	walker.depth++
	leave = func() { walker.depth-- }

	if walker.config.MaxDepth > 0 && walker.depth > walker.config.MaxDepth {
		leave()
		path := spanerrors.JoinPath(walker.path)
		walker.listener.OnDepthExceeded(path)
		return nil, spanerrors.MaxDepthExceededError.New(
			fmt.Sprintf("maximum depth of %d exceeded", walker.config.MaxDepth),
			map[string]interface{}{"maxDepth": walker.config.MaxDepth},
			nil,
		)
	}
	return leave, nil
}

func isNil(value reflect.Value) bool {
	switch value.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func,
		reflect.Chan:
		return value.IsNil()
	default:
		return false
	}
}

func (walker *walker) serialize(
	value reflect.Value, descriptor *beans.TypeDescriptor,
) (*neutral.Value, error) {
	if !value.IsValid() || isNil(value) {
		return neutral.Null(), nil
	}

	if swap, ok := walker.resolver.Resolve(descriptor.Type); ok {
		return walker.serializeSwapped(swap, value)
	}

	if descriptor.IsReference() && (value.Kind() == reflect.Ptr || value.Len() > 0) {
		key := visitKey{
			pointer:   value.Pointer(),
			length:    referenceLength(value),
			valueType: value.Type(),
		}
		if _, seen := walker.visited[key]; seen {
			if walker.config.TolerateCycles {
				return neutral.Null(), nil
			}
			return nil, spanerrors.CyclicReferenceError.New(
				fmt.Sprintf("cycle through %v", value.Type()),
				map[string]interface{}{"type": value.Type().String()},
				nil,
			)
		}
		walker.visited[key] = struct{}{}
		defer delete(walker.visited, key)
	}

	switch descriptor.Category {
	case beans.CategoryNeutral:
		return value.Interface().(*neutral.Value).Clone(), nil
	case beans.CategoryBool:
		return neutral.Bool(value.Bool()), nil
	case beans.CategoryNumber:
		return serializeNumber(value), nil
	case beans.CategoryString:
		text := value.String()
		if walker.config.TrimStrings {
			text = strings.TrimSpace(text)
		}
		return neutral.String(text), nil
	case beans.CategoryPointer:
		return walker.serialize(value.Elem(), descriptor.Elem)
	case beans.CategoryAny, beans.CategoryInterface:
		return walker.serializeDynamic(value.Elem())
	case beans.CategoryCollection:
		return walker.serializeCollection(value, descriptor)
	case beans.CategoryMap:
		return walker.serializeMap(value, descriptor)
	case beans.CategoryBean:
		return walker.serializeBean(value, descriptor)
	default:
		return nil, spanerrors.TypeMismatchError.New(
			fmt.Sprintf("cannot serialize %v", value.Type()),
			map[string]interface{}{"type": value.Type().String()},
			nil,
		)
	}
}

func referenceLength(value reflect.Value) int {
	if value.Kind() == reflect.Ptr {
		return 0
	}
	return value.Len()
}

func (walker *walker) serializeSwapped(
	swap *swaps.Swap, value reflect.Value,
) (*neutral.Value, error) {
	swapped, err := swap.Forward(value)
	if err != nil {
		walker.listener.OnConversionError(currentName(walker.path), err)
		return nil, err
	}
	if swap.Swapped() == value.Type() {
		return nil, spanerrors.SwapConversionError.New(
			fmt.Sprintf("%v swaps a type to itself", swap), nil, nil,
		)
	}
	return walker.serialize(swapped, walker.graph.beans.Describe(swap.Swapped()))
}

func serializeNumber(value reflect.Value) *neutral.Value {
	switch value.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return neutral.Int(value.Int())
	case reflect.Float32, reflect.Float64:
		return neutral.Float(value.Float())
	default:
		return neutral.Uint(value.Uint())
	}
}

// Serializes the value held by an interface using its dynamic type.
func (walker *walker) serializeDynamic(dynamic reflect.Value) (*neutral.Value, error) {
	descriptor := walker.graph.beans.Describe(dynamic.Type())

	result, err := walker.serialize(dynamic, descriptor)
	if err != nil || !walker.config.AddTypeDiscriminator {
		return result, err
	}

	for descriptor.Category == beans.CategoryPointer {
		descriptor = descriptor.Elem
	}
	if descriptor.TypeName != "" && result.Kind() == neutral.KindMapping {
		result.Prepend(walker.config.DiscriminatorKey(), neutral.String(descriptor.TypeName))
	}
	return result, nil
}

func (walker *walker) serializeCollection(
	value reflect.Value, descriptor *beans.TypeDescriptor,
) (*neutral.Value, error) {
	leave, err := walker.enter()
	if err != nil {
		return nil, err
	}
	defer leave()

	sequence := neutral.Sequence()
	for i := 0; i < value.Len(); i++ {
		item, err := walker.child(spanerrors.IndexSegment(i), value.Index(i), descriptor.Elem)
		if err != nil {
			return nil, err
		}
		sequence.Append(item)
	}
	return sequence, nil
}

func (walker *walker) serializeMap(
	value reflect.Value, descriptor *beans.TypeDescriptor,
) (*neutral.Value, error) {
	leave, err := walker.enter()
	if err != nil {
		return nil, err
	}
	defer leave()

	type keyedValue struct {
		key   string
		value reflect.Value
	}

	entries := make([]keyedValue, 0, value.Len())
	iterator := value.MapRange()
	for iterator.Next() {
		key, err := mapKeyString(iterator.Key())
		if err != nil {
			return nil, err
		}
		entries = append(entries, keyedValue{key: key, value: iterator.Value()})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].key < entries[j].key
	})

	mapping := neutral.Mapping()
	for _, entry := range entries {
		item, err := walker.child(spanerrors.KeySegment(entry.key), entry.value, descriptor.Elem)
		if err != nil {
			return nil, err
		}
		mapping.Set(entry.key, item)
	}
	return mapping, nil
}

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// Renders a map key as a mapping key.
func mapKeyString(key reflect.Value) (string, error) {
	if key.Kind() == reflect.Interface && !key.IsNil() {
		key = key.Elem()
	}

	if key.Type().Implements(textMarshalerType) {
		if key.Kind() == reflect.Ptr && key.IsNil() {
			return "", nil
		}
		text, err := key.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return "", spanerrors.SwapConversionError.New(
				fmt.Sprintf("map key of %v failed to marshal", key.Type()), nil, err,
			)
		}
		return string(text), nil
	}

	switch key.Kind() {
	case reflect.String:
		return key.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(key.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(key.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr:
		return strconv.FormatUint(key.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(key.Float(), 'g', -1, 64), nil
	default:
		return fmt.Sprint(key.Interface()), nil
	}
}

func (walker *walker) serializeBean(
	value reflect.Value, descriptor *beans.TypeDescriptor,
) (*neutral.Value, error) {
	leave, err := walker.enter()
	if err != nil {
		return nil, err
	}
	defer leave()

	properties := descriptor.Properties
	if walker.config.SortProperties {
		properties = descriptor.SortedProperties()
	}

	mapping := neutral.Mapping()
	for _, property := range properties {
		propertyValue, err := property.Get(value)
		if err != nil {
			accessError := spanerrors.PropertyAccessError.New(
				fmt.Sprintf("reading %v.%v failed", descriptor, property.Name), nil, err,
			)
			walker.listener.OnConversionError(property.Name, accessError)
			if walker.config.SkipPropertyErrors {
				continue
			}
			return nil, spanerrors.PrependPath(accessError, property.Name)
		}

		if property.OmitEmpty && beans.IsEmpty(propertyValue) {
			continue
		}

		item, err := walker.child(property.Name, propertyValue, property.Descriptor)
		if err != nil {
			if walker.config.SkipPropertyErrors && isSkippable(err) {
				continue
			}
			return nil, err
		}

		if item.IsNull() && !walker.config.KeepNullProperties {
			continue
		}
		mapping.Set(property.Name, item)
	}
	return mapping, nil
}

// Reports whether a property error may be skipped under SkipPropertyErrors.
func isSkippable(err error) bool {
	var spanError *spanerrors.SpanError
	if !xerrors.As(err, &spanError) {
		return false
	}
	return spanError.IsType(spanerrors.SwapConversionError) ||
		spanError.IsType(spanerrors.PropertyAccessError)
}
