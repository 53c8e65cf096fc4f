package graph

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/illuscio-dev/spangraph-go/beans"
	"github.com/illuscio-dev/spangraph-go/neutral"
	"github.com/illuscio-dev/spangraph-go/spanerrors"
	"github.com/illuscio-dev/spangraph-go/swaps"
)

// State of one parse call.
type builder struct {
	graph    *Graph
	config   Config
	resolver swaps.Resolver
	listener Listener
	path     []string
	depth    int
}

func newBuilder(graph *Graph) *builder {
	return &builder{
		graph:    graph,
		config:   graph.config,
		resolver: graph.resolver(),
		listener: graph.listener,
	}
}

func (builder *builder) child(
	segment string, in *neutral.Value, descriptor *beans.TypeDescriptor,
) (reflect.Value, error) {
	builder.path = append(builder.path, segment)
	result, err := builder.parse(in, descriptor)
	builder.path = builder.path[:len(builder.path)-1]

	if err != nil {
		return reflect.Value{}, spanerrors.PrependPath(err, segment)
	}
	return result, nil
}

func (builder *builder) enter() (leave func(), err error) {
	builder.depth++
	leave = func() { builder.depth-- }

	if builder.config.MaxDepth > 0 && builder.depth > builder.config.MaxDepth {
		leave()
		builder.listener.OnDepthExceeded(spanerrors.JoinPath(builder.path))
		return nil, spanerrors.MaxDepthExceededError.New(
			fmt.Sprintf("maximum depth of %d exceeded", builder.config.MaxDepth),
			map[string]interface{}{"maxDepth": builder.config.MaxDepth},
			nil,
		)
	}
	return leave, nil
}

func mismatch(in *neutral.Value, target reflect.Type, detail string) error {
	message := fmt.Sprintf("cannot parse %v into %v", in.Kind(), target)
	if detail != "" {
		message += ": " + detail
	}
	return spanerrors.TypeMismatchError.New(
		message,
		map[string]interface{}{
			"kind":   in.Kind().String(),
			"target": target.String(),
		},
		nil,
	)
}

func (builder *builder) parse(
	in *neutral.Value, descriptor *beans.TypeDescriptor,
) (reflect.Value, error) {
	target := descriptor.Type

	if descriptor.Category == beans.CategoryNeutral {
		return reflect.ValueOf(in.Clone()), nil
	}

	swap, hasSwap := builder.resolver.Resolve(target)

	if in.IsNull() {
		if !hasSwap &&
			(descriptor.Category == beans.CategoryBool ||
				descriptor.Category == beans.CategoryNumber) {
			return reflect.Value{}, mismatch(in, target, "")
		}
		return reflect.Zero(target), nil
	}

	if hasSwap {
		return builder.parseSwapped(in, swap, target)
	}

	switch descriptor.Category {
	case beans.CategoryBool:
		return builder.parseBool(in, target)
	case beans.CategoryNumber:
		return builder.parseNumber(in, target)
	case beans.CategoryString:
		return builder.parseString(in, target)
	case beans.CategoryPointer:
		elem, err := builder.parse(in, descriptor.Elem)
		if err != nil {
			return reflect.Value{}, err
		}
		pointer := reflect.New(target.Elem())
		pointer.Elem().Set(elem)
		return pointer, nil
	case beans.CategoryCollection:
		return builder.parseCollection(in, descriptor)
	case beans.CategoryMap:
		return builder.parseMap(in, descriptor)
	case beans.CategoryBean:
		return builder.parseBean(in, descriptor)
	case beans.CategoryAny:
		return builder.parseAny(in, target)
	case beans.CategoryInterface:
		return builder.parseInterface(in, target)
	default:
		return reflect.Value{}, mismatch(in, target, "unsupported type")
	}
}

func (builder *builder) parseSwapped(
	in *neutral.Value, swap *swaps.Swap, target reflect.Type,
) (reflect.Value, error) {
	if swap.Swapped() == target {
		return reflect.Value{}, spanerrors.SwapConversionError.New(
			fmt.Sprintf("%v swaps a type to itself", swap), nil, nil,
		)
	}

	swapped, err := builder.parse(in, builder.graph.beans.Describe(swap.Swapped()))
	if err != nil {
		return reflect.Value{}, err
	}

	result, err := swap.Reverse(swapped, target)
	if err != nil {
		builder.listener.OnConversionError(currentName(builder.path), err)
		return reflect.Value{}, err
	}
	return result, nil
}

func (builder *builder) parseBool(in *neutral.Value, target reflect.Type) (reflect.Value, error) {
	var parsed bool

	switch in.Kind() {
	case neutral.KindBool:
		parsed, _ = in.BoolValue()
	case neutral.KindString:
		text, _ := in.StringValue()
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "true":
			parsed = true
		case "false":
			parsed = false
		default:
			return reflect.Value{}, mismatch(in, target, fmt.Sprintf("%q is not a boolean", text))
		}
	default:
		return reflect.Value{}, mismatch(in, target, "")
	}

	result := reflect.New(target).Elem()
	result.SetBool(parsed)
	return result, nil
}

func (builder *builder) parseNumber(in *neutral.Value, target reflect.Type) (reflect.Value, error) {
	var number neutral.Number

	switch in.Kind() {
	case neutral.KindNumber:
		number, _ = in.NumberValue()
	case neutral.KindString:
		text, _ := in.StringValue()
		parsed, err := neutral.ParseNumber(strings.TrimSpace(text))
		if err != nil {
			return reflect.Value{}, mismatch(in, target, fmt.Sprintf("%q is not a number", text))
		}
		number = parsed
	default:
		return reflect.Value{}, mismatch(in, target, "")
	}

	result := reflect.New(target).Elem()

	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !number.IsInteger() {
			return reflect.Value{}, mismatch(in, target, number.String()+" is not an integer")
		}
		signed, ok := number.Int64()
		if !ok || result.OverflowInt(signed) {
			return reflect.Value{}, mismatch(in, target, number.String()+" overflows")
		}
		result.SetInt(signed)
	case reflect.Float32, reflect.Float64:
		float := number.Float64()
		if result.OverflowFloat(float) {
			return reflect.Value{}, mismatch(in, target, number.String()+" overflows")
		}
		result.SetFloat(float)
	default:
		if !number.IsInteger() {
			return reflect.Value{}, mismatch(in, target, number.String()+" is not an integer")
		}
		unsigned, ok := number.Uint64()
		if !ok || result.OverflowUint(unsigned) {
			return reflect.Value{}, mismatch(in, target, number.String()+" overflows")
		}
		result.SetUint(unsigned)
	}

	return result, nil
}

func (builder *builder) parseString(in *neutral.Value, target reflect.Type) (reflect.Value, error) {
	var text string

	switch in.Kind() {
	case neutral.KindString:
		text, _ = in.StringValue()
	case neutral.KindNumber:
		number, _ := in.NumberValue()
		text = number.String()
	case neutral.KindBool:
		flag, _ := in.BoolValue()
		if flag {
			text = "true"
		} else {
			text = "false"
		}
	default:
		return reflect.Value{}, mismatch(in, target, "")
	}

	if builder.config.TrimStrings {
		text = strings.TrimSpace(text)
	}

	result := reflect.New(target).Elem()
	result.SetString(text)
	return result, nil
}

func (builder *builder) parseCollection(
	in *neutral.Value, descriptor *beans.TypeDescriptor,
) (reflect.Value, error) {
	target := descriptor.Type
	if in.Kind() != neutral.KindSequence {
		return reflect.Value{}, mismatch(in, target, "")
	}

	leave, err := builder.enter()
	if err != nil {
		return reflect.Value{}, err
	}
	defer leave()

	var result reflect.Value
	if descriptor.IsArray() {
		if in.Len() != target.Len() {
			return reflect.Value{}, mismatch(
				in, target, fmt.Sprintf("sequence has %d items", in.Len()),
			)
		}
		result = reflect.New(target).Elem()
	} else {
		result = reflect.MakeSlice(target, in.Len(), in.Len())
	}

	for i, item := range in.Items() {
		parsed, err := builder.child(spanerrors.IndexSegment(i), item, descriptor.Elem)
		if err != nil {
			return reflect.Value{}, err
		}
		result.Index(i).Set(parsed)
	}
	return result, nil
}

func (builder *builder) parseMap(
	in *neutral.Value, descriptor *beans.TypeDescriptor,
) (reflect.Value, error) {
	target := descriptor.Type
	if in.Kind() != neutral.KindMapping {
		return reflect.Value{}, mismatch(in, target, "")
	}

	leave, err := builder.enter()
	if err != nil {
		return reflect.Value{}, err
	}
	defer leave()

	result := reflect.MakeMapWithSize(target, in.Len())
	for _, entry := range in.Entries() {
		segment := spanerrors.KeySegment(entry.Key)

		key, err := builder.child(segment, neutral.String(entry.Key), descriptor.Key)
		if err != nil {
			return reflect.Value{}, err
		}

		value, err := builder.child(segment, entry.Value, descriptor.Elem)
		if err != nil {
			return reflect.Value{}, err
		}
		result.SetMapIndex(key, value)
	}
	return result, nil
}

func (builder *builder) parseBean(
	in *neutral.Value, descriptor *beans.TypeDescriptor,
) (reflect.Value, error) {
	target := descriptor.Type
	if in.Kind() != neutral.KindMapping {
		return reflect.Value{}, mismatch(in, target, "")
	}

	leave, err := builder.enter()
	if err != nil {
		return reflect.Value{}, err
	}
	defer leave()

	discriminatorKey := builder.config.DiscriminatorKey()
	bean := reflect.New(target).Elem()

	for _, entry := range in.Entries() {
		property, ok := descriptor.Property(entry.Key)
		if !ok {
			if entry.Key == discriminatorKey {
				continue
			}
			builder.listener.OnUnknownProperty(entry.Key, bean.Addr().Interface())
			if builder.config.IgnoreUnknownProperties {
				continue
			}
			unknown := spanerrors.UnknownPropertyError.New(
				fmt.Sprintf("%v has no property %q", target, entry.Key),
				map[string]interface{}{"property": entry.Key, "type": target.String()},
				nil,
			)
			return reflect.Value{}, spanerrors.PrependPath(unknown, entry.Key)
		}

		if !property.CanWrite() {
			continue
		}

		value, err := builder.child(entry.Key, entry.Value, property.Descriptor)
		if err != nil {
			return reflect.Value{}, err
		}

		if err := property.Set(bean, value); err != nil {
			accessError := spanerrors.PropertyAccessError.New(
				fmt.Sprintf("writing %v.%v failed", target, property.Name), nil, err,
			)
			builder.listener.OnConversionError(property.Name, accessError)
			return reflect.Value{}, spanerrors.PrependPath(accessError, entry.Key)
		}
	}

	return bean, nil
}

// Returns the registered type named by the discriminator of in, if any.
func (builder *builder) discriminated(in *neutral.Value) (reflect.Type, bool) {
	if in.Kind() != neutral.KindMapping {
		return nil, false
	}
	name, ok := in.Get(builder.config.DiscriminatorKey())
	if !ok {
		return nil, false
	}
	text, ok := name.StringValue()
	if !ok {
		return nil, false
	}
	return builder.graph.beans.Lookup(text)
}

// Builds an interface{} value: a registered bean when in names one, else a natural
// Go tree.
func (builder *builder) parseAny(in *neutral.Value, target reflect.Type) (reflect.Value, error) {
	result := reflect.New(target).Elem()

	if beanType, ok := builder.discriminated(in); ok {
		bean, err := builder.parse(in, builder.graph.beans.Describe(beanType))
		if err != nil {
			return reflect.Value{}, err
		}
		result.Set(bean)
		return result, nil
	}

	natural, err := builder.natural(in)
	if err != nil {
		return reflect.Value{}, err
	}
	if natural != nil {
		result.Set(reflect.ValueOf(natural))
	}
	return result, nil
}

// Converts in to nil, bool, int64, uint64, float64, string, []interface{} and
// map[string]interface{}, honouring TrimStrings and MaxDepth.
func (builder *builder) natural(in *neutral.Value) (interface{}, error) {
	switch in.Kind() {
	case neutral.KindString:
		text, _ := in.StringValue()
		if builder.config.TrimStrings {
			text = strings.TrimSpace(text)
		}
		return text, nil
	case neutral.KindSequence, neutral.KindMapping:
		leave, err := builder.enter()
		if err != nil {
			return nil, err
		}
		defer leave()
	default:
		return neutral.ToInterface(in), nil
	}

	if in.Kind() == neutral.KindSequence {
		items := make([]interface{}, in.Len())
		for i, item := range in.Items() {
			converted, err := builder.naturalChild(spanerrors.IndexSegment(i), item)
			if err != nil {
				return nil, err
			}
			items[i] = converted
		}
		return items, nil
	}

	mapping := make(map[string]interface{}, in.Len())
	for _, entry := range in.Entries() {
		converted, err := builder.naturalChild(spanerrors.KeySegment(entry.Key), entry.Value)
		if err != nil {
			return nil, err
		}
		mapping[entry.Key] = converted
	}
	return mapping, nil
}

func (builder *builder) naturalChild(segment string, in *neutral.Value) (interface{}, error) {
	builder.path = append(builder.path, segment)
	converted, err := builder.natural(in)
	builder.path = builder.path[:len(builder.path)-1]

	if err != nil {
		return nil, spanerrors.PrependPath(err, segment)
	}
	return converted, nil
}

// Builds a non-empty interface value from a discriminated mapping. The bean value is
// used when it implements the interface, otherwise a pointer to it.
func (builder *builder) parseInterface(
	in *neutral.Value, target reflect.Type,
) (reflect.Value, error) {
	beanType, ok := builder.discriminated(in)
	if !ok {
		return reflect.Value{}, mismatch(
			in, target, "no registered "+builder.config.DiscriminatorKey()+" names a concrete type",
		)
	}

	concrete := beanType
	if !concrete.Implements(target) {
		concrete = reflect.PtrTo(beanType)
		if !concrete.Implements(target) {
			return reflect.Value{}, mismatch(
				in, target, beanType.String()+" does not implement it",
			)
		}
	}

	value, err := builder.parse(in, builder.graph.beans.Describe(concrete))
	if err != nil {
		return reflect.Value{}, err
	}

	result := reflect.New(target).Elem()
	result.Set(value)
	return result, nil
}
