package encoding

import (
	"fmt"
	"io"
	"io/ioutil"

	"github.com/illuscio-dev/spangraph-go/neutral"
	"github.com/illuscio-dev/spangraph-go/spanerrors"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// Converts a neutral tree into yaml values. Mappings become ordered yaml.MapSlice.
func toYamlValue(tree *neutral.Value) interface{} {
	switch tree.Kind() {
	case neutral.KindSequence:
		items := make([]interface{}, tree.Len())
		for i, item := range tree.Items() {
			items[i] = toYamlValue(item)
		}
		return items
	case neutral.KindMapping:
		mapSlice := make(yaml.MapSlice, 0, tree.Len())
		for _, entry := range tree.Entries() {
			mapSlice = append(
				mapSlice, yaml.MapItem{Key: entry.Key, Value: toYamlValue(entry.Value)},
			)
		}
		return mapSlice
	default:
		return neutral.ToInterface(tree)
	}
}

/*
Captures a yaml document keeping mapping order. Mappings are read again as
yaml.MapSlice, in which nested mappings are MapSlice too. Sequences recurse so mappings
inside them keep their order.
*/
type orderedYaml struct {
	value interface{}
}

func (node *orderedYaml) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var natural interface{}
	if err := unmarshal(&natural); err != nil {
		return err
	}

	switch natural.(type) {
	case map[interface{}]interface{}:
		mapSlice := yaml.MapSlice{}
		if err := unmarshal(&mapSlice); err != nil {
			return err
		}
		if mapSlice == nil {
			mapSlice = yaml.MapSlice{}
		}
		node.value = mapSlice
	case []interface{}:
		var items []orderedYaml
		if err := unmarshal(&items); err != nil {
			return err
		}
		values := make([]interface{}, len(items))
		for i, item := range items {
			values[i] = item.value
		}
		node.value = values
	default:
		node.value = natural
	}
	return nil
}

// Converts a value produced by orderedYaml into a neutral tree.
func fromYamlValue(value interface{}) (*neutral.Value, error) {
	switch typed := value.(type) {
	case yaml.MapSlice:
		mapping := neutral.Mapping()
		for _, item := range typed {
			key := fmt.Sprint(item.Key)
			converted, err := fromYamlValue(item.Value)
			if err != nil {
				return nil, xerrors.Errorf("key %q: %w", key, err)
			}
			mapping.Set(key, converted)
		}
		return mapping, nil
	case []interface{}:
		sequence := neutral.Sequence()
		for _, item := range typed {
			converted, err := fromYamlValue(item)
			if err != nil {
				return nil, err
			}
			sequence.Append(converted)
		}
		return sequence, nil
	case nil, bool, string, int, int64, uint64, float64, map[interface{}]interface{}:
		return neutral.FromInterface(typed)
	default:
		return neutral.String(fmt.Sprint(typed)), nil
	}
}

// YAML encoder for SpanEngine. Mapping order is kept in both directions.
type yamlEncoder struct{}

func (encoder *yamlEncoder) Encode(
	engine ContentEngine, writer io.Writer, content interface{},
) error {
	tree, err := ToTree(engine, content)
	if err != nil {
		return err
	}

	marshalled, err := yaml.Marshal(toYamlValue(tree))
	if err != nil {
		return spanerrors.EncodingError.New("error writing yaml", nil, err)
	}

	_, err = writer.Write(marshalled)
	return err
}

func (encoder *yamlEncoder) Decode(
	engine ContentEngine, reader io.Reader, contentReceiver interface{},
) error {
	content, err := ioutil.ReadAll(reader)
	if err != nil {
		return err
	}

	document := orderedYaml{}
	if err := yaml.Unmarshal(content, &document); err != nil {
		return spanerrors.ParseError.New("content is not valid yaml", nil, err)
	}

	tree, err := fromYamlValue(document.value)
	if err != nil {
		return spanerrors.ParseError.New("yaml document has no neutral form", nil, err)
	}
	return FromTree(engine, tree, contentReceiver)
}
