package encoding

import (
	"encoding/csv"
	"io"

	"github.com/illuscio-dev/spangraph-go/neutral"
	"github.com/illuscio-dev/spangraph-go/spanerrors"
)

/*
Handles text/csv. Content must serialize to a sequence of mappings, or a single
mapping, which is written as one row. The header row is the union of the mapping keys
in first-seen order. Nested values are written in their JSON form and nulls as empty
cells.

Decoding yields a sequence of mappings with String leaves. Empty cells are left out of
their row, so the graph's lenient scalar parsing can fill typed beans from them. A
single row is read as a mapping unless the receiver is a slice or array.
*/
type csvEncoder struct{}

func csvCell(value *neutral.Value) string {
	switch value.Kind() {
	case neutral.KindNull:
		return ""
	case neutral.KindString:
		text, _ := value.StringValue()
		return text
	default:
		return value.String()
	}
}

func (encoder *csvEncoder) Encode(
	engine ContentEngine, writer io.Writer, content interface{},
) error {
	tree, err := ToTree(engine, content)
	if err != nil {
		return err
	}

	rows := tree.Items()
	switch tree.Kind() {
	case neutral.KindMapping:
		rows = []*neutral.Value{tree}
	case neutral.KindSequence:
	default:
		return spanerrors.EncodingError.New(
			"csv content must be a sequence of mappings",
			map[string]interface{}{"kind": tree.Kind().String()},
			nil,
		)
	}

	var header []string
	seen := make(map[string]bool)
	for index, row := range rows {
		if row.Kind() != neutral.KindMapping {
			return spanerrors.PrependPath(
				spanerrors.EncodingError.New(
					"csv rows must be mappings",
					map[string]interface{}{"kind": row.Kind().String()},
					nil,
				),
				spanerrors.IndexSegment(index),
			)
		}
		for _, key := range row.Keys() {
			if !seen[key] {
				seen[key] = true
				header = append(header, key)
			}
		}
	}

	csvWriter := csv.NewWriter(writer)
	if err := csvWriter.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, row := range rows {
		for i, key := range header {
			cell, _ := row.Get(key)
			record[i] = csvCell(cell)
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func (encoder *csvEncoder) Decode(
	engine ContentEngine, reader io.Reader, contentReceiver interface{},
) error {
	records, err := csv.NewReader(reader).ReadAll()
	if err != nil {
		return spanerrors.ParseError.New("content is not valid csv", nil, err)
	}
	if len(records) == 0 {
		return spanerrors.ParseError.New("csv content has no header row", nil, nil)
	}

	header := records[0]
	rows := neutral.Sequence()
	for _, record := range records[1:] {
		row := neutral.Mapping()
		for i, cell := range record {
			if cell == "" {
				continue
			}
			row.Set(header[i], neutral.String(cell))
		}
		rows.Append(row)
	}

	if !isSequenceReceiver(contentReceiver) && rows.Len() == 1 {
		return FromTree(engine, rows.Index(0), contentReceiver)
	}
	return FromTree(engine, rows, contentReceiver)
}
