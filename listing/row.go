package listing

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Row is one flattened listing. Values are aligned with Columns; compound
// columns (Object, Array) hold their decoded structure until encoded.
type Row struct {
	values []any
}

// Get returns the value of the named column. Compound columns come back
// structured, not serialized.
func (r Row) Get(name string) (any, bool) {
	i, ok := columnIndex[name]
	if !ok || i >= len(r.values) {
		return nil, false
	}
	return r.values[i], true
}

// Values returns the row in column order with compound columns serialized to
// JSON text, the form the target table stores.
func (r Row) Values() ([]any, error) {
	out := make([]any, len(Columns))
	for i, c := range Columns {
		v, err := c.encode(r.at(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r Row) at(i int) any {
	if i < len(r.values) {
		return r.values[i]
	}
	return nil
}

// MarshalJSON writes the row as a single object keyed by column name, in
// column order, with compound columns as JSON text.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(c.Name)
		buf.Write(key)
		buf.WriteByte(':')
		v, err := c.encode(r.at(i))
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c Column) encode(v any) (any, error) {
	if c.Kind != Object && c.Kind != Array {
		return v, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", c.Name, err)
	}
	return string(b), nil
}
