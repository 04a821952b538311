package listing

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Batch is the top-level payload of a dataset: each element is either a
// listing object or an array of listing objects.
type Batch []json.RawMessage

// Listing is one raw scraped record. Any key may be missing at any depth.
type Listing map[string]any

var ErrNotArray = errors.New("payload is not a JSON array")

// DecodeBatch parses a dataset payload. The payload must be a JSON array.
func DecodeBatch(raw []byte) (Batch, error) {
	var b Batch
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotArray
	}
	return b, nil
}

// Listings flattens exactly one level of nesting and decodes every listing
// object in order. Elements that are not objects are skipped.
func (b Batch) Listings() []Listing {
	out := make([]Listing, 0, len(b))
	for _, el := range b {
		el = bytes.TrimSpace(el)
		if len(el) > 0 && el[0] == '[' {
			var inner []json.RawMessage
			if err := json.Unmarshal(el, &inner); err != nil {
				continue
			}
			for _, item := range inner {
				if l, ok := decodeListing(item); ok {
					out = append(out, l)
				}
			}
			continue
		}
		if l, ok := decodeListing(el); ok {
			out = append(out, l)
		}
	}
	return out
}

func decodeListing(raw json.RawMessage) (Listing, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var l Listing
	if err := dec.Decode(&l); err != nil {
		return nil, false
	}
	return l, true
}

// Transform maps every listing of the batch to a row, preserving order.
func Transform(b Batch) []Row {
	listings := b.Listings()
	rows := make([]Row, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, Map(l))
	}
	return rows
}

// Map projects a single listing onto the column set.
func Map(l Listing) Row {
	values := make([]any, len(Columns))
	for i, c := range Columns {
		values[i] = c.resolve(l)
	}
	return Row{values: values}
}

func (c Column) resolve(l Listing) any {
	if c.Kind == Constant {
		return c.Value
	}
	v, ok := l.Lookup(c.Path...)
	switch c.Kind {
	case Text:
		if !ok {
			return ""
		}
	case Zero:
		if !ok {
			return 0
		}
	case Currency:
		if !ok {
			return DefaultCurrency
		}
	case Object:
		if !ok {
			return map[string]any{}
		}
	case Array:
		if !ok {
			return []any{}
		}
	case LotSize:
		if !ok {
			return nil
		}
		return lotSizeSquareFeet(v)
	default:
		if !ok {
			return nil
		}
	}
	return v
}

// Lookup walks path through nested objects. It reports false when any step
// is missing, null or not an object.
func (l Listing) Lookup(path ...string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	var cur any = map[string]any(l)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func lotSizeSquareFeet(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	size, ok := toFloat(m["lotSize"])
	if !ok {
		return nil
	}
	if unit, _ := m["lotSizeUnit"].(string); unit == "acres" {
		size *= SquareFeetPerAcre
	}
	return roundHalfUp(size)
}

func roundHalfUp(f float64) any {
	r := math.Floor(f + 0.5)
	// NaN and infinities fail both comparisons
	if !(r >= math.MinInt64 && r < math.MaxInt64) {
		return nil
	}
	return int64(r)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
