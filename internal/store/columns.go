package store

import (
    "encoding/json"
    "fmt"
    "math"
    "strconv"
    "strings"

    "github.com/yourorg/listing-relay/listing"
)

const (
    typeText   = "TEXT"
    typeFloat  = "DOUBLE PRECISION"
    typeBigint = "BIGINT"
    typeJSON   = "JSONB"
)

// columnTypes pins the SQL type of columns whose kind alone does not say.
var columnTypes = map[string]string{
    "zpid":                       typeBigint,
    "_type":                      typeText,
    "listing_datetime_on_zillow": typeBigint,
    "last_sold_date":             typeBigint,
    "bedrooms":                   typeBigint,
    "year_built":                 typeBigint,
    "days_on_zillow":             typeBigint,
    "tax_assessment_year":        typeBigint,
    "ssid":                       typeBigint,
    "lot_size":                   typeBigint,
    "page_view_count":            typeBigint,
    "favorite_count":             typeBigint,
    "photo_count":                typeBigint,
    "city_id":                    typeBigint,
    "state_id":                   typeBigint,
}

func sqlType(c listing.Column) string {
    if t, ok := columnTypes[c.Name]; ok { return t }
    switch c.Kind {
    case listing.Nullable, listing.Zero:
        return typeFloat
    case listing.Object, listing.Array:
        return typeJSON
    default:
        return typeText
    }
}

// Args converts a row to insert arguments matching each column's SQL type.
// Values that cannot be represented in the column type become NULL.
func Args(r listing.Row) ([]any, error) {
    values, err := r.Values()
    if err != nil { return nil, err }
    args := make([]any, len(values))
    for i, c := range listing.Columns {
        args[i] = convert(sqlType(c), values[i])
    }
    return args, nil
}

func convert(typ string, v any) any {
    if v == nil { return nil }
    switch typ {
    case typeBigint:
        f, ok := number(v)
        if !ok { return nil }
        r := math.Round(f)
        if !(r >= math.MinInt64 && r < math.MaxInt64) { return nil }
        return int64(r)
    case typeFloat:
        f, ok := number(v)
        if !ok { return nil }
        return f
    case typeJSON:
        return v // already JSON text
    default:
        return text(v)
    }
}

func number(v any) (float64, bool) {
    var f float64
    switch n := v.(type) {
    case json.Number:
        x, err := n.Float64()
        if err != nil { return 0, false }
        f = x
    case float64:
        f = n
    case int:
        f = float64(n)
    case int64:
        f = float64(n)
    case string:
        x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
        if err != nil { return 0, false }
        f = x
    default:
        return 0, false
    }
    if math.IsNaN(f) || math.IsInf(f, 0) { return 0, false }
    return f, true
}

func text(v any) any {
    switch t := v.(type) {
    case string:
        return t
    case json.Number:
        return t.String()
    case bool:
        return strconv.FormatBool(t)
    case int, int64, float64:
        return fmt.Sprint(t)
    default:
        b, err := json.Marshal(t)
        if err != nil { return nil }
        return string(b)
    }
}
