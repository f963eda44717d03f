package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var (
	latitudeKeys  = []string{"latitud", "latitude", "lat"}
	longitudeKeys = []string{"longitud", "longitude", "lon", "lng"}
)

// record is one flat object of a planning API answer.
type record struct {
	fields map[string]interface{}
	raw    json.RawMessage
}

func decodeRecords(payload []byte) ([]record, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("expected a JSON array: %w", err)
	}

	records := make([]record, 0, len(items))
	for i, item := range items {
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()
		fields := map[string]interface{}{}
		if err := dec.Decode(&fields); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		records = append(records, record{fields: fields, raw: item})
	}
	return records, nil
}

// str returns the first present key as a string. Numbers keep their
// literal text so long order codes are not mangled.
func (r record) str(keys ...string) string {
	for _, k := range keys {
		v, ok := r.lookup(k)
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return strings.TrimSpace(t)
		case json.Number:
			return t.String()
		default:
			return fmt.Sprint(t)
		}
	}
	return ""
}

// coord returns a coordinate from the first preferred key present, falling
// back to any key containing fragment. Unparsable values yield nil.
func (r record) coord(preferred []string, fragment string) *float64 {
	for _, k := range preferred {
		if v, ok := r.lookup(k); ok {
			return toFloat(v)
		}
	}

	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		if strings.Contains(strings.ToLower(k), fragment) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if f := toFloat(r.fields[k]); f != nil {
			return f
		}
	}
	return nil
}

// lookup matches keys case-insensitively.
func (r record) lookup(key string) (interface{}, bool) {
	if v, ok := r.fields[key]; ok {
		return v, true
	}
	for k, v := range r.fields {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// toFloat coerces numbers and numeric strings (decimal comma accepted).
func toFloat(v interface{}) *float64 {
	var f float64
	var err error
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return nil
		}
		f, err = strconv.ParseFloat(s, 64)
	case float64:
		f = t
	default:
		return nil
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
