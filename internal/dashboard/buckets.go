package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Row is one flat record as returned by list endpoints and consumed by the
// export writer.
type Row = map[string]any

// DonutSlice is one slice of a donut chart.
type DonutSlice struct {
	Label string  `json:"label"`
	Total float64 `json:"total"`
	Fill  Color   `json:"fill"`
}

// BucketRow is one bar of an axis-based chart.
type BucketRow struct {
	Bucket string  `json:"bucket"`
	Total  float64 `json:"total"`
}

// TimeSeriesPoint is one point of a line/area chart. Callers own the order.
type TimeSeriesPoint struct {
	Label string  `json:"label"`
	Total float64 `json:"total"`
}

// Count is one key/value pair of a counter map.
type Count struct {
	Key   string
	Value float64
}

// OrderedCounts is a key→count JSON object that remembers the order in which
// the backend sent its keys.
type OrderedCounts []Count

// UnmarshalJSON decodes a flat object of numbers, keeping key order. A
// repeated key keeps its first position and its last value. null is a no-op.
func (o *OrderedCounts) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("counts: expected object, got %v", tok)
	}

	out := OrderedCounts{}
	index := map[string]int{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)

		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("counts: key %q: %w", key, err)
		}
		v, err := n.Float64()
		if err != nil {
			return fmt.Errorf("counts: key %q: not a number", key)
		}

		if i, seen := index[key]; seen {
			out[i].Value = v
			continue
		}
		index[key] = len(out)
		out = append(out, Count{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = out
	return nil
}

// MarshalJSON writes the counts back as an object in the same order.
func (o OrderedCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(c.Value, 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the value for key, or 0.
func (o OrderedCounts) Get(key string) float64 {
	for _, c := range o {
		if c.Key == key {
			return c.Value
		}
	}
	return 0
}

// Normalize turns a counter map into bucket rows in the map's own order.
func Normalize(counts OrderedCounts) []BucketRow {
	rows := make([]BucketRow, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, BucketRow{Bucket: c.Key, Total: c.Value})
	}
	return rows
}

// Donut builds donut slices from a counter map using cat for labels and fills.
func Donut(counts OrderedCounts, cat Categorizer) []DonutSlice {
	slices := make([]DonutSlice, 0, len(counts))
	for _, c := range counts {
		k := cat(c.Key)
		slices = append(slices, DonutSlice{Label: k.Label, Total: c.Value, Fill: k.Fill})
	}
	return slices
}

// DonutTotal is the aggregate a donut shows in its centre.
func DonutTotal(slices []DonutSlice) float64 {
	var sum float64
	for _, s := range slices {
		sum += s.Total
	}
	return sum
}
