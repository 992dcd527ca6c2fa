package statsapi

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ehr/dashboard/internal/dashboard"
)

// Querier runs a statement. *pgxpool.Pool implements it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// table is a query result with its column order intact.
type table struct {
	cols []string
	rows [][]any
}

func query(ctx context.Context, db Querier, sql string, args ...any) (table, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return table{}, err
	}
	defer rows.Close()

	var t table
	for _, fd := range rows.FieldDescriptions() {
		t.cols = append(t.cols, fd.Name)
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return table{}, err
		}
		for i := range values {
			values[i] = jsonValue(values[i])
		}
		t.rows = append(t.rows, values)
	}
	return t, rows.Err()
}

// shape renders t in the given shape.
func shape(s Shape, t table) (any, error) {
	switch s {
	case ShapeCounter:
		return counter(t)
	case ShapeRows:
		return records(t), nil
	case ShapeObject:
		recs := records(t)
		if len(recs) == 0 {
			return map[string]any{}, nil
		}
		return recs[0], nil
	default:
		return nil, fmt.Errorf("unknown shape %q", s)
	}
}

func counter(t table) (dashboard.OrderedCounts, error) {
	if len(t.cols) < 2 {
		return nil, fmt.Errorf("counter needs key and total columns, got %v", t.cols)
	}
	out := make(dashboard.OrderedCounts, 0, len(t.rows))
	for _, r := range t.rows {
		key := "ND"
		if r[0] != nil {
			key = fmt.Sprint(r[0])
		}
		v, ok := number(r[1])
		if !ok {
			return nil, fmt.Errorf("counter total for %q is %T, not a number", key, r[1])
		}
		out = append(out, dashboard.Count{Key: key, Value: v})
	}
	return out, nil
}

func records(t table) []map[string]any {
	out := make([]map[string]any, 0, len(t.rows))
	for _, r := range t.rows {
		m := make(map[string]any, len(t.cols))
		for i, c := range t.cols {
			m[c] = r[i]
		}
		out = append(out, m)
	}
	return out
}

// jsonValue converts driver values that do not marshal as plain JSON.
func jsonValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return v
	}
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int16:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	default:
		return 0, false
	}
}
