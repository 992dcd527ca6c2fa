package statsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/dashboard"
)

// fakeRows is an in-memory pgx.Rows.
type fakeRows struct {
	cols []string
	data [][]any
	i    int
}

func (r *fakeRows) Close() {}
func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) RawValues() [][]byte { return nil }
func (r *fakeRows) Conn() *pgx.Conn { return nil }
func (r *fakeRows) Scan(...any) error { return errors.New("not supported") }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.cols))
	for i, c := range r.cols {
		fds[i].Name = c
	}
	return fds
}

func (r *fakeRows) Next() bool {
	r.i++
	return r.i <= len(r.data)
}

func (r *fakeRows) Values() ([]any, error) {
	row := r.data[r.i-1]
	out := make([]any, len(row))
	copy(out, row)
	return out, nil
}

type call struct {
	sql  string
	args []any
}

// fakeDB answers queries by the first SQL fragment they contain.
type fakeDB struct {
	results map[string]*fakeRows
	calls   []call
}

func (db *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.calls = append(db.calls, call{sql, args})
	for frag, rows := range db.results {
		if strings.Contains(sql, frag) {
			return &fakeRows{cols: rows.cols, data: rows.data}, nil
		}
	}
	return nil, errors.New("relation does not exist")
}

func TestEndpoints_MatchDashboardSpecs(t *testing.T) {
	specs := dashboard.DefaultRequestSpecs()
	if len(Endpoints) != len(specs) {
		t.Fatalf("expected %d endpoints, got %d", len(specs), len(Endpoints))
	}
	for _, s := range specs {
		ep := FindEndpoint(s.Path)
		if ep == nil {
			t.Errorf("no endpoint for %s", s.Path)
			continue
		}
		if ep.RangeSensitive != s.RangeSensitive {
			t.Errorf("%s: range sensitivity mismatch", s.Path)
		}
		if ep.SQL == "" || ep.Description == "" {
			t.Errorf("%s: missing SQL or description", s.Path)
		}
		if ep.RangeSensitive && !strings.Contains(ep.SQL, "$2") {
			t.Errorf("%s: range sensitive query must take the range", s.Path)
		}
	}
	if FindEndpoint("/nada") != nil {
		t.Error("expected nil for unknown endpoint")
	}
}

func TestShape_CounterKeepsRowOrder(t *testing.T) {
	tb := table{cols: []string{"chave", "total"}, rows: [][]any{{"60+", int64(2)}, {"0-17", int64(5)}, {nil, int64(1)}}}
	v, err := shape(ShapeCounter, tb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := json.Marshal(v)
	if string(b) != `{"60+":2,"0-17":5,"ND":1}` {
		t.Errorf("unexpected counter JSON: %s", b)
	}

	if _, err := shape(ShapeCounter, table{cols: []string{"chave", "total"}, rows: [][]any{{"a", "x"}}}); err == nil {
		t.Error("expected error for non-numeric total")
	}
	if _, err := shape(ShapeCounter, table{cols: []string{"chave"}}); err == nil {
		t.Error("expected error for a single column")
	}
}

func TestShape_RowsAndObject(t *testing.T) {
	tb := table{cols: []string{"uf", "total"}, rows: [][]any{{"SP", int64(3)}}}
	v, _ := shape(ShapeRows, tb)
	if rows := v.([]map[string]any); len(rows) != 1 || rows[0]["uf"] != "SP" {
		t.Errorf("unexpected rows: %v", v)
	}

	v, _ = shape(ShapeRows, table{cols: []string{"uf"}})
	if rows := v.([]map[string]any); rows == nil || len(rows) != 0 {
		t.Errorf("expected empty non-nil rows, got %#v", v)
	}

	v, _ = shape(ShapeObject, table{cols: []string{"total"}})
	if obj := v.(map[string]any); len(obj) != 0 {
		t.Errorf("expected empty object, got %v", obj)
	}
}

func TestJSONValue(t *testing.T) {
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	if jsonValue(at) != "2024-03-05T10:00:00Z" {
		t.Errorf("unexpected time value: %v", jsonValue(at))
	}
	if jsonValue([]byte("abc")) != "abc" {
		t.Error("expected bytes as string")
	}
	if jsonValue(int64(4)) != int64(4) {
		t.Error("expected ints untouched")
	}
}

func newTestHandler(db Querier) (*Handler, *echo.Echo) {
	h := NewHandler(db, dashboard.DefaultRangeDays, zerolog.Nop())
	h.now = func() time.Time { return time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC) }
	e := echo.New()
	h.RegisterRoutes(e.Group(""))
	return h, e
}

func TestHandler_CounterEndpoint(t *testing.T) {
	db := &fakeDB{results: map[string]*fakeRows{
		"FROM feedback": {cols: []string{"chave", "total"}, data: [][]any{{"1", int64(1)}, {"5", int64(3)}}},
	}}
	_, e := newTestHandler(db)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feedback-notas?ini=2024-03-01&fim=2024-03-15", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.TrimSpace(rec.Body.String()) != `{"1":1,"5":3}` {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
	if len(db.calls) != 1 || db.calls[0].args[0] != "2024-03-01" || db.calls[0].args[1] != "2024-03-15" {
		t.Errorf("expected the range as query arguments, got %+v", db.calls)
	}
}

func TestHandler_CompositeEndpoint(t *testing.T) {
	db := &fakeDB{results: map[string]*fakeRows{
		"AS espera":         {cols: []string{"total", "espera", "duracao"}, data: [][]any{{int64(4), 10.5, 30.0}}},
		"GROUP BY status":   {cols: []string{"status", "total"}, data: [][]any{{"Confirmada", int64(4)}}},
		"AS tipo":           {cols: []string{"tipo", "total"}, data: nil},
		"AS rotulo":         {cols: []string{"rotulo", "total"}, data: [][]any{{"01/03", int64(4)}}},
		"EXTRACT(DOW":       {cols: []string{"dow", "total"}, data: [][]any{{int32(1), int64(4)}}},
		"JOIN pacientes p ON p.id = c.paciente_id WHERE c.data::date BETWEEN $1 AND $2 GROUP BY 1 ORDER BY MIN": {cols: []string{"chave", "total"}, data: [][]any{{"18-29", int64(4)}}},
		"COALESCE(p.genero": {cols: []string{"genero", "total"}, data: [][]any{{"F", int64(4)}}},
	}}
	h, _ := newTestHandler(db)

	body, err := h.Evaluate(context.Background(), *FindEndpoint("/consultas-basicos"), "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, _ := json.Marshal(body)

	// The dashboard must be able to bind what the backend serves.
	vm := dashboard.NewViewModel(dashboard.DateRange{})
	s := dashboard.Settlement{
		Spec: dashboard.RequestSpec{Name: dashboard.SectionAppointments},
	}
	s.Result.Payload = raw
	if err := vm.Apply(s); err != nil {
		t.Fatalf("dashboard rejected payload %s: %v", raw, err)
	}
	if vm.Appointments.Summary.Total != 4 || vm.Appointments.ByWeekday[0].Dow != "Seg" || vm.Appointments.ByAgeBand[0].Bucket != "18-29" {
		t.Errorf("unexpected appointments: %+v", vm.Appointments)
	}
	if len(db.calls) != 7 {
		t.Errorf("expected 7 queries, got %d", len(db.calls))
	}
}

func TestHandler_BadRange(t *testing.T) {
	_, e := newTestHandler(&fakeDB{})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pacientes-novos?ini=ontem", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_QueryFailure(t *testing.T) {
	_, e := newTestHandler(&fakeDB{})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/doencas", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestHandler_ListEndpoints(t *testing.T) {
	_, e := newTestHandler(&fakeDB{})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/endpoints", nil))

	var eps []Endpoint
	if err := json.Unmarshal(rec.Body.Bytes(), &eps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(eps) != len(Endpoints) {
		t.Errorf("expected %d endpoints, got %d", len(Endpoints), len(eps))
	}
}
