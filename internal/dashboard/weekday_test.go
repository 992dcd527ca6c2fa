package dashboard

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestRelabel_UnknownPassesThrough(t *testing.T) {
	in := []WeekdayRow{{Dow: "Blursday", Total: 5}}
	if got := Relabel(in); !reflect.DeepEqual(got, in) {
		t.Errorf("expected %v, got %v", in, got)
	}
}

func TestRelabel_NumericAndNames(t *testing.T) {
	var rows []WeekdayRow
	payload := `[{"dow": 0, "total": 4}, {"dow": "6", "total": 1}, {"dow": "Friday", "total": 2}, {"dow": "Blursday", "total": 5}]`
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := Relabel(rows)
	want := []WeekdayRow{
		{Dow: "Dom", Total: 4},
		{Dow: "Sáb", Total: 1},
		{Dow: "Sex", Total: 2},
		{Dow: "Blursday", Total: 5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if rows[0].Dow != "0" {
		t.Error("expected input rows untouched")
	}
}

func TestWeekdayKey_IntegralFloats(t *testing.T) {
	var rows []WeekdayRow
	payload := `[{"dow": 1.0, "total": 3}, {"dow": 6e0, "total": 1}, {"dow": 2.5, "total": 2}]`
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows[0].Dow != "1" || rows[1].Dow != "6" || rows[2].Dow != "2.5" {
		t.Errorf("unexpected keys: %v", rows)
	}

	got := Relabel(rows)
	if got[0].Dow != "Seg" || got[1].Dow != "Sáb" || got[2].Dow != "2.5" {
		t.Errorf("expected Seg, Sáb and a pass-through, got %v", got)
	}
}

func TestWeekdayKey_RejectsObjects(t *testing.T) {
	var k WeekdayKey
	if err := json.Unmarshal([]byte(`{"d": 1}`), &k); err == nil {
		t.Error("expected error for object weekday")
	}
}
