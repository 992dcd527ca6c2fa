package dashboard

import (
	"fmt"
	"testing"
)

func TestAnalyze_LiteralCase(t *testing.T) {
	stats := Analyze([]Medication{
		{Posologias: "2x ao dia; 1x ao deitar"},
		{Posologias: ""},
		{Posologias: "2x ao dia"},
	})

	if stats.Total != 3 {
		t.Errorf("expected total 3, got %d", stats.Total)
	}
	if stats.FreeFormCount != 1 {
		t.Errorf("expected 1 free-form record, got %d", stats.FreeFormCount)
	}
	if stats.BySizeCategory != (SizeCategories{One: 1, Two: 1, ThreeUp: 0}) {
		t.Errorf("unexpected size categories: %+v", stats.BySizeCategory)
	}
	if stats.UniqueSchedules != 2 {
		t.Errorf("expected 2 unique schedules, got %d", stats.UniqueSchedules)
	}
	if stats.AveragePerRecord != "1.0" {
		t.Errorf("expected average 1.0, got %s", stats.AveragePerRecord)
	}
	if len(stats.TopSchedules) == 0 || stats.TopSchedules[0] != (ScheduleCount{Schedule: "2x ao dia", Occurrences: 2}) {
		t.Errorf("unexpected top schedule: %+v", stats.TopSchedules)
	}
}

func TestAnalyze_Empty(t *testing.T) {
	stats := Analyze(nil)
	if stats.Total != 0 || stats.AveragePerRecord != "0" {
		t.Errorf("expected zeroed stats with average 0, got %+v", stats)
	}
	if stats.TopSchedules == nil {
		t.Error("expected non-nil top schedules")
	}
}

func TestAnalyze_TopTruncation(t *testing.T) {
	meds := make([]Medication, 0, 30)
	for i := 0; i < 30; i++ {
		meds = append(meds, Medication{Posologias: fmt.Sprintf("esquema %d", i)})
	}
	stats := Analyze(meds)
	if len(stats.TopSchedules) != TopSchedulesLimit {
		t.Fatalf("expected %d top schedules, got %d", TopSchedulesLimit, len(stats.TopSchedules))
	}
	if stats.UniqueSchedules != 30 {
		t.Errorf("expected 30 unique schedules, got %d", stats.UniqueSchedules)
	}
	if stats.TopSchedules[0].Schedule != "esquema 0" || stats.TopSchedules[19].Schedule != "esquema 19" {
		t.Errorf("expected first-seen order among ties, got %+v", stats.TopSchedules)
	}
}

func TestAnalyze_SortAndTies(t *testing.T) {
	stats := Analyze([]Medication{
		{Posologias: "x; y"},
		{Posologias: "z; y"},
		{Posologias: "w"},
	})
	var got []string
	for _, s := range stats.TopSchedules {
		got = append(got, s.Schedule)
	}
	want := []string{"y", "x", "z", "w"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestAnalyze_Normalisation(t *testing.T) {
	stats := Analyze([]Medication{
		{Posologias: "1CP AO DIA ;1cp ao dia"},
		{Posologias: "1cp  ao dia"},
		{Posologias: " ; ;"},
		{Posologias: "a;b;c;d"},
	})
	if stats.UniqueSchedules != 6 {
		t.Errorf("expected 6 unique schedules, got %d", stats.UniqueSchedules)
	}
	if stats.TopSchedules[0] != (ScheduleCount{Schedule: "1cp ao dia", Occurrences: 2}) {
		t.Errorf("expected case-folded schedule first, got %+v", stats.TopSchedules[0])
	}
	if stats.FreeFormCount != 1 || stats.BySizeCategory.ThreeUp != 1 || stats.BySizeCategory.Two != 1 {
		t.Errorf("unexpected classification: %+v free=%d", stats.BySizeCategory, stats.FreeFormCount)
	}
	// (2 + 1 + 0 + 4) / 4
	if stats.AveragePerRecord != "1.8" {
		t.Errorf("expected average 1.8, got %s", stats.AveragePerRecord)
	}
}

func TestMedicationsFromRows(t *testing.T) {
	meds := MedicationsFromRows([]Row{
		{"nome": "Dipirona", "posologias": "6/6h"},
		{"nome": "Sem campo"},
		{"posologias": 12.0},
	})
	if len(meds) != 3 || meds[0].Posologias != "6/6h" || meds[1].Posologias != "" || meds[2].Posologias != "" {
		t.Errorf("unexpected medications: %+v", meds)
	}
}

func TestSizeSlices(t *testing.T) {
	slices := SizeSlices(DosageStats{BySizeCategory: SizeCategories{One: 4, Two: 2, ThreeUp: 1}})
	if len(slices) != 3 || DonutTotal(slices) != 7 {
		t.Errorf("unexpected slices: %+v", slices)
	}
}
