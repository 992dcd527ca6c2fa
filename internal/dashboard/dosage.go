package dashboard

import (
	"sort"
	"strings"
)

// TopSchedulesLimit caps DosageStats.TopSchedules.
const TopSchedulesLimit = 20

// Medication is the only part of a medication record the analyzer reads.
type Medication struct {
	Posologias string `json:"posologias"`
}

// ScheduleCount is one entry of the schedule frequency table.
type ScheduleCount struct {
	Schedule    string `json:"schedule"`
	Occurrences int    `json:"occurrences"`
}

// SizeCategories counts medications by how many schedules they list.
type SizeCategories struct {
	One     int `json:"1"`
	Two     int `json:"2"`
	ThreeUp int `json:"3+"`
}

// DosageStats summarises the dosage schedules of a medication catalogue.
type DosageStats struct {
	Total            int             `json:"total"`
	UniqueSchedules  int             `json:"unique_schedules"`
	AveragePerRecord string          `json:"average_per_record"`
	FreeFormCount    int             `json:"free_form_count"`
	BySizeCategory   SizeCategories  `json:"by_size_category"`
	TopSchedules     []ScheduleCount `json:"top_schedules"`
}

// EmptyDosageStats is the zeroed summary used when no medications are known.
func EmptyDosageStats() DosageStats {
	return DosageStats{AveragePerRecord: "0", TopSchedules: []ScheduleCount{}}
}

// SplitSchedules splits a posologias field on ';', trimming each entry and
// dropping empty ones.
func SplitSchedules(posologias string) []string {
	parts := strings.Split(posologias, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Analyze computes DosageStats over meds. Schedules are compared after
// lower-casing only; no other normalisation is applied.
func Analyze(meds []Medication) DosageStats {
	stats := EmptyDosageStats()
	stats.Total = len(meds)

	counts := map[string]int{}
	var order []string
	totalSchedules := 0

	for _, m := range meds {
		list := SplitSchedules(m.Posologias)
		switch n := len(list); {
		case n == 0:
			stats.FreeFormCount++
		case n == 1:
			stats.BySizeCategory.One++
		case n == 2:
			stats.BySizeCategory.Two++
		default:
			stats.BySizeCategory.ThreeUp++
		}
		for _, s := range list {
			k := strings.ToLower(s)
			if _, seen := counts[k]; !seen {
				order = append(order, k)
			}
			counts[k]++
		}
		totalSchedules += len(list)
	}

	stats.UniqueSchedules = len(counts)
	stats.AveragePerRecord = formatAverage(float64(totalSchedules), float64(stats.Total))

	top := make([]ScheduleCount, 0, len(order))
	for _, k := range order {
		top = append(top, ScheduleCount{Schedule: k, Occurrences: counts[k]})
	}
	// Stable keeps first-seen order among equal counts.
	sort.SliceStable(top, func(i, j int) bool { return top[i].Occurrences > top[j].Occurrences })
	if len(top) > TopSchedulesLimit {
		top = top[:TopSchedulesLimit]
	}
	stats.TopSchedules = top

	return stats
}

// MedicationsFromRows pulls the posologias field out of raw medication rows.
// Missing or non-string values count as free-form.
func MedicationsFromRows(rows []Row) []Medication {
	meds := make([]Medication, 0, len(rows))
	for _, r := range rows {
		p, _ := r["posologias"].(string)
		meds = append(meds, Medication{Posologias: p})
	}
	return meds
}

// SizeSlices is the donut of medications by schedule count.
func SizeSlices(s DosageStats) []DonutSlice {
	return []DonutSlice{
		{Label: "1 pos.", Total: float64(s.BySizeCategory.One), Fill: Chart1},
		{Label: "2 pos.", Total: float64(s.BySizeCategory.Two), Fill: Chart2},
		{Label: "3+ pos.", Total: float64(s.BySizeCategory.ThreeUp), Fill: Chart3},
	}
}
