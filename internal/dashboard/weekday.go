package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

var weekdayLabels = map[string]string{
	"0":         "Dom",
	"1":         "Seg",
	"2":         "Ter",
	"3":         "Qua",
	"4":         "Qui",
	"5":         "Sex",
	"6":         "Sáb",
	"Sunday":    "Dom",
	"Monday":    "Seg",
	"Tuesday":   "Ter",
	"Wednesday": "Qua",
	"Thursday":  "Qui",
	"Friday":    "Sex",
	"Saturday":  "Sáb",
}

// WeekdayKey is a day-of-week identifier. The backend sends either a number
// (0 = Sunday) or an English weekday name; both decode to a string.
type WeekdayKey string

func (k *WeekdayKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = WeekdayKey(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("weekday: %w", err)
	}
	// 1, 1.0 and 1e0 all name Monday.
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("weekday: %w", err)
	}
	*k = WeekdayKey(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// WeekdayRow is one bar of the appointments-by-weekday chart.
type WeekdayRow struct {
	Dow   WeekdayKey `json:"dow"`
	Total float64    `json:"total" validate:"gte=0"`
}

// Relabel maps each row's day identifier to its short Portuguese label.
// Unknown identifiers pass through unchanged.
func Relabel(rows []WeekdayRow) []WeekdayRow {
	out := make([]WeekdayRow, len(rows))
	for i, r := range rows {
		out[i] = r
		if l, ok := weekdayLabels[string(r.Dow)]; ok {
			out[i].Dow = WeekdayKey(l)
		}
	}
	return out
}
