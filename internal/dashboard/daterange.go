package dashboard

import (
	"fmt"
	"net/url"
	"time"
)

// DateLayout is the date-only format exchanged with the backend.
const DateLayout = "2006-01-02"

// DefaultRangeDays is the trailing window used when no range is selected.
const DefaultRangeDays = 30

// DateRange is an inclusive calendar-date window. From is never after To.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewDateRange validates from <= to, comparing calendar dates.
func NewDateRange(from, to time.Time) (DateRange, error) {
	if dateOnly(from).After(dateOnly(to)) {
		return DateRange{}, fmt.Errorf("invalid range: %s is after %s", from.Format(DateLayout), to.Format(DateLayout))
	}
	return DateRange{From: from, To: to}, nil
}

// DefaultRange is the trailing window of days ending today.
func DefaultRange(now time.Time, days int) DateRange {
	if days < 0 {
		days = DefaultRangeDays
	}
	return DateRange{From: now.AddDate(0, 0, -days), To: now}
}

// ParseRange builds a range from ini/fim date strings. Either side may be
// empty, in which case it comes from DefaultRange.
func ParseRange(ini, fim string, now time.Time, days int) (DateRange, error) {
	r := DefaultRange(now, days)
	if ini != "" {
		t, err := time.ParseInLocation(DateLayout, ini, now.Location())
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid ini %q: %w", ini, err)
		}
		r.From = t
	}
	if fim != "" {
		t, err := time.ParseInLocation(DateLayout, fim, now.Location())
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid fim %q: %w", fim, err)
		}
		r.To = t
	}
	return NewDateRange(r.From, r.To)
}

// Query renders the range as ?ini=YYYY-MM-DD&fim=YYYY-MM-DD using each
// date's own calendar day, without converting to UTC.
func (r DateRange) Query() string {
	return "?ini=" + url.QueryEscape(r.From.Format(DateLayout)) + "&fim=" + url.QueryEscape(r.To.Format(DateLayout))
}

func (r DateRange) String() string {
	return r.From.Format(DateLayout) + ".." + r.To.Format(DateLayout)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
