package dashboard

import (
	"testing"
	"time"
)

func TestDateRange_QuerySingleDay(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r, err := ParseRange("2024-03-05", "2024-03-05", now, DefaultRangeDays)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.Query(); got != "?ini=2024-03-05&fim=2024-03-05" {
		t.Errorf("unexpected query: %s", got)
	}
}

func TestDateRange_QueryUsesLocalCalendarDate(t *testing.T) {
	brt := time.FixedZone("BRT", -3*60*60)
	late := time.Date(2024, 3, 5, 23, 30, 0, 0, brt)
	r, err := NewDateRange(late, late)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.Query(); got != "?ini=2024-03-05&fim=2024-03-05" {
		t.Errorf("expected local date, got %s", got)
	}
}

func TestNewDateRange_RejectsInverted(t *testing.T) {
	from := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if _, err := NewDateRange(from, to); err == nil {
		t.Error("expected error for from after to")
	}

	// Same calendar day, later clock time.
	if _, err := NewDateRange(to.Add(20*time.Hour), to.Add(time.Hour)); err != nil {
		t.Errorf("unexpected error for same-day range: %v", err)
	}
}

func TestDefaultRange(t *testing.T) {
	now := time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)
	r := DefaultRange(now, DefaultRangeDays)
	if r.From.Format(DateLayout) != "2024-03-01" || r.To.Format(DateLayout) != "2024-03-31" {
		t.Errorf("unexpected default range: %s", r)
	}
	if got := DefaultRange(now, -1); !got.From.Equal(r.From) {
		t.Errorf("expected negative days to use the default window, got %s", got)
	}
}

func TestParseRange(t *testing.T) {
	now := time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)

	r, err := ParseRange("2024-03-10", "", now, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.String() != "2024-03-10..2024-03-31" {
		t.Errorf("unexpected range: %s", r)
	}

	if _, err := ParseRange("10/03/2024", "", now, 7); err == nil {
		t.Error("expected error for malformed ini")
	}
	if _, err := ParseRange("", "2024-02-01", now, 7); err == nil {
		t.Error("expected error when fim precedes the default ini")
	}
}

func timeFixture() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}
