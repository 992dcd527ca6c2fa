package dashboard

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/platform/backend"
)

func TestDashboard_StaleCycleIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	// Cycle A asks for January and hangs until released; cycle B asks for
	// February and answers at once.
	fetch := funcFetcher(func(_ context.Context, path string) backend.Result {
		if strings.Contains(path, "ini=2024-01-01") {
			close(started)
			<-release
			return backend.Result{Payload: []byte(`{"1": 10}`), Path: path, Attempts: 1}
		}
		return backend.Result{Payload: []byte(`{"5": 3}`), Path: path, Attempts: 1}
	})
	rec := &countingRecorder{}
	specs := []RequestSpec{{Name: SectionFeedback, Path: "/feedback-notas", RangeSensitive: true}}
	d := NewDashboard(NewAggregator(fetch, zerolog.Nop(), WithRecorder(rec)), specs, zerolog.Nop())

	rangeA, _ := ParseRange("2024-01-01", "2024-01-31", timeFixture(), DefaultRangeDays)
	rangeB, _ := ParseRange("2024-02-01", "2024-02-29", timeFixture(), DefaultRangeDays)

	type outcome struct {
		vm        ViewModel
		committed bool
	}
	doneA := make(chan outcome)
	go func() {
		vm, ok := d.Refresh(context.Background(), rangeA)
		doneA <- outcome{vm, ok}
	}()
	<-started

	vmB, committedB := d.Refresh(context.Background(), rangeB)
	if !committedB {
		t.Fatal("expected the latest cycle to commit")
	}
	close(release)

	a := <-doneA
	if a.committed {
		t.Error("expected the stale cycle to be discarded")
	}
	if a.vm.Feedback.Total != 10 {
		t.Errorf("expected the stale cycle to return its own view, got %+v", a.vm.Feedback)
	}

	cur := d.Current()
	if cur.Token != vmB.Token || cur.Feedback.Total != 3 || cur.Feedback.Average != "5.0" {
		t.Errorf("expected committed view from the latest cycle, got token=%d feedback=%+v", cur.Token, cur.Feedback)
	}
	if cur.Loading {
		t.Error("expected committed view to be settled")
	}
	if rec.discarded != 1 {
		t.Errorf("expected 1 discarded cycle, got %d", rec.discarded)
	}
}

func TestDashboard_InitialViewIsLoading(t *testing.T) {
	fetch := funcFetcher(func(_ context.Context, path string) backend.Result {
		return backend.Result{Payload: []byte(`[]`), Path: path, Attempts: 1}
	})
	d := NewDashboard(NewAggregator(fetch, zerolog.Nop()), DefaultRequestSpecs(), zerolog.Nop())

	if !d.Current().Loading {
		t.Error("expected initial view to be loading")
	}
	if len(d.Specs()) != 17 {
		t.Errorf("expected 17 specs, got %d", len(d.Specs()))
	}

	vm, ok := d.Refresh(context.Background(), DefaultRange(time.Now(), DefaultRangeDays))
	if !ok || vm.Token != 1 {
		t.Errorf("expected first refresh to commit with token 1, got ok=%v token=%d", ok, vm.Token)
	}
}

func TestDashboard_CanceledCycleKeepsCommittedView(t *testing.T) {
	fetch := funcFetcher(func(ctx context.Context, path string) backend.Result {
		if err := ctx.Err(); err != nil {
			return backend.Result{Path: path, Attempts: 2, Err: err}
		}
		return backend.Result{Payload: []byte(`{"5": 3}`), Path: path, Attempts: 1}
	})
	rec := &countingRecorder{}
	specs := []RequestSpec{{Name: SectionFeedback, Path: "/feedback-notas", RangeSensitive: true}}
	d := NewDashboard(NewAggregator(fetch, zerolog.Nop(), WithRecorder(rec)), specs, zerolog.Nop())

	r, _ := ParseRange("2024-02-01", "2024-02-29", timeFixture(), DefaultRangeDays)
	if _, ok := d.Refresh(context.Background(), r); !ok {
		t.Fatal("expected the first cycle to commit")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	vm, committed := d.Refresh(ctx, r)
	if committed {
		t.Error("expected a canceled cycle not to commit")
	}
	if !vm.IsDegraded(SectionFeedback) {
		t.Errorf("expected the canceled cycle's own view to be degraded, got %v", vm.Degraded)
	}

	cur := d.Current()
	if cur.Feedback.Total != 3 || len(cur.Degraded) != 0 {
		t.Errorf("expected committed view to keep its data, got total=%v degraded=%v", cur.Feedback.Total, cur.Degraded)
	}
	if cur.Loading {
		t.Error("expected committed view not to be left loading")
	}
	if rec.discarded != 1 {
		t.Errorf("expected 1 discarded cycle, got %d", rec.discarded)
	}
}
