package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ehr/dashboard/internal/platform/backend"
)

// Fetcher resolves one logical backend request to a settled result.
// backend.Fetcher is the production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, path string) backend.Result
}

// Recorder receives cycle and request outcomes. metrics.Collector implements
// it with Prometheus.
type Recorder interface {
	FetchSettled(section string, ok bool, attempts int)
	SectionDegraded(section string)
	CycleCompleted(d time.Duration, degraded int)
	CycleDiscarded()
}

type nopRecorder struct{}

func (nopRecorder) FetchSettled(string, bool, int) {}
func (nopRecorder) SectionDegraded(string) {}
func (nopRecorder) CycleCompleted(time.Duration, int) {}
func (nopRecorder) CycleDiscarded() {}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithConcurrency bounds the number of in-flight requests. Zero or less
// launches the whole batch at once.
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) { a.limit = n }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) AggregatorOption {
	return func(a *Aggregator) {
		if r != nil {
			a.recorder = r
		}
	}
}

// Aggregator runs one fetch cycle: every request in parallel, a join on all
// of them, and a single reducer folding settlements into a ViewModel.
type Aggregator struct {
	fetcher  Fetcher
	logger   zerolog.Logger
	recorder Recorder
	limit    int
}

// NewAggregator creates an Aggregator over fetcher.
func NewAggregator(fetcher Fetcher, logger zerolog.Logger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		fetcher:  fetcher,
		logger:   logger,
		recorder: nopRecorder{},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Run fetches every spec for r and returns the consolidated view once all
// requests have settled. It never fails: failed or malformed sections carry
// their fallback values and are listed in ViewModel.Degraded.
func (a *Aggregator) Run(ctx context.Context, r DateRange, specs []RequestSpec) ViewModel {
	start := time.Now()
	logger := a.logger.With().Str("cycle_id", uuid.NewString()).Str("range", r.String()).Logger()

	vm := NewViewModel(r)
	settled := make(chan Settlement, len(specs))

	var g errgroup.Group
	if a.limit > 0 {
		g.SetLimit(a.limit)
	}
	// g.Go blocks once the limit is reached, so launching happens off the
	// reducer goroutine.
	go func() {
		for _, spec := range specs {
			g.Go(func() error {
				settled <- Settlement{Spec: spec, Result: a.fetcher.Fetch(ctx, spec.Target(r))}
				return nil
			})
		}
	}()

	for range specs {
		s := <-settled
		a.recorder.FetchSettled(s.Spec.Name, s.Result.OK(), s.Result.Attempts)

		if err := vm.Apply(s); err != nil {
			a.recorder.SectionDegraded(s.Spec.Name)
			evt := logger.Warn()
			if errors.Is(err, ErrMalformedPayload) {
				evt = evt.Str("reason", "malformed_payload")
			} else {
				evt = evt.Str("reason", "request_failed")
			}
			evt.Err(err).
				Str("section", s.Spec.Name).
				Str("path", s.Result.Path).
				Int("attempts", s.Result.Attempts).
				Msg("section degraded to fallback")
		}
	}
	_ = g.Wait()

	vm.finalize()
	vm.Loading = false

	elapsed := time.Since(start)
	a.recorder.CycleCompleted(elapsed, len(vm.Degraded))
	logger.Info().
		Int("requests", len(specs)).
		Int("degraded", len(vm.Degraded)).
		Dur("latency", elapsed).
		Msg("fetch cycle settled")

	return vm
}
