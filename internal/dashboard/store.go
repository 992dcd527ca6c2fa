package dashboard

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Dashboard owns the committed ViewModel shown to presentation. Each Refresh
// takes a new recency token; only the cycle holding the latest token may
// commit, so a slow older cycle never overwrites a newer one.
type Dashboard struct {
	agg      *Aggregator
	specs    []RequestSpec
	logger   zerolog.Logger
	recorder Recorder

	seq atomic.Uint64

	mu      sync.RWMutex
	current ViewModel
}

// NewDashboard creates a Dashboard that runs specs through agg. Until the
// first cycle commits, Current returns an empty loading view.
func NewDashboard(agg *Aggregator, specs []RequestSpec, logger zerolog.Logger) *Dashboard {
	return &Dashboard{
		agg:      agg,
		specs:    specs,
		logger:   logger,
		recorder: agg.recorder,
		current:  NewViewModel(DateRange{}),
	}
}

// Specs returns the request specs of every cycle.
func (d *Dashboard) Specs() []RequestSpec {
	return d.specs
}

// Current returns the committed view.
func (d *Dashboard) Current() ViewModel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// Refresh runs a full cycle for r. It returns the cycle's own view and
// whether it was committed. A cycle superseded by a later Refresh, or whose
// ctx ended before it settled, is discarded and leaves the committed view
// untouched.
func (d *Dashboard) Refresh(ctx context.Context, r DateRange) (ViewModel, bool) {
	token := d.seq.Add(1)

	d.mu.Lock()
	d.current.Loading = true
	d.mu.Unlock()

	vm := d.agg.Run(ctx, r, d.specs)
	vm.Token = token

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		latest := d.seq.Load()
		if token == latest {
			d.current.Loading = false
		}
		d.recorder.CycleDiscarded()
		d.logger.Debug().
			Err(err).
			Uint64("token", token).
			Msg("discarding abandoned fetch cycle")
		return vm, false
	}
	if latest := d.seq.Load(); token != latest {
		d.recorder.CycleDiscarded()
		d.logger.Debug().
			Uint64("token", token).
			Uint64("latest", latest).
			Msg("discarding stale fetch cycle")
		return vm, false
	}
	d.current = vm
	return vm, true
}
