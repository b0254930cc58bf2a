// Package reporter implements the reporters driven by the reporting engine.
//
// A Reporter keeps the bookkeeping every reporter shares: the destinations and
// their periods, the iteration and percentage triggers and the accumulated
// custom results. What a reporter actually measures is its Strategy.
package reporter

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"tempo/internal/core"
	"tempo/internal/logging"
)

// Labels every measurement carries.
const (
	LabelWarmUp  = "warmUp"
	LabelThreads = "threads"
)

// MinTimePeriod is the shortest TIME period a destination may be registered with.
const MinTimePeriod = 500 // ms

// Strategy computes the reporter specific results.
// Its methods are called with the reporter lock held, one at a time.
type Strategy interface {
	// Observe is called for every reported unit and may return extra
	// results to accumulate.
	Observe(ri *core.RunInfo, unit *core.MeasurementUnit) (map[string]any, error)
	// Fill adds the strategy results to a measurement being published.
	Fill(ri *core.RunInfo, m *core.Measurement)
	Reset()
}

type trigger struct {
	pt   core.PeriodType
	dest core.Destination
}

// Reporter implements core.Reporter on top of a Strategy.
type Reporter struct {
	name     string
	strategy Strategy
	logger   *zap.Logger

	mu             sync.Mutex
	ri             *core.RunInfo
	periods        []core.BoundPeriod
	maxIteration   int64
	lastPercentage int64
	accs           map[string]Accumulator
	accKeys        []string
}

var _ core.Reporter = (*Reporter)(nil)

// New creates a reporter named name around s.
func New(name string, s Strategy) *Reporter {
	r := &Reporter{
		name:     name,
		strategy: s,
		logger:   logging.Named("reporter").With(zap.String("reporter", name)),
	}
	r.resetLocked()
	return r
}

func (r *Reporter) String() string {
	return r.name
}

// Strategy returns the strategy of the reporter.
func (r *Reporter) Strategy() Strategy {
	return r.strategy
}

// SetRunInfo implements core.Reporter.
func (r *Reporter) SetRunInfo(ri *core.RunInfo) {
	r.mu.Lock()
	r.ri = ri
	r.mu.Unlock()
}

// RegisterDestination binds d to the given periods. TIME periods shorter than
// MinTimePeriod are logged and ignored, duplicates are ignored silently.
func (r *Reporter) RegisterDestination(d core.Destination, periods ...core.Period) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range periods {
		if p.Type == core.PeriodTime && p.Value < MinTimePeriod {
			r.logger.Error("Time period shorter than 500ms, ignoring it", zap.Stringer("period", p))
			continue
		}
		bp := core.BoundPeriod{Period: p, Destination: d}
		if !slices.Contains(r.periods, bp) {
			r.periods = append(r.periods, bp)
		}
	}
}

// UnregisterDestination removes every period of d. A destination removed
// while the run is running is closed.
func (r *Reporter) UnregisterDestination(d core.Destination) error {
	r.mu.Lock()
	n := len(r.periods)
	r.periods = slices.DeleteFunc(r.periods, func(bp core.BoundPeriod) bool { return bp.Destination == d })
	removed := len(r.periods) < n
	running := r.ri != nil && r.ri.IsRunning()
	r.mu.Unlock()

	if removed && running {
		return d.Close()
	}
	return nil
}

// Destinations returns the distinct destinations in registration order.
func (r *Reporter) Destinations() []core.Destination {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destinationsLocked()
}

func (r *Reporter) destinationsLocked() []core.Destination {
	var out []core.Destination
	for _, bp := range r.periods {
		if !slices.Contains(out, bp.Destination) {
			out = append(out, bp.Destination)
		}
	}
	return out
}

// ReportingPeriods implements core.Reporter.
func (r *Reporter) ReportingPeriods() []core.BoundPeriod {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.periods)
}

// Report implements core.Reporter. Units started before the current run
// started are accumulated but do not move the iteration count.
func (r *Reporter) Report(unit *core.MeasurementUnit) error {
	r.mu.Lock()
	ri := r.ri
	if ri == nil {
		r.mu.Unlock()
		return fmt.Errorf("reporter %s: %w", r.name, core.ErrNoRunInfo)
	}

	if unit.StartedAfter(ri.StartTime()) && unit.Iteration() > r.maxIteration {
		r.maxIteration = unit.Iteration()
	}
	extra, err := r.strategy.Observe(ri, unit)
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("reporter %s: %w", r.name, err)
	}
	r.accumulate(unit.Results())
	r.accumulate(extra)

	due := r.iterationTriggers(ri, unit.Iteration())
	due = append(due, r.percentageTriggers(int64(math.Floor(ri.PercentageAt(unit.Iteration()))))...)
	r.mu.Unlock()

	var errs *multierror.Error
	for _, t := range due {
		if err := r.PublishResult(t.pt, t.dest); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

func (r *Reporter) accumulate(results map[string]any) {
	for k, v := range results {
		acc, ok := r.accs[k]
		if !ok {
			acc = newAccumulator(k)
			r.accs[k] = acc
			r.accKeys = append(r.accKeys, k)
		}
		acc.Add(v)
	}
}

// iterationTriggers fires on the first iteration, on every multiple of the
// period and on the last planned iteration.
func (r *Reporter) iterationTriggers(ri *core.RunInfo, iteration int64) []trigger {
	d := ri.Duration()
	last := d.Type == core.PeriodIteration && d.Value == iteration+1
	var due []trigger
	for _, bp := range r.periods {
		if bp.Type != core.PeriodIteration {
			continue
		}
		if iteration == 0 || (iteration+1)%bp.Value == 0 || last {
			due = append(due, trigger{pt: core.PeriodIteration, dest: bp.Destination})
		}
	}
	return due
}

// percentageTriggers walks every percentage value since the last call so
// none is skipped.
func (r *Reporter) percentageTriggers(percentage int64) []trigger {
	if percentage <= r.lastPercentage {
		return nil
	}
	var due []trigger
	for p := r.lastPercentage + 1; p <= percentage; p++ {
		for _, bp := range r.periods {
			if bp.Type == core.PeriodPercentage && percentageDue(p, bp.Value) {
				due = append(due, trigger{pt: core.PeriodPercentage, dest: bp.Destination})
			}
		}
	}
	r.lastPercentage = percentage
	return due
}

// percentageDue reports whether a PERCENTAGE period fires at percentage p.
// 0% only fires for periods up to 50 and 100% always fires.
func percentageDue(p, period int64) bool {
	return ((p != 0 || period <= 50) && p%period == 0) || p == 100
}

// PublishResult implements core.Reporter.
func (r *Reporter) PublishResult(pt core.PeriodType, d core.Destination) error {
	r.mu.Lock()
	ri := r.ri
	if ri == nil {
		r.mu.Unlock()
		return fmt.Errorf("reporter %s: %w", r.name, core.ErrNoRunInfo)
	}
	m := r.measurementLocked(ri)
	r.mu.Unlock()

	if err := d.Report(m); err != nil {
		return fmt.Errorf("reporter %s: publish %s result: %w", r.name, pt, err)
	}
	return nil
}

func (r *Reporter) measurementLocked(ri *core.RunInfo) *core.Measurement {
	m := core.NewMeasurement(int64(math.Round(ri.PercentageAt(r.maxIteration))), ri.RunTime(), r.maxIteration)
	m.Set(LabelWarmUp, ri.HasTag(core.TagWarmUp))
	m.Set(LabelThreads, ri.Threads())
	r.strategy.Fill(ri, m)
	for _, k := range r.accKeys {
		m.Set(k, r.accs[k].Result())
	}
	return m
}

// Reset implements core.Reporter.
func (r *Reporter) Reset() {
	r.mu.Lock()
	r.resetLocked()
	r.mu.Unlock()
}

func (r *Reporter) resetLocked() {
	r.lastPercentage = -1
	r.maxIteration = 0
	r.accs = make(map[string]Accumulator)
	r.accKeys = nil
	r.strategy.Reset()
}

// Start resets the reporter and opens its destinations. A reporter without
// periods is never able to publish; it logs a warning and stays closed.
func (r *Reporter) Start() error {
	r.mu.Lock()
	if r.ri == nil {
		r.mu.Unlock()
		return fmt.Errorf("reporter %s: %w", r.name, core.ErrNoRunInfo)
	}
	if len(r.periods) == 0 {
		r.mu.Unlock()
		r.logger.Warn("No reporting periods configured, results will not be published")
		return nil
	}
	r.resetLocked()
	dests := r.destinationsLocked()
	r.mu.Unlock()

	var errs *multierror.Error
	for _, d := range dests {
		if err := d.Open(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("open %v: %w", d, err))
		}
	}
	return errs.ErrorOrNil()
}

// Stop closes all destinations.
func (r *Reporter) Stop() error {
	var errs *multierror.Error
	for _, d := range r.Destinations() {
		if err := d.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("close %v: %w", d, err))
		}
	}
	return errs.ErrorOrNil()
}
