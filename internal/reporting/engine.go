// Package reporting drives reporters during a run. It hands out measurement
// units, forwards finished units to reporters on a single background worker
// and fires time based reporting periods from a poll loop.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tempo/internal/core"
	"tempo/internal/logging"
)

// ErrRejected is returned when a unit is reported after the pipeline was shut down.
var ErrRejected = errors.New("reporting pipeline is shut down")

const (
	defaultPollInterval  = 500 * time.Millisecond
	defaultDrainInterval = 100 * time.Millisecond

	// resetTimeout bounds the wait for the running task when the pipeline is
	// replaced.
	resetTimeout = 5 * time.Second
)

// Option configures an Engine.
type Option func(*Engine)

// WithPollInterval sets how often time based periods are checked.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.pollInterval = d }
}

// WithDrainInterval sets how often the pipeline is checked while draining.
func WithDrainInterval(d time.Duration) Option {
	return func(e *Engine) { e.drainInterval = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the clock the poll loop measures periods with.
func WithClock(c core.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// Engine owns the run progress and the reporters of one run.
//
// NewMeasurementUnit and Report may be called from any number of goroutines.
// Start, Stop and Reset are serialized.
type Engine struct {
	runInfo       *core.RunInfo
	clock         core.Clock
	logger        *zap.Logger
	pollInterval  time.Duration
	drainInterval time.Duration

	reporters registry
	pipe      atomic.Pointer[pipeline]

	// resetLastTimes asks the poll loop to forget when periods last fired.
	resetLastTimes atomic.Bool

	mu         sync.Mutex
	started    bool
	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// New creates an engine for the run described by ri.
func New(ri *core.RunInfo, opts ...Option) *Engine {
	e := &Engine{
		runInfo:       ri,
		clock:         core.RealClock{},
		pollInterval:  defaultPollInterval,
		drainInterval: defaultDrainInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.Named("reporting")
	}
	e.pipe.Store(newPipeline())
	return e
}

// RunInfo returns the progress of the run.
func (e *Engine) RunInfo() *core.RunInfo {
	return e.runInfo
}

// Reporters returns a snapshot of the registered reporters.
func (e *Engine) Reporters() []core.Reporter {
	return slices.Clone(e.reporters.load())
}

// RegisterReporter adds r and hands it the run progress. Registering the same
// reporter twice has no effect.
func (e *Engine) RegisterReporter(r core.Reporter) {
	r.SetRunInfo(e.runInfo)
	if e.reporters.add(r) {
		e.logger.Debug("Registered reporter", zap.String("reporter", nameOf(r)))
	}
}

// UnregisterReporter removes r and detaches it from the run.
func (e *Engine) UnregisterReporter(r core.Reporter) {
	if e.reporters.remove(r) {
		r.SetRunInfo(nil)
		e.logger.Debug("Unregistered reporter", zap.String("reporter", nameOf(r)))
	}
}

// NewMeasurementUnit returns a unit for the next iteration, or nil when the
// run is not running.
func (e *Engine) NewMeasurementUnit() *core.MeasurementUnit {
	if !e.runInfo.IsRunning() {
		return nil
	}
	n := e.runInfo.NextIteration()
	if d := e.runInfo.Duration(); d.Type == core.PeriodIteration && n >= d.Value {
		return nil
	}
	return core.NewMeasurementUnit(n)
}

// Report queues unit for the reporters and returns immediately. The unit must
// not be modified afterwards.
//
// A unit that races Reset or Start lands in the pipeline they replaced and is
// dropped with the rest of its queued work. Otherwise a unit reported after
// the pipeline was shut down is dropped silently on a time bound run and fails
// with ErrRejected on an iteration bound run.
func (e *Engine) Report(unit *core.MeasurementUnit) error {
	p := e.pipe.Load()
	err := p.submit(func() { e.dispatch(unit) })
	if err == nil {
		return nil
	}
	if e.pipe.Load() != p {
		e.logger.Debug("Dropping measurement unit of a replaced pipeline", zap.Int64("iteration", unit.Iteration()))
		return nil
	}
	if e.runInfo.IsTimeBound() {
		e.logger.Debug("Dropping measurement unit reported after shutdown", zap.Int64("iteration", unit.Iteration()))
		return nil
	}
	return fmt.Errorf("report iteration %d: %w", unit.Iteration(), err)
}

func (e *Engine) dispatch(unit *core.MeasurementUnit) {
	// started, not running: the last iteration arrives after the target was reached
	if !e.runInfo.IsStarted() {
		e.logger.Debug("Skipping measurement unit, run is not started", zap.Int64("iteration", unit.Iteration()))
		return
	}
	for _, r := range e.reporters.load() {
		e.safely(r, "report", func() error { return r.Report(unit) })
	}
}

// Start starts the run, the reporters and the poll loop. Calling Start again
// restarts the run.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Debug("Starting reporting", zap.Stringer("duration", e.runInfo.Duration()))
	e.stopPoll()
	next := e.replacePipeline()
	e.runInfo.Start()
	for _, r := range e.reporters.load() {
		e.safely(r, "start", r.Start)
	}
	next.start()

	ctx, cancel := context.WithCancel(context.Background())
	e.pollCancel = cancel
	e.pollDone = make(chan struct{})
	e.started = true
	go e.poll(ctx, e.pollDone)
}

// Reset drops pending reporting work and zeroes the run counters and the
// reporters. It is used when the warm-up ends.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Debug("Resetting reporting")
	next := e.replacePipeline()
	e.runInfo.Reset()
	e.resetLastTimes.Store(true)
	for _, r := range e.reporters.load() {
		e.safely(r, "reset", func() error { r.Reset(); return nil })
	}
	next.start()
}

// Stop ends the run. Queued units are drained first, then every time based
// period publishes once more so the final state of the run is always
// reported. Stop on an engine that is not started does nothing.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return
	}
	e.started = false
	e.logger.Debug("Stopping reporting")

	p := e.pipe.Load()
	if e.runInfo.IsTimeBound() {
		// no new work past the deadline, stragglers may be dropped
		e.runInfo.Stop()
		e.drainTimeBound(p)
	} else {
		// every planned iteration must be reported before the run ends
		e.drainIterationBound(p)
		e.runInfo.Stop()
	}

	e.stopPoll()
	e.publishFinal()
	for _, r := range e.reporters.load() {
		e.safely(r, "stop", r.Stop)
	}
}

func (e *Engine) drainTimeBound(p *pipeline) {
	p.shutdown()
	last := p.pending()
	for last > 0 {
		time.Sleep(e.drainInterval)
		cur := p.pending()
		if cur >= last {
			e.logger.Debug("Abandoning pending reporting tasks", zap.Int64("pending", cur))
			return
		}
		last = cur
	}
}

func (e *Engine) drainIterationBound(p *pipeline) {
	for p.pending() > 0 {
		time.Sleep(e.drainInterval)
	}
	p.shutdown()
}

// replacePipeline swaps in an empty pipeline, dropping the queued tasks of
// the old one. The new pipeline accepts units right away but runs none until
// the caller starts it.
func (e *Engine) replacePipeline() *pipeline {
	next := newIdlePipeline()
	old := e.pipe.Swap(next)
	if dropped := old.shutdownNow(); dropped > 0 {
		e.logger.Debug("Dropped queued reporting tasks", zap.Int("count", dropped))
	}
	if !old.awaitTermination(resetTimeout) {
		e.logger.Warn("Reporting task did not finish in time", zap.Duration("timeout", resetTimeout))
	}
	return next
}

func (e *Engine) publishFinal() {
	e.logger.Info("Reporting final results")
	for _, r := range e.reporters.load() {
		for _, bp := range r.ReportingPeriods() {
			if bp.Type != core.PeriodTime {
				continue
			}
			d := bp.Destination
			e.safely(r, "publish", func() error { return r.PublishResult(core.PeriodTime, d) })
		}
	}
}

func (e *Engine) stopPoll() {
	if e.pollCancel == nil {
		return
	}
	e.pollCancel()
	<-e.pollDone
	e.pollCancel = nil
	e.pollDone = nil
}

// safely runs fn on behalf of r. Errors and panics are logged, never returned.
func (e *Engine) safely(r core.Reporter, op string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("Reporter panicked",
				zap.String("reporter", nameOf(r)), zap.String("op", op), zap.Any("panic", p))
		}
	}()
	if err := fn(); err != nil {
		e.logger.Warn("Reporter failed",
			zap.String("reporter", nameOf(r)), zap.String("op", op), zap.Error(err))
	}
}

func nameOf(r core.Reporter) string {
	if s, ok := r.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", r)
}

// registry is a copy-on-write reporter list. Readers never block.
type registry struct {
	mu   sync.Mutex
	list atomic.Pointer[[]core.Reporter]
}

func (g *registry) load() []core.Reporter {
	if p := g.list.Load(); p != nil {
		return *p
	}
	return nil
}

func (g *registry) add(r core.Reporter) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	cur := g.load()
	if slices.Contains(cur, r) {
		return false
	}
	next := append(slices.Clone(cur), r)
	g.list.Store(&next)
	return true
}

func (g *registry) remove(r core.Reporter) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	cur := g.load()
	i := slices.Index(cur, r)
	if i < 0 {
		return false
	}
	next := slices.Delete(slices.Clone(cur), i, i+1)
	g.list.Store(&next)
	return true
}
