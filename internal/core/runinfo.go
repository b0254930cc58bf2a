package core

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// TagWarmUp marks a run that is still in its warm-up phase.
const TagWarmUp = "warmUp"

// RunInfo tracks the progress of one run: the target duration, the iteration
// counter and the start/end timestamps.
//
// A RunInfo is idle until Start, running until Stop or until the target is
// reached, and stopped afterwards. Reset only zeroes the iteration counter.
type RunInfo struct {
	duration Period
	clock    Clock

	mu        sync.RWMutex
	startTime time.Time
	endTime   time.Time
	tags      map[string]struct{}

	iterations atomic.Int64
	threads    atomic.Int32
}

// NewRunInfo creates a RunInfo bound by duration, which must be a TIME or
// ITERATION period with a positive value.
func NewRunInfo(duration Period) (*RunInfo, error) {
	return NewRunInfoWithClock(duration, RealClock{})
}

// NewRunInfoWithClock creates a RunInfo with a custom clock (for testing).
func NewRunInfoWithClock(duration Period, clock Clock) (*RunInfo, error) {
	if duration.Type != PeriodTime && duration.Type != PeriodIteration {
		return nil, fmt.Errorf("unsupported run duration type %s", duration.Type)
	}
	if duration.Value <= 0 {
		return nil, fmt.Errorf("run duration must be positive, got %d", duration.Value)
	}
	ri := &RunInfo{
		duration: duration,
		clock:    clock,
		tags:     make(map[string]struct{}),
	}
	ri.threads.Store(1)
	return ri, nil
}

// Start marks the run as started now and zeroes the iteration counter.
// Calling Start on a stopped run restarts it.
func (r *RunInfo) Start() {
	r.mu.Lock()
	r.startTime = r.clock.Now()
	r.endTime = time.Time{}
	r.mu.Unlock()
	r.iterations.Store(0)
}

// Stop freezes the end timestamp. Only the first call has an effect.
func (r *RunInfo) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.endTime.IsZero() {
		r.endTime = r.clock.Now()
	}
}

// Reset zeroes the iteration counter. Timestamps are left untouched.
func (r *RunInfo) Reset() {
	r.iterations.Store(0)
}

// NextIteration returns the next iteration index, starting at 0.
func (r *RunInfo) NextIteration() int64 {
	return r.iterations.Add(1) - 1
}

// Iteration returns the index of the last handed out iteration, -1 when none was.
func (r *RunInfo) Iteration() int64 {
	return r.iterations.Load() - 1
}

// Duration returns the target duration of the run.
func (r *RunInfo) Duration() Period {
	return r.duration
}

// IsTimeBound reports whether the run is bound by wall-clock time.
func (r *RunInfo) IsTimeBound() bool {
	return r.duration.Type == PeriodTime
}

// StartTime returns the start timestamp, zero when not started.
func (r *RunInfo) StartTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.startTime
}

// EndTime returns the end timestamp, zero while not stopped.
func (r *RunInfo) EndTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.endTime
}

// RunTime returns the elapsed time of the run, frozen after Stop.
func (r *RunInfo) RunTime() time.Duration {
	r.mu.RLock()
	start, end := r.startTime, r.endTime
	r.mu.RUnlock()
	switch {
	case start.IsZero():
		return 0
	case end.IsZero():
		return r.clock.Since(start)
	default:
		return end.Sub(start)
	}
}

// IsStarted reports whether Start was called and Stop was not.
func (r *RunInfo) IsStarted() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.startTime.IsZero() && r.endTime.IsZero()
}

// IsRunning reports whether the run is started and has not reached its target.
func (r *RunInfo) IsRunning() bool {
	return r.IsStarted() && !r.reachedTarget()
}

func (r *RunInfo) reachedTarget() bool {
	if r.duration.Type == PeriodIteration {
		return r.iterations.Load() >= r.duration.Value
	}
	return r.RunTime() >= r.duration.Duration()
}

// Percentage returns the progress of the run in percent of its target.
func (r *RunInfo) Percentage() float64 {
	return r.PercentageAt(r.Iteration())
}

// PercentageAt returns the progress of the run as if iteration was the last
// finished one. The result never exceeds 100 and is 0 before Start.
func (r *RunInfo) PercentageAt(iteration int64) float64 {
	if r.StartTime().IsZero() {
		return 0
	}
	var progress float64
	switch r.duration.Type {
	case PeriodIteration:
		progress = math.Min(float64(iteration+1), float64(r.duration.Value))
	default:
		progress = math.Min(float64(r.RunTime().Milliseconds()), float64(r.duration.Value))
	}
	if progress < 0 {
		progress = 0
	}
	return progress / float64(r.duration.Value) * 100
}

// Threads returns the number of sender threads driving the run.
func (r *RunInfo) Threads() int {
	return int(r.threads.Load())
}

// SetThreads records the number of sender threads driving the run.
func (r *RunInfo) SetThreads(n int) {
	r.threads.Store(int32(n))
}

// AddTag attaches a tag to the run.
func (r *RunInfo) AddTag(tag string) {
	r.mu.Lock()
	r.tags[tag] = struct{}{}
	r.mu.Unlock()
}

// RemoveTag detaches a tag from the run.
func (r *RunInfo) RemoveTag(tag string) {
	r.mu.Lock()
	delete(r.tags, tag)
	r.mu.Unlock()
}

// HasTag reports whether the run carries tag.
func (r *RunInfo) HasTag(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tags[tag]
	return ok
}

// Tags returns the sorted tags of the run.
func (r *RunInfo) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.tags))
	for t := range r.tags {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func (r *RunInfo) String() string {
	return fmt.Sprintf("RunInfo [duration=%s, iterations=%d, tags=%v, started=%t, running=%t, percentage=%.3f]",
		r.duration, r.Iteration(), r.Tags(), r.IsStarted(), r.IsRunning(), r.Percentage())
}
