package core

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Reserved result labels.
const (
	ResultFailures     = "failures"
	ResultRequestSize  = "requestSize"
	ResultResponseSize = "responseSize"
)

// MeasurementUnit holds the timing and custom results of one iteration.
//
// A unit is owned by the sender goroutine that obtained it until it is passed
// to the reporting engine; it must not be touched afterwards.
type MeasurementUnit struct {
	iteration int64

	startTime   time.Time
	stopTime    time.Time
	totalTime   time.Duration
	timeStarted time.Time
	enqueueTime time.Time

	results map[string]any
	failure error
}

// NewMeasurementUnit creates a unit for the given iteration index.
// Units are normally obtained from the reporting engine.
func NewMeasurementUnit(iteration int64) *MeasurementUnit {
	return &MeasurementUnit{
		iteration:   iteration,
		enqueueTime: time.Now(),
		results:     map[string]any{ResultFailures: int64(0)},
	}
}

// Iteration returns the iteration index the unit belongs to.
func (u *MeasurementUnit) Iteration() int64 {
	return u.iteration
}

// StartMeasure starts (or restarts) the stopwatch.
func (u *MeasurementUnit) StartMeasure() {
	now := time.Now()
	if u.timeStarted.IsZero() {
		u.timeStarted = now
	}
	u.startTime = now
	u.stopTime = time.Time{}
}

// StopMeasure stops the stopwatch and adds the lap to the total time.
func (u *MeasurementUnit) StopMeasure() {
	u.stopTime = time.Now()
	if last, ok := u.LastTime(); ok {
		u.totalTime += last
	}
}

// LastTime returns the duration of the last start/stop lap. ok is false when
// the lap was not both started and stopped. A zero lap means the timer has
// not enough resolution; it is logged and still returned.
func (u *MeasurementUnit) LastTime() (d time.Duration, ok bool) {
	if u.startTime.IsZero() || u.stopTime.IsZero() {
		return 0, false
	}
	d = u.stopTime.Sub(u.startTime)
	if d == 0 {
		zap.L().Named("measurement").Warn("Zero time measured, the timer does not provide enough resolution",
			zap.Int64("iteration", u.iteration))
	}
	return d, true
}

// TotalTime returns the sum of all laps.
func (u *MeasurementUnit) TotalTime() time.Duration {
	return u.totalTime
}

// ServiceTime returns the time from enqueueing to the last stop, including queueing delay.
func (u *MeasurementUnit) ServiceTime() (time.Duration, bool) {
	if u.startTime.IsZero() || u.stopTime.IsZero() {
		return 0, false
	}
	return u.stopTime.Sub(u.enqueueTime), true
}

// SetEnqueueTime overrides the time the iteration was scheduled.
func (u *MeasurementUnit) SetEnqueueTime(t time.Time) {
	u.enqueueTime = t
}

// TimeStarted returns the wall-clock time of the first StartMeasure.
func (u *MeasurementUnit) TimeStarted() time.Time {
	return u.timeStarted
}

// StartedAfter reports whether the unit was first started at or after ref.
func (u *MeasurementUnit) StartedAfter(ref time.Time) bool {
	return !u.timeStarted.IsZero() && !u.timeStarted.Before(ref)
}

// AppendResult stores a custom result under label.
func (u *MeasurementUnit) AppendResult(label string, value any) {
	u.results[label] = value
}

// Result returns the custom result stored under label.
func (u *MeasurementUnit) Result(label string) (any, bool) {
	v, ok := u.results[label]
	return v, ok
}

// Results returns a copy of all custom results.
func (u *MeasurementUnit) Results() map[string]any {
	out := make(map[string]any, len(u.results))
	for k, v := range u.results {
		out[k] = v
	}
	return out
}

// SetFailure records the iteration failure; the failures result becomes 1, or 0 for nil.
func (u *MeasurementUnit) SetFailure(err error) {
	u.failure = err
	if err != nil {
		u.results[ResultFailures] = int64(1)
	} else {
		u.results[ResultFailures] = int64(0)
	}
}

// Failure returns the recorded failure.
func (u *MeasurementUnit) Failure() error {
	return u.failure
}

func (u *MeasurementUnit) String() string {
	keys := make([]string, 0, len(u.results))
	for k := range u.results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, u.results[k])
	}
	return fmt.Sprintf("MeasurementUnit [iteration=%d, totalTime=%s, results={%s}]", u.iteration, u.totalTime, b.String())
}
