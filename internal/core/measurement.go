package core

import (
	"fmt"
	"strings"
	"time"
)

// DefaultResult is the label of the main result of a Measurement.
const DefaultResult = "Result"

// Measurement is one published data point: a snapshot of the run progress and
// the results a reporter computed for it, in insertion order.
type Measurement struct {
	percentage int64
	time       time.Duration
	iteration  int64

	keys    []string
	results map[string]any
}

// NewMeasurement creates an empty measurement for the given run snapshot.
func NewMeasurement(percentage int64, runTime time.Duration, iteration int64) *Measurement {
	return &Measurement{
		percentage: percentage,
		time:       runTime,
		iteration:  iteration,
		results:    make(map[string]any),
	}
}

func (m *Measurement) Percentage() int64   { return m.percentage }
func (m *Measurement) Time() time.Duration { return m.time }
func (m *Measurement) Iteration() int64    { return m.iteration }

// Set stores a result under name, keeping the position of an existing name.
func (m *Measurement) Set(name string, value any) {
	if _, ok := m.results[name]; !ok {
		m.keys = append(m.keys, name)
	}
	m.results[name] = value
}

// SetDefault stores the default result.
func (m *Measurement) SetDefault(value any) {
	m.Set(DefaultResult, value)
}

// Get returns the result stored under name.
func (m *Measurement) Get(name string) (any, bool) {
	v, ok := m.results[name]
	return v, ok
}

// Default returns the default result.
func (m *Measurement) Default() (any, bool) {
	return m.Get(DefaultResult)
}

// Keys returns the result labels in insertion order.
func (m *Measurement) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Each calls fn for every result in insertion order.
func (m *Measurement) Each(fn func(name string, value any)) {
	for _, k := range m.keys {
		fn(k, m.results[k])
	}
}

// FormatHMS formats d as H:MM:SS.
func FormatHMS(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d.Hours())
	mnt := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, mnt, s)
}

func (m *Measurement) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s][%d iterations][%d%%]", FormatHMS(m.time), m.iteration+1, m.percentage)
	if v, ok := m.Default(); ok {
		fmt.Fprintf(&b, " [%v]", v)
	}
	for _, k := range m.keys {
		if k == DefaultResult {
			continue
		}
		fmt.Fprintf(&b, " [%s => %v]", k, m.results[k])
	}
	return b.String()
}
