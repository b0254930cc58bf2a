package destination

import (
	"sync"

	"tempo/internal/core"
)

// Memory keeps every measurement it receives.
type Memory struct {
	mu           sync.Mutex
	measurements []*core.Measurement
	opened       int
	closed       int
}

func NewMemory() *Memory {
	return &Memory{}
}

func (d *Memory) Open() error {
	d.mu.Lock()
	d.opened++
	d.mu.Unlock()
	return nil
}

func (d *Memory) Report(m *core.Measurement) error {
	d.mu.Lock()
	d.measurements = append(d.measurements, m)
	d.mu.Unlock()
	return nil
}

func (d *Memory) Close() error {
	d.mu.Lock()
	d.closed++
	d.mu.Unlock()
	return nil
}

// Measurements returns a copy of the received measurements.
func (d *Memory) Measurements() []*core.Measurement {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*core.Measurement, len(d.measurements))
	copy(out, d.measurements)
	return out
}

// Last returns the most recent measurement, nil when none was received.
func (d *Memory) Last() *core.Measurement {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.measurements) == 0 {
		return nil
	}
	return d.measurements[len(d.measurements)-1]
}

// Opened and Closed count Open and Close calls.
func (d *Memory) Opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

func (d *Memory) Closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Memory) String() string { return "memory" }
