package reporter

import (
	"tempo/internal/core"
)

// UnitIterationsPerSecond is the unit of the throughput result.
const UnitIterationsPerSecond = "iterations/s"

// Throughput reports the average number of iterations per second since the
// run started.
type Throughput struct{}

func (Throughput) Observe(*core.RunInfo, *core.MeasurementUnit) (map[string]any, error) {
	return nil, nil
}

func (Throughput) Fill(_ *core.RunInfo, m *core.Measurement) {
	secs := m.Time().Seconds()
	if secs <= 0 {
		m.SetDefault(0.0)
		return
	}
	m.SetDefault(float64(m.Iteration()+1) / secs)
}

func (Throughput) Reset() {}
