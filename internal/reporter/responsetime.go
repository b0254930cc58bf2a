package reporter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"tempo/internal/core"
)

// Result labels of the response time reporter. Values are in milliseconds.
const (
	LabelAverage = "Average"
	LabelMinimum = "Minimum"
	LabelMaximum = "Maximum"
)

const (
	minTrackable = int64(1)                // µs
	maxTrackable = int64(time.Hour / 1000) // µs
)

// ResponseTime records the total time of every iteration in an HDR
// histogram and reports average, extremes and percentiles. The default result
// is the median.
type ResponseTime struct {
	percentiles []float64
	hist        *hdrhistogram.Histogram
}

// NewResponseTime creates a strategy reporting the given percentiles
// (0 < p <= 100) in addition to average, minimum and maximum.
func NewResponseTime(percentiles ...float64) (*ResponseTime, error) {
	for _, p := range percentiles {
		if p <= 0 || p > 100 {
			return nil, fmt.Errorf("percentile %v out of range (0, 100]", p)
		}
	}
	return &ResponseTime{
		percentiles: percentiles,
		hist:        hdrhistogram.New(minTrackable, maxTrackable, 3),
	}, nil
}

func (s *ResponseTime) Observe(_ *core.RunInfo, unit *core.MeasurementUnit) (map[string]any, error) {
	us := unit.TotalTime().Microseconds()
	if us < minTrackable {
		us = minTrackable
	}
	if us > maxTrackable {
		us = maxTrackable
	}
	if err := s.hist.RecordValue(us); err != nil {
		return nil, fmt.Errorf("record response time: %w", err)
	}
	return nil, nil
}

func (s *ResponseTime) Fill(_ *core.RunInfo, m *core.Measurement) {
	if s.hist.TotalCount() == 0 {
		return
	}
	m.SetDefault(ms(float64(s.hist.ValueAtQuantile(50))))
	m.Set(LabelAverage, ms(s.hist.Mean()))
	m.Set(LabelMinimum, ms(float64(s.hist.Min())))
	m.Set(LabelMaximum, ms(float64(s.hist.Max())))
	for _, p := range s.percentiles {
		m.Set(PercentileLabel(p), ms(float64(s.hist.ValueAtQuantile(p))))
	}
}

func (s *ResponseTime) Reset() {
	s.hist.Reset()
}

// Count returns the number of recorded iterations.
func (s *ResponseTime) Count() int64 {
	return s.hist.TotalCount()
}

// PercentileLabel names the result of percentile p, e.g. "p99" or "p99.9".
func PercentileLabel(p float64) string {
	return "p" + strconv.FormatFloat(p, 'f', -1, 64)
}

// ParsePercentiles parses a comma separated list such as "50,90,99.9".
func ParsePercentiles(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		p, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid percentile %q: %w", f, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func ms(us float64) float64 {
	return us / 1000
}
