// Package core defines the fundamental types of a tempo run: run progress,
// measurement records, reporting periods and the contracts the reporting
// engine drives.
package core

import "errors"

// ErrNoRunInfo is returned by reporters asked to work before a RunInfo was set.
var ErrNoRunInfo = errors.New("no run info set")

// Destination is an output sink for published measurements.
// Report may be called from the reporting worker or the poll loop goroutine,
// at any frequency.
type Destination interface {
	Open() error
	Report(m *Measurement) error
	Close() error
}

// Reporter turns a stream of measurement units into measurements published
// to its destinations.
type Reporter interface {
	// SetRunInfo hands the reporter the progress of the current run.
	SetRunInfo(ri *RunInfo)

	// Report accumulates one finished iteration. It is only ever called from
	// the reporting worker, one unit at a time.
	Report(unit *MeasurementUnit) error

	// ReportingPeriods returns the triggers of all registered destinations.
	ReportingPeriods() []BoundPeriod

	// PublishResult computes a measurement for the given trigger kind and
	// sends it to d.
	PublishResult(pt PeriodType, d Destination) error

	Reset()
	Start() error
	Stop() error
}
