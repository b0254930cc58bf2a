// Package sender drives the iterations of a run: a pool of workers takes a
// measurement unit from the reporting engine, sends one message through a
// Sender and reports the finished unit back.
package sender

import (
	"context"
	"time"

	"tempo/internal/core"
)

// Sender sends one message per iteration. Send must time the exchange on
// unit with StartMeasure and StopMeasure. A returned error marks the
// iteration as failed; it does not stop the run.
//
// Send is called concurrently from every worker.
type Sender interface {
	Init() error
	Send(ctx context.Context, values map[string]string, unit *core.MeasurementUnit) error
	Close() error
}

// Delay is a sender that only waits. It is useful to exercise reporters
// without a target system.
type Delay struct {
	d time.Duration
}

func NewDelay(d time.Duration) *Delay {
	return &Delay{d: d}
}

func (s *Delay) Init() error  { return nil }
func (s *Delay) Close() error { return nil }

func (s *Delay) Send(ctx context.Context, _ map[string]string, unit *core.MeasurementUnit) error {
	unit.StartMeasure()
	defer unit.StopMeasure()
	if s.d <= 0 {
		return nil
	}
	t := time.NewTimer(s.d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
