package reporting

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tempo/internal/core"
)

// pollKey identifies one reporter publishing to one destination.
// Destinations must be comparable, which pointer implementations are.
type pollKey struct {
	reporter    core.Reporter
	destination core.Destination
}

// poll fires time based periods until ctx is cancelled or the run stops running.
func (e *Engine) poll(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	defer e.logger.Debug("Periodic reporting finished")

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	lastTimes := make(map[pollKey]time.Time)
	for e.runInfo.IsRunning() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		e.pollOnce(lastTimes)
	}
}

// pollOnce scans all time based periods once. A pair seen for the first time
// is seeded with the current time so it never fires right away. Nothing fires
// before the first iteration was handed out.
func (e *Engine) pollOnce(lastTimes map[pollKey]time.Time) {
	if e.resetLastTimes.Swap(false) {
		clear(lastTimes)
	}
	now := e.clock.Now()
	measured := e.runInfo.Iteration() >= 0
	for _, r := range e.reporters.load() {
		for _, bp := range r.ReportingPeriods() {
			if bp.Type != core.PeriodTime {
				continue
			}
			key := pollKey{reporter: r, destination: bp.Destination}
			last, ok := lastTimes[key]
			if !ok {
				lastTimes[key] = now
				continue
			}
			if !measured || now.Sub(last) < bp.Duration() {
				continue
			}
			lastTimes[key] = now
			d := bp.Destination
			e.logger.Debug("Publishing periodic result",
				zap.String("reporter", nameOf(r)), zap.Stringer("period", bp.Period))
			e.safely(r, "publish", func() error { return r.PublishResult(core.PeriodTime, d) })
		}
	}
}
