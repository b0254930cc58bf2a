package sender

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"tempo/internal/core"
	"tempo/internal/logging"
	"tempo/internal/reporting"
)

// stageTickInterval is how often the rate follows the stage schedule.
const stageTickInterval = 100 * time.Millisecond

// Snapshotter produces the sequence values of one iteration.
type Snapshotter interface {
	Snapshot() map[string]string
}

// PoolConfig configures a Pool.
type PoolConfig struct {
	Workers int
	// RPS limits iterations per second across all workers, zero for no limit.
	RPS int
	// Stages change the rate over the run and override RPS.
	Stages []Stage
	// WarmUp is an optional iteration or time period run before
	// measurements are kept.
	WarmUp core.Period
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

func WithPoolLogger(l *zap.Logger) PoolOption {
	return func(p *Pool) { p.logger = l }
}

func WithPoolClock(c core.Clock) PoolOption {
	return func(p *Pool) { p.clock = c }
}

// Pool runs the iterations of one run on a fixed number of workers.
type Pool struct {
	cfg     PoolConfig
	engine  *reporting.Engine
	sender  Sender
	values  Snapshotter
	limiter *Limiter
	logger  *zap.Logger
	clock   core.Clock

	warming atomic.Bool
	warmMu  sync.Mutex
}

// NewPool creates a pool. values may be nil when the sender needs no
// sequence values.
func NewPool(engine *reporting.Engine, s Sender, values Snapshotter, cfg PoolConfig, opts ...PoolOption) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	p := &Pool{
		cfg:     cfg,
		engine:  engine,
		sender:  s,
		values:  values,
		limiter: NewLimiter(cfg.RPS),
		clock:   core.RealClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.Named("sender")
	}
	return p
}

// Run starts the engine, runs workers until the run ends or ctx is
// cancelled, and stops the engine. It returns the first error the engine
// propagated for a reported unit, joined with a failure to close the sender.
func (p *Pool) Run(ctx context.Context) error {
	if err := p.sender.Init(); err != nil {
		return fmt.Errorf("init sender: %w", err)
	}

	ri := p.engine.RunInfo()
	ri.SetThreads(p.cfg.Workers)
	if p.cfg.WarmUp.Value > 0 {
		ri.AddTag(core.TagWarmUp)
		p.warming.Store(true)
		p.logger.Info("Warming up", zap.Stringer("period", p.cfg.WarmUp))
	}

	workers, err := ants.NewPool(p.cfg.Workers, ants.WithPanicHandler(func(v any) {
		p.logger.Error("Worker panicked", zap.Any("panic", v))
	}))
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer workers.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.engine.Start()
	p.logger.Info("Run started",
		zap.Stringer("duration", ri.Duration()),
		zap.Int("workers", p.cfg.Workers),
		zap.Int("rps", p.cfg.RPS),
	)

	if len(p.cfg.Stages) > 0 {
		go p.followStages(ctx)
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		if err := workers.Submit(func() {
			defer wg.Done()
			if err := p.work(ctx); err != nil {
				fail(err)
			}
		}); err != nil {
			wg.Done()
			fail(fmt.Errorf("submit worker: %w", err))
		}
	}
	wg.Wait()

	p.engine.Stop()
	p.logger.Info("Run finished", zap.Int64("iterations", completed(ri)), zap.Duration("runTime", ri.RunTime()))

	var result *multierror.Error
	if firstErr != nil {
		result = multierror.Append(result, firstErr)
	}
	if err := p.sender.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close sender: %w", err))
	}
	return result.ErrorOrNil()
}

// completed returns the number of iterations handed out. Workers that find
// the target reached still advance the counter, so it is capped at the target.
func completed(ri *core.RunInfo) int64 {
	n := ri.Iteration() + 1
	if d := ri.Duration(); d.Type == core.PeriodIteration {
		n = min(n, d.Value)
	}
	return n
}

func (p *Pool) work(ctx context.Context) error {
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil
		}
		unit := p.engine.NewMeasurementUnit()
		if unit == nil {
			return nil
		}

		var values map[string]string
		if p.values != nil {
			values = p.values.Snapshot()
		}
		unit.SetEnqueueTime(p.clock.Now())
		if err := p.sender.Send(ctx, values, unit); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			unit.SetFailure(err)
		}

		if err := p.engine.Report(unit); err != nil {
			return err
		}
		p.checkWarmUp()
	}
}

// checkWarmUp ends the warm-up once its period has passed: the tag is
// removed and the engine forgets everything measured so far.
func (p *Pool) checkWarmUp() {
	if !p.warming.Load() {
		return
	}
	p.warmMu.Lock()
	defer p.warmMu.Unlock()
	if !p.warming.Load() {
		return
	}

	ri := p.engine.RunInfo()
	var done bool
	switch p.cfg.WarmUp.Type {
	case core.PeriodTime:
		done = ri.RunTime() >= p.cfg.WarmUp.Duration()
	default:
		done = ri.Iteration()+1 >= p.cfg.WarmUp.Value
	}
	if !done {
		return
	}

	p.warming.Store(false)
	ri.RemoveTag(core.TagWarmUp)
	p.engine.Reset()
	p.logger.Info("Warm-up finished")
}

func (p *Pool) followStages(ctx context.Context) {
	schedule := NewSchedule(p.cfg.Stages, p.clock)
	idx := -1
	p.limiter.SetRate(schedule.RPS())

	ticker := time.NewTicker(stageTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if i := schedule.Index(); i != idx && i < len(p.cfg.Stages) {
				idx = i
				p.logger.Debug("Entering stage", zap.Int("stage", i), zap.Int("rps", p.cfg.Stages[i].RPS))
			}
			p.limiter.SetRate(schedule.RPS())
		}
	}
}
