// Package scenario assembles a run from a configuration document: the
// reporting engine with its reporters and destinations, the sequences and the
// sender pool.
package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tempo/internal/config"
	"tempo/internal/core"
	"tempo/internal/destination"
	"tempo/internal/logging"
	"tempo/internal/reporter"
	"tempo/internal/reporting"
	"tempo/internal/sender"
	"tempo/internal/sequence"
)

// Scenario is one configured run, ready to start.
type Scenario struct {
	ID        string
	Engine    *reporting.Engine
	Sequences *sequence.Registry
	Reporters []*reporter.Reporter
	Pool      *sender.Pool

	logger *zap.Logger
}

// Build validates cfg and wires every component of the run.
func Build(cfg *config.Config) (*Scenario, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	run, err := cfg.RunPeriod()
	if err != nil {
		return nil, err
	}
	warmUp, err := cfg.WarmUpPeriod()
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	runField := zap.String("run", id)
	s := &Scenario{ID: id, logger: logging.Named("scenario").With(runField)}

	ri, err := core.NewRunInfo(run)
	if err != nil {
		return nil, err
	}
	opts := []reporting.Option{reporting.WithLogger(logging.Named("reporting").With(runField))}
	if d := cfg.Reporting.PollInterval; d > 0 {
		opts = append(opts, reporting.WithPollInterval(d))
	}
	if d := cfg.Reporting.DrainInterval; d > 0 {
		opts = append(opts, reporting.WithDrainInterval(d))
	}
	s.Engine = reporting.New(ri, opts...)

	if s.Sequences, err = buildSequences(cfg); err != nil {
		return nil, err
	}
	if s.Reporters, err = buildReporters(cfg.Reporters); err != nil {
		return nil, err
	}
	for _, r := range s.Reporters {
		s.Engine.RegisterReporter(r)
	}

	stages := make([]sender.Stage, len(cfg.Sender.Stages))
	for i, st := range cfg.Sender.Stages {
		stages[i] = sender.Stage{Duration: st.Duration, StartRPS: st.StartRPS, RPS: st.RPS}
	}
	s.Pool = sender.NewPool(s.Engine, newSender(cfg.Sender), s.Sequences, sender.PoolConfig{
		Workers: cfg.Sender.Workers,
		RPS:     cfg.Sender.RPS,
		Stages:  stages,
		WarmUp:  warmUp,
	}, sender.WithPoolLogger(logging.Named("sender").With(runField)))

	return s, nil
}

// Run executes the scenario until its duration is reached or ctx is
// cancelled.
func (s *Scenario) Run(ctx context.Context) error {
	s.logger.Info("Starting scenario",
		zap.Int("reporters", len(s.Reporters)),
		zap.Int("sequences", s.Sequences.Len()),
	)
	err := s.Pool.Run(ctx)
	if err != nil {
		s.logger.Error("Scenario failed", zap.Error(err))
		return err
	}
	s.logger.Info("Scenario finished")
	return nil
}

func newSender(cfg config.SenderConfig) sender.Sender {
	if h := cfg.HTTP; h != nil {
		return sender.NewHTTP(sender.HTTPConfig{
			Method:  h.Method,
			URL:     h.URL,
			Headers: h.Headers,
			Body:    h.Body,
			Timeout: h.Timeout,
		}, nil)
	}
	return sender.NewDelay(cfg.Delay)
}

func buildSequences(cfg *config.Config) (*sequence.Registry, error) {
	reg, err := sequence.NewDefaultRegistry()
	if err != nil {
		return nil, err
	}
	for _, sc := range cfg.Sequences {
		seq, err := sequence.Build(sequence.Config{
			Type:       sc.Type,
			Async:      sc.Async,
			Properties: sc.Properties,
			Dir:        cfg.Dir(),
		})
		if err != nil {
			return nil, fmt.Errorf("sequence %s: %w", sc.Name, err)
		}
		if err := reg.Add(sc.Name, seq); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func buildReporters(cfgs []config.ReporterConfig) ([]*reporter.Reporter, error) {
	var (
		out  []*reporter.Reporter
		errs []error
	)
	for _, rc := range cfgs {
		r, err := reporter.Build(rc.Type, rc.Name, rc.Properties)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, dc := range rc.Destinations {
			d, err := destination.Build(dc.Type, r.String(), destination.Properties(dc.Properties))
			if err != nil {
				errs = append(errs, fmt.Errorf("reporter %s: %w", r, err))
				continue
			}
			periods := make([]core.Period, 0, len(dc.Periods))
			for _, p := range dc.Periods {
				period, err := core.ParsePeriod(p)
				if err != nil {
					errs = append(errs, fmt.Errorf("reporter %s: %w", r, err))
					continue
				}
				periods = append(periods, period)
			}
			r.RegisterDestination(d, periods...)
		}
		out = append(out, r)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
