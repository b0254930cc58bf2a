// Package config handles YAML scenario parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"tempo/internal/core"
	"tempo/internal/logging"
)

// Config is the root of a scenario document.
type Config struct {
	Run       RunConfig        `yaml:"run"`
	Sender    SenderConfig     `yaml:"sender"`
	Sequences []SequenceConfig `yaml:"sequences,omitempty"`
	Reporters []ReporterConfig `yaml:"reporters,omitempty"`
	Reporting ReportingConfig  `yaml:"reporting,omitempty"`
	Logging   logging.Config   `yaml:"logging,omitempty"`

	// dir is the directory of the loaded file.
	dir string
}

// RunConfig sets how long a run lasts, as a period such as "30s" or
// "1000it", and an optional warm-up period.
type RunConfig struct {
	Duration string `yaml:"duration"`
	WarmUp   string `yaml:"warmUp,omitempty"`
}

// SenderConfig selects the sender and how many workers drive it. Exactly one
// of HTTP and Delay is used; Delay alone is a dry run.
type SenderConfig struct {
	Workers int           `yaml:"workers"`
	RPS     int           `yaml:"rps,omitempty"`
	Stages  []Stage       `yaml:"stages,omitempty"`
	HTTP    *HTTPConfig   `yaml:"http,omitempty"`
	Delay   time.Duration `yaml:"delay,omitempty"`
}

// Stage is one step of the request rate schedule.
type Stage struct {
	Duration time.Duration `yaml:"duration"`
	StartRPS int           `yaml:"startRps,omitempty"`
	RPS      int           `yaml:"rps"`
}

// HTTPConfig defines the request sent on every iteration.
type HTTPConfig struct {
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Body    string            `yaml:"body,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty"`
}

// SequenceConfig declares a named sequence whose values senders can use as
// ${name}.
type SequenceConfig struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"`
	Async      bool              `yaml:"async,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

// ReporterConfig declares a reporter and where its results go.
type ReporterConfig struct {
	Name         string              `yaml:"name"`
	Type         string              `yaml:"type"`
	Properties   map[string]string   `yaml:"properties,omitempty"`
	Destinations []DestinationConfig `yaml:"destinations"`
}

// DestinationConfig declares a destination and the periods that publish to
// it, such as "1s", "100it" or "10%".
type DestinationConfig struct {
	Type       string            `yaml:"type"`
	Periods    []string          `yaml:"periods"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

// ReportingConfig tunes the reporting engine.
type ReportingConfig struct {
	PollInterval  time.Duration `yaml:"pollInterval,omitempty"`
	DrainInterval time.Duration `yaml:"drainInterval,omitempty"`
}

// Load reads and parses a YAML scenario file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Parse parses a YAML scenario document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &cfg, nil
}

// Dir returns the directory relative file names are resolved against.
func (c *Config) Dir() string {
	return c.dir
}

// RunPeriod returns the parsed run duration.
func (c *Config) RunPeriod() (core.Period, error) {
	return core.ParsePeriod(c.Run.Duration)
}

// WarmUpPeriod returns the parsed warm-up, the zero Period when unset.
func (c *Config) WarmUpPeriod() (core.Period, error) {
	if c.Run.WarmUp == "" {
		return core.Period{}, nil
	}
	return core.ParsePeriod(c.Run.WarmUp)
}

// Validate checks the document and returns every problem found.
func (c *Config) Validate() error {
	var errs []error

	run, err := c.RunPeriod()
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("run.duration: %w", err))
	case run.Type == core.PeriodPercentage:
		errs = append(errs, errors.New("run.duration: must be a time or iteration period"))
	}

	warm, err := c.WarmUpPeriod()
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("run.warmUp: %w", err))
	case warm.Type == core.PeriodPercentage && warm.Value > 0:
		errs = append(errs, errors.New("run.warmUp: must be a time or iteration period"))
	case warm.Value > 0 && warm.Type == core.PeriodIteration && run.Type == core.PeriodIteration && warm.Value >= run.Value:
		errs = append(errs, errors.New("run.warmUp: must be shorter than the run"))
	}

	errs = append(errs, c.Sender.validate()...)

	names := make(map[string]bool)
	for i, s := range c.Sequences {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("sequences[%d]: name is required", i))
		} else if names[s.Name] {
			errs = append(errs, fmt.Errorf("sequences[%d]: duplicate name %q", i, s.Name))
		}
		names[s.Name] = true
		if s.Type == "" {
			errs = append(errs, fmt.Errorf("sequences[%d]: type is required", i))
		}
	}

	for i, r := range c.Reporters {
		if r.Type == "" {
			errs = append(errs, fmt.Errorf("reporters[%d]: type is required", i))
		}
		for j, d := range r.Destinations {
			if d.Type == "" {
				errs = append(errs, fmt.Errorf("reporters[%d].destinations[%d]: type is required", i, j))
			}
			for _, p := range d.Periods {
				if _, err := core.ParsePeriod(p); err != nil {
					errs = append(errs, fmt.Errorf("reporters[%d].destinations[%d]: %w", i, j, err))
				}
			}
		}
	}

	if c.Reporting.PollInterval < 0 || c.Reporting.DrainInterval < 0 {
		errs = append(errs, errors.New("reporting: intervals must not be negative"))
	}
	return errors.Join(errs...)
}

func (s *SenderConfig) validate() []error {
	var errs []error
	if s.Workers < 0 {
		errs = append(errs, errors.New("sender.workers: must not be negative"))
	}
	if s.RPS < 0 {
		errs = append(errs, errors.New("sender.rps: must not be negative"))
	}
	if s.Delay < 0 {
		errs = append(errs, errors.New("sender.delay: must not be negative"))
	}
	if s.HTTP != nil && s.HTTP.URL == "" {
		errs = append(errs, errors.New("sender.http.url: required"))
	}
	for i, st := range s.Stages {
		if st.Duration <= 0 {
			errs = append(errs, fmt.Errorf("sender.stages[%d]: duration must be positive", i))
		}
		if st.RPS < 0 || st.StartRPS < 0 {
			errs = append(errs, fmt.Errorf("sender.stages[%d]: rps must not be negative", i))
		}
	}
	return errs
}
