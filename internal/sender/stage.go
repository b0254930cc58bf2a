package sender

import (
	"time"

	"tempo/internal/core"
)

// Stage holds a request rate for a while. When StartRPS differs from RPS the
// rate ramps linearly from StartRPS to RPS over the stage.
type Stage struct {
	Duration time.Duration
	StartRPS int
	RPS      int
}

// Schedule walks through stages as time passes. After the last stage the
// rate of the last stage is kept.
type Schedule struct {
	stages []Stage
	start  time.Time
	clock  core.Clock
}

func NewSchedule(stages []Stage, clock core.Clock) *Schedule {
	if clock == nil {
		clock = core.RealClock{}
	}
	return &Schedule{stages: stages, start: clock.Now(), clock: clock}
}

func (s *Schedule) Elapsed() time.Duration {
	return s.clock.Since(s.start)
}

// Index returns the index of the current stage, or len(stages) once every
// stage is over.
func (s *Schedule) Index() int {
	elapsed := s.Elapsed()
	var cumulative time.Duration
	for i, st := range s.stages {
		cumulative += st.Duration
		if elapsed < cumulative {
			return i
		}
	}
	return len(s.stages)
}

func (s *Schedule) Complete() bool {
	return s.Index() >= len(s.stages)
}

// RPS returns the rate for the current moment.
func (s *Schedule) RPS() int {
	if len(s.stages) == 0 {
		return 0
	}
	idx := s.Index()
	if idx >= len(s.stages) {
		return s.stages[len(s.stages)-1].RPS
	}
	st := s.stages[idx]
	if st.StartRPS == 0 || st.StartRPS == st.RPS {
		return st.RPS
	}

	var stageStart time.Duration
	for _, prev := range s.stages[:idx] {
		stageStart += prev.Duration
	}
	progress := float64(s.Elapsed()-stageStart) / float64(st.Duration)
	if progress > 1 {
		progress = 1
	}
	return st.StartRPS + int(float64(st.RPS-st.StartRPS)*progress)
}
