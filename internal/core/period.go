package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PeriodType is the unit a Period is measured in.
type PeriodType int

const (
	// PeriodTime counts milliseconds of wall-clock time.
	PeriodTime PeriodType = iota
	// PeriodIteration counts iterations.
	PeriodIteration
	// PeriodPercentage counts percent of the run (0-100).
	PeriodPercentage
)

func (t PeriodType) String() string {
	switch t {
	case PeriodTime:
		return "time"
	case PeriodIteration:
		return "iteration"
	case PeriodPercentage:
		return "percentage"
	default:
		return fmt.Sprintf("PeriodType(%d)", int(t))
	}
}

// ParsePeriodType parses the names produced by PeriodType.String.
func ParsePeriodType(s string) (PeriodType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "time":
		return PeriodTime, nil
	case "iteration", "iterations":
		return PeriodIteration, nil
	case "percentage", "percent":
		return PeriodPercentage, nil
	default:
		return 0, fmt.Errorf("unknown period type %q", s)
	}
}

// Period describes "every Value of Type". TIME values are milliseconds.
type Period struct {
	Type  PeriodType
	Value int64
}

// TimePeriod returns a TIME period of d, truncated to milliseconds.
func TimePeriod(d time.Duration) Period {
	return Period{Type: PeriodTime, Value: d.Milliseconds()}
}

// IterationPeriod returns an ITERATION period of n iterations.
func IterationPeriod(n int64) Period {
	return Period{Type: PeriodIteration, Value: n}
}

// PercentagePeriod returns a PERCENTAGE period of p percent.
func PercentagePeriod(p int64) Period {
	return Period{Type: PeriodPercentage, Value: p}
}

// Duration returns the period as a time.Duration. Only meaningful for TIME periods.
func (p Period) Duration() time.Duration {
	return time.Duration(p.Value) * time.Millisecond
}

func (p Period) String() string {
	switch p.Type {
	case PeriodTime:
		return p.Duration().String()
	case PeriodIteration:
		return strconv.FormatInt(p.Value, 10) + "it"
	case PeriodPercentage:
		return strconv.FormatInt(p.Value, 10) + "%"
	default:
		return fmt.Sprintf("%s:%d", p.Type, p.Value)
	}
}

// ParsePeriod parses the compact forms "500ms", "2s", "100it" and "10%".
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Period{}, fmt.Errorf("empty period")
	case strings.HasSuffix(s, "%"):
		v, err := strconv.ParseInt(strings.TrimSuffix(s, "%"), 10, 64)
		if err != nil || v <= 0 || v > 100 {
			return Period{}, fmt.Errorf("invalid percentage period %q", s)
		}
		return PercentagePeriod(v), nil
	case strings.HasSuffix(s, "it"):
		v, err := strconv.ParseInt(strings.TrimSuffix(s, "it"), 10, 64)
		if err != nil || v <= 0 {
			return Period{}, fmt.Errorf("invalid iteration period %q", s)
		}
		return IterationPeriod(v), nil
	default:
		d, err := time.ParseDuration(s)
		if err != nil || d < time.Millisecond {
			return Period{}, fmt.Errorf("invalid time period %q", s)
		}
		return TimePeriod(d), nil
	}
}

// BoundPeriod is a Period bound to the Destination it publishes to.
// Two BoundPeriods with the same type, value and destination are the same trigger.
type BoundPeriod struct {
	Period
	Destination Destination
}

func (b BoundPeriod) String() string {
	return fmt.Sprintf("%s -> %v", b.Period, b.Destination)
}
