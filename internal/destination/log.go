package destination

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tempo/internal/core"
)

// Log writes every measurement as one structured log entry.
type Log struct {
	logger *zap.Logger
	level  zapcore.Level
}

func NewLog(logger *zap.Logger, level zapcore.Level) *Log {
	return &Log{logger: logger, level: level}
}

func (d *Log) Open() error { return nil }

// Close flushes the logger. Sync errors of terminal outputs are ignored.
func (d *Log) Close() error {
	_ = d.logger.Sync()
	return nil
}

func (d *Log) Report(m *core.Measurement) error {
	ce := d.logger.Check(d.level, "Measurement")
	if ce == nil {
		return nil
	}
	fields := make([]zap.Field, 0, len(m.Keys())+3)
	fields = append(fields,
		zap.Int64("percentage", m.Percentage()),
		zap.Duration("time", m.Time()),
		zap.Int64("iteration", m.Iteration()),
	)
	m.Each(func(name string, value any) {
		fields = append(fields, zap.Any(name, value))
	})
	ce.Write(fields...)
	return nil
}

func (d *Log) String() string { return "log" }
