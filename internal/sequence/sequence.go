// Package sequence generates the per-iteration values senders substitute into
// their messages, such as message numbers, timestamps or lines of a file.
package sequence

import (
	"go.uber.org/zap"

	"tempo/internal/logging"
)

// Sequence publishes its next value into a snapshot. Implementations must be
// safe for concurrent use.
type Sequence interface {
	// PublishNext stores the next value under id. A sequence may also
	// publish derived keys prefixed with id.
	PublishNext(id string, values map[string]string)
	// Reset rewinds the sequence. Registration calls it once.
	Reset() error
}

// Generator computes values one at a time.
type Generator[T any] interface {
	Next() (T, error)
	Reset() error
}

// Sync turns a generator into a sequence computing each value on demand.
func Sync(g Generator[string]) Sequence {
	return &syncSequence{g: g, logger: logging.Named("sequence")}
}

type syncSequence struct {
	g      Generator[string]
	logger *zap.Logger
}

func (s *syncSequence) PublishNext(id string, values map[string]string) {
	v, err := s.g.Next()
	if err != nil {
		s.logger.Warn("Sequence produced no value", zap.String("sequence", id), zap.Error(err))
		return
	}
	values[id] = v
}

func (s *syncSequence) Reset() error {
	return s.g.Reset()
}
