package sequence

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/google/uuid"

	"tempo/internal/core"
)

// Random yields uniformly distributed integers in [min, max).
type Random struct {
	lo, hi int
}

func NewRandom(lo, hi int) (*Random, error) {
	if hi <= lo {
		return nil, fmt.Errorf("random sequence needs min < max, got [%d, %d)", lo, hi)
	}
	return &Random{lo: lo, hi: hi}, nil
}

func (r *Random) Next() (string, error) {
	return strconv.Itoa(rand.Intn(r.hi-r.lo) + r.lo), nil
}

func (r *Random) Reset() error { return nil }

// Timestamp yields the current Unix time in milliseconds.
type Timestamp struct {
	clock core.Clock
}

func NewTimestamp(clock core.Clock) *Timestamp {
	if clock == nil {
		clock = core.RealClock{}
	}
	return &Timestamp{clock: clock}
}

func (t *Timestamp) Next() (string, error) {
	return strconv.FormatInt(t.clock.Now().UnixMilli(), 10), nil
}

func (t *Timestamp) Reset() error { return nil }

// UUID yields random version 4 UUIDs.
type UUID struct{}

func (UUID) Next() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (UUID) Reset() error { return nil }
