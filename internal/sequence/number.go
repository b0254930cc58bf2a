package sequence

import (
	"math"
	"strconv"
	"sync"
)

// Number is an arithmetic progression. Once it passes end, or the int64
// range, it either cycles back to start or stays at the bound.
//
// An unset end is kept as a sentinel: math.MinInt64 for positive steps and
// math.MaxInt64 for negative ones.
type Number struct {
	mu    sync.Mutex
	start int64
	end   int64
	step  int64
	value int64
	cycle bool
}

// NewNumber returns a sequence counting 0, 1, 2, ... that cycles when an end is set.
func NewNumber() *Number {
	return &Number{end: math.MinInt64, step: 1, cycle: true}
}

func (n *Number) SetStart(start int64) *Number {
	n.mu.Lock()
	n.start = start
	n.mu.Unlock()
	return n
}

func (n *Number) SetEnd(end int64) *Number {
	n.mu.Lock()
	n.end = end
	n.mu.Unlock()
	return n
}

// SetStep sets the step. Flipping its sign keeps an unset end unset.
func (n *Number) SetStep(step int64) *Number {
	n.mu.Lock()
	defer n.mu.Unlock()
	if step < 0 && n.end == math.MinInt64 {
		n.end = math.MaxInt64
	} else if step > 0 && n.end == math.MaxInt64 {
		n.end = math.MinInt64
	}
	n.step = step
	return n
}

func (n *Number) SetCycle(cycle bool) *Number {
	n.mu.Lock()
	n.cycle = cycle
	n.mu.Unlock()
	return n
}

// End returns the end bound, a sentinel when unset.
func (n *Number) End() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.end
}

// Next returns the current value and advances.
func (n *Number) Next() (string, error) {
	return strconv.FormatInt(n.NextInt(), 10), nil
}

// NextInt is Next without formatting.
func (n *Number) NextInt() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	res := n.value
	next := n.value + n.step

	if n.step > 0 {
		switch {
		case next < n.value && n.cycle: // overflow
			n.value = n.start
		case next < n.value:
			n.value = math.MaxInt64
		default:
			n.value = next
		}
		if n.end > math.MinInt64 && n.value > n.end {
			n.value = n.bound()
		}
	} else {
		switch {
		case next > n.value && n.cycle: // underflow
			n.value = n.start
		case next > n.value:
			n.value = math.MinInt64
		default:
			n.value = next
		}
		if n.end < math.MaxInt64 && n.value < n.end {
			n.value = n.bound()
		}
	}
	return res
}

// bound is where the sequence goes once it passed end.
func (n *Number) bound() int64 {
	if n.cycle {
		return n.start
	}
	return n.end
}

// Reset rewinds to start.
func (n *Number) Reset() error {
	n.mu.Lock()
	n.value = n.start
	n.mu.Unlock()
	return nil
}
