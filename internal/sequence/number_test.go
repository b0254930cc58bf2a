package sequence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func take(t *testing.T, n *Number, count int) []int64 {
	t.Helper()
	require.NoError(t, n.Reset())
	out := make([]int64, count)
	for i := range out {
		out[i] = n.NextInt()
	}
	return out
}

func TestNumber_Defaults(t *testing.T) {
	n := NewNumber()
	assert.Equal(t, int64(math.MinInt64), n.End())
	assert.Equal(t, []int64{0, 1, 2, 3}, take(t, n, 4))

	v, err := n.Next()
	require.NoError(t, err)
	assert.Equal(t, "4", v)
}

func TestNumber_NegativeStepFlipsUnsetEnd(t *testing.T) {
	n := NewNumber().SetStart(0).SetStep(-1)
	assert.Equal(t, int64(math.MaxInt64), n.End())
	assert.Equal(t, []int64{0, -1, -2}, take(t, n, 3))

	n.SetStep(2)
	assert.Equal(t, int64(math.MinInt64), n.End())
}

func TestNumber_Bounded(t *testing.T) {
	tests := []struct {
		name string
		seq  *Number
		want []int64
	}{
		{"cycles", NewNumber().SetStart(1).SetEnd(3), []int64{1, 2, 3, 1, 2, 3, 1}},
		{"stays at end", NewNumber().SetStart(1).SetEnd(3).SetCycle(false), []int64{1, 2, 3, 3, 3}},
		{"counts down", NewNumber().SetStart(3).SetEnd(1).SetStep(-1), []int64{3, 2, 1, 3, 2}},
		{"counts down to end", NewNumber().SetStart(3).SetEnd(1).SetStep(-1).SetCycle(false), []int64{3, 2, 1, 1}},
		{"step skips past end", NewNumber().SetStart(0).SetEnd(5).SetStep(2), []int64{0, 2, 4, 0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, take(t, tt.seq, len(tt.want)))
		})
	}
}

func TestNumber_Overflow(t *testing.T) {
	clamped := NewNumber().SetStart(math.MaxInt64 - 1).SetCycle(false)
	assert.Equal(t,
		[]int64{math.MaxInt64 - 1, math.MaxInt64, math.MaxInt64},
		take(t, clamped, 3))

	cycled := NewNumber().SetStart(math.MaxInt64 - 1)
	assert.Equal(t,
		[]int64{math.MaxInt64 - 1, math.MaxInt64, math.MaxInt64 - 1},
		take(t, cycled, 3))

	under := NewNumber().SetStart(math.MinInt64 + 1).SetStep(-1).SetCycle(false)
	assert.Equal(t,
		[]int64{math.MinInt64 + 1, math.MinInt64, math.MinInt64},
		take(t, under, 3))
}

func TestNumber_ResetRewinds(t *testing.T) {
	n := NewNumber().SetStart(10)
	take(t, n, 5)
	assert.Equal(t, []int64{10, 11}, take(t, n, 2))
}
