package reporter

import "tempo/internal/core"

// Accumulator folds the values reported under one result label.
type Accumulator interface {
	Add(v any)
	Result() any
	Reset()
}

// newAccumulator picks the accumulator for a result label: failures are
// summed, everything else keeps the last value.
func newAccumulator(label string) Accumulator {
	if label == core.ResultFailures {
		return &sumAccumulator{}
	}
	return &lastValueAccumulator{}
}

type lastValueAccumulator struct {
	v any
}

func (a *lastValueAccumulator) Add(v any)   { a.v = v }
func (a *lastValueAccumulator) Result() any { return a.v }
func (a *lastValueAccumulator) Reset()      { a.v = nil }

// sumAccumulator sums integer and float values. The result is an int64 until
// the first float is added.
type sumAccumulator struct {
	i       int64
	f       float64
	isFloat bool
}

func (a *sumAccumulator) Add(v any) {
	switch n := v.(type) {
	case int:
		a.i += int64(n)
	case int32:
		a.i += int64(n)
	case int64:
		a.i += n
	case float32:
		a.f += float64(n)
		a.isFloat = true
	case float64:
		a.f += n
		a.isFloat = true
	}
}

func (a *sumAccumulator) Result() any {
	if a.isFloat {
		return a.f + float64(a.i)
	}
	return a.i
}

func (a *sumAccumulator) Reset() { *a = sumAccumulator{} }
