package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMeasurement_InsertionOrder(t *testing.T) {
	m := NewMeasurement(50, 90*time.Second, 9)
	m.Set("b", 1)
	m.SetDefault(3.5)
	m.Set("a", 2)
	m.Set("b", 10)

	assert.Equal(t, []string{"b", DefaultResult, "a"}, m.Keys())
	v, ok := m.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 10, v)

	d, ok := m.Default()
	assert.True(t, ok)
	assert.Equal(t, 3.5, d)
}

func TestMeasurement_String(t *testing.T) {
	m := NewMeasurement(42, time.Hour+2*time.Minute+3*time.Second, 99)
	m.SetDefault("12.5 iterations/s")
	m.Set("failures", int64(2))

	assert.Equal(t, "[1:02:03][100 iterations][42%] [12.5 iterations/s] [failures => 2]", m.String())
}

func TestFormatHMS(t *testing.T) {
	assert.Equal(t, "0:00:00", FormatHMS(999*time.Millisecond))
	assert.Equal(t, "0:01:05", FormatHMS(65*time.Second))
	assert.Equal(t, "26:00:00", FormatHMS(26*time.Hour))
}

func ExampleMeasurement_String() {
	m := NewMeasurement(100, 2*time.Second, 9)
	m.SetDefault(5.0)
	m.Set("failures", int64(0))
	fmt.Println(m)
	// Output: [0:00:02][10 iterations][100%] [5] [failures => 0]
}
