package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMeasurementUnit_Laps(t *testing.T) {
	u := NewMeasurementUnit(7)
	assert.Equal(t, int64(7), u.Iteration())

	_, ok := u.LastTime()
	assert.False(t, ok, "no lap before start")

	u.StartMeasure()
	_, ok = u.LastTime()
	assert.False(t, ok, "no lap before stop")

	time.Sleep(2 * time.Millisecond)
	u.StopMeasure()
	first, ok := u.LastTime()
	require.True(t, ok)
	assert.GreaterOrEqual(t, first, 2*time.Millisecond)

	started := u.TimeStarted()
	u.StartMeasure()
	time.Sleep(time.Millisecond)
	u.StopMeasure()
	second, _ := u.LastTime()

	assert.Equal(t, first+second, u.TotalTime())
	assert.Equal(t, started, u.TimeStarted(), "first start is kept")
}

func TestMeasurementUnit_ZeroLapWarns(t *testing.T) {
	obs, logs := observer.New(zap.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(obs))
	defer restore()

	u := NewMeasurementUnit(0)
	now := time.Now()
	u.startTime, u.stopTime = now, now

	d, ok := u.LastTime()
	require.True(t, ok)
	assert.Zero(t, d)
	assert.Equal(t, 1, logs.FilterMessageSnippet("resolution").Len())
}

func TestMeasurementUnit_ServiceTime(t *testing.T) {
	u := NewMeasurementUnit(0)
	u.SetEnqueueTime(time.Now().Add(-time.Second))
	u.StartMeasure()
	u.StopMeasure()

	st, ok := u.ServiceTime()
	require.True(t, ok)
	assert.GreaterOrEqual(t, st, time.Second)
}

func TestMeasurementUnit_StartedAfter(t *testing.T) {
	u := NewMeasurementUnit(0)
	before := time.Now().Add(-time.Millisecond)
	assert.False(t, u.StartedAfter(before), "never started")

	u.StartMeasure()
	assert.True(t, u.StartedAfter(before))
	assert.False(t, u.StartedAfter(time.Now().Add(time.Hour)))
}

func TestMeasurementUnit_Results(t *testing.T) {
	u := NewMeasurementUnit(3)

	v, ok := u.Result(ResultFailures)
	require.True(t, ok)
	assert.Equal(t, int64(0), v)

	u.SetFailure(errors.New("boom"))
	v, _ = u.Result(ResultFailures)
	assert.Equal(t, int64(1), v)
	assert.EqualError(t, u.Failure(), "boom")

	u.AppendResult(ResultResponseSize, 512)
	results := u.Results()
	results["mutated"] = true
	_, ok = u.Result("mutated")
	assert.False(t, ok, "Results returns a copy")

	assert.Contains(t, u.String(), "iteration=3")
	assert.Contains(t, u.String(), "responseSize=512")
}
