package destination

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"tempo/internal/core"
)

func sample(iteration int64, pct int64, results ...any) *core.Measurement {
	m := core.NewMeasurement(pct, time.Duration(iteration)*time.Second, iteration)
	for i := 0; i+1 < len(results); i += 2 {
		m.Set(results[i].(string), results[i+1])
	}
	return m
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	d := NewConsole(&buf)
	require.NoError(t, d.Open())
	require.NoError(t, d.Report(sample(4, 50, core.DefaultResult, 2.5)))
	require.NoError(t, d.Close())

	assert.Equal(t, "[0:00:04][5 iterations][50%] [2.5]\n", buf.String())
}

func TestMemory(t *testing.T) {
	d := NewMemory()
	assert.Nil(t, d.Last())
	require.NoError(t, d.Open())
	require.NoError(t, d.Report(sample(1, 10)))
	require.NoError(t, d.Report(sample(2, 20)))
	require.NoError(t, d.Close())

	assert.Len(t, d.Measurements(), 2)
	assert.Equal(t, int64(20), d.Last().Percentage())
	assert.Equal(t, 1, d.Opened())
	assert.Equal(t, 1, d.Closed())
}

func TestLog(t *testing.T) {
	obs, logs := observer.New(zapcore.InfoLevel)
	d := NewLog(zap.New(obs), zapcore.InfoLevel)

	require.NoError(t, d.Report(sample(9, 100, core.DefaultResult, 12.5, "failures", int64(1))))
	require.NoError(t, d.Close())

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, int64(100), ctx["percentage"])
	assert.Equal(t, int64(9), ctx["iteration"])
	assert.Equal(t, 12.5, ctx[core.DefaultResult])
	assert.Equal(t, int64(1), ctx["failures"])
}

func TestLog_LevelDisabled(t *testing.T) {
	obs, logs := observer.New(zapcore.WarnLevel)
	d := NewLog(zap.New(obs), zapcore.DebugLevel)
	require.NoError(t, d.Report(sample(1, 1)))
	assert.Zero(t, logs.Len())
}

func TestCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	d := NewCSV(path, ';', false)
	require.NoError(t, d.Open())

	require.NoError(t, d.Report(sample(0, 10, core.DefaultResult, 1.5, "failures", int64(0))))
	require.NoError(t, d.Report(sample(1, 20, "failures", int64(2), "extra", "x")))
	require.NoError(t, d.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"Time;Iterations;Percentage;Result;failures",
		"0:00:00;1;10;1.5;0",
		"0:00:01;2;20;;2",
		"",
	}, "\n"), string(data))
}

func TestCSV_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous\n"), 0o644))

	d := NewCSV(path, 0, true)
	require.NoError(t, d.Open())
	require.NoError(t, d.Report(sample(0, 0)))
	require.NoError(t, d.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "previous\nTime,Iterations,Percentage\n"))
}

func TestCSV_ReportBeforeOpen(t *testing.T) {
	d := NewCSV(filepath.Join(t.TempDir(), "out.csv"), 0, false)
	assert.Error(t, d.Report(sample(0, 0)))
	assert.NoError(t, d.Close())
}

func TestPrometheus_Report(t *testing.T) {
	d := NewPrometheus("", "latency", "")
	require.NoError(t, d.Open())
	require.NoError(t, d.Report(sample(9, 100,
		core.DefaultResult, 4.5,
		"failures", int64(3),
		"warmUp", true,
		"label", "not a number",
	)))

	assert.Equal(t, 10.0, testutil.ToFloat64(d.iterations))
	assert.Equal(t, 100.0, testutil.ToFloat64(d.percentage))
	assert.Equal(t, 9.0, testutil.ToFloat64(d.runTime))
	assert.Equal(t, 4.5, testutil.ToFloat64(d.results.WithLabelValues(core.DefaultResult)))
	assert.Equal(t, 3.0, testutil.ToFloat64(d.results.WithLabelValues("failures")))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.results.WithLabelValues("warmUp")))
	assert.Equal(t, 3, testutil.CollectAndCount(d.results), "non numeric results are skipped")

	families, err := d.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			require.NotEmpty(t, m.GetLabel())
			assert.Equal(t, "reporter", m.GetLabel()[0].GetName())
		}
	}
	require.NoError(t, d.Close())
}

func TestPrometheus_ServesMetrics(t *testing.T) {
	d := NewPrometheus("load", "", "127.0.0.1:0")
	require.NoError(t, d.Open())
	defer d.Close()
	require.NoError(t, d.Report(sample(1, 50, core.DefaultResult, 7.0)))

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", d.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `load_result{result="Result"} 7`)
	assert.Contains(t, string(body), "load_percentage 50")

	require.NoError(t, d.Close())
	assert.Nil(t, d.Addr())
}

func TestBuild(t *testing.T) {
	for _, typ := range Types() {
		props := Properties{}
		if typ == "csv" {
			props["path"] = filepath.Join(t.TempDir(), "x.csv")
		}
		d, err := Build(typ, "r", props)
		require.NoError(t, err, typ)
		assert.NotNil(t, d)
	}
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build("chart", "r", nil)
	assert.ErrorIs(t, err, ErrUnknownType)

	for _, props := range []Properties{
		{},
		{"path": "x.csv", "delimiter": ";;"},
		{"path": "x.csv", "append": "maybe"},
	} {
		_, err := Build("csv", "r", props)
		assert.Error(t, err, "%v", props)
	}

	_, err = Build("log", "r", Properties{"level": "verbose"})
	assert.Error(t, err)
}
