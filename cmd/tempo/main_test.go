package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempo/internal/config"
)

func TestOverrides_Apply(t *testing.T) {
	cfg := &config.Config{Run: config.RunConfig{Duration: "10s"}}
	cfg.Sender.Workers = 2

	err := overrides{iterations: 500, workers: 8, rps: 50, logLevel: "debug"}.apply(cfg)
	require.NoError(t, err)
	assert.Equal(t, "500it", cfg.Run.Duration)
	assert.Equal(t, 8, cfg.Sender.Workers)
	assert.Equal(t, 50, cfg.Sender.RPS)
	assert.Equal(t, "debug", cfg.Logging.Level)

	require.NoError(t, overrides{}.apply(cfg))
	assert.Equal(t, "500it", cfg.Run.Duration, "unset flags keep the file values")

	require.NoError(t, overrides{duration: "1m"}.apply(cfg))
	assert.Equal(t, "1m", cfg.Run.Duration)

	assert.Error(t, overrides{duration: "1m", iterations: 5}.apply(cfg))
}

func TestRunCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
run:
  duration: 1000it
reporting:
  drainInterval: 1ms
logging:
  level: error
`), 0o644))

	cmd := rootCmd()
	cmd.SetArgs([]string{"run", path, "--iterations", "20", "--workers", "2", "--quiet"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, cmd.Execute())
}

func TestRunCmd_ProgressInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
run:
  duration: 150ms
sender:
  delay: 5ms
logging:
  level: error
`), 0o644))

	cmd := rootCmd()
	cmd.SetArgs([]string{"run", path, "--progress-interval", "10ms"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, cmd.Execute())

	f := runCmd().Flags().Lookup("progress-interval")
	require.NotNil(t, f)
	assert.Equal(t, "1s", f.DefValue)
}

func TestRunCmd_ConfigErrors(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"run", "/nonexistent/scenario.yaml"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.False(t, errors.As(err, new(runError)), "config errors are not run failures")
}

func TestTypesCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs([]string{"types"})
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "throughput")
	assert.Contains(t, out.String(), "prometheus")
	assert.Contains(t, out.String(), "fileLines")
}
