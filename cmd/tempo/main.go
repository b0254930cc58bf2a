package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tempo/internal/config"
	"tempo/internal/destination"
	"tempo/internal/logging"
	"tempo/internal/progress"
	"tempo/internal/reporter"
	"tempo/internal/scenario"
	"tempo/internal/sequence"
	"tempo/internal/target"
)

const (
	ExitSuccess   = 0
	ExitRunFailed = 1
	ExitError     = 2
)

// runError marks failures that happen after the run started.
type runError struct{ err error }

func (e runError) Error() string { return e.err.Error() }
func (e runError) Unwrap() error { return e.err }

func main() {
	err := rootCmd().Execute()
	switch {
	case err == nil:
		os.Exit(ExitSuccess)
	case errors.As(err, new(runError)):
		os.Exit(ExitRunFailed)
	default:
		os.Exit(ExitError)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tempo",
		Short:        "tempo drives a target with iterations and reports measurements periodically.",
		SilenceUsage: true,
	}
	cmd.AddCommand(runCmd(), typesCmd(), targetCmd())
	return cmd
}

// overrides are the command line settings that win over the scenario file.
type overrides struct {
	duration   string
	iterations int64
	workers    int
	rps        int
	logLevel   string
}

func (o overrides) apply(cfg *config.Config) error {
	if o.duration != "" && o.iterations > 0 {
		return errors.New("--duration and --iterations are mutually exclusive")
	}
	if o.duration != "" {
		cfg.Run.Duration = o.duration
	}
	if o.iterations > 0 {
		cfg.Run.Duration = strconv.FormatInt(o.iterations, 10) + "it"
	}
	if o.workers > 0 {
		cfg.Sender.Workers = o.workers
	}
	if o.rps > 0 {
		cfg.Sender.RPS = o.rps
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return nil
}

func runCmd() *cobra.Command {
	var (
		o        overrides
		quiet    bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := o.apply(cfg); err != nil {
				return err
			}
			if err := logging.Init(&cfg.Logging); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			defer logging.Sync()

			s, err := scenario.Build(cfg)
			if err != nil {
				return err
			}
			return run(cmd.Context(), s, quiet, interval)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.duration, "duration", "", "run duration as a period, e.g. 30s or 1000it")
	f.Int64Var(&o.iterations, "iterations", 0, "run a fixed number of iterations")
	f.IntVar(&o.workers, "workers", 0, "number of concurrent senders")
	f.IntVar(&o.rps, "rps", 0, "limit iterations per second (0 = unlimited)")
	f.BoolVar(&quiet, "quiet", false, "suppress the progress line")
	f.DurationVar(&interval, "progress-interval", time.Second, "how often the progress line is refreshed")
	f.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	return cmd
}

func run(ctx context.Context, s *scenario.Scenario, quiet bool, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prog := progress.NewProgress(s.Engine.RunInfo(), quiet)
	if interval > 0 {
		prog.SetInterval(interval)
	}
	prog.Printf("tempo starting: run %s, duration %v", s.ID, s.Engine.RunInfo().Duration())
	prog.Start()
	err := s.Run(ctx)
	prog.Stop()

	if ctx.Err() != nil {
		logging.L().Info("Run interrupted", zap.String("run", s.ID))
	}
	if err != nil {
		return runError{err}
	}
	return nil
}

func typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the available reporter, destination and sequence types.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "reporters:    %s\n", strings.Join(reporter.Types(), ", "))
			fmt.Fprintf(out, "destinations: %s\n", strings.Join(destination.Types(), ", "))
			fmt.Fprintf(out, "sequences:    %s\n", strings.Join(sequence.Types(), ", "))
		},
	}
}

func targetCmd() *cobra.Command {
	var (
		listen   string
		logLevel string
	)
	cmd := &cobra.Command{
		Use:   "target",
		Short: "Serve a local HTTP target with configurable latency and failures.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logging.Init(&logging.Config{Level: logLevel}); err != nil {
				return err
			}
			defer logging.Sync()

			srv := &http.Server{Addr: listen, Handler: target.NewServer(logging.Named("target")).Handler()}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				_ = srv.Close()
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", listen)
			fmt.Fprintln(cmd.OutOrStdout(), "  GET  /health, /status/{code}, /delay/{ms}, /random-delay?min=&max=, /fail-rate?rate=")
			fmt.Fprintln(cmd.OutOrStdout(), "  POST /echo, /messages/{id}")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "localhost:8080", "address to listen on")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	return cmd
}
