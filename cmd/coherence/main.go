package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gocoherence/adapters/collector"
	"gocoherence/adapters/hexlog"
	"gocoherence/adapters/jsonl"
	"gocoherence/adapters/memory"
	"gocoherence/adapters/stats/engine"
	"gocoherence/adapters/stats/stages"
	"gocoherence/app"
	"gocoherence/internal"
	"gocoherence/internal/config"
	"gocoherence/internal/errors"
	"gocoherence/ports"
)

func main() {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "coherence",
		Short:         "Network coherence analysis of multi-device RNG recordings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newCompareCmd(),
		newExportCmd(),
		newServeCmd(),
		newRecordCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error [%s]: %v\n", errors.GetCode(err), err)
		os.Exit(1)
	}
}

// analysisFlags override the configured analysis parameters when set
type analysisFlags struct {
	format  string
	lowHz   float64
	highHz  float64
	order   int
	window  int
	workers int
	token   string
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "format", "hex", "Recording format: hex|jsonl")
	cmd.Flags().Float64Var(&f.lowHz, "low-hz", 0, "Band-pass low cutoff (default from config)")
	cmd.Flags().Float64Var(&f.highHz, "high-hz", 0, "Band-pass high cutoff (default from config)")
	cmd.Flags().IntVar(&f.order, "order", 0, "Butterworth order (default from config)")
	cmd.Flags().IntVar(&f.window, "window", 0, "Coherence window in seconds (default from config)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Concurrent devices (default from config)")
	cmd.Flags().StringVar(&f.token, "collector-token", os.Getenv("COHERENCE_COLLECTOR_TOKEN"), "Bearer token for http(s) collector sources")
}

// environment is the wiring shared by every command
type environment struct {
	config  *config.Config
	logger  *internal.Logger
	store   *memory.ReportStore
	service *app.CoherenceService
	flags   *analysisFlags
}

func loadEnvironment(flags *analysisFlags) (*environment, error) {
	appConfig, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flags == nil {
		flags = &analysisFlags{format: "hex"}
	}
	a := &appConfig.Analysis
	if flags.lowHz > 0 {
		a.LowHz = flags.lowHz
	}
	if flags.highHz > 0 {
		a.HighHz = flags.highHz
	}
	if flags.order > 0 {
		a.FilterOrder = flags.order
	}
	if flags.window > 0 {
		a.WindowSeconds = flags.window
	}
	if flags.workers > 0 {
		a.Workers = flags.workers
	}
	if err := config.Validate(appConfig); err != nil {
		return nil, err
	}

	logger := internal.NewDefaultLogger()
	store := memory.NewReportStore(memory.DefaultCapacity)
	return &environment{
		config:  appConfig,
		logger:  logger,
		store:   store,
		service: app.NewCoherenceService(engine.NewStatsEngine(logger), store, logger),
		flags:   flags,
	}, nil
}

func (e *environment) options() stages.Options {
	opts := stages.DefaultOptions()
	opts.Band = e.config.Analysis.Band()
	opts.WindowSize = e.config.Analysis.WindowSeconds
	opts.Workers = e.config.Analysis.Workers
	return opts
}

// source maps a directory, or an http(s) collector URL, to a stream source
func (e *environment) source(dir string) (ports.StreamSourcePort, error) {
	if strings.HasPrefix(dir, "http://") || strings.HasPrefix(dir, "https://") {
		collectorConfig := collector.DefaultConfig(dir)
		if e.flags.token != "" {
			collectorConfig.AuthMethod = "bearer"
			collectorConfig.AuthToken = e.flags.token
		}
		return collector.NewSource(collectorConfig, nil, e.logger), nil
	}
	switch e.flags.format {
	case "", "hex":
		return hexlog.NewDirectorySource(dir, e.config.Analysis.Workers, e.logger), nil
	case "jsonl":
		return jsonl.NewDirectorySource(dir, e.config.Analysis.Workers, e.logger), nil
	default:
		return nil, errors.InvalidInput("unknown recording format " + e.flags.format)
	}
}

func (e *environment) request(dir, label string) (app.AnalyzeRequest, error) {
	source, err := e.source(dir)
	if err != nil {
		return app.AnalyzeRequest{}, err
	}
	return app.AnalyzeRequest{Source: source, Label: label, Options: e.options()}, nil
}

// startProfiling serves net/http/pprof when PPROF_ENABLED is set
func (e *environment) startProfiling() {
	if !e.config.Profiling.Enabled {
		return
	}
	go func() {
		e.logger.Info("pprof listening on :%s", e.config.Profiling.Port)
		if err := http.ListenAndServe(":"+e.config.Profiling.Port, nil); err != nil {
			e.logger.Error("pprof server failed: %v", err)
		}
	}()
}
