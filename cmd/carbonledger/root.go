package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"carbonledger/internal/blob"
	"carbonledger/internal/config"
	"carbonledger/internal/core"
	"carbonledger/internal/persistence"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var validFormats = []string{"text", "json"}

type rootOptions struct {
	configPath      string
	noSeed          bool
	metricsTextfile string
	traceFile       string
	logLevel        string
	format          string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "carbonledger",
		Short:         "Track activities and their CO2 equivalent",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(validFormats, opts.format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.format, validFormats)
			}
			return nil
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flags.BoolVar(&opts.noSeed, "no-seed", false, "start empty instead of installing demo data when nothing is stored")
	flags.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")
	flags.StringVar(&opts.traceFile, "trace-file", "", "append JSON spans for every operation to this file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error); overrides config")
	flags.StringVar(&opts.format, "format", "text", "output format (text|json)")

	cmd.AddCommand(
		newSummaryCommand(opts),
		newListCommand(opts),
		newMonthlyCommand(opts),
		newAddCommand(opts),
		newUpdateCommand(opts),
		newRemoveCommand(opts),
		newClearCommand(opts),
		newPreviewCommand(opts),
	)
	return cmd
}

// session is the engine plus everything it was wired to for one command.
type session struct {
	engine *core.Engine
	out    *printer
}

// withSession resolves config, opens the blob store, boots the engine and
// runs fn. Metrics and spans are flushed after fn whether or not it failed.
func withSession(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, s *session) error) (err error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	ctx := cmd.Context()
	store, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	defer func() {
		if cerr := blob.Close(store); cerr != nil {
			logger.Warn("close blob store", "error", cerr)
		}
	}()

	registry := prometheus.NewRegistry()
	prom, err := core.NewPrometheusMetricsRecorder(registry)
	if err != nil {
		return err
	}
	totals := core.NewExpvarMetricsRecorder("")
	defer func() { logger.Debug("session metrics", "operations", totals.Snapshot()) }()
	metrics := core.MultiMetricsRecorder{prom, totals}
	if opts.metricsTextfile != "" {
		defer func() {
			if werr := prometheus.WriteToTextfile(opts.metricsTextfile, registry); werr != nil && err == nil {
				err = fmt.Errorf("write metrics: %w", werr)
			}
		}()
	}

	var tracer core.Tracer
	if opts.traceFile != "" {
		f, ferr := os.OpenFile(opts.traceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if ferr != nil {
			return fmt.Errorf("open trace file: %w", ferr)
		}
		defer func() { _ = f.Close() }()
		tracer = core.NewJSONTracer(f)
	}

	bridge := persistence.NewBridge(store,
		persistence.WithKey(cfg.StorageKey),
		persistence.WithLogger(logger),
		persistence.WithMetricsRecorder(metrics),
		persistence.WithTracer(tracer),
	)
	engineOpts := []core.Option{
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics),
		core.WithTracer(tracer),
	}
	if opts.noSeed {
		engineOpts = append(engineOpts, core.WithoutSeed())
	}
	engine := core.NewEngine(ctx, bridge, engineOpts...)
	defer engine.Close()
	logger.Debug("session ready", "driver", store.Driver(), "key", bridge.Key(), "records", len(engine.Records()))

	return fn(ctx, &session{engine: engine, out: newPrinter(cmd.OutOrStdout(), opts.format)})
}
