// Package main wires the migsim CLI entrypoint: read a migration's subset
// files, simulate worker scheduling, and write the report artifacts.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/alicel/migsim/internal/buildinfo"
	"github.com/alicel/migsim/internal/telemetry"
	"github.com/alicel/migsim/pkg/analyze"
	"github.com/alicel/migsim/pkg/report"
	"github.com/alicel/migsim/pkg/schedule"
	"github.com/alicel/migsim/pkg/subset"
)

const (
	exitCodeSuccess     = 0
	exitCodeInvalidArgs = 1
	exitCodeFatal       = 2
)

func main() {
	code := run(context.Background(), os.Args[1:], defaultRunDeps(), os.Stdout, os.Stderr)
	if code != 0 {
		os.Exit(code)
	}
}

type runDeps struct {
	newLogger func(level string) (*zap.Logger, error)
}

func defaultRunDeps() runDeps {
	return runDeps{newLogger: newLogger}
}

func run(ctx context.Context, args []string, deps runDeps, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)

		return exitCodeInvalidArgs
	}

	logger, err := deps.newLogger(opts.logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "failed to configure logger: %v\n", err)

		return exitCodeInvalidArgs
	}

	defer func() {
		_ = logger.Sync()
	}()

	info := buildinfo.Current()
	logger.Info("starting migsim",
		zap.String("version", info.Version),
		zap.String("commit", info.GitCommit),
		zap.String("inputDir", opts.inputDir),
		zap.String("executionMode", opts.executionMode),
	)

	cfg, err := opts.schedulerConfig()
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)

		return exitCodeInvalidArgs
	}

	var tel *telemetry.Exporter

	if opts.progressAddr != "" {
		tel = telemetry.NewExporter()

		mux := http.NewServeMux()
		mux.Handle("/metrics", tel.Handler())

		server := &http.Server{Addr: opts.progressAddr, Handler: mux}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("progress server stopped", zap.Error(err))
			}
		}()

		go func() {
			<-ctx.Done()
			_ = server.Close()
		}()

		defer server.Close()
	}

	// subset.Reader.Read fails only on input problems (missing/non-directory/
	// unreadable input, missing metadata/subsets, no valid subset files, or
	// another stat/walk error on the input tree) — an InputError in spec
	// terms, never a simulation failure, so it always exits 1.
	subsets, warnings, err := subset.NewReader(logger).Read(opts.inputDir)
	if err != nil {
		logger.Error("failed to read subsets", zap.Error(err))
		fmt.Fprintf(stderr, "%v\n", err)

		return exitCodeInvalidArgs
	}

	for _, w := range warnings {
		logger.Warn("dropped subset", zap.String("path", w.Path), zap.String("reason", w.Reason))
	}

	sched, err := schedule.NewScheduler(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)

		return exitCodeInvalidArgs
	}

	result, err := sched.Run(subsets)
	if err != nil {
		logger.Error("scheduling failed", zap.Error(err))
		fmt.Fprintf(stderr, "%v\n", err)

		return exitCodeFatal
	}

	agg := analyze.BuildAggregate(result.Workers)

	migrationID := ""
	if len(subsets) > 0 {
		migrationID = subsets[0].MigrationID
	}

	runReport := report.Run{
		MigrationID:           migrationID,
		Mode:                  cfg.Mode,
		Config:                cfg,
		Workers:               result.Workers,
		Aggregate:             agg,
		StragglerThresholdPct: opts.stragglerThresholdPct,
		DroppedCount:          len(warnings) + len(result.Dropped),
		SummaryOnly:           opts.summaryOnly,
	}

	if err := report.NewWriter(logger).WriteAll(opts.outputDir, opts.outputName, runReport); err != nil {
		logger.Error("failed to write reports", zap.Error(err))
		fmt.Fprintf(stderr, "%v\n", err)

		return exitCodeFatal
	}

	_ = report.WriteText(stdout, runReport)

	return exitCodeSuccess
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = defaultLogLevel
	}

	cfg := zap.NewProductionConfig()

	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.CallerKey = "caller"

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	return logger, nil
}
