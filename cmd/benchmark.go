package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chaos-io/eraser-bench/benchmark"
	"github.com/chaos-io/eraser-bench/config"
	"github.com/chaos-io/eraser-bench/store"
	"github.com/chaos-io/eraser-bench/util"
)

type benchmarkOptions struct {
	SummaryJSON string
	NoProgress  bool
	// Progress overrides the progress bar writer, stderr when nil.
	Progress io.Writer
}

var benchOpts benchmarkOptions

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Erase every mask of every benchmark subfolder and build demo images",
	Long: `Each subfolder of the benchmark folder holds one color image named *_.png and
any number of masks (every other .png). For each mask the erased image is written to
<output>/<mask> and a side-by-side demo to <output>/<mask stem>_demo.png.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateBenchmark(); err != nil {
			return err
		}
		return runBenchmark(cmd.Context(), cfg, benchOpts, util.Logger, cmd.OutOrStdout())
	},
}

func init() {
	f := benchmarkCmd.Flags()
	f.Int("workers", 0, "pairs processed at once inside a subfolder (default 1)")
	f.Bool("strict", false, "fail subfolders with more than one *_.png instead of using the last")
	f.String("schedule", "", `cron expression (e.g. "0 3 * * *"); run now and then on schedule until interrupted`)
	f.StringVar(&benchOpts.SummaryJSON, "summary-json", "", "also write the run summary as JSON to this file")
	f.BoolVar(&benchOpts.NoProgress, "no-progress", false, "disable the progress bar")

	bindFlags(benchmarkCmd, map[string]string{
		"workers":  "workers",
		"strict":   "strict",
		"schedule": "schedule",
	}, false)
	rootCmd.AddCommand(benchmarkCmd)
}

func runBenchmark(ctx context.Context, c *config.Config, opts benchmarkOptions, logger *zap.Logger, out io.Writer) error {
	defer util.Trace(logger, "benchmark")()

	progress := opts.Progress
	if progress == nil && !opts.NoProgress {
		progress = os.Stderr
	}
	driver := benchmark.NewDriver(newEraserClient(c), benchmark.Options{
		BenchmarkFolder: c.BenchmarkFolder,
		OutputFolder:    c.OutputFolder,
		Workers:         c.Workers,
		Strict:          c.Strict,
		Progress:        progress,
	}, logger)

	if c.DB != "" {
		db, err := store.New(ctx, c.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			db.Close(closeCtx)
		}()
		driver.WithRecorder(db)
	}

	runOnce := func() error {
		summary, err := driver.Run(ctx)
		if summary == nil {
			return err
		}
		if werr := summary.WriteTable(out); werr != nil {
			logger.Warn("failed to print summary", zap.Error(werr))
		}
		if opts.SummaryJSON != "" {
			if jerr := writeSummaryJSON(opts.SummaryJSON, summary); jerr != nil {
				logger.Error("failed to write summary json", zap.Error(jerr))
				if err == nil {
					err = jerr
				}
			}
		}
		return err
	}

	if c.Schedule == "" {
		return runOnce()
	}
	return runScheduled(ctx, c.Schedule, runOnce, logger)
}

// runScheduled runs job now and then on expr until ctx is done. A tick that
// fires while the previous run is still going is skipped.
func runScheduled(ctx context.Context, expr string, job func() error, logger *zap.Logger) error {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	var mu sync.Mutex
	run := func() {
		if err := job(); err != nil && ctx.Err() == nil {
			logger.Error("scheduled run failed", zap.Error(err))
		}
	}
	locked := func() {
		if !mu.TryLock() {
			logger.Warn("previous run still going, skipping tick")
			return
		}
		defer mu.Unlock()
		run()
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})))
	c.Schedule(schedule, cron.FuncJob(locked))

	// 首次立即执行，cron 的 tick 与之互斥
	mu.Lock()
	c.Start()
	logger.Info("schedule started", zap.String("schedule", expr))
	run()
	mu.Unlock()

	<-ctx.Done()
	logger.Info("schedule stopping")
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

func writeSummaryJSON(path string, summary *benchmark.Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
