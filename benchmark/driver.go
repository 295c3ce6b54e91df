// Package benchmark runs the eraser over a benchmark folder: one subfolder
// per color image, every other .png in it a mask.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chaos-io/eraser-bench/composite"
)

// Options configures a Driver.
type Options struct {
	BenchmarkFolder string
	OutputFolder    string
	// Workers bounds the pairs processed at once inside a group. Values
	// below 1 mean 1, which keeps processing strictly sequential.
	Workers int
	// Strict rejects subfolders with more than one color image instead of
	// keeping the last one.
	Strict bool
	// Progress receives a progress bar when set.
	Progress io.Writer
}

type Driver struct {
	opts     Options
	pipeline *Pipeline
	recorder Recorder
	logger   *zap.Logger
}

func NewDriver(eraser Eraser, opts Options, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	logger = logger.Named("benchmark")
	return &Driver{
		opts:     opts,
		pipeline: NewPipeline(eraser, logger),
		logger:   logger,
	}
}

// WithRecorder makes Run persist its summary through r.
func (d *Driver) WithRecorder(r Recorder) *Driver {
	d.recorder = r
	return d
}

// Run processes every group and returns the summary. Pair failures are
// recorded in the summary, not returned. The error is non-nil only when the
// run could not start, was cancelled, or the recorder failed; in the last two
// cases the summary is still returned.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:           ksuid.New().String(),
		BenchmarkFolder: d.opts.BenchmarkFolder,
		OutputFolder:    d.opts.OutputFolder,
		StartedAt:       time.Now().UTC(),
	}
	logger := d.logger.With(zap.String("run_id", summary.RunID))

	if err := os.MkdirAll(d.opts.OutputFolder, 0o755); err != nil {
		return nil, fmt.Errorf("create output folder: %w", err)
	}
	logger.Info("output folder ready", zap.String("path", d.opts.OutputFolder))

	groups, skips, err := Discover(d.opts.BenchmarkFolder, d.opts.Strict)
	if err != nil {
		return nil, err
	}
	summary.Skipped = skips
	for _, s := range skips {
		logger.Warn("no valid color image or masks, skipping", zap.String("group", s.Group), zap.Error(s.Err))
	}

	total := 0
	for _, g := range groups {
		total += len(g.Masks)
	}
	bar := d.newProgressBar(total)

	var runErr error
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		gl := logger.With(zap.String("group", g.Name))
		gl.Info("processing subfolder", zap.String("color_image", filepath.Base(g.ColorImage)), zap.Int("masks", len(g.Masks)))
		if len(g.Ignored) > 0 {
			gl.Warn("multiple color images, using the last one", zap.Strings("ignored", baseNames(g.Ignored)))
		}

		summary.Groups = append(summary.Groups, g.Name)
		summary.Results = append(summary.Results, d.processGroup(ctx, g, bar, gl)...)
	}
	if runErr == nil {
		runErr = ctx.Err()
	}
	_ = bar.Finish()

	summary.FinishedAt = time.Now().UTC()
	logger.Info("benchmark finished",
		zap.Int("ok", summary.Succeeded()),
		zap.Int("partial", summary.Partial()),
		zap.Int("failed", summary.Failed()),
		zap.Int("skipped_groups", len(summary.Skipped)),
		zap.Duration("cost", summary.FinishedAt.Sub(summary.StartedAt)))

	if d.recorder != nil {
		// 取消后仍然落库，记录部分结果
		if err := d.recorder.RecordRun(context.WithoutCancel(ctx), summary); err != nil {
			logger.Error("failed to record run", zap.Error(err))
			runErr = errors.Join(runErr, fmt.Errorf("record run: %w", err))
		}
	}
	return summary, runErr
}

// processGroup runs the group's masks on at most Workers goroutines and
// returns the results in mask order. Masks not started before ctx is
// cancelled are left out.
func (d *Driver) processGroup(ctx context.Context, g Group, bar *progressbar.ProgressBar, logger *zap.Logger) []PairResult {
	results := make([]PairResult, len(g.Masks))
	started := make([]bool, len(g.Masks))

	var eg errgroup.Group
	eg.SetLimit(d.opts.Workers)
	for i, mask := range g.Masks {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			// Go blocks while the pool is full, so ctx may be done by now
			if ctx.Err() != nil {
				return nil
			}
			started[i] = true
			results[i] = d.processPair(ctx, g, mask, logger)
			_ = bar.Add(1)
			return nil
		})
	}
	_ = eg.Wait()

	out := results[:0]
	for i, r := range results {
		if started[i] {
			out = append(out, r)
		}
	}
	return out
}

func (d *Driver) processPair(ctx context.Context, g Group, mask string, logger *zap.Logger) PairResult {
	start := time.Now()
	name := filepath.Base(mask)
	res := PairResult{Group: g.Name, ColorImage: g.ColorImage, Mask: mask}
	pl := logger.With(zap.String("mask", name))

	resultPath := filepath.Join(d.opts.OutputFolder, name)
	if err := d.pipeline.EraseToFile(ctx, g.ColorImage, mask, resultPath); err != nil {
		stage := StageRequest
		var pe *PairError
		if errors.As(err, &pe) {
			stage = pe.Stage
		}
		res.fail(stage, err)
		pl.Error("pair failed", zap.String("stage", string(stage)), zap.Error(err))
		res.Duration = time.Since(start)
		return res
	}
	res.ResultPath = resultPath

	demoPath := filepath.Join(d.opts.OutputFolder, DemoName(name))
	if err := composite.ComposeFiles(g.ColorImage, mask, resultPath, demoPath); err != nil {
		res.fail(StageComposite, newPairError(StageComposite, mask, err))
		pl.Error("failed to concatenate images", zap.Error(err))
		res.Duration = time.Since(start)
		return res
	}
	res.DemoPath = demoPath
	pl.Info("demo image saved", zap.String("path", demoPath))
	res.Duration = time.Since(start)
	return res
}

func (d *Driver) newProgressBar(total int) *progressbar.ProgressBar {
	w := d.opts.Progress
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("erasing"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
	)
}
