package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chaos-io/eraser-bench/benchmark"
	"github.com/chaos-io/eraser-bench/composite"
	"github.com/chaos-io/eraser-bench/config"
	"github.com/chaos-io/eraser-bench/util"
)

type eraseOptions struct {
	Image  string
	Mask   string
	Output string
	Demo   string
}

var eraseOpts eraseOptions

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase one mask from one image and save the result",
	Example: `  eraser-bench erase --image scene_.png --mask mask1.png --output out/mask1.png
  eraser-bench erase --image scene_.png --mask mask1.png --output out/mask1.png --demo out/mask1_demo.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateAPI(); err != nil {
			return err
		}
		return runErase(cmd.Context(), cfg, eraseOpts, util.Logger)
	},
}

func init() {
	f := eraseCmd.Flags()
	f.StringVar(&eraseOpts.Image, "image", "", "color image")
	f.StringVar(&eraseOpts.Mask, "mask", "", "mask image")
	f.StringVar(&eraseOpts.Output, "output", "", "where to write the erased image")
	f.StringVar(&eraseOpts.Demo, "demo", "", "also write a side-by-side demo image here")
	_ = eraseCmd.MarkFlagRequired("image")
	_ = eraseCmd.MarkFlagRequired("mask")
	_ = eraseCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(eraseCmd)
}

func runErase(ctx context.Context, c *config.Config, opts eraseOptions, logger *zap.Logger) error {
	if dir := filepath.Dir(opts.Output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output folder: %w", err)
		}
	}

	p := benchmark.NewPipeline(newEraserClient(c), logger)
	if err := p.EraseToFile(ctx, opts.Image, opts.Mask, opts.Output); err != nil {
		return err
	}
	logger.Info("erased", zap.String("output", opts.Output))

	if opts.Demo == "" {
		return nil
	}
	if err := composite.ComposeFiles(opts.Image, opts.Mask, opts.Output, opts.Demo); err != nil {
		return fmt.Errorf("compose demo: %w", err)
	}
	logger.Info("demo image saved", zap.String("path", opts.Demo))
	return nil
}
