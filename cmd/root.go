// Package cmd wires the eraser benchmark commands together.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chaos-io/eraser-bench/config"
	"github.com/chaos-io/eraser-bench/eraser"
	"github.com/chaos-io/eraser-bench/util"
	nhttp "github.com/chaos-io/eraser-bench/util/http"
)

// Version is the application version.
const Version = "0.1.0"

var (
	// v holds defaults, environment and bound flags
	v = config.NewViper()
	// cfg is loaded once per invocation in PersistentPreRunE
	cfg *config.Config

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:           "eraser-bench",
	Short:         "Run an object eraser API over a benchmark folder and build comparison images",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		if err := util.InitLogger(cfg.LogMode); err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		util.Sync()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		util.Logger.Error("command failed", zap.Error(err))
		util.Sync()
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "YAML config file")
	flags.String("api-url", "", "eraser endpoint (default "+config.DefaultAPIURL+")")
	flags.String("api-token", "", "eraser API token")
	flags.Duration("api-timeout", 0, "timeout of each HTTP call (default 30s)")
	flags.String("benchmark-folder", "", "benchmark root, one subfolder per color image (default "+config.DefaultBenchmarkFolder+")")
	flags.String("output-folder", "", "where results and demos are written (default "+config.DefaultOutputFolder+")")
	flags.String("log-mode", "", "debug or release (default debug)")
	flags.String("db", "", "PostgreSQL connection string of the run ledger; benchmark records runs when set")

	bindFlags(rootCmd, map[string]string{
		"api_url":          "api-url",
		"api_token":        "api-token",
		"api_timeout":      "api-timeout",
		"benchmark_folder": "benchmark-folder",
		"output_folder":    "output-folder",
		"log_mode":         "log-mode",
		"db":               "db",
	}, true)
}

// bindFlags binds viper keys to flags of cmd. Only flags set on the command
// line override config, env and defaults.
func bindFlags(cmd *cobra.Command, keys map[string]string, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// newEraserClient builds the API client from the loaded config.
func newEraserClient(c *config.Config) *eraser.Client {
	return eraser.NewClient(c.APIURL, c.APIToken, newHTTPClient(c))
}

// newHTTPClient applies api_timeout as is; 0 means no timeout.
func newHTTPClient(c *config.Config) nhttp.IClient {
	return nhttp.NewHTTPClient(nhttp.WithTimeout(c.APITimeout))
}

// shutdownTimeout bounds cleanup after the root context is cancelled.
const shutdownTimeout = 5 * time.Second
