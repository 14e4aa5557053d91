package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/cartera-salud/glosas/internal/app"
	"github.com/cartera-salud/glosas/internal/glosas"
)

type rootOptions struct {
	verbose bool
	envFile string
	from    string
	to      string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "glosasctl",
		Short: "Classify and export unfiled glosa invoices",
		Long: `glosasctl reads the glosas table configured through the environment
(PG_DSN, GLOSAS_TABLE) and runs the same reports the API serves.

Example Usage:
  glosasctl range
  glosasctl check --desde 2024-01-01 --hasta 2024-03-31
  glosasctl export --desde 2024-01-01 --hasta 2024-03-31 --out reporte.xlsx
  glosasctl warmup --months 6`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.LoadDotEnv(opts.envFile)
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output for debugging")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before the configuration")
	cmd.PersistentFlags().StringVar(&opts.from, "desde", "", "Window start (YYYY-MM-DD)")
	cmd.PersistentFlags().StringVar(&opts.to, "hasta", "", "Window end (YYYY-MM-DD)")

	cmd.AddCommand(
		newRangeCmd(opts),
		newCheckCmd(opts),
		newExportCmd(opts),
		newWarmupCmd(opts),
	)
	return cmd
}

func (o *rootOptions) window() (glosas.Window, error) {
	return glosas.ParseWindow(o.from, o.to)
}

func (o *rootOptions) logger(cfg *app.Config) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
}

// runtime loads configuration and connects without a shared cache.
func (o *rootOptions) runtime(ctx context.Context) (*app.Config, *app.Runtime, *slog.Logger, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	cfg.CacheBackend = app.CacheNone
	logger := o.logger(cfg)
	rt, err := app.NewRuntime(ctx, cfg, logger, prometheus.NewRegistry(), "glosasctl")
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, rt, logger, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
