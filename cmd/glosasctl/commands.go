package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/cartera-salud/glosas/internal/app"
	"github.com/cartera-salud/glosas/internal/glosas"
	glosasdb "github.com/cartera-salud/glosas/internal/glosas/db"
	"github.com/cartera-salud/glosas/internal/glosas/export"
	"github.com/cartera-salud/glosas/internal/platform/db"
	"github.com/cartera-salud/glosas/jobs"
)

func newRangeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "range",
		Short: "Print the notification date span of the stored data",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rt, _, err := opts.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			rng, err := rt.Service.DateRange(cmd.Context())
			if err != nil {
				return err
			}
			if !rng.OK {
				fmt.Fprintln(cmd.OutOrStdout(), "no dated rows")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", rng.Min.Format(export.LayoutDate), rng.Max.Format(export.LayoutDate))
			return nil
		},
	}
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the classification over one snapshot and print the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := opts.window()
			if err != nil {
				return err
			}
			cfg, rt, logger, err := opts.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			var stats glosas.Stats
			err = db.ReadSnapshot(cmd.Context(), rt.Pool, func(tx pgx.Tx) error {
				queries := glosasdb.New(tx).WithTable(cfg.GlosasTable)
				svc := glosas.NewService(queries, nil, logger, nil, glosas.ServiceConfig{EntityLimit: cfg.EntityLimit})
				var err error
				stats, err = svc.Analyze(cmd.Context(), window)
				return err
			})
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), stats); err != nil {
				return err
			}
			if strict && !stats.IntegrityOK {
				return errors.New("classification integrity check failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when the integrity check fails")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the per-category workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := opts.window()
			if err != nil {
				return err
			}
			_, rt, _, err := opts.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			reports, err := rt.Service.Reports(cmd.Context(), window)
			if errors.Is(err, glosas.ErrNotFound) {
				return errors.New("no data for the selected window")
			}
			if err != nil {
				return err
			}
			if out == "" {
				out = export.FileName(window, time.Now())
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.WriteWorkbook(f, reports); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d sheets)\n", out, len(reports))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (defaults to the report file name)")
	return cmd
}

func newWarmupCmd(opts *rootOptions) *cobra.Command {
	var months int
	cmd := &cobra.Command{
		Use:   "warmup",
		Short: "Enqueue a cache warmup run for the worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			if err != nil {
				return err
			}
			defer client.Close()

			info, err := client.EnqueueCacheWarmup(cmd.Context(), months)
			if errors.Is(err, asynq.ErrDuplicateTask) {
				fmt.Fprintln(cmd.OutOrStdout(), "warmup already queued")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s on %s\n", info.ID, info.Queue)
			return nil
		},
	}
	cmd.Flags().IntVar(&months, "months", 12, "Trailing months to warm")
	return cmd
}
