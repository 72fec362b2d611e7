package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/covspect/covspect/internal/plot"
	"github.com/covspect/covspect/internal/service"
	"github.com/covspect/covspect/pkg/config"
)

// NewHistoryCmd creates the history command
func NewHistoryCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	var sf *storeFlags
	var q service.HistoryQuery
	var sinceStr string
	var plotPath string

	cmd := &cobra.Command{
		Use:   "history [path]",
		Short: "Show how coverage of a path evolved over time",
		Long: `Show the coverage time series for a path, one point per report
in the window, oldest first. Reports missing the requested platform
and suite, or predating the file, are skipped.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := sf.apply(cmd, cfg); err != nil {
				return err
			}

			if sinceStr != "" {
				lookback, err := config.ParseDuration(sinceStr)
				if err != nil {
					return fmt.Errorf("invalid --since duration: %w", err)
				}
				q.Start = time.Now().Add(-lookback)
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				q.Path = args[0]
			}
			q.Repository = cfg.DefaultRepository
			return runHistory(cfg, q, plotPath)
		},
	}

	sf = registerStoreFlags(cmd, cfg)

	cmd.Flags().StringVar(&sinceStr, "since", "90d", "History window (e.g., 30d, 12h)")
	cmd.Flags().StringVar(&q.Platform, "platform", "", "Platform filter (default: all)")
	cmd.Flags().StringVar(&q.Suite, "suite", "", "Suite filter (default: all)")
	cmd.Flags().StringVar(&plotPath, "plot", "", "Write an HTML chart to this file")

	return cmd
}

// runHistory prints the series and optionally renders it as a chart.
func runHistory(cfg *config.Config, q service.HistoryQuery, plotPath string) error {
	ctx := context.Background()

	svc, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	series, err := svc.History(ctx, q)
	if err != nil {
		return err
	}

	if len(series) == 0 {
		fmt.Println("No coverage reports in the requested window.")
		return nil
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"DATE", "REVISION", "COVERAGE"})
	for _, point := range series {
		date := time.Unix(point.Date, 0).UTC().Format("2006-01-02")
		tbl.AppendRow(table.Row{date, point.Changeset, colorizePercent(point.Coverage)})
	}
	tbl.Render()

	if plotPath != "" {
		display := q.Path
		if display == "" {
			display = "/"
		}
		title := fmt.Sprintf("Coverage history for %s", display)
		subtitle := historySubtitle(cfg.DefaultRepository, q.Platform, q.Suite)
		if err := plot.WriteHistory(plotPath, title, subtitle, series); err != nil {
			return fmt.Errorf("failed to write plot: %w", err)
		}
		fmt.Printf("Chart written to %s\n", plotPath)
	}

	return nil
}

func historySubtitle(repository, platform, suite string) string {
	if platform == "" {
		platform = "all"
	}
	if suite == "" {
		suite = "all"
	}
	return fmt.Sprintf("%s, platform %s, suite %s", repository, platform, suite)
}
