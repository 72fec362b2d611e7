package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/covspect/covspect/pkg/config"
)

// NewLatestCmd creates the latest command
func NewLatestCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	var sf *storeFlags
	var count int

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "List the newest coverage reports",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := sf.apply(cmd, cfg)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLatest(cfg, count)
		},
	}

	sf = registerStoreFlags(cmd, cfg)
	cmd.Flags().IntVarP(&count, "count", "n", 10, "Number of reports to list")

	return cmd
}

// runLatest prints the newest reports for the repository, newest first.
func runLatest(cfg *config.Config, count int) error {
	ctx := context.Background()

	svc, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	reports, err := svc.LatestReports(ctx, cfg.DefaultRepository, count)
	if err != nil {
		return err
	}

	if len(reports) == 0 {
		fmt.Println("No coverage reports found.")
		return nil
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"REVISION", "PUSH", "AGE"})
	for _, report := range reports {
		age := "unknown"
		if !report.Timestamp.IsZero() {
			age = humanize.Time(report.Timestamp)
		}
		tbl.AppendRow(table.Row{report.Revision, report.Push, age})
	}
	tbl.Render()

	return nil
}
