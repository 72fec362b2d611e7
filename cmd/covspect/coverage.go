package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/covspect/covspect/internal/covdir"
	"github.com/covspect/covspect/internal/service"
	"github.com/covspect/covspect/pkg/config"
)

// Coverage percentages below these bounds render red and yellow.
const (
	coverageLowBound  = 50.0
	coverageWarnBound = 80.0
)

// NewCoverageCmd creates the coverage command
func NewCoverageCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	var sf *storeFlags
	var q service.PathQuery
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "coverage [path]",
		Short: "Show coverage for a file or directory",
		Long: `Show aggregate coverage for one path of a coverage report.

Directories report the line-weighted percent of their subtree and one
entry per direct child. Files additionally carry per-line hit counts
in --json output. Without --changeset the latest report is used; a
changeset without its own report resolves backward to the nearest
older one.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := sf.apply(cmd, cfg)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				q.Path = args[0]
			}
			q.Repository = cfg.DefaultRepository
			return runCoverage(cfg, q, asJSON)
		},
	}

	sf = registerStoreFlags(cmd, cfg)

	cmd.Flags().StringVar(&q.Changeset, "changeset", "", "Changeset to query (default: latest report)")
	cmd.Flags().StringVar(&q.Platform, "platform", "", "Platform filter (default: all)")
	cmd.Flags().StringVar(&q.Suite, "suite", "", "Suite filter (default: all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON result")

	return cmd
}

// runCoverage resolves one path and prints its aggregate.
func runCoverage(cfg *config.Config, q service.PathQuery, asJSON bool) error {
	ctx := context.Background()

	svc, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	result, err := svc.CoverageForPath(ctx, q)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	display := result.Path
	if display == "" {
		display = "/"
	}
	fmt.Printf("%s  %s  (%s at %s)\n", colorizePercent(result.CoveragePercent), display, result.Type, result.Changeset)

	if result.Type == covdir.TypeDirectory && len(result.Children) > 0 {
		tbl := table.NewWriter()
		tbl.SetOutputMirror(os.Stdout)
		tbl.SetStyle(table.StyleLight)
		tbl.AppendHeader(table.Row{"NAME", "TYPE", "COVERAGE"})
		for _, child := range result.Children {
			tbl.AppendRow(table.Row{child.Name, child.Type, colorizePercent(child.CoveragePercent)})
		}
		tbl.Render()
	}

	return nil
}

// colorizePercent renders a percentage red below 50, yellow below 80
// and green above.
func colorizePercent(pct float64) string {
	formatted := fmt.Sprintf("%.2f%%", pct)
	switch {
	case pct < coverageLowBound:
		return color.RedString(formatted)
	case pct < coverageWarnBound:
		return color.YellowString(formatted)
	default:
		return color.GreenString(formatted)
	}
}
