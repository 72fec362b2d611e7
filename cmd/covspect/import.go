package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/tools/cover"

	"github.com/covspect/covspect/internal/covdir"
	"github.com/covspect/covspect/internal/store"
	"github.com/covspect/covspect/pkg/config"
)

// NewImportCmd creates the import command
func NewImportCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	var sf *storeFlags
	var id store.ReportID
	var pushID int64
	var timestamp int64
	var prefix string

	cmd := &cobra.Command{
		Use:   "import <profile>",
		Short: "Import a Go cover profile as a coverage report",
		Long: `Convert a Go cover profile (go test -coverprofile) into a covdir
report and write it into a local report store, where the query
commands and the server can read it.

Push ids order reports within a repository; queries resolve a
changeset to the newest report at or before its push id.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := sf.apply(cmd, cfg); err != nil {
				return err
			}
			if pushID <= 0 {
				return fmt.Errorf("--push-id must be a positive integer")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id.Repository = cfg.DefaultRepository
			if id.Repository == "" {
				return fmt.Errorf("--repository is required")
			}

			ts := time.Now()
			if timestamp > 0 {
				ts = time.Unix(timestamp, 0)
			}

			return runImport(cfg, args[0], id, pushID, ts, prefix)
		},
	}

	sf = registerStoreFlags(cmd, cfg)

	cmd.Flags().StringVar(&id.Changeset, "changeset", "", "Changeset the profile was collected at (required)")
	_ = cmd.MarkFlagRequired("changeset")
	cmd.Flags().Int64Var(&pushID, "push-id", 0, "Push id ordering this report in the repository (required)")
	_ = cmd.MarkFlagRequired("push-id")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "Push time as unix seconds (default: now)")
	cmd.Flags().StringVar(&id.Platform, "platform", store.DefaultFilter, "Platform to file the report under")
	cmd.Flags().StringVar(&id.Suite, "suite", store.DefaultFilter, "Suite to file the report under")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Module path prefix to strip from file names")
	cmd.Flags().StringSliceVar(&cfg.ExcludePaths, "exclude", nil, "Paths and glob patterns to drop from the report")

	return cmd
}

// runImport converts the profile and writes it to the local store.
func runImport(cfg *config.Config, profilePath string, id store.ReportID, pushID int64, ts time.Time, prefix string) error {
	profiles, err := cover.ParseProfiles(profilePath)
	if err != nil {
		return fmt.Errorf("failed to parse cover profile: %w", err)
	}

	root := covdir.FromProfiles(profiles, prefix, cfg.IsPathExcluded)
	doc, err := covdir.Encode(root)
	if err != nil {
		return err
	}

	if strings.Contains(cfg.StoreURL, "://") && !strings.HasPrefix(cfg.StoreURL, "file://") {
		return fmt.Errorf("import writes to local stores only, got %q", cfg.StoreURL)
	}

	st, err := store.OpenLocal(strings.TrimPrefix(cfg.StoreURL, "file://"), store.Options{})
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}
	defer st.Close()

	if err := st.WriteReport(id, pushID, ts, doc); err != nil {
		return err
	}

	totals, err := covdir.Summarize(root)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %s: %d/%d lines covered (%s)\n", id, totals.Covered, totals.Total, colorizePercent(totals.Percent()))
	return nil
}
