package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/covspect/covspect/pkg/config"
)

// NewFiltersCmd creates the filters command
func NewFiltersCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	var sf *storeFlags

	cmd := &cobra.Command{
		Use:   "filters",
		Short: "List the platforms and suites with reports",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := sf.apply(cmd, cfg)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilters(cfg)
		},
	}

	sf = registerStoreFlags(cmd, cfg)

	return cmd
}

// runFilters prints the filter catalog for the repository.
func runFilters(cfg *config.Config) error {
	ctx := context.Background()

	svc, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	filters, err := svc.Filters(ctx, cfg.DefaultRepository)
	if err != nil {
		return err
	}

	fmt.Printf("platforms: %s\n", formatFilterList(filters.Platforms))
	fmt.Printf("suites:    %s\n", formatFilterList(filters.Suites))
	return nil
}

func formatFilterList(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, ", ")
}
