package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/covspect/covspect/internal/metrics"
	"github.com/covspect/covspect/internal/service"
	"github.com/covspect/covspect/internal/store"
	"github.com/covspect/covspect/pkg/config"
)

// storeFlags carries the flag values shared by every command that
// opens a report store. Duration flags stay strings until apply parses
// them with config.ParseDuration.
type storeFlags struct {
	configPath string
	timeoutStr string
}

// registerStoreFlags binds the shared store flags on cmd. String flags
// write straight into cfg; apply later fills whatever is still empty
// from a config file.
func registerStoreFlags(cmd *cobra.Command, cfg *config.Config) *storeFlags {
	sf := &storeFlags{}

	cmd.Flags().StringVar(&cfg.StoreURL, "store", "", "Report store (gs://bucket/prefix or a local directory)")
	cmd.Flags().StringVar(&cfg.DefaultRepository, "repository", "", "Repository the command queries")
	cmd.Flags().StringVar(&sf.configPath, "config", "", "Config file path (default: "+config.DefaultConfigFileYAML+")")
	cmd.Flags().StringVar(&sf.timeoutStr, "store-timeout", "", "Store call timeout (e.g., 30s, 2m)")
	cmd.Flags().IntVar(&cfg.StoreRateLimit, "store-rate-limit", cfg.StoreRateLimit, "Store requests per second")

	return sf
}

// apply merges config-file values under explicit flags and parses the
// duration strings. Flags always win over file values. The loaded file
// is returned so commands can merge their own extra fields.
func (sf *storeFlags) apply(cmd *cobra.Command, cfg *config.Config) (*config.FileConfig, error) {
	var fc *config.FileConfig
	var err error

	if sf.configPath != "" {
		fc, err = config.LoadFile(sf.configPath)
	} else {
		fc, _, err = config.AutoLoadFile()
	}
	if err != nil {
		return nil, err
	}

	if fc != nil {
		if cfg.StoreURL == "" {
			cfg.StoreURL = fc.StoreEndpoint()
		}
		if cfg.DefaultRepository == "" {
			cfg.DefaultRepository = fc.RepositoryValue()
		}
		if !cmd.Flags().Changed("store-rate-limit") && fc.StoreRateLimit != nil {
			cfg.StoreRateLimit = *fc.StoreRateLimit
		}
		if sf.timeoutStr == "" {
			sf.timeoutStr = fc.StoreTimeoutValue()
		}
		if len(cfg.ExcludePaths) == 0 {
			cfg.ExcludePaths = fc.ExcludePaths
		}
	}

	if sf.timeoutStr != "" {
		cfg.StoreTimeout, err = config.ParseDuration(sf.timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --store-timeout duration: %w", err)
		}
	}

	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("--store is required (or set store_url in %s)", config.DefaultConfigFileYAML)
	}

	cfg.Normalize()
	return fc, nil
}

// openService opens the report store behind a query service. The
// caller owns the service and must Close it.
func openService(ctx context.Context, cfg *config.Config) (*service.Service, error) {
	st, err := store.Open(ctx, cfg.StoreURL, store.Options{
		Timeout:   cfg.StoreTimeout,
		RateLimit: cfg.StoreRateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open report store: %w", err)
	}

	svc := service.New(cfg, st, metrics.New())
	svc.Warmup(ctx)
	return svc, nil
}
