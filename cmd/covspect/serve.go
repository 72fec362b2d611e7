package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/covspect/covspect/internal/metrics"
	"github.com/covspect/covspect/internal/server"
	"github.com/covspect/covspect/internal/service"
	"github.com/covspect/covspect/internal/store"
	"github.com/covspect/covspect/pkg/config"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	var sf *storeFlags
	var refreshStr string
	var cacheTTLStr string

	cmd := &cobra.Command{
		Use:   "serve [store-url]",
		Short: "Serve coverage queries over HTTP",
		Long: `Start the coverage query server.

The server answers /v2/path, /v2/history, /v2/latest and the other
query endpoints, keeps a revision index for the configured repository
warm, and caches aggregation results in memory.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.Verbose = verbose
			if len(args) > 0 {
				cfg.StoreURL = args[0]
			}

			fc, err := sf.apply(cmd, cfg)
			if err != nil {
				return err
			}

			if fc != nil {
				if !cmd.Flags().Changed("port") && fc.ServerPort != nil {
					cfg.ServerPort = *fc.ServerPort
				}
				if !cmd.Flags().Changed("concurrency") && fc.Concurrency != nil {
					cfg.Concurrency = *fc.Concurrency
				}
				if refreshStr == "" {
					refreshStr = fc.RefreshInterval
				}
				if cacheTTLStr == "" {
					cacheTTLStr = fc.CacheTTL
				}
			}

			if refreshStr != "" {
				cfg.IndexRefreshInterval, err = config.ParseDuration(refreshStr)
				if err != nil {
					return fmt.Errorf("invalid --refresh-interval duration: %w", err)
				}
			}
			if cacheTTLStr != "" {
				cfg.CacheTTL, err = config.ParseDuration(cacheTTLStr)
				if err != nil {
					return fmt.Errorf("invalid --cache-ttl duration: %w", err)
				}
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
	}

	sf = registerStoreFlags(cmd, cfg)

	cmd.Flags().IntVarP(&cfg.ServerPort, "port", "p", cfg.ServerPort, "Port to listen on")
	cmd.Flags().StringVar(&refreshStr, "refresh-interval", "", "Revision index refresh interval (e.g., 5m)")
	cmd.Flags().StringVar(&cacheTTLStr, "cache-ttl", "", "Query cache TTL (e.g., 10m)")
	cmd.Flags().IntVar(&cfg.CacheMaxSize, "cache-max-size", cfg.CacheMaxSize, "Query cache entry limit")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Parallel report fetches for history scans")

	return cmd
}

// runServe opens the store and runs the query server until interrupted.
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Verbose {
		slog.Debug("starting coverage server",
			"store", cfg.StoreURL,
			"repository", cfg.DefaultRepository,
			"port", cfg.ServerPort,
			"refresh_interval", cfg.IndexRefreshInterval,
			"cache_ttl", cfg.CacheTTL,
			"cache_max_size", cfg.CacheMaxSize,
			"concurrency", cfg.Concurrency)
	}

	st, err := store.Open(ctx, cfg.StoreURL, store.Options{
		Timeout:   cfg.StoreTimeout,
		RateLimit: cfg.StoreRateLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}

	m := metrics.New()
	svc := service.New(cfg, st, m)
	defer svc.Close()

	svc.Warmup(ctx)
	go svc.Run(ctx)

	srv := server.New(cfg, svc, m)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	fmt.Fprintf(os.Stderr, "Serving coverage queries at http://localhost:%d (Ctrl+C to stop)\n", cfg.ServerPort)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	return nil
}
