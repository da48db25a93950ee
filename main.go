package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/felixwingard/garp-shipping-connector/internal/pipeline"
	"github.com/felixwingard/garp-shipping-connector/internal/server"
	"github.com/felixwingard/garp-shipping-connector/internal/status"
	"github.com/felixwingard/garp-shipping-connector/internal/telemetry"
	"github.com/felixwingard/garp-shipping-connector/internal/watcher"
	"github.com/felixwingard/garp-shipping-connector/pkg/carrier"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "garpconnect",
	Short:   "Garp shipping connector - books carrier shipments from Garp order exports",
	Version: version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the export folder and process order files continuously",
	RunE:  runRun,
}

var processCmd = &cobra.Command{
	Use:   "process <file>...",
	Short: "Process order files once and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProcess,
}

var servicePointsCmd = &cobra.Command{
	Use:   "servicepoints",
	Short: "Look up carrier service points near a postal code",
	RunE:  runServicePoints,
}

var (
	spCarrier    string
	spPostalCode string
	spCountry    string
	spLimit      int
)

func init() {
	servicePointsCmd.Flags().StringVar(&spCarrier, "carrier", "", "query a single carrier instead of all")
	servicePointsCmd.Flags().StringVar(&spPostalCode, "postal-code", "", "postal code to search around")
	servicePointsCmd.Flags().StringVar(&spCountry, "country", "SE", "two-letter country code")
	servicePointsCmd.Flags().IntVar(&spLimit, "limit", 10, "maximum service points per carrier")
	servicePointsCmd.MarkFlagRequired("postal-code")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(servicePointsCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(ctx)
	}

	registry := initCarrierRegistry(cfg, logger)

	logger.Info("Starting Garp shipping connector",
		zap.String("version", cfg.Version),
		zap.Int("port", cfg.Port),
		zap.String("watch_dir", cfg.WatchDir),
		zap.Strings("carriers", registry.Names()),
	)

	metrics := telemetry.NewMetrics()
	bus := pipeline.NewBus(cfg.EventBuffer, logger, metrics)
	store := status.NewStore(cfg.EventHistory)

	orchestrator := newOrchestrator(cfg, registry, bus, logger, metrics)
	watch := watcher.New(watcher.Config{
		Dir:                cfg.WatchDir,
		Extension:          cfg.FileExtension,
		StabilityInterval:  cfg.StabilityInterval,
		StabilityMaxChecks: cfg.StabilityMaxChecks,
	}, orchestrator, logger)
	srv := server.New(server.Config{Port: cfg.Port, Version: cfg.Version}, registry, store, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		store.Run(ctx, bus.Events())
		return nil
	})
	g.Go(func() error {
		return watch.Run(ctx)
	})
	g.Go(func() error {
		return srv.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("service error: %w", err)
	}

	logger.Info("Shutdown complete")
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry := initCarrierRegistry(cfg, logger)
	orchestrator := newOrchestrator(cfg, registry, nil, logger, nil)

	failed := 0
	for _, path := range args {
		result, err := orchestrator.ProcessFile(ctx, path)
		if err != nil {
			logger.Error("File processing failed",
				zap.String("file", path),
				zap.Error(err),
			)
			failed++
			continue
		}
		if result.Skipped {
			logger.Warn("File is locked by another process", zap.String("file", path))
			failed++
			continue
		}
		if result.Failed > 0 {
			failed++
		}

		logger.Info("File processed",
			zap.String("file", path),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed),
		)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func runServicePoints(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry := initCarrierRegistry(cfg, logger)

	if spCarrier != "" {
		c, err := registry.Get(spCarrier)
		if err != nil {
			return err
		}
		finder, ok := c.(carrier.ServicePointFinder)
		if !ok {
			return fmt.Errorf("carrier %s does not support service point lookup", c.Name())
		}

		points, err := finder.FindServicePoints(ctx, spPostalCode, spCountry, spLimit)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, carrier.ServicePointResult{Carrier: c.Name(), Points: points})
	}

	results, errs := registry.FindAllServicePoints(ctx, spPostalCode, spCountry, spLimit)
	for _, err := range errs {
		logger.Warn("Service point lookup failed", zap.Error(err))
	}
	return writeJSON(os.Stdout, results)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
