package main

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"

	"github.com/felixwingard/garp-shipping-connector/internal/config"
	"github.com/felixwingard/garp-shipping-connector/internal/lock"
	"github.com/felixwingard/garp-shipping-connector/internal/notify"
	"github.com/felixwingard/garp-shipping-connector/internal/pipeline"
	"github.com/felixwingard/garp-shipping-connector/internal/printing"
	"github.com/felixwingard/garp-shipping-connector/internal/telemetry"
	"github.com/felixwingard/garp-shipping-connector/pkg/carrier"
	"github.com/felixwingard/garp-shipping-connector/pkg/carrier/bring"
	"github.com/felixwingard/garp-shipping-connector/pkg/carrier/dhl"
	"github.com/felixwingard/garp-shipping-connector/pkg/carrier/postnord"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(cfg.LogLevel, cfg.LogFile)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version, cfg.Attributes()...)
	return shutdown, err
}

func initCarrierRegistry(cfg *config.Config, logger *otelzap.Logger) *carrier.Registry {
	registry := carrier.NewRegistry()

	sender := carrier.Sender{
		Name:        cfg.SenderName,
		Address:     cfg.SenderAddress,
		PostalCode:  cfg.SenderPostalCode,
		City:        cfg.SenderCity,
		CountryCode: cfg.SenderCountryCode,
		Phone:       cfg.SenderPhone,
		Email:       cfg.SenderEmail,
		Reference:   cfg.SenderReference,
	}
	httpCfg := carrier.HTTPClientConfig{
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.HTTPMaxRetries,
		RetryWaitMin: cfg.HTTPRetryWaitMin,
		RetryWaitMax: cfg.HTTPRetryWaitMax,
	}
	tracer := otel.GetTracerProvider().Tracer(cfg.ServiceName)

	// Register enabled carriers
	if cfg.DHLEnabled {
		registry.Register(dhl.New(dhl.Config{
			APIKey:         cfg.DHLAPIKey,
			BaseURL:        cfg.DHLBaseURL,
			CustomerNumber: cfg.SenderID,
			Sender:         sender,
			UseMock:        cfg.DHLUseMock,
			HTTP:           httpCfg,
		}, logger, tracer))
	}

	if cfg.PostNordEnabled {
		registry.Register(postnord.New(postnord.Config{
			APIKey:         cfg.PostNordAPIKey,
			BaseURL:        cfg.PostNordBaseURL,
			CustomerNumber: cfg.PostNordCustomerNumber,
			Sender:         sender,
			UseMock:        cfg.PostNordUseMock,
			HTTP:           httpCfg,
		}, logger, tracer))
	}

	if cfg.BringEnabled {
		registry.Register(bring.New(logger))
	}

	return registry
}

// newOrchestrator wires the file pipeline from configuration. A nil bus
// and nil metrics are valid for one-shot runs.
func newOrchestrator(cfg *config.Config, registry *carrier.Registry, bus *pipeline.Bus, logger *otelzap.Logger, metrics *telemetry.Metrics) *pipeline.Orchestrator {
	var printer printing.Printer = printing.NopPrinter{}
	if cfg.PrintEnabled {
		printer = printing.NewSpoolPrinter(cfg.PrintSpoolDir, cfg.PrintDocumentSpoolDir, logger)
	}

	var mailer notify.Mailer
	if cfg.NotifyEnabled {
		mailer = notify.NewOutboxMailer(cfg.NotifyOutboxDir, cfg.NotifyFrom, logger)
	}

	return pipeline.New(
		pipeline.Config{
			DoneDir:  cfg.DoneDir,
			ErrorDir: cfg.ErrorDir,
			LabelDir: cfg.LabelDir,
		},
		registry,
		lock.NewManager(cfg.LockStaleAfter),
		printer,
		mailer,
		bus,
		logger,
		metrics,
		otel.GetTracerProvider().Tracer(cfg.ServiceName),
	)
}
