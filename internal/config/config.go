package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the connector.
type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile     string `envconfig:"LOG_FILE"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"garp-shipping-connector"`
	Version     string `envconfig:"VERSION" default:"dev"`

	// Watched folders
	WatchDir      string `envconfig:"WATCH_DIR" default:"./export"`
	DoneDir       string `envconfig:"DONE_DIR" default:"./export/done"`
	ErrorDir      string `envconfig:"ERROR_DIR" default:"./export/error"`
	LabelDir      string `envconfig:"LABEL_DIR" default:"./labels"`
	FileExtension string `envconfig:"FILE_EXTENSION" default:".xml"`

	// File settling and locking
	StabilityInterval  time.Duration `envconfig:"STABILITY_INTERVAL" default:"2s"`
	StabilityMaxChecks int           `envconfig:"STABILITY_MAX_CHECKS" default:"10"`
	LockStaleAfter     time.Duration `envconfig:"LOCK_STALE_AFTER" default:"5m"`

	// Carrier HTTP
	HTTPTimeout      time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	HTTPMaxRetries   int           `envconfig:"HTTP_MAX_RETRIES" default:"3"`
	HTTPRetryWaitMin time.Duration `envconfig:"HTTP_RETRY_WAIT_MIN" default:"1s"`
	HTTPRetryWaitMax time.Duration `envconfig:"HTTP_RETRY_WAIT_MAX" default:"30s"`

	// Event bus and status store
	EventBuffer  int `envconfig:"EVENT_BUFFER" default:"256"`
	EventHistory int `envconfig:"EVENT_HISTORY" default:"100"`

	// Sender (consignor) identity stamped on every booking
	SenderID          string `envconfig:"SENDER_ID"`
	SenderName        string `envconfig:"SENDER_NAME" default:"Garp Logistics AB"`
	SenderAddress     string `envconfig:"SENDER_ADDRESS"`
	SenderPostalCode  string `envconfig:"SENDER_POSTAL_CODE"`
	SenderCity        string `envconfig:"SENDER_CITY"`
	SenderCountryCode string `envconfig:"SENDER_COUNTRY_CODE" default:"SE"`
	SenderPhone       string `envconfig:"SENDER_PHONE"`
	SenderEmail       string `envconfig:"SENDER_EMAIL"`
	SenderReference   string `envconfig:"SENDER_REFERENCE"`

	// DHL Freight
	DHLEnabled bool   `envconfig:"DHL_ENABLED" default:"true"`
	DHLAPIKey  string `envconfig:"DHL_API_KEY"`
	DHLBaseURL string `envconfig:"DHL_BASE_URL" default:"https://api.freight-logistics.dhl.com"`
	DHLUseMock bool   `envconfig:"DHL_USE_MOCK" default:"false"`

	// PostNord
	PostNordEnabled        bool   `envconfig:"POSTNORD_ENABLED" default:"true"`
	PostNordAPIKey         string `envconfig:"POSTNORD_API_KEY"`
	PostNordBaseURL        string `envconfig:"POSTNORD_BASE_URL" default:"https://api2.postnord.com/rest"`
	PostNordCustomerNumber string `envconfig:"POSTNORD_CUSTOMER_NUMBER"`
	PostNordUseMock        bool   `envconfig:"POSTNORD_USE_MOCK" default:"false"`

	// Bring
	BringEnabled bool `envconfig:"BRING_ENABLED" default:"false"`

	// Printing
	PrintEnabled          bool   `envconfig:"PRINT_ENABLED" default:"true"`
	PrintSpoolDir         string `envconfig:"PRINT_SPOOL_DIR" default:"./spool"`
	PrintDocumentSpoolDir string `envconfig:"PRINT_DOCUMENT_SPOOL_DIR"`

	// Notifications
	NotifyEnabled   bool   `envconfig:"NOTIFY_ENABLED" default:"false"`
	NotifyOutboxDir string `envconfig:"NOTIFY_OUTBOX_DIR" default:"./outbox"`
	NotifyFrom      string `envconfig:"NOTIFY_FROM" default:"noreply@garp.local"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"http://localhost:4318"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry resource attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("watch.dir", c.WatchDir),
		attribute.Bool("dhl.enabled", c.DHLEnabled),
		attribute.Bool("postnord.enabled", c.PostNordEnabled),
		attribute.Bool("bring.enabled", c.BringEnabled),
	}
}
