// Package notify renders customer tracking notifications into an outbox
// directory. SMTP relay is handled by an external agent draining the outbox.
package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Tracking page prefixes per carrier.
const (
	dhlTrackingURL      = "https://www.dhl.com/se-en/home/tracking.html?tracking-id="
	postnordTrackingURL = "https://tracking.postnord.com/en/?id="
)

// TrackingMessage is one customer notification.
type TrackingMessage struct {
	To         string
	OrderNo    string
	Tracking   string
	Carrier    string
	CustomText string
}

// Mailer sends tracking notifications.
type Mailer interface {
	SendTracking(ctx context.Context, msg TrackingMessage) error
}

// TrackingURL returns the carrier tracking page for a tracking number, or
// the bare number when no tracking page is known for the carrier.
func TrackingURL(carrier, tracking string) string {
	switch strings.ToUpper(strings.TrimSpace(carrier)) {
	case "DHL":
		return dhlTrackingURL + tracking
	case "PN":
		return postnordTrackingURL + tracking
	default:
		return tracking
	}
}

// OutboxMailer writes one message file per notification.
type OutboxMailer struct {
	dir    string
	from   string
	logger *otelzap.Logger
}

// NewOutboxMailer creates an outbox mailer writing into dir.
func NewOutboxMailer(dir, from string, logger *otelzap.Logger) *OutboxMailer {
	return &OutboxMailer{dir: dir, from: from, logger: logger}
}

// SendTracking renders the notification and writes it into the outbox.
// Messages without a tracking number are skipped with a warning; messages
// without a recipient are an error.
func (m *OutboxMailer) SendTracking(ctx context.Context, msg TrackingMessage) error {
	if msg.To == "" {
		return fmt.Errorf("notification for order %s has no recipient", msg.OrderNo)
	}
	if msg.Tracking == "" {
		m.logger.Ctx(ctx).Warn("No tracking number, skipping notification",
			zap.String("order_no", msg.OrderNo),
		)
		return nil
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("creating outbox dir %s: %w", m.dir, err)
	}

	name := fmt.Sprintf("%s_%s.eml", msg.OrderNo, time.Now().Format("20060102_150405"))
	path := filepath.Join(m.dir, name)
	if err := os.WriteFile(path, []byte(m.render(msg)), 0o644); err != nil {
		return fmt.Errorf("writing notification %s: %w", path, err)
	}

	m.logger.Ctx(ctx).Info("Tracking notification queued",
		zap.String("order_no", msg.OrderNo),
		zap.String("to", msg.To),
		zap.String("tracking", msg.Tracking),
	)
	return nil
}

// render produces the outbox file: minimal headers followed by the customer
// text in Swedish, matching what the warehouse sends today.
func (m *OutboxMailer) render(msg TrackingMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\n", m.from)
	fmt.Fprintf(&b, "To: %s\n", msg.To)
	fmt.Fprintf(&b, "Subject: Din order %s har skickats!\n", msg.OrderNo)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Vi har skickat din order med %s.\n\n", msg.Carrier)
	fmt.Fprintf(&b, "Spårningsnummer: %s\n", msg.Tracking)
	fmt.Fprintf(&b, "Spåra din leverans: %s\n", TrackingURL(msg.Carrier, msg.Tracking))
	if msg.CustomText != "" {
		fmt.Fprintf(&b, "\n%s\n", msg.CustomText)
	}
	b.WriteString("\nDetta mail skickades automatiskt. Svara inte på detta mail.\n")
	return b.String()
}

var _ Mailer = (*OutboxMailer)(nil)
