// Package printing hands booked shipping documents to print spools. Driver
// invocation is left to whatever agent drains the spool directories, so the
// connector runs the same on a headless host as next to a Zebra printer.
package printing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when a print target has no spool directory.
var ErrNotConfigured = errors.New("printer not configured")

// Printer receives booked shipping documents for printing.
type Printer interface {
	// PrintLabel queues a shipping label for the label printer.
	PrintLabel(orderNo string, pdf []byte) error

	// PrintDocument queues a secondary document (shipment list and the
	// like) for the document printer.
	PrintDocument(orderNo, kind string, pdf []byte) error
}

// SpoolPrinter drops documents into spool directories, one file per job.
type SpoolPrinter struct {
	labelDir    string
	documentDir string
	logger      *otelzap.Logger
}

// NewSpoolPrinter creates a spool printer. An empty documentDir disables
// document printing.
func NewSpoolPrinter(labelDir, documentDir string, logger *otelzap.Logger) *SpoolPrinter {
	return &SpoolPrinter{
		labelDir:    labelDir,
		documentDir: documentDir,
		logger:      logger,
	}
}

// PrintLabel writes the label into the label spool.
func (p *SpoolPrinter) PrintLabel(orderNo string, pdf []byte) error {
	if p.labelDir == "" {
		return ErrNotConfigured
	}
	return p.spool(p.labelDir, orderNo, "label", pdf)
}

// PrintDocument writes the document into the document spool.
func (p *SpoolPrinter) PrintDocument(orderNo, kind string, pdf []byte) error {
	if p.documentDir == "" {
		return ErrNotConfigured
	}
	if kind == "" {
		kind = "document"
	}
	return p.spool(p.documentDir, orderNo, kind, pdf)
}

func (p *SpoolPrinter) spool(dir, orderNo, kind string, pdf []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating spool dir %s: %w", dir, err)
	}
	name := fmt.Sprintf("%s_%s_%s.pdf", orderNo, kind, time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return fmt.Errorf("writing spool file %s: %w", path, err)
	}
	p.logger.Debug("Queued document for printing",
		zap.String("order_no", orderNo),
		zap.String("kind", kind),
		zap.String("path", path),
	)
	return nil
}

// NopPrinter accepts every document and prints nothing.
type NopPrinter struct{}

// PrintLabel discards the label.
func (NopPrinter) PrintLabel(orderNo string, pdf []byte) error { return nil }

// PrintDocument discards the document.
func (NopPrinter) PrintDocument(orderNo, kind string, pdf []byte) error { return nil }

var (
	_ Printer = (*SpoolPrinter)(nil)
	_ Printer = NopPrinter{}
)
