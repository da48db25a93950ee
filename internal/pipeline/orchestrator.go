// Package pipeline drives order files through the full processing chain:
// lock, parse, book with the carrier, fetch documents, archive, print,
// notify, and finally move the file to done/ or error/.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/felixwingard/garp-shipping-connector/internal/lock"
	"github.com/felixwingard/garp-shipping-connector/internal/notify"
	"github.com/felixwingard/garp-shipping-connector/internal/printing"
	"github.com/felixwingard/garp-shipping-connector/internal/telemetry"
	"github.com/felixwingard/garp-shipping-connector/pkg/carrier"
	"github.com/felixwingard/garp-shipping-connector/pkg/garp"
)

// Config holds the folder layout for processed files.
type Config struct {
	DoneDir  string
	ErrorDir string
	LabelDir string
}

// Orchestrator coordinates the processing of one export file at a time.
type Orchestrator struct {
	config   Config
	registry *carrier.Registry
	locks    lock.Manager
	printer  printing.Printer
	mailer   notify.Mailer
	bus      *Bus
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
}

// New creates an orchestrator. A nil printer disables printing, a nil mailer
// disables notifications, and a nil bus discards events.
func New(
	config Config,
	registry *carrier.Registry,
	locks lock.Manager,
	printer printing.Printer,
	mailer notify.Mailer,
	bus *Bus,
	logger *otelzap.Logger,
	metrics *telemetry.Metrics,
	tracer trace.Tracer,
) *Orchestrator {
	if printer == nil {
		printer = printing.NopPrinter{}
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("pipeline")
	}
	return &Orchestrator{
		config:   config,
		registry: registry,
		locks:    locks,
		printer:  printer,
		mailer:   mailer,
		bus:      bus,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
	}
}

// FileResult summarizes one processed export file.
type FileResult struct {
	File      string
	Succeeded int
	Failed    int
	Skipped   bool
	Shipments []ShipmentResult
}

// ShipmentResult is the outcome of one booking attempt.
type ShipmentResult struct {
	OrderNo  string
	Carrier  string
	Tracking string
	Err      error
}

// ProcessFile runs one export file through the pipeline. A held lock skips
// the file without error; a parse failure moves it to error/ and returns the
// error; shipment failures are recorded in the result and move the file to
// error/ once every shipment has been attempted.
func (o *Orchestrator) ProcessFile(ctx context.Context, path string) (*FileResult, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.ProcessFile",
		trace.WithAttributes(attribute.String("file", filepath.Base(path))))
	defer span.End()

	result := &FileResult{File: path}

	held, err := o.locks.TryAcquire(path)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			o.logger.Ctx(ctx).Warn("File is already being processed, skipping",
				zap.String("file", filepath.Base(path)))
			o.metrics.RecordLockConflict()
			result.Skipped = true
			return result, nil
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	defer func() {
		if releaseErr := held.Release(); releaseErr != nil {
			o.logger.Ctx(ctx).Warn("Failed to release lock", zap.Error(releaseErr))
		}
	}()
	if held.Reclaimed() {
		o.logger.Ctx(ctx).Warn("Removed stale lock", zap.String("file", filepath.Base(path)))
	}

	o.metrics.FileStarted()
	defer o.metrics.FileFinished()

	o.logger.Ctx(ctx).Info("Processing export file", zap.String("file", filepath.Base(path)))

	shipments, err := garp.ParseFile(path)
	if err != nil {
		o.logger.Ctx(ctx).Error("Failed to parse export file",
			zap.String("file", filepath.Base(path)), zap.Error(err))
		o.moveToError(ctx, path, err.Error())
		o.metrics.RecordFile("error")
		o.bus.Publish(Event{Type: EventFileError, Filename: filepath.Base(path), Err: err.Error()})
		return result, err
	}
	o.logger.Ctx(ctx).Info("Parsed export file",
		zap.String("file", filepath.Base(path)), zap.Int("shipments", len(shipments)))

	for _, shipment := range shipments {
		if ctxErr := ctx.Err(); ctxErr != nil {
			o.logger.Ctx(ctx).Warn("Processing interrupted",
				zap.String("order_no", shipment.OrderNo), zap.Error(ctxErr))
			shipmentResult := ShipmentResult{OrderNo: shipment.OrderNo, Err: ctxErr}
			result.Shipments = append(result.Shipments, shipmentResult)
			result.Failed++
			o.bus.Publish(Event{Type: EventShipmentError, OrderNo: shipment.OrderNo, Err: ctxErr.Error()})
			break
		}

		shipmentResult := o.processShipment(ctx, shipment)
		result.Shipments = append(result.Shipments, shipmentResult)
		if shipmentResult.Err != nil {
			result.Failed++
			o.metrics.RecordShipment(shipmentResult.Carrier, "error")
			o.logger.Ctx(ctx).Error("Shipment failed",
				zap.String("order_no", shipmentResult.OrderNo),
				zap.Error(shipmentResult.Err))
			o.bus.Publish(Event{
				Type:    EventShipmentError,
				OrderNo: shipmentResult.OrderNo,
				Carrier: shipmentResult.Carrier,
				Err:     shipmentResult.Err.Error(),
			})
		} else {
			result.Succeeded++
			o.metrics.RecordShipment(shipmentResult.Carrier, "ok")
			o.bus.Publish(Event{
				Type:     EventShipmentOK,
				OrderNo:  shipmentResult.OrderNo,
				Tracking: shipmentResult.Tracking,
				Carrier:  shipmentResult.Carrier,
			})
		}
	}

	if result.Failed > 0 {
		reason := "one or more shipments failed"
		o.moveToError(ctx, path, reason)
		o.metrics.RecordFile("error")
		o.bus.Publish(Event{Type: EventFileError, Filename: filepath.Base(path), Err: reason})
		return result, nil
	}

	if err := o.moveToDone(ctx, path); err != nil {
		return result, err
	}
	o.metrics.RecordFile("done")
	o.bus.Publish(Event{Type: EventFileDone, Filename: filepath.Base(path)})
	return result, nil
}

// processShipment books one shipment and handles its documents. Errors are
// returned in the result so the caller can continue with the remaining
// shipments in the file.
func (o *Orchestrator) processShipment(ctx context.Context, shipment *garp.Shipment) ShipmentResult {
	result := ShipmentResult{OrderNo: shipment.OrderNo}

	if shipment.Service == nil {
		result.Err = fmt.Errorf("order %s has no service information", shipment.OrderNo)
		return result
	}
	carrierName := string(shipment.Service.Carrier)
	result.Carrier = carrierName

	ctx, span := o.tracer.Start(ctx, "pipeline.processShipment", trace.WithAttributes(
		attribute.String("order_no", shipment.OrderNo),
		attribute.String("carrier", carrierName),
	))
	defer span.End()

	o.logger.Ctx(ctx).Info("Processing order",
		zap.String("order_no", shipment.OrderNo),
		zap.String("service", shipment.Service.RawServiceID))

	client, err := o.registry.Get(carrierName)
	if err != nil {
		result.Err = err
		return result
	}

	start := time.Now()
	created, err := client.CreateShipment(ctx, shipment)
	o.metrics.RecordCarrierRequest(carrierName, "create_shipment", requestStatus(err), time.Since(start).Seconds())
	if err != nil {
		result.Err = fmt.Errorf("creating shipment: %w", err)
		return result
	}
	result.Tracking = created.TrackingNumber

	label := created.LabelData
	if len(label) == 0 {
		start = time.Now()
		label, err = client.GetLabel(ctx, created.ShipmentID, "pdf")
		o.metrics.RecordCarrierRequest(carrierName, "get_label", requestStatus(err), time.Since(start).Seconds())
		if err != nil {
			result.Err = fmt.Errorf("retrieving label: %w", err)
			return result
		}
	}

	var shipmentList []byte
	if lister, ok := client.(carrier.DocumentLister); ok {
		shipmentList, err = lister.GetShipmentList(ctx, created.ShipmentID)
		if err != nil {
			o.logger.Ctx(ctx).Warn("Failed to retrieve shipment list",
				zap.String("order_no", shipment.OrderNo), zap.Error(err))
			shipmentList = nil
		}
	}

	if booking := shipment.Service.Booking; booking != nil && booking.PickupBooking && booking.PickupDate != "" {
		booker, ok := client.(carrier.PickupBooker)
		if !ok {
			result.Err = fmt.Errorf("carrier %s cannot book pickups", carrierName)
			return result
		}
		start = time.Now()
		err = booker.RequestPickup(ctx, created.ShipmentID, booking.PickupDate)
		o.metrics.RecordCarrierRequest(carrierName, "request_pickup", requestStatus(err), time.Since(start).Seconds())
		if err != nil {
			result.Err = fmt.Errorf("booking pickup: %w", err)
			return result
		}
		o.logger.Ctx(ctx).Info("Pickup booked",
			zap.String("order_no", shipment.OrderNo),
			zap.String("pickup_date", booking.PickupDate))
	}

	labelPath := filepath.Join(o.config.LabelDir, shipment.OrderNo+".pdf")
	if err := writeFile(labelPath, label); err != nil {
		result.Err = fmt.Errorf("archiving label: %w", err)
		return result
	}
	o.logger.Ctx(ctx).Info("Label archived", zap.String("path", labelPath))

	if err := o.printer.PrintLabel(shipment.OrderNo, label); err != nil {
		o.logger.Ctx(ctx).Warn("Label print failed, label kept on disk",
			zap.String("order_no", shipment.OrderNo), zap.Error(err))
	}

	if len(shipmentList) > 0 {
		listPath := filepath.Join(o.config.LabelDir, shipment.OrderNo+"_shipmentlist.pdf")
		if err := writeFile(listPath, shipmentList); err != nil {
			o.logger.Ctx(ctx).Warn("Failed to archive shipment list",
				zap.String("order_no", shipment.OrderNo), zap.Error(err))
		} else if err := o.printer.PrintDocument(shipment.OrderNo, "shipmentlist", shipmentList); err != nil {
			o.logger.Ctx(ctx).Warn("Shipment list print failed, document kept on disk",
				zap.String("order_no", shipment.OrderNo), zap.Error(err))
		}
	}

	if o.mailer != nil && shipment.Receiver != nil && shipment.Receiver.Email != "" && shipment.HasNotification("enot") {
		msg := notify.TrackingMessage{
			To:         shipment.Receiver.Email,
			OrderNo:    shipment.OrderNo,
			Tracking:   created.TrackingNumber,
			Carrier:    carrierName,
			CustomText: shipment.NotificationMessage("enot"),
		}
		if err := o.mailer.SendTracking(ctx, msg); err != nil {
			o.logger.Ctx(ctx).Warn("Failed to queue tracking notification",
				zap.String("order_no", shipment.OrderNo), zap.Error(err))
		}
	}

	o.logger.Ctx(ctx).Info("Order complete",
		zap.String("order_no", shipment.OrderNo),
		zap.String("tracking", created.TrackingNumber))
	return result
}

func (o *Orchestrator) moveToDone(ctx context.Context, path string) error {
	dest, err := archiveFile(path, o.config.DoneDir)
	if err != nil {
		o.logger.Ctx(ctx).Error("Failed to move file to done dir", zap.Error(err))
		return err
	}
	o.logger.Ctx(ctx).Info("File moved to done", zap.String("dest", filepath.Base(dest)))
	return nil
}

func (o *Orchestrator) moveToError(ctx context.Context, path, reason string) {
	dest, err := archiveFile(path, o.config.ErrorDir)
	if err != nil {
		o.logger.Ctx(ctx).Error("Failed to move file to error dir",
			zap.String("file", filepath.Base(path)), zap.Error(err))
		return
	}

	sidecar := strings.TrimSuffix(dest, filepath.Ext(dest)) + ".error.txt"
	content := fmt.Sprintf("Time: %s\nFile: %s\nError: %s\n",
		time.Now().Format(time.RFC3339), filepath.Base(path), reason)
	if err := os.WriteFile(sidecar, []byte(content), 0o644); err != nil {
		o.logger.Ctx(ctx).Warn("Failed to write error sidecar", zap.Error(err))
	}

	o.logger.Ctx(ctx).Error("File moved to error dir",
		zap.String("dest", filepath.Base(dest)), zap.String("reason", reason))
}

// archiveFile moves path into destDir with a timestamp prefix, falling back
// to copy+remove when rename crosses filesystems.
func archiveFile(path, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", destDir, err)
	}
	dest := filepath.Join(destDir, time.Now().Format("20060102_150405")+"_"+filepath.Base(path))

	if err := os.Rename(path, dest); err != nil {
		if copyErr := copyFile(path, dest); copyErr != nil {
			return "", fmt.Errorf("moving %s to %s: %w", path, dest, copyErr)
		}
		if rmErr := os.Remove(path); rmErr != nil {
			return "", fmt.Errorf("removing %s after copy: %w", path, rmErr)
		}
	}
	return dest, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func requestStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
