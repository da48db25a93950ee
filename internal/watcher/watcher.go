// Package watcher feeds export files from the watched folder into the
// pipeline. GARP writes exports in place over several seconds, so every
// detected file gets a stability wait before it is handed over.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/felixwingard/garp-shipping-connector/internal/pipeline"
)

var (
	// ErrFileVanished is returned when a file disappears during the
	// stability wait.
	ErrFileVanished = errors.New("file vanished")

	// ErrStabilityTimeout is returned when a file keeps changing for the
	// whole poll budget.
	ErrStabilityTimeout = errors.New("file never stabilized")
)

// Config holds the watch parameters.
type Config struct {
	Dir                string
	Extension          string
	StabilityInterval  time.Duration
	StabilityMaxChecks int
}

// Processor handles one settled export file.
type Processor interface {
	ProcessFile(ctx context.Context, path string) (*pipeline.FileResult, error)
}

// Watcher watches one folder and hands settled files to the processor,
// one at a time.
type Watcher struct {
	config    Config
	processor Processor
	logger    *otelzap.Logger

	// inFlight dedupes duplicate events for a file. Only touched from
	// the Run goroutine.
	inFlight map[string]bool
}

// New creates a watcher. Zero config fields fall back to .xml, 2s, and 10
// checks.
func New(config Config, processor Processor, logger *otelzap.Logger) *Watcher {
	if config.Extension == "" {
		config.Extension = ".xml"
	}
	if config.StabilityInterval <= 0 {
		config.StabilityInterval = 2 * time.Second
	}
	if config.StabilityMaxChecks <= 0 {
		config.StabilityMaxChecks = 10
	}
	return &Watcher{
		config:    config,
		processor: processor,
		logger:    logger,
		inFlight:  make(map[string]bool),
	}
}

// Run processes files already in the folder, then consumes filesystem
// events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.config.Dir, 0o755); err != nil {
		return fmt.Errorf("creating watch dir %s: %w", w.config.Dir, err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(w.config.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.config.Dir, err)
	}
	w.logger.Ctx(ctx).Info("Watching folder",
		zap.String("dir", w.config.Dir),
		zap.String("extension", w.config.Extension))

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Ctx(ctx).Info("Folder watcher stopping")
			return ctx.Err()

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			w.handle(ctx, event.Name)

		case watchErr, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Ctx(ctx).Error("Watcher error", zap.Error(watchErr))
		}
	}
}

// sweep processes files that arrived while the service was down, in sorted
// order. They have been on disk since before startup, so no stability wait.
func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.config.Dir)
	if err != nil {
		w.logger.Ctx(ctx).Error("Failed to list watch dir", zap.Error(err))
		return
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !w.matches(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(w.config.Dir, entry.Name()))
	}
	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)

	w.logger.Ctx(ctx).Info("Processing files found at startup", zap.Int("count", len(paths)))
	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.processor.ProcessFile(ctx, path); err != nil {
			w.logger.Ctx(ctx).Error("Failed to process existing file",
				zap.String("file", filepath.Base(path)), zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	name := filepath.Base(path)
	if w.inFlight[name] {
		return
	}
	w.inFlight[name] = true
	defer delete(w.inFlight, name)

	if err := WaitForStable(ctx, path, w.config.StabilityInterval, w.config.StabilityMaxChecks); err != nil {
		switch {
		case errors.Is(err, ErrFileVanished):
			w.logger.Ctx(ctx).Warn("File vanished before processing", zap.String("file", name))
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		default:
			w.logger.Ctx(ctx).Error("Giving up on unstable file",
				zap.String("file", name), zap.Error(err))
		}
		return
	}

	w.logger.Ctx(ctx).Info("New export file", zap.String("file", name))
	if _, err := w.processor.ProcessFile(ctx, path); err != nil {
		w.logger.Ctx(ctx).Error("Failed to process file",
			zap.String("file", name), zap.Error(err))
	}
}

func (w *Watcher) matches(path string) bool {
	return strings.EqualFold(filepath.Ext(path), w.config.Extension)
}

// WaitForStable waits until two consecutive size and mtime observations of
// path match. It sleeps before the first observation; the writer has
// usually only just created the file.
func WaitForStable(ctx context.Context, path string, interval time.Duration, maxChecks int) error {
	var prevSize int64 = -1
	var prevMod time.Time

	for i := 0; i < maxChecks; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%s: %w", path, ErrFileVanished)
			}
			return err
		}

		if info.Size() == prevSize && info.Size() > 0 && info.ModTime().Equal(prevMod) {
			return nil
		}
		prevSize = info.Size()
		prevMod = info.ModTime()
	}
	return fmt.Errorf("%s: %w", path, ErrStabilityTimeout)
}
