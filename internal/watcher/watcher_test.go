package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/felixwingard/garp-shipping-connector/internal/pipeline"
	"github.com/felixwingard/garp-shipping-connector/internal/watcher"
)

type fakeProcessor struct {
	mu    sync.Mutex
	paths []string
	done  chan string
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{done: make(chan string, 16)}
}

func (p *fakeProcessor) ProcessFile(ctx context.Context, path string) (*pipeline.FileResult, error) {
	p.mu.Lock()
	p.paths = append(p.paths, path)
	p.mu.Unlock()
	p.done <- path
	return &pipeline.FileResult{File: path, Succeeded: 1}, nil
}

func (p *fakeProcessor) processed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.paths...)
}

func (p *fakeProcessor) waitForFile(t *testing.T, timeout time.Duration) string {
	t.Helper()
	select {
	case path := <-p.done:
		return path
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a file to be processed")
		return ""
	}
}

func newTestWatcher(dir string, processor *fakeProcessor) *watcher.Watcher {
	return watcher.New(watcher.Config{
		Dir:                dir,
		StabilityInterval:  10 * time.Millisecond,
		StabilityMaxChecks: 10,
	}, processor, otelzap.New(zap.NewNop()))
}

func TestWaitForStable_SettledFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.xml")
	require.NoError(t, os.WriteFile(path, []byte("<data></data>"), 0o644))

	err := watcher.WaitForStable(context.Background(), path, 5*time.Millisecond, 10)

	assert.NoError(t, err)
}

func TestWaitForStable_Vanished(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.xml")

	err := watcher.WaitForStable(context.Background(), path, time.Millisecond, 10)

	assert.ErrorIs(t, err, watcher.ErrFileVanished)
}

func TestWaitForStable_EmptyFileNeverStabilizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	err := watcher.WaitForStable(context.Background(), path, time.Millisecond, 3)

	assert.ErrorIs(t, err, watcher.ErrStabilityTimeout)
}

func TestWaitForStable_ContextCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.xml")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := watcher.WaitForStable(ctx, path, time.Second, 10)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatcher_SweepProcessesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.xml"), []byte("<data/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.xml"), []byte("<data/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("not xml"), 0o644))

	processor := newFakeProcessor()
	w := newTestWatcher(dir, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- w.Run(ctx) }()

	processor.waitForFile(t, 5*time.Second)
	processor.waitForFile(t, 5*time.Second)

	paths := processor.processed()
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "a.xml"), paths[0], "sweep runs in sorted order")
	assert.Equal(t, filepath.Join(dir, "b.xml"), paths[1])

	cancel()
	select {
	case err := <-runDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on context cancellation")
	}
}

func TestWatcher_PicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	processor := newFakeProcessor()
	w := newTestWatcher(dir, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	// Give the watcher a moment to register before creating the file.
	time.Sleep(50 * time.Millisecond)
	path := filepath.Join(dir, "new.xml")
	require.NoError(t, os.WriteFile(path, []byte("<data></data>"), 0o644))

	processed := processor.waitForFile(t, 5*time.Second)
	assert.Equal(t, path, processed)
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	processor := newFakeProcessor()
	w := newTestWatcher(dir, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.tmp"), []byte("x"), 0o644))
	xmlPath := filepath.Join(dir, "take.xml")
	require.NoError(t, os.WriteFile(xmlPath, []byte("<data></data>"), 0o644))

	processed := processor.waitForFile(t, 5*time.Second)
	assert.Equal(t, xmlPath, processed)
	assert.Equal(t, []string{xmlPath}, processor.processed())
}

func TestWatcher_MatchesExtensionCaseInsensitively(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "UPPER.XML"), []byte("<data/>"), 0o644))

	processor := newFakeProcessor()
	w := newTestWatcher(dir, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	processed := processor.waitForFile(t, 5*time.Second)
	assert.Equal(t, filepath.Join(dir, "UPPER.XML"), processed)
}
