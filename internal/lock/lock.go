// Package lock guards order files against double processing with sidecar
// marker files. A marker left behind by a crashed run is reclaimed once it
// is older than the staleness threshold.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrHeld is returned when another instance holds the lock for a file.
var ErrHeld = errors.New("lock is held")

// DefaultStaleAfter is the age at which an abandoned marker may be reclaimed.
const DefaultStaleAfter = 5 * time.Minute

// Manager creates sidecar locks next to the files they guard.
type Manager struct {
	staleAfter time.Duration
}

// NewManager creates a lock manager. A non-positive staleAfter falls back to
// DefaultStaleAfter.
func NewManager(staleAfter time.Duration) Manager {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return Manager{staleAfter: staleAfter}
}

// Lock is a held sidecar lock.
type Lock struct {
	path      string
	owner     string
	reclaimed bool
}

// MarkerPath returns the sidecar lock path for an order file, replacing its
// extension: order123.xml becomes order123.lock.
func MarkerPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".lock"
}

// TryAcquire takes the lock for path. A marker older than the staleness
// threshold is removed and acquisition retried once; a live marker yields
// ErrHeld.
func (m Manager) TryAcquire(path string) (*Lock, error) {
	markerPath := MarkerPath(path)

	lock, err := m.create(markerPath)
	if err == nil {
		return lock, nil
	}
	if !os.IsExist(err) {
		return nil, fmt.Errorf("creating lock %s: %w", markerPath, err)
	}

	if !m.IsStale(markerPath) {
		return nil, fmt.Errorf("%s: %w", markerPath, ErrHeld)
	}

	if err := os.Remove(markerPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale lock %s: %w", markerPath, err)
	}
	lock, err = m.create(markerPath)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%s: %w", markerPath, ErrHeld)
		}
		return nil, fmt.Errorf("creating lock %s: %w", markerPath, err)
	}
	lock.reclaimed = true
	return lock, nil
}

// IsStale reports whether the marker at markerPath is older than the
// staleness threshold. A missing marker is not stale.
func (m Manager) IsStale(markerPath string) bool {
	info, err := os.Stat(markerPath)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > m.staleAfter
}

func (m Manager) create(markerPath string) (*Lock, error) {
	f, err := os.OpenFile(markerPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	owner := uuid.NewString()
	_, writeErr := fmt.Fprintf(f, "owner=%s\npid=%d\nacquired=%s\n",
		owner, os.Getpid(), time.Now().Format(time.RFC3339))
	closeErr := f.Close()
	if writeErr != nil {
		return nil, writeErr
	}
	if closeErr != nil {
		return nil, closeErr
	}
	return &Lock{path: markerPath, owner: owner}, nil
}

// Path returns the marker path.
func (l *Lock) Path() string {
	return l.path
}

// Owner returns the token written into the marker.
func (l *Lock) Owner() string {
	return l.owner
}

// Reclaimed reports whether acquiring this lock removed a stale marker.
func (l *Lock) Reclaimed() bool {
	return l.reclaimed
}

// Release removes the marker. A missing marker is not an error, so calling
// Release twice is safe.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("releasing lock %s: %w", l.path, err)
	}
	return nil
}
