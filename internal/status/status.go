// Package status aggregates pipeline events into processing totals and a
// bounded event history for the HTTP API.
package status

import (
	"context"
	"sync"
	"time"

	"github.com/felixwingard/garp-shipping-connector/internal/pipeline"
)

// DefaultHistory is the number of events retained when no explicit
// capacity is configured.
const DefaultHistory = 100

// Store keeps running totals and the most recent pipeline events. All
// methods are safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	startedAt  time.Time
	historyCap int

	filesDone      int
	filesFailed    int
	shipmentsOK    int
	shipmentsError int

	// events is kept in arrival order; readers get a reversed copy.
	events []pipeline.Event
}

// NewStore creates a store retaining at most historyCap events.
func NewStore(historyCap int) *Store {
	if historyCap <= 0 {
		historyCap = DefaultHistory
	}

	return &Store{
		startedAt:  time.Now(),
		historyCap: historyCap,
	}
}

// Run consumes events until the channel is closed or the context is
// cancelled. It is meant to run in its own goroutine.
func (s *Store) Run(ctx context.Context, events <-chan pipeline.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.Record(event)
		}
	}
}

// Record folds a single event into the totals and history.
func (s *Store) Record(event pipeline.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case pipeline.EventFileDone:
		s.filesDone++
	case pipeline.EventFileError:
		s.filesFailed++
	case pipeline.EventShipmentOK:
		s.shipmentsOK++
	case pipeline.EventShipmentError:
		s.shipmentsError++
	}

	s.events = append(s.events, event)
	if len(s.events) > s.historyCap {
		s.events = s.events[len(s.events)-s.historyCap:]
	}
}

// Snapshot is the summary served by the status API.
type Snapshot struct {
	StartedAt      time.Time `json:"startedAt"`
	Uptime         string    `json:"uptime"`
	FilesDone      int       `json:"filesDone"`
	FilesFailed    int       `json:"filesFailed"`
	ShipmentsOK    int       `json:"shipmentsOk"`
	ShipmentsError int       `json:"shipmentsError"`
	EventCount     int       `json:"eventCount"`
}

// Snapshot returns the current totals.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		StartedAt:      s.startedAt,
		Uptime:         time.Since(s.startedAt).Round(time.Second).String(),
		FilesDone:      s.filesDone,
		FilesFailed:    s.filesFailed,
		ShipmentsOK:    s.shipmentsOK,
		ShipmentsError: s.shipmentsError,
		EventCount:     len(s.events),
	}
}

// Events returns the retained history, most recent first.
func (s *Store) Events() []pipeline.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]pipeline.Event, len(s.events))
	for i, event := range s.events {
		out[len(s.events)-1-i] = event
	}

	return out
}
