// Package platform defines the capability surface the coordinator runs
// against: a live-notification registry and the set of connected foreground
// sessions. Implementations are drivers (in-memory, telegram); callers never
// assume more than these interfaces promise.
package platform

import (
	"context"
	"sync"
	"time"
)

// Notification carries the display attributes handed to the registry.
// Tag and DestinationURL are the only fields recoverable from the resulting
// Record afterwards.
type Notification struct {
	Title          string
	Body           string
	Icon           string
	Badge          string
	Image          string
	Tag            string
	DestinationURL string
}

// Registry is the shared live-notification surface.
//
// It is the one shared mutable resource in the system: the background
// coordinator and every foreground session read and write it concurrently.
// Enumeration results are snapshots that may be stale by the time a close
// executes, which is why Record.Close is idempotent.
type Registry interface {
	// Show displays a notification and returns its handle.
	Show(ctx context.Context, n Notification) (*Record, error)
	// Notifications enumerates currently displayed (open) records.
	Notifications(ctx context.Context) ([]*Record, error)
}

// Session is a connected foreground execution context.
type Session interface {
	ID() string
	// URL is the session's current location.
	URL() string
	Focus(ctx context.Context) error
}

// Sessions enumerates and creates foreground sessions.
type Sessions interface {
	List(ctx context.Context) ([]Session, error)
	// Open requests a new foreground session navigated to url.
	Open(ctx context.Context, url string) error
}

// Record is a handle for one displayed notification.
//
// No component owns a Record exclusively: anyone with registry access may
// enumerate and close it, and the user may dismiss it out-of-band. Close is
// therefore a no-op on an already-closed record, never an error.
type Record struct {
	ID             string
	Tag            string
	DestinationURL string
	CreatedAt      time.Time

	mu     sync.Mutex
	closed bool
	unlink func()
}

// NewRecord builds a record with an optional unlink hook invoked exactly once
// on first close. Registries use the hook to drop the record from their view.
func NewRecord(id, tag, destinationURL string, unlink func()) *Record {
	return &Record{
		ID:             id,
		Tag:            tag,
		DestinationURL: destinationURL,
		CreatedAt:      time.Now(),
		unlink:         unlink,
	}
}

// Close destroys the displayed notification. Idempotent: it reports whether
// this call performed the transition, so racing closers can still count
// exactly without any shared lock.
func (r *Record) Close() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.closed = true
	unlink := r.unlink
	r.unlink = nil
	r.mu.Unlock()

	if unlink != nil {
		unlink()
	}
	return true
}

// Closed reports whether the record has been closed (by any holder).
func (r *Record) Closed() bool {
	if r == nil {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
