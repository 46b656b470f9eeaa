package platform

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRegistry is the in-process registry driver. It backs the local runner
// and every package test. Tag replacement follows the platform rule: showing
// a notification with an existing tag closes the previous holder of that tag.
type MemoryRegistry struct {
	mu      sync.Mutex
	records map[string]*Record
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{records: map[string]*Record{}}
}

func (m *MemoryRegistry) Show(ctx context.Context, n Notification) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	rec := NewRecord(id, n.Tag, n.DestinationURL, func() {
		m.mu.Lock()
		delete(m.records, id)
		m.mu.Unlock()
	})

	// Same-slot replacement: identical tags never co-exist.
	var replaced *Record
	m.mu.Lock()
	if n.Tag != "" {
		for _, r := range m.records {
			if r.Tag == n.Tag {
				replaced = r
				break
			}
		}
	}
	m.records[id] = rec
	m.mu.Unlock()

	if replaced != nil {
		replaced.Close()
	}
	return rec, nil
}

func (m *MemoryRegistry) Notifications(ctx context.Context) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	out := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	m.mu.Unlock()
	return out, nil
}

// Len reports the number of currently open records.
func (m *MemoryRegistry) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Prune drops records that were closed out-of-band (holders that bypassed the
// unlink hook cannot exist here, but drivers share this interface with the
// janitor, so keep the sweep cheap and safe).
func (m *MemoryRegistry) Prune() int {
	m.mu.Lock()
	stale := make([]string, 0)
	for id, r := range m.records {
		if r.Closed() {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(m.records, id)
	}
	m.mu.Unlock()
	return len(stale)
}
