// Package session models foreground execution contexts: long-lived,
// user-visible windows that outlive the background coordinator's ephemeral
// event handlers. Anything time-based in the protocol runs here.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Session is one connected foreground window.
type Session struct {
	id string

	mu  sync.Mutex
	url string

	focusCount atomic.Int64
}

func New(url string) *Session {
	return &Session{id: uuid.NewString(), url: url}
}

func (s *Session) ID() string { return s.id }

func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Navigate moves the session to a new location.
func (s *Session) Navigate(url string) {
	s.mu.Lock()
	s.url = url
	s.mu.Unlock()
}

func (s *Session) Focus(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.focusCount.Add(1)
	return nil
}

// FocusCount reports how many times the session was brought to the
// foreground. Test observability only.
func (s *Session) FocusCount() int64 { return s.focusCount.Load() }
