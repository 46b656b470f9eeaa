package session

import (
	"context"
	"sync"

	"pushgate/internal/platform"
	"pushgate/pkg/logx"
)

// Hub tracks connected foreground sessions. It implements platform.Sessions
// for the router and owns nothing about the sessions' inner behavior.
type Hub struct {
	log logx.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewHub(log logx.Logger) *Hub {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Hub{log: log, sessions: map[string]*Session{}}
}

// Connect registers a new session located at url and returns it.
func (h *Hub) Connect(url string) *Session {
	s := New(url)
	h.mu.Lock()
	h.sessions[s.ID()] = s
	h.mu.Unlock()
	h.log.Debug("session connected", logx.String("session", s.ID()), logx.String("url", url))
	return s
}

// Disconnect removes a session. Unknown ids are ignored.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	_, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if ok {
		h.log.Debug("session disconnected", logx.String("session", id))
	}
}

func (h *Hub) List(ctx context.Context) ([]platform.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	out := make([]platform.Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	h.mu.Unlock()
	return out, nil
}

// Open creates a new session navigated to url, satisfying the router's
// open-new-session capability.
func (h *Hub) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.Connect(url)
	return nil
}

// Len reports the number of connected sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}
