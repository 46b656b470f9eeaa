package session

import (
	"context"

	"pushgate/internal/platform"
	"pushgate/pkg/logx"
)

// RootURL is where routing lands when a notification names no destination.
const RootURL = "/"

// Router implements focus-or-open: activate an existing session already
// showing the target destination, else request a new one.
type Router struct {
	sessions platform.Sessions
	log      logx.Logger
}

func NewRouter(sessions platform.Sessions, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{sessions: sessions, log: log}
}

// ActivateOrOpen focuses a session whose current location equals
// destinationURL exactly, or opens a new one navigated there.
//
// Every failure is terminal and silent: opening a session is itself the
// fallback path, so there is nothing further to try.
func (r *Router) ActivateOrOpen(ctx context.Context, destinationURL string) {
	if destinationURL == "" {
		destinationURL = RootURL
	}

	list, err := r.sessions.List(ctx)
	if err != nil {
		r.log.Warn("session enumeration failed", logx.Err(err))
		list = nil
	}

	for _, s := range list {
		if s == nil || s.URL() != destinationURL {
			continue
		}
		if err := s.Focus(ctx); err != nil {
			r.log.Warn("session focus failed", logx.Err(err), logx.String("session", s.ID()))
			return
		}
		r.log.Debug("session focused", logx.String("session", s.ID()), logx.String("dest", destinationURL))
		return
	}

	if err := r.sessions.Open(ctx, destinationURL); err != nil {
		r.log.Warn("open session failed", logx.Err(err), logx.String("dest", destinationURL))
	}
}
