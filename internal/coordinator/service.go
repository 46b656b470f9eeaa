// Package coordinator is the background execution context: it receives
// inbound push events, displays notifications, and reconciles the visible set
// on clicks and display confirmations.
//
// The host may tear this context down between any two events, so nothing here
// schedules delayed work or keeps cross-event state outside the platform
// registry. Time-based follow-ups (suppress grace periods) are delegated to
// foreground sessions over the broadcast bus.
package coordinator

import (
	"context"
	"errors"
	"sync"

	"pushgate/internal/config"
	"pushgate/internal/journal"
	"pushgate/internal/lifecycle"
	"pushgate/internal/platform"
	"pushgate/internal/presenter"
	"pushgate/internal/push"
	"pushgate/internal/runtime/supervisor"
	"pushgate/internal/session"
	"pushgate/pkg/logx"
)

var ErrNoCredentials = errors.New("provider credentials missing")

type Config struct {
	// ShownGraceMs is attached to display-confirmation re-broadcasts so
	// foreground sessions wait before suppressing. <0 is treated as 0.
	ShownGraceMs int
}

// Service runs the background event handlers. Every inbound event gets its
// own supervised goroutine: handlers for unrelated events never block one
// another, and a panic or failure in one never cancels another in flight.
type Service struct {
	cfg       Config
	creds     *config.Credentials
	presenter *presenter.Service
	closer    *lifecycle.Closer
	router    *session.Router
	journal   journal.Journal
	log       logx.Logger

	mu  sync.Mutex
	sup *supervisor.Supervisor
}

func New(cfg Config, creds *config.Credentials, pres *presenter.Service, closer *lifecycle.Closer, router *session.Router, jrnl journal.Journal, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.ShownGraceMs < 0 {
		cfg.ShownGraceMs = 0
	}
	return &Service{
		cfg:       cfg,
		creds:     creds,
		presenter: pres,
		closer:    closer,
		router:    router,
		journal:   jrnl,
		log:       log,
	}
}

// Start readies the service for events. The provider credentials must be
// present before the background context starts; their contents are opaque
// here and validated only by the generator that produced them.
func (s *Service) Start(ctx context.Context) error {
	if s.creds == nil {
		return ErrNoCredentials
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sup != nil {
		return nil
	}
	// Event handler failures stay local: never cancel siblings.
	s.sup = supervisor.New(ctx,
		supervisor.WithLogger(s.log.With(logx.String("comp", "coordinator"))),
		supervisor.WithCancelOnError(false),
	)
	return nil
}

// Stop waits for in-flight handlers best-effort until ctx deadline.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	sup := s.sup
	s.sup = nil
	s.mu.Unlock()
	if sup == nil {
		return
	}
	if err := sup.Wait(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		s.log.Debug("handlers finished with error", logx.Err(err))
	}
	sup.Cancel()
}

func (s *Service) spawn(name string, fn func(ctx context.Context)) bool {
	s.mu.Lock()
	sup := s.sup
	s.mu.Unlock()
	if sup == nil {
		return false
	}
	sup.Go0(name, fn)
	return true
}

// HandlePush processes one inbound push payload: normalize, supersede stale
// siblings for the same destination, display, broadcast. Fire-and-forget;
// every failure path is logged and swallowed so the host never sees a
// crashed handler.
func (s *Service) HandlePush(raw []byte) bool {
	payload := append([]byte(nil), raw...)
	return s.spawn("push", func(ctx context.Context) {
		req := push.Normalize(payload)

		// New-arrival supersede: anything already up for this destination
		// is stale the moment a fresh push for it arrives.
		if req.DestinationURL != "" {
			if n := s.closer.CloseAllMatching(ctx, req.DestinationURL); n > 0 {
				s.appendJournal(ctx, journal.Entry{
					Kind:           journal.KindClosed,
					DestinationURL: req.DestinationURL,
					Count:          n,
				})
			}
		}

		rec, err := s.presenter.Display(ctx, req)
		if err != nil {
			// Display failure is not a protocol failure.
			s.appendJournal(ctx, journal.Entry{
				Kind:           journal.KindDegraded,
				DestinationURL: req.DestinationURL,
				GroupKey:       req.GroupKey,
				Error:          err.Error(),
			})
			return
		}
		s.appendJournal(ctx, journal.Entry{
			Kind:           journal.KindDisplayed,
			DestinationURL: rec.DestinationURL,
			GroupKey:       rec.Tag,
			Count:          1,
		})
	})
}

// HandleClick processes a user click on a displayed notification: close the
// clicked record together with every sibling for the same destination, then
// focus-or-open a session there. Close strictly precedes routing so the
// freshly focused session does not see stale siblings.
func (s *Service) HandleClick(rec *platform.Record) bool {
	if rec == nil {
		return false
	}
	return s.spawn("click", func(ctx context.Context) {
		dest := rec.DestinationURL
		n := s.closer.CloseAllMatchingOr(ctx, dest, rec)
		s.appendJournal(ctx, journal.Entry{
			Kind:           journal.KindClick,
			DestinationURL: dest,
			GroupKey:       rec.Tag,
			Count:          n,
		})
		s.router.ActivateOrOpen(ctx, dest)
	})
}

// HandleShown processes the platform's confirmation that a notification
// actually rendered: re-broadcast with the configured grace period so
// sessions give the user a moment before suppressing.
func (s *Service) HandleShown(destinationURL string) bool {
	return s.spawn("shown", func(ctx context.Context) {
		s.presenter.Announce(destinationURL, s.cfg.ShownGraceMs)
	})
}

// appendJournal is best-effort diagnostics; errors are debug-logged only.
func (s *Service) appendJournal(ctx context.Context, e journal.Entry) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Append(ctx, e); err != nil {
		s.log.Debug("journal append failed", logx.Err(err), logx.String("kind", e.Kind))
	}
}
