// Package presenter turns canonical requests into displayed platform
// notifications and announces each success on the broadcast bus.
package presenter

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pushgate/internal/broadcast"
	"pushgate/internal/platform"
	"pushgate/internal/push"
	"pushgate/pkg/logx"
)

var (
	// ErrThrottled models the platform's display quota.
	ErrThrottled = errors.New("display throttled")
	// ErrBadIcon is returned when the icon locator cannot be parsed.
	ErrBadIcon = errors.New("malformed icon url")
)

type Config struct {
	// RatePerSec caps displays per second (platform quota). <=0 uses 10.
	RatePerSec int
	// HistorySize bounds the in-memory display history. <=0 uses 300.
	HistorySize int
}

type HistoryItem struct {
	At             time.Time `json:"at"`
	Title          string    `json:"title"`
	DestinationURL string    `json:"destination_url,omitempty"`
	GroupKey       string    `json:"group_key"`
}

type Service struct {
	registry platform.Registry
	bus      broadcast.Bus
	log      logx.Logger

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, registry platform.Registry, bus broadcast.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{registry: registry, bus: bus, log: log}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 10
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 300
	}
	s.cfg = cfg
	// Token bucket: burst = rate per sec, so short spikes don't block too hard.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Display shows req as a platform notification, tagged with the group key and
// carrying the destination URL so later enumeration can recover it.
//
// A failed display is logged and reported to the direct caller, but it is not
// a protocol failure: event handlers swallow the error so the triggering
// event still completes. After a successful display the broadcast is
// unconditional; display and broadcast are not separately retryable.
func (s *Service) Display(ctx context.Context, req push.Request) (*platform.Record, error) {
	s.mu.Lock()
	lim := s.limiter
	s.mu.Unlock()

	if lim != nil && !lim.Allow() {
		s.log.Warn("display throttled", logx.String("dest", req.DestinationURL))
		return nil, ErrThrottled
	}
	if req.Icon != "" {
		if _, err := url.Parse(req.Icon); err != nil {
			s.log.Warn("display rejected", logx.Err(err), logx.String("icon", req.Icon))
			return nil, ErrBadIcon
		}
	}

	rec, err := s.registry.Show(ctx, platform.Notification{
		Title:          req.Title,
		Body:           req.Body,
		Icon:           req.Icon,
		Badge:          req.Badge,
		Image:          req.Image,
		Tag:            req.GroupKey,
		DestinationURL: req.DestinationURL,
	})
	if err != nil {
		s.log.Warn("display failed", logx.Err(err), logx.String("dest", req.DestinationURL), logx.String("group", req.GroupKey))
		return nil, err
	}

	s.appendHistory(req)
	s.log.Debug("notification displayed",
		logx.String("id", rec.ID),
		logx.String("dest", req.DestinationURL),
		logx.String("group", req.GroupKey))

	// Tell every connected session. Best-effort by contract: with no
	// sessions connected there is nothing to suppress.
	if s.bus != nil {
		s.bus.Publish(broadcast.Message{
			Kind:           broadcast.KindNotificationDisplayed,
			DestinationURL: req.DestinationURL,
		})
	}
	return rec, nil
}

// Announce re-broadcasts a display event, used when the platform later
// confirms a notification actually rendered. delayMs gives sessions a grace
// period before suppressing.
func (s *Service) Announce(destinationURL string, delayMs int) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(broadcast.Message{
		Kind:           broadcast.KindNotificationDisplayed,
		DestinationURL: destinationURL,
		SuppressDelay:  delayMs,
	})
}

func (s *Service) Snapshot() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func (s *Service) appendHistory(req push.Request) {
	s.mu.Lock()
	max := s.cfg.HistorySize
	s.mu.Unlock()

	s.hmu.Lock()
	s.history = append(s.history, HistoryItem{
		At:             time.Now(),
		Title:          req.Title,
		DestinationURL: req.DestinationURL,
		GroupKey:       req.GroupKey,
	})
	if len(s.history) > max {
		s.history = s.history[len(s.history)-max:]
	}
	s.hmu.Unlock()
}
