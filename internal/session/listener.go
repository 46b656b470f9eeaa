package session

import (
	"context"
	"sync"
	"time"

	"pushgate/internal/broadcast"
	"pushgate/internal/lifecycle"
	"pushgate/pkg/logx"
)

// Listener is a session's broadcast consumer. On each NOTIFICATION_DISPLAYED
// message it reconciles the visible notification set for that destination:
// any push-originated notification for a destination a live session knows
// about is redundant noise.
//
// SuppressDelayMs is honored as a real grace period: a cancellable timer
// closes the group after the delay, so the user gets a moment to see the
// notification before suppression. (The historical receiving side closed
// immediately regardless of the delay; that behavior remains reachable by
// broadcasting a zero delay.)
//
// Delayed closes live here and not in the coordinator on purpose: the
// background context may be torn down between any two events, while a
// session's lifetime is tied to visible user engagement.
type Listener struct {
	session *Session
	closer  *lifecycle.Closer
	bus     broadcast.Bus
	log     logx.Logger

	mu     sync.Mutex
	unsub  func()
	cancel context.CancelFunc
	timers map[*time.Timer]struct{}
	wg     sync.WaitGroup
}

func NewListener(s *Session, closer *lifecycle.Closer, bus broadcast.Bus, log logx.Logger) *Listener {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Listener{
		session: s,
		closer:  closer,
		bus:     bus,
		log:     log.With(logx.String("session", s.ID())),
		timers:  map[*time.Timer]struct{}{},
	}
}

// Start subscribes to the bus and consumes messages until Stop or ctx cancel.
// Idempotent while running.
func (l *Listener) Start(ctx context.Context) {
	l.mu.Lock()
	if l.unsub != nil {
		l.mu.Unlock()
		return
	}
	ch, unsub := l.bus.Subscribe(16)
	l.unsub = unsub
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.loop(runCtx, ch)
	}()
}

// Stop unsubscribes and cancels any pending suppress timers.
func (l *Listener) Stop() {
	l.mu.Lock()
	unsub := l.unsub
	cancel := l.cancel
	l.unsub = nil
	l.cancel = nil
	for t := range l.timers {
		t.Stop()
		delete(l.timers, t)
	}
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unsub != nil {
		unsub()
	}
	l.wg.Wait()
}

func (l *Listener) loop(ctx context.Context, ch <-chan broadcast.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			l.handle(ctx, m)
		}
	}
}

func (l *Listener) handle(ctx context.Context, m broadcast.Message) {
	if m.Kind != broadcast.KindNotificationDisplayed {
		return
	}
	// No destination, nothing to suppress: never mass-close.
	if m.DestinationURL == "" {
		return
	}

	if m.SuppressDelay <= 0 {
		n := l.closer.CloseAllMatching(ctx, m.DestinationURL)
		l.log.Debug("suppressed on broadcast", logx.String("dest", m.DestinationURL), logx.Int("closed", n))
		return
	}

	delay := time.Duration(m.SuppressDelay) * time.Millisecond
	dest := m.DestinationURL

	l.mu.Lock()
	if l.unsub == nil {
		// Stopped between receive and schedule.
		l.mu.Unlock()
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		l.mu.Lock()
		delete(l.timers, timer)
		l.mu.Unlock()
		n := l.closer.CloseAllMatching(context.Background(), dest)
		l.log.Debug("suppressed after grace period", logx.String("dest", dest), logx.Duration("delay", delay), logx.Int("closed", n))
	})
	l.timers[timer] = struct{}{}
	l.mu.Unlock()
}
