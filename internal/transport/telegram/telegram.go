// Package telegram is the Telegram-backed registry driver: each displayed
// notification is a message in a configured chat, and closing the record
// deletes the message. It exists for headless deployments where a chat is the
// only visible surface.
package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"pushgate/internal/platform"
	"pushgate/pkg/logx"
)

type Config struct {
	Token string
	// ChatID is the chat notifications are posted to.
	ChatID int64
	// PollTimeout for the telebot long poller. <=0 uses 10s.
	PollTimeout time.Duration
}

// Registry implements platform.Registry on top of a Telegram bot.
type Registry struct {
	cfg Config
	bot *tele.Bot
	log logx.Logger

	mu      sync.Mutex
	records map[string]*platform.Record
}

func New(cfg Config, log logx.Logger) (*Registry, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Registry{cfg: cfg, bot: b, log: log, records: map[string]*platform.Record{}}, nil
}

// Show posts the notification as a chat message. The message ID doubles as
// the record ID so the unlink hook can find it again for deletion.
func (r *Registry) Show(ctx context.Context, n platform.Notification) (*platform.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msg, err := r.bot.Send(&tele.Chat{ID: r.cfg.ChatID}, render(n), &tele.SendOptions{
		DisableWebPagePreview: true,
	})
	if err != nil {
		return nil, err
	}

	id := strconv.Itoa(msg.ID)
	rec := platform.NewRecord(id, n.Tag, n.DestinationURL, func() {
		r.mu.Lock()
		delete(r.records, id)
		r.mu.Unlock()
		if err := r.bot.Delete(&tele.Message{ID: msg.ID, Chat: &tele.Chat{ID: r.cfg.ChatID}}); err != nil {
			// Already deleted in the chat, or out of the delete window.
			r.log.Debug("delete failed", logx.Err(err), logx.String("id", id))
		}
	})

	var replaced *platform.Record
	r.mu.Lock()
	if n.Tag != "" {
		for _, prev := range r.records {
			if prev.Tag == n.Tag {
				replaced = prev
				break
			}
		}
	}
	r.records[id] = rec
	r.mu.Unlock()

	if replaced != nil {
		replaced.Close()
	}

	r.log.Debug("notification posted",
		logx.String("id", id),
		logx.String("dest", n.DestinationURL),
		logx.String("tag", n.Tag))
	return rec, nil
}

func (r *Registry) Notifications(ctx context.Context) ([]*platform.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	out := make([]*platform.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	r.mu.Unlock()
	return out, nil
}

// Prune drops records closed out-of-band, same contract as the memory driver.
func (r *Registry) Prune() int {
	r.mu.Lock()
	stale := make([]string, 0)
	for id, rec := range r.records {
		if rec.Closed() {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(r.records, id)
	}
	r.mu.Unlock()
	return len(stale)
}

func render(n platform.Notification) string {
	var b strings.Builder
	b.WriteString(n.Title)
	if n.Body != "" {
		b.WriteString("\n")
		b.WriteString(n.Body)
	}
	if n.DestinationURL != "" {
		b.WriteString("\n")
		b.WriteString(n.DestinationURL)
	}
	return b.String()
}
