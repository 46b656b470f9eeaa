package platform

import (
	"context"
	"strings"

	"github.com/robfig/cron/v3"

	"pushgate/pkg/logx"
)

// Prunable is implemented by registry drivers that can evict closed records.
type Prunable interface {
	Prune() int
}

// Janitor periodically sweeps a registry so long-running processes do not
// retain closed records forever. This is host-side maintenance: it never runs
// inside the coordinator's event handlers (the background context schedules
// no delayed work of its own).
type Janitor struct {
	target Prunable
	log    logx.Logger
	cron   *cron.Cron
	spec   string
}

// NewJanitor creates a janitor sweeping target on the given cron spec
// (e.g. "@every 1m"). An empty spec defaults to every minute.
func NewJanitor(target Prunable, spec string, log logx.Logger) *Janitor {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(spec) == "" {
		spec = "@every 1m"
	}
	return &Janitor{target: target, log: log, spec: spec}
}

func (j *Janitor) Start(ctx context.Context) error {
	if j.target == nil {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(j.spec, func() {
		if n := j.target.Prune(); n > 0 {
			j.log.Debug("registry pruned", logx.Int("removed", n))
		}
	})
	if err != nil {
		return err
	}
	j.cron = c
	c.Start()
	j.log.Debug("janitor started", logx.String("spec", j.spec))
	return nil
}

func (j *Janitor) Stop(ctx context.Context) {
	if j.cron == nil {
		return
	}
	done := j.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
	j.cron = nil
}
