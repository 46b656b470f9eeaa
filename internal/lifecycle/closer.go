// Package lifecycle reconciles the visible notification set per destination.
//
// Grouping and close decisions key on the destination URL, never on the
// platform tag: tag replacement only stops two identically-tagged
// notifications from co-existing, while pushes for the same listing routinely
// arrive under different alert ids. Destination matching is what actually
// removes "three notifications for the item I'm already looking at".
package lifecycle

import (
	"context"

	"pushgate/internal/platform"
	"pushgate/pkg/logx"
)

type Closer struct {
	registry platform.Registry
	log      logx.Logger
}

func NewCloser(registry platform.Registry, log logx.Logger) *Closer {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Closer{registry: registry, log: log}
}

// CloseAllMatching closes every displayed record whose destination equals
// destinationURL and reports how many it closed.
//
// An empty destination closes nothing: when no target is known, mass-closing
// unrelated notifications would be worse than leaving them up. Closing an
// already-closed record is a no-op, which is what lets concurrent sessions
// race on the same snapshot without coordination.
func (c *Closer) CloseAllMatching(ctx context.Context, destinationURL string) int {
	return c.CloseAllMatchingOr(ctx, destinationURL, nil)
}

// CloseAllMatchingOr is CloseAllMatching with a held record: held always
// closes, even when the destination is empty or enumeration fails, because
// the caller is acting on that specific record. held may be nil.
func (c *Closer) CloseAllMatchingOr(ctx context.Context, destinationURL string, held *platform.Record) int {
	if destinationURL == "" {
		if held.Close() {
			return 1
		}
		return 0
	}

	records, err := c.registry.Notifications(ctx)
	if err != nil {
		c.log.Warn("notification enumeration failed", logx.Err(err), logx.String("dest", destinationURL))
		if held.Close() {
			return 1
		}
		return 0
	}

	closed := 0
	for _, rec := range records {
		if rec == nil || rec.DestinationURL != destinationURL {
			continue
		}
		if rec.Close() {
			closed++
		}
	}
	// A stale snapshot can miss held itself; it must still close.
	if held.Close() {
		closed++
	}
	if closed > 0 {
		c.log.Debug("closed notification group", logx.String("dest", destinationURL), logx.Int("count", closed))
	}
	return closed
}
