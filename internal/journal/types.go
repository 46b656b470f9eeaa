package journal

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("journal disabled")

// Config configures the diagnostics journal.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl, append-only)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", the journal is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Event kinds recorded by the coordinator. Best-effort diagnostics only;
// this is not notification history and carries no delivery guarantee.
const (
	KindDisplayed = "displayed"
	KindClosed    = "closed"
	KindClick     = "click"
	KindDegraded  = "degraded"
)

// Entry records one lifecycle event. Keep it compact and schema-stable.
type Entry struct {
	At             time.Time
	Kind           string
	DestinationURL string
	GroupKey       string
	Count          int
	Error          string
}
