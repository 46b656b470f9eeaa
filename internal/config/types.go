package config

type Config struct {
	Logging     LoggingConfig     `json:"logging"`
	HTTP        HTTPConfig        `json:"http"`
	Platform    PlatformConfig    `json:"platform"`
	Presenter   PresenterConfig   `json:"presenter"`
	Coordinator CoordinatorConfig `json:"coordinator"`
	Journal     *JournalConfig    `json:"journal,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level"`
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// HTTPConfig controls the inbound receiver.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type HTTPConfig struct {
	Addr         string `json:"addr,omitempty"` // default: "127.0.0.1:8087"
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

// PlatformConfig selects the notification surface driver.
//
// Driver values:
//   - "memory": in-process registry (default; tests and local runs)
//   - "telegram": messages in a Telegram chat stand in for notifications
type PlatformConfig struct {
	Driver      string          `json:"driver,omitempty"`
	JanitorSpec string          `json:"janitor_spec,omitempty"` // cron spec, default "@every 1m"
	Telegram    *TelegramConfig `json:"telegram,omitempty"`
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}

type PresenterConfig struct {
	RatePerSec  int `json:"rate_per_sec,omitempty"`
	HistorySize int `json:"history_size,omitempty"`
}

// CoordinatorConfig controls the background event handlers.
//
// ShownGraceMs is the suppress delay attached to display-confirmation
// re-broadcasts, giving foreground sessions a grace period before they
// suppress. 0 means close immediately; omitted defaults to 15000.
type CoordinatorConfig struct {
	ShownGraceMs *int `json:"shown_grace_ms,omitempty"`
}

// JournalConfig controls the optional diagnostics journal.
//
// Example:
//
//	"journal": { "driver": "file", "path": "./pushgate_journal.jsonl" }
type JournalConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// ShownGrace returns the effective display-confirmation grace in ms.
func (c CoordinatorConfig) ShownGrace() int {
	if c.ShownGraceMs == nil {
		return 15000
	}
	if *c.ShownGraceMs < 0 {
		return 0
	}
	return *c.ShownGraceMs
}
