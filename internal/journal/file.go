package journal

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pushgate/pkg/logx"
)

// fileJournal is the dependency-free backend: one append-only JSON Lines file.
type fileJournal struct {
	log logx.Logger

	mu   sync.Mutex
	file *os.File
}

type fileRecord struct {
	At    string `json:"at"`
	Kind  string `json:"kind"`
	Dest  string `json:"dest,omitempty"`
	Group string `json:"group,omitempty"`
	Count int    `json:"count,omitempty"`
	Err   string `json:"err,omitempty"`
}

func openFile(cfg Config, log logx.Logger) (Journal, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("journal.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &fileJournal{log: log, file: f}, nil
}

func (j *fileJournal) Append(ctx context.Context, e Entry) error {
	if j == nil {
		return ErrDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b, err := json.Marshal(fileRecord{
		At:    e.At.Format(time.RFC3339Nano),
		Kind:  e.Kind,
		Dest:  e.DestinationURL,
		Group: e.GroupKey,
		Count: e.Count,
		Err:   e.Error,
	})
	if err != nil {
		return err
	}
	b = append(b, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return ErrDisabled
	}
	_, err = j.file.Write(b)
	return err
}

func (j *fileJournal) Close() error {
	j.mu.Lock()
	f := j.file
	j.file = nil
	j.mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}
