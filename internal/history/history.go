// Package history records the outcome of every tip-driven song request for
// the dashboard.
package history

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxEntries bounds the log. Oldest entries fall off first.
const MaxEntries = 500

const (
	StatusAdded  = "added"
	StatusFailed = "failed"
)

// Entry is one processed song request.
type Entry struct {
	ID           string    `json:"id"`
	TS           time.Time `json:"ts"`
	TipTS        time.Time `json:"tip_ts,omitempty"`
	Username     string    `json:"username"`
	TipAmount    int       `json:"tip_amount"`
	TipMessage   string    `json:"tip_message"`
	RequestCount int       `json:"request_count"`
	Song         string    `json:"song,omitempty"`
	Artist       string    `json:"artist,omitempty"`
	ResolvedURI  string    `json:"resolved_uri,omitempty"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
}

// Log is a persisted, bounded request history. Newest entries first.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	path    string
	log     *log.Logger
}

func NewLog(path string, logger *log.Logger) *Log {
	l := &Log{path: path, log: logger}
	l.load()
	return l
}

// Append stamps the entry with an id and timestamp and persists the log.
func (l *Log) Append(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.TS.IsZero() {
		e.TS = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]Entry{e}, l.entries...)
	if len(l.entries) > MaxEntries {
		l.entries = l.entries[:MaxEntries]
	}
	l.persistLocked()
	return e
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (l *Log) Recent(limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, n)
	copy(out, l.entries[:n])
	return out
}

func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.persistLocked()
}

func (l *Log) persistLocked() {
	entries := l.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		l.log.Printf("marshal history: %v", err)
		return
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		l.log.Printf("write history: %v", err)
		return
	}
	if err := os.Rename(tmp, l.path); err != nil {
		l.log.Printf("rename history: %v", err)
	}
}

func (l *Log) load() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.log.Printf("read history: %v", err)
		}
		return
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		l.log.Printf("history file unreadable, starting empty: %v", err)
		return
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	l.entries = entries
}
