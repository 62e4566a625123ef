// Package resume persists the terminal outcome of import units so a later
// run over the same tree can fast-forward past already-resolved units
// without re-querying remote catalogs. The log is append-only JSON lines;
// unreadable lines are skipped with a warning, never fatal.
package resume

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"platter/internal/logging"
)

// State is a terminal import outcome worth remembering.
type State string

const (
	StateDone    State = "done"
	StateSkipped State = "skipped"
	StateAborted State = "aborted"
)

// Entry maps a unit identity to its terminal state.
type Entry struct {
	Identity   string    `json:"identity"`
	State      State     `json:"state"`
	UnitPath   string    `json:"unit_path,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Log provides thread-safe access to the resume log. An empty path makes
// every operation a no-op, which is how resume gets disabled.
type Log struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]Entry // keyed by unit identity, latest entry wins
}

// Open loads the resume log at path, tolerating a missing, truncated, or
// partially corrupt file.
func Open(path string, logger *slog.Logger) *Log {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "resume")

	l := &Log{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
	}

	if path == "" {
		return l
	}

	if err := l.load(); err != nil {
		logger.Warn("failed to load resume log",
			logging.String(logging.FieldEventType, "resume_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "log will start empty; resolved units may be reprocessed"))
	}

	return l
}

// Lookup returns the recorded entry for a unit identity.
func (l *Log) Lookup(identity string) (Entry, bool) {
	identity = strings.TrimSpace(identity)
	if identity == "" || l.path == "" {
		return Entry{}, false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, found := l.entries[identity]
	return entry, found
}

// ShouldSkip reports whether the unit was already resolved and can bypass
// retrieval entirely. Aborted units are retried on the next run.
func (l *Log) ShouldSkip(identity string) bool {
	entry, found := l.Lookup(identity)
	return found && (entry.State == StateDone || entry.State == StateSkipped)
}

// Record appends a terminal outcome to the log.
func (l *Log) Record(identity string, state State, unitPath string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return errors.New("unit identity cannot be empty")
	}
	if l.path == "" {
		return nil
	}

	entry := Entry{
		Identity:   identity,
		State:      state,
		UnitPath:   unitPath,
		RecordedAt: time.Now().UTC(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.append(entry); err != nil {
		return fmt.Errorf("persist resume entry: %w", err)
	}
	l.entries[identity] = entry

	l.logger.Debug("recorded import outcome",
		logging.String(logging.FieldUnit, unitPath),
		logging.String("identity", identity),
		logging.String("state", string(state)))

	return nil
}

// List returns all entries sorted by recording time descending.
func (l *Log) List() []Entry {
	if l.path == "" {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]Entry, 0, len(l.entries))
	for _, entry := range l.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RecordedAt.After(entries[j].RecordedAt)
	})
	return entries
}

// Count returns the number of distinct unit identities recorded.
func (l *Log) Count() int {
	if l.path == "" {
		return 0
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.entries)
}

// Forget removes one identity so its unit is offered again on the next run.
// The log file is rewritten without the entry.
func (l *Log) Forget(identity string) (bool, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" || l.path == "" {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, found := l.entries[identity]; !found {
		return false, nil
	}
	delete(l.entries, identity)
	if err := l.rewrite(); err != nil {
		return false, fmt.Errorf("rewrite resume log: %w", err)
	}
	return true, nil
}

func (l *Log) rewrite() error {
	entries := make([]Entry, 0, len(l.entries))
	for _, entry := range l.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RecordedAt.Before(entries[j].RecordedAt)
	})

	var buf strings.Builder
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal resume entry: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(buf.String()), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}

// Clear truncates the log.
func (l *Log) Clear() error {
	if l.path == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make(map[string]Entry)
	if err := os.WriteFile(l.path, nil, 0o644); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("truncate resume log: %w", err)
	}
	return nil
}

func (l *Log) load() error {
	file, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open resume log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	corrupt := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil || strings.TrimSpace(entry.Identity) == "" {
			corrupt++
			l.logger.Warn("skipping corrupt resume entry",
				logging.String(logging.FieldEventType, "resume_entry_corrupt"),
				logging.Int("line", lineNo))
			continue
		}
		l.entries[entry.Identity] = entry
	}
	if err := scanner.Err(); err != nil {
		// A truncated tail loses entries but keeps everything read so far.
		l.logger.Warn("resume log read stopped early",
			logging.String(logging.FieldEventType, "resume_log_truncated"),
			logging.Error(err))
	}

	l.logger.Debug("loaded resume log",
		logging.Int("entry_count", len(l.entries)),
		logging.Int("corrupt_lines", corrupt),
		logging.String("path", l.path))

	return nil
}

func (l *Log) append(entry Entry) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create resume log directory: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal resume entry: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open resume log: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append resume entry: %w", err)
	}
	return file.Sync()
}
