package store

import (
	"context"
	"strings"
	"sync"
)

// Log levels understood by the log view.
const (
	LevelAll     = "all"
	LevelDebug   = "debug"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

const (
	DefaultLogCapacity = 2000
	DefaultLogLimit    = 500
)

// LogAPI is the core's log surface.
type LogAPI interface {
	GetLogs(ctx context.Context, limit int) ([]string, error)
	ClearLogs(ctx context.Context) error
}

// LogStore is a bounded buffer of core log lines plus its display state.
// When full, appending drops the oldest lines.
type LogStore struct {
	api          LogAPI
	capacity     int
	defaultLimit int

	mu         sync.RWMutex
	lines      []string
	level      string
	search     string
	autoScroll bool

	watchers
}

// NewLogStore returns an empty log store. capacity and defaultLimit fall
// back to DefaultLogCapacity and DefaultLogLimit when not positive.
func NewLogStore(api LogAPI, capacity, defaultLimit int) *LogStore {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultLogLimit
	}
	return &LogStore{
		api:          api,
		capacity:     capacity,
		defaultLimit: defaultLimit,
		lines:        []string{},
		level:        LevelAll,
		autoScroll:   true,
	}
}

// Capacity is the most lines the store keeps.
func (l *LogStore) Capacity() int { return l.capacity }

// Append adds one line.
func (l *LogStore) Append(line string) {
	l.AppendBatch([]string{line})
}

// AppendBatch adds lines in order, evicting from the front past capacity.
func (l *LogStore) AppendBatch(lines []string) {
	if len(lines) == 0 {
		return
	}
	l.mu.Lock()
	l.lines = l.bound(append(l.lines, lines...))
	l.mu.Unlock()
	l.notify()
}

// bound keeps the newest capacity lines in a fresh backing array so the
// evicted ones can be collected.
func (l *LogStore) bound(lines []string) []string {
	if len(lines) <= l.capacity {
		return lines
	}
	out := make([]string, l.capacity, l.capacity+l.capacity/4)
	copy(out, lines[len(lines)-l.capacity:])
	return out
}

// Load replaces the buffer with the core's most recent limit lines.
// A non-positive limit means the default.
func (l *LogStore) Load(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = l.defaultLimit
	}
	lines, err := l.api.GetLogs(ctx, limit)
	if err != nil {
		return err
	}
	if lines == nil {
		lines = []string{}
	}
	l.mu.Lock()
	l.lines = l.bound(append([]string(nil), lines...))
	if l.lines == nil {
		l.lines = []string{}
	}
	l.mu.Unlock()
	l.notify()
	return nil
}

// Clear asks the core to drop its log and empties the buffer once it has.
func (l *LogStore) Clear(ctx context.Context) error {
	if err := l.api.ClearLogs(ctx); err != nil {
		return err
	}
	l.mu.Lock()
	l.lines = []string{}
	l.mu.Unlock()
	l.notify()
	return nil
}

// Lines returns a copy of the whole buffer.
func (l *LogStore) Lines() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string{}, l.lines...)
}

func (l *LogStore) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.lines)
}

func (l *LogStore) SetLevel(level string) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
	l.notify()
}

func (l *LogStore) SetSearch(q string) {
	l.mu.Lock()
	l.search = q
	l.mu.Unlock()
	l.notify()
}

func (l *LogStore) SetAutoScroll(on bool) {
	l.mu.Lock()
	l.autoScroll = on
	l.mu.Unlock()
	l.notify()
}

func (l *LogStore) Level() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *LogStore) Search() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.search
}

func (l *LogStore) AutoScroll() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.autoScroll
}

// View is Filtered with the store's own level and search.
func (l *LogStore) View() []string {
	l.mu.RLock()
	level, search := l.level, l.search
	l.mu.RUnlock()
	return l.Filtered(level, search)
}

// Filtered returns the lines of level (LevelAll for every line) that
// contain query, case-insensitively. The buffer itself is left alone.
func (l *LogStore) Filtered(level, query string) []string {
	q := strings.ToLower(query)
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.lines))
	for _, line := range l.lines {
		if level != "" && level != LevelAll && LevelOf(line) != level {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(line), q) {
			continue
		}
		out = append(out, line)
	}
	return out
}

// LevelOf classifies a core log line by its bracketed or key=value level.
func LevelOf(line string) string {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "[error]") || strings.Contains(lower, "level=error"):
		return LevelError
	case strings.Contains(lower, "[warn") || strings.Contains(lower, "level=warn"):
		return LevelWarning
	case strings.Contains(lower, "[debug]") || strings.Contains(lower, "level=debug"):
		return LevelDebug
	}
	return LevelInfo
}
