package audit

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"loggedin/internal/types"
)

// Entry is one line of the audit log
type Entry struct {
	Time  time.Time   `json:"time"`
	RunID string      `json:"run_id"`
	Alert types.Alert `json:"alert"`
}

// Logger handles appending alerts to the audit log
type Logger struct {
	mu       sync.Mutex
	filePath string
	now      func() time.Time
}

// NewLogger creates a new audit logger
func NewLogger(filePath string) *Logger {
	return &Logger{
		filePath: filePath,
		now:      time.Now,
	}
}

// LogAlert writes an alert to the audit log in a thread-safe manner
func (l *Logger) LogAlert(alert types.Alert, runID string) error {
	return l.LogAlerts([]types.Alert{alert}, runID)
}

// LogAlerts appends every alert of a run under a single open of the file.
func (l *Logger) LogAlerts(alerts []types.Alert, runID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	ts := l.now().UTC()
	encoder := json.NewEncoder(f)
	for _, a := range alerts {
		if err := encoder.Encode(Entry{Time: ts, RunID: runID, Alert: a}); err != nil {
			return fmt.Errorf("failed to encode alert: %w", err)
		}
	}
	return nil
}

// ReadAll loads every entry of an audit log. A missing file yields no entries.
func ReadAll(filePath string) ([]Entry, error) {
	f, err := os.Open(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for n := 1; scanner.Scan(); n++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("failed to decode audit line %d: %w", n, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return entries, nil
}
