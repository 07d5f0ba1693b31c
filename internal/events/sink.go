package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LogSink appends one human-readable line per consumed event.
type LogSink struct {
	path string
	mu   sync.Mutex
}

func NewLogSink(path string) *LogSink {
	return &LogSink{path: path}
}

func (s *LogSink) Handle(body []byte) error {
	var ev OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s | event_id=%s | theater=%s | order=%s | number=%s | status=%s | total=%.2f | items=%d\n",
		ev.OccurredAt.Format("2006-01-02T15:04:05Z07:00"), ev.Type, ev.ID, ev.TheaterID, ev.OrderID,
		ev.OrderNumber, ev.Status, ev.Total, ev.ItemCount)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
