package logging

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

// BroadcastWriter is an io.Writer that forwards each log record to a
// LogBroadcaster. JSON records are unpacked; anything else is sent as the
// message of a system entry.
type BroadcastWriter struct {
	broadcaster *LogBroadcaster
}

// NewBroadcastWriter creates a writer that sends log data to the broadcaster.
func NewBroadcastWriter(b *LogBroadcaster) *BroadcastWriter {
	return &BroadcastWriter{broadcaster: b}
}

// Write never fails, so logging is not disturbed by a missing listener.
func (w *BroadcastWriter) Write(p []byte) (int, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		w.broadcaster.SubmitLog(LogEntry{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Level:     slog.LevelInfo.String(),
			Channel:   string(ChannelSystem),
			Message:   strings.TrimSpace(string(p)),
		})
		return len(p), nil
	}

	w.broadcaster.SubmitLog(LogEntry{
		Timestamp: getString(raw, slog.TimeKey),
		Level:     getString(raw, slog.LevelKey),
		Channel:   getString(raw, "channel"),
		Message:   getString(raw, slog.MessageKey),
	})
	return len(p), nil
}

func getString(data map[string]any, key string) string {
	if val, ok := data[key].(string); ok {
		return val
	}
	return ""
}
