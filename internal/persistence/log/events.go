package log

import (
	"io"
	"log/slog"
	"path/filepath"

	"github.com/bytedance/sonic"

	"tickbot.ai/internal/scheduler"
)

const eventsPrefix = "tasks"

// EventLogger writes one compressed JSONL entry per task lifecycle event.
// It is a scheduler.Observer; write errors are logged, never returned to the
// executor.
type EventLogger struct {
	w   *JSONLZstdWriter
	log *slog.Logger
}

func NewEventLogger(dataDir string, log *slog.Logger) *EventLogger {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &EventLogger{w: NewJSONLZstdWriter(EventsDir(dataDir), eventsPrefix), log: log}
}

func EventsDir(dataDir string) string { return filepath.Join(dataDir, "events") }

func (l *EventLogger) TaskEvent(e scheduler.Event) {
	if err := l.w.Write(e); err != nil {
		l.log.Warn("task event log write failed", "run", e.RunID, "error", err)
	}
}

func (l *EventLogger) Close() error { return l.w.Close() }

// ReadEvents replays every logged event under dataDir in write order. fn
// returning false stops the walk.
func ReadEvents(dataDir string, fn func(scheduler.Event) bool) error {
	files, err := Files(EventsDir(dataDir), eventsPrefix)
	if err != nil {
		return err
	}
	stop := errStop{}
	for _, path := range files {
		err := ReadJSONL(path, func(line []byte) error {
			var e scheduler.Event
			if err := sonic.Unmarshal(line, &e); err != nil {
				return err
			}
			if !fn(e) {
				return stop
			}
			return nil
		})
		if err == stop {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type errStop struct{}

func (errStop) Error() string { return "stop" }
