package logging

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// New builds the worker logger. Local environments get a pretty console
// formatter; everything else emits JSON. Level comes from LOG_LEVEL.
func New(hooks ...logrus.Hook) *logrus.Logger {
	log := logrus.New()

	env := os.Getenv("ENVIRONMENT")
	if env == "" || env == "local" {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	}

	log.SetOutput(os.Stdout)

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	for _, h := range hooks {
		log.AddHook(h)
	}

	return log
}

// Entry is one captured log line, as served by the operational snapshot
// endpoint.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// RingHook is a logrus hook that keeps the most recent log entries in a
// bounded in-memory ring for the /observatorio/data endpoint.
type RingHook struct {
	mu      sync.Mutex
	entries []Entry
	size    int
}

// NewRingHook creates a hook retaining up to size entries.
func NewRingHook(size int) *RingHook {
	if size < 1 {
		size = 1
	}
	return &RingHook{size: size}
}

// Levels implements logrus.Hook.
func (h *RingHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (h *RingHook) Fire(e *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, Entry{
		Timestamp: e.Time,
		Level:     e.Level.String(),
		Message:   e.Message,
	})
	if len(h.entries) > h.size {
		h.entries = h.entries[len(h.entries)-h.size:]
	}
	return nil
}

// Entries returns a copy of the captured entries, oldest first.
func (h *RingHook) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}
