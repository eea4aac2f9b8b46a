package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Event is one operator-facing message.
type Event struct {
	Level   Level
	Title   string
	Message string
	Err     error
	At      time.Time
}

// Notifier surfaces events to the operator.
type Notifier interface {
	Notify(Event)
}

// Success emits a success event on n.
func Success(n Notifier, title, message string) {
	if n == nil {
		return
	}
	n.Notify(Event{Level: LevelSuccess, Title: title, Message: message, At: time.Now()})
}

// Failure emits an error event on n.
func Failure(n Notifier, title string, err error) {
	if n == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	n.Notify(Event{Level: LevelError, Title: title, Message: msg, Err: err, At: time.Now()})
}

// LogNotifier writes events to slog.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(e Event) {
	if e.Level == LevelError {
		l.logger.Error("notify.error", "title", e.Title, "message", e.Message)
		return
	}
	l.logger.Info("notify.success", "title", e.Title, "message", e.Message)
}

// WriterNotifier prints one line per event, for the terminal.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier { return &WriterNotifier{w: w} }

func (n *WriterNotifier) Notify(e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	mark := "✓"
	if e.Level == LevelError {
		mark = "✗"
	}
	if e.Message == "" {
		_, _ = fmt.Fprintf(n.w, "%s %s\n", mark, e.Title)
		return
	}
	_, _ = fmt.Fprintf(n.w, "%s %s: %s\n", mark, e.Title, e.Message)
}

// Multi fans an event out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(e Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(e)
		}
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of the given level were recorded.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Level == level {
			n++
		}
	}
	return n
}
