// Package notify carries short user-facing notices from background work to
// whatever surface is showing them.
package notify

import (
	"log/slog"
	"sync"

	"github.com/glabrego/readaloud-cli/internal/apperr"
)

type Level int

const (
	Info Level = iota
	Error
)

func (l Level) String() string {
	if l == Error {
		return "error"
	}
	return "info"
}

type Notice struct {
	Level   Level
	Message string
	Err     error
}

type Notifier interface {
	Notify(Notice)
}

// Func adapts a function to Notifier.
type Func func(Notice)

func (f Func) Notify(n Notice) { f(n) }

// Failure builds the error notice for err.
func Failure(err error) Notice {
	return Notice{Level: Error, Message: apperr.UserMessage(err), Err: err}
}

// Logger writes notices to a slog logger.
type Logger struct {
	Log *slog.Logger
}

func (l Logger) Notify(n Notice) {
	if l.Log == nil {
		return
	}
	if n.Level == Error {
		l.Log.Error(n.Message, "kind", apperr.Classify(n.Err).String(), "error", n.Err)
		return
	}
	l.Log.Info(n.Message)
}

// Recorder keeps every notice.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Discard drops every notice.
var Discard Notifier = Func(func(Notice) {})

// Multi fans a notice out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(n Notice) {
	for _, nt := range m {
		if nt != nil {
			nt.Notify(n)
		}
	}
}
