// Package notify delivers user-facing notices about comment actions.
package notify

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Level is the severity a notice is shown with.
type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Danger  Level = "danger"
)

// Notice is a single message for the user.
type Notice struct {
	Level   Level
	Message string
}

// Sink receives notices. Implementations must be safe for concurrent use.
type Sink interface {
	Notify(n Notice)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Notice)

func (f SinkFunc) Notify(n Notice) { f(n) }

// LogSink writes notices to a logger.
type LogSink struct {
	Logger logrus.FieldLogger
}

func (s LogSink) Notify(n Notice) {
	log := s.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	entry := log.WithField("notice_level", string(n.Level))
	switch n.Level {
	case Danger:
		entry.Warn(n.Message)
	default:
		entry.Info(n.Message)
	}
}

// Multi fans a notice out to every sink in order.
type Multi []Sink

func (m Multi) Notify(n Notice) {
	for _, s := range m {
		if s != nil {
			s.Notify(n)
		}
	}
}

// Recorder keeps every notice it receives. Useful in tests.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of what has been recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Last returns the most recent notice, if any.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

var (
	_ Sink = LogSink{}
	_ Sink = Multi(nil)
	_ Sink = (*Recorder)(nil)
	_ Sink = SinkFunc(nil)
)
