package playback

import (
	"sync"

	"github.com/glabrego/readaloud-cli/internal/audio"
	"github.com/glabrego/readaloud-cli/internal/speech"
)

// Session is one listen request spanning one or more chunks. Only the
// Controller creates sessions and mutates their audio handle.
type Session struct {
	ID   string
	Mode Mode

	chunks []string

	mu      sync.Mutex
	state   State
	index   int
	stopped bool
	handle  audio.Handle
	clip    *speech.Clip

	done chan struct{}
	err  error
}

// Done is closed once the session goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err is the error that aborted the session; nil when it completed or was
// stopped. Valid after Done is closed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stopped reports whether the session was ended by Stop or a newer start.
func (s *Session) Stopped() bool { return s.isStopped() }

func (s *Session) status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{State: s.state, Mode: s.Mode, Index: s.index, Total: len(s.chunks), SessionID: s.ID}
	if s.stopped {
		st.State = Idle
	}
	return st
}

// begin marks chunk i as loading; false when the session was stopped.
func (s *Session) begin(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.index = i
	s.state = Loading
	return true
}

func (s *Session) attach(h audio.Handle, clip *speech.Clip) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.handle = h
	s.clip = clip
	s.state = Playing
	return true
}

func (s *Session) detach() {
	s.mu.Lock()
	clip := s.clip
	s.handle = nil
	s.clip = nil
	s.mu.Unlock()
	_ = clip.Release()
}

func (s *Session) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// stop flags the session, kills the current clip and frees it.
func (s *Session) stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.state = Idle
	h, clip := s.handle, s.clip
	s.handle, s.clip = nil, nil
	s.mu.Unlock()

	if h != nil {
		h.Stop()
	}
	_ = clip.Release()
}

func (s *Session) finish(err error) {
	s.mu.Lock()
	if !s.stopped {
		s.err = err
	}
	s.state = Idle
	s.mu.Unlock()
	close(s.done)
}
