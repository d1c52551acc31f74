// Package playback owns the single active listening session: it synthesizes
// chunks one at a time and hands each clip to the audio player.
package playback

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/glabrego/readaloud-cli/internal/apperr"
	"github.com/glabrego/readaloud-cli/internal/audio"
	"github.com/glabrego/readaloud-cli/internal/notify"
	"github.com/glabrego/readaloud-cli/internal/speech"
)

type State int

const (
	Idle State = iota
	Loading
	Playing
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	default:
		return "idle"
	}
}

type Mode int

const (
	Single Mode = iota
	Sequence
)

func (m Mode) String() string {
	if m == Sequence {
		return "sequence"
	}
	return "single"
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (*speech.Clip, error)
}

// VoiceSource returns the currently selected voice, or "" when none is.
type VoiceSource interface {
	VoiceID() string
}

// Locker guards playback across processes.
type Locker interface {
	Acquire() error
	Release() error
}

// Status is a snapshot of the controller.
type Status struct {
	State     State
	Mode      Mode
	Index     int
	Total     int
	SessionID string
}

// Active reports whether a session is loading or playing.
func (s Status) Active() bool { return s.State != Idle }

type Option func(*Controller)

func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithLock(l Locker) Option {
	return func(c *Controller) { c.lock = l }
}

type Controller struct {
	synth    Synthesizer
	player   audio.Player
	voices   VoiceSource
	notifier notify.Notifier
	logger   *slog.Logger
	lock     Locker

	mu      sync.Mutex
	current *Session
}

func New(synth Synthesizer, player audio.Player, voices VoiceSource, opts ...Option) *Controller {
	c := &Controller{
		synth:    synth,
		player:   player,
		voices:   voices,
		notifier: notify.Discard,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartSingle reads text as one chunk.
func (c *Controller) StartSingle(ctx context.Context, text string) (*Session, error) {
	return c.start(ctx, Single, []string{text})
}

// StartSequence reads chunks strictly in order. Chunk N+1 is synthesized
// only after chunk N finished playing.
func (c *Controller) StartSequence(ctx context.Context, chunks []string) (*Session, error) {
	return c.start(ctx, Sequence, chunks)
}

func (c *Controller) start(ctx context.Context, mode Mode, chunks []string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	voice := ""
	if c.voices != nil {
		voice = strings.TrimSpace(c.voices.VoiceID())
	}
	if voice == "" {
		c.notifier.Notify(notify.Failure(apperr.ErrNoVoice))
		return nil, apperr.ErrNoVoice
	}
	chunks = nonEmpty(chunks)
	if len(chunks) == 0 {
		c.notifier.Notify(notify.Failure(apperr.ErrNothingToRead))
		return nil, apperr.ErrNothingToRead
	}
	if c.lock != nil {
		if err := c.lock.Acquire(); err != nil {
			c.notifier.Notify(notify.Failure(err))
			return nil, err
		}
	}

	s := &Session{
		ID:     uuid.NewString(),
		Mode:   mode,
		chunks: chunks,
		state:  Loading,
		done:   make(chan struct{}),
	}
	c.current = s
	c.logger.Info("playback started", "session", s.ID, "mode", mode.String(), "chunks", len(chunks))
	go c.run(ctx, s, voice)
	return s, nil
}

// Stop ends the active session, if any. It is safe in every state.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	s := c.current
	if s == nil {
		return
	}
	c.current = nil
	s.stop()
	c.releaseLock()
	c.logger.Info("playback stopped", "session", s.ID)
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()
	if s == nil {
		return Status{State: Idle}
	}
	return s.status()
}

// Current returns the active session or nil.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller) run(ctx context.Context, s *Session, voice string) {
	err := c.play(ctx, s, voice)

	c.mu.Lock()
	owned := c.current == s
	if owned {
		c.current = nil
		c.releaseLock()
	}
	c.mu.Unlock()

	switch {
	case err != nil && owned:
		c.logger.Warn("playback aborted", "session", s.ID, "index", s.status().Index, "error", err)
		c.notifier.Notify(notify.Failure(err))
	case owned:
		c.logger.Info("playback finished", "session", s.ID)
	}
	s.finish(err)
}

// play returns nil when every chunk played or the session was stopped.
func (c *Controller) play(ctx context.Context, s *Session, voice string) error {
	for i, text := range s.chunks {
		if !s.begin(i) {
			return nil
		}
		clip, err := c.synth.Synthesize(ctx, text, voice)
		if s.isStopped() {
			// Late result of a stopped session.
			_ = clip.Release()
			return nil
		}
		if err != nil {
			return err
		}

		h, err := c.player.Play(ctx, clip)
		if err != nil {
			_ = clip.Release()
			return err
		}
		if !s.attach(h, clip) {
			h.Stop()
			_ = clip.Release()
			return nil
		}
		err = h.Wait()
		s.detach()
		if s.isStopped() {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) releaseLock() {
	if c.lock == nil {
		return
	}
	if err := c.lock.Release(); err != nil {
		c.logger.Warn("release playback lock", "error", err)
	}
}

func nonEmpty(chunks []string) []string {
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk) != "" {
			out = append(out, chunk)
		}
	}
	return out
}
