// Package audio plays synthesized clips through an external player process.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/glabrego/readaloud-cli/internal/speech"
)

// ErrNoPlayer is returned when none of the known players is installed.
var ErrNoPlayer = errors.New("no audio player available")

// Player starts playback of a clip.
type Player interface {
	Play(ctx context.Context, clip *speech.Clip) (Handle, error)
}

// Handle is one running playback. Wait blocks until the clip finished or
// was stopped; Stop is idempotent.
type Handle interface {
	Wait() error
	Stop()
}

var knownPlayers = [][]string{
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
	{"mpv", "--no-video", "--really-quiet"},
	{"afplay"},
	{"paplay"},
	{"aplay", "-q"},
}

// ExecPlayer runs a command-line player for each clip.
type ExecPlayer struct {
	command []string
	lookup  func(string) (string, error)
}

// NewExecPlayer uses configured when non-empty ("mpv --volume=80"),
// otherwise the first installed known player.
func NewExecPlayer(configured string) *ExecPlayer {
	return &ExecPlayer{
		command: strings.Fields(configured),
		lookup:  exec.LookPath,
	}
}

func (p *ExecPlayer) Play(ctx context.Context, clip *speech.Clip) (Handle, error) {
	if clip == nil || clip.Path == "" {
		return nil, fmt.Errorf("play: empty clip")
	}
	argv, err := p.resolve()
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], clip.Path)...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}
	h := &processHandle{cmd: cmd, done: make(chan struct{})}
	go h.wait()
	return h, nil
}

func (p *ExecPlayer) resolve() ([]string, error) {
	if len(p.command) > 0 {
		if _, err := p.lookup(p.command[0]); err != nil {
			return nil, fmt.Errorf("configured player %q: %w", p.command[0], err)
		}
		return p.command, nil
	}
	return selectPlayerCommand(p.lookup)
}

func selectPlayerCommand(lookup func(string) (string, error)) ([]string, error) {
	for _, c := range knownPlayers {
		if _, err := lookup(c[0]); err == nil {
			return c, nil
		}
	}
	return nil, ErrNoPlayer
}

type processHandle struct {
	cmd     *exec.Cmd
	done    chan struct{}
	err     error
	stopped bool
	mu      sync.Mutex
}

func (h *processHandle) wait() {
	err := h.cmd.Wait()
	h.mu.Lock()
	if !h.stopped && err != nil {
		h.err = fmt.Errorf("player exited: %w", err)
	}
	h.mu.Unlock()
	close(h.done)
}

func (h *processHandle) Wait() error {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *processHandle) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
	}
	<-h.done
}
