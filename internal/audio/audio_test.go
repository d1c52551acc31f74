package audio

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/glabrego/readaloud-cli/internal/speech"
)

func TestSelectPlayerCommand(t *testing.T) {
	lookup := func(bin string) (string, error) {
		if bin == "paplay" || bin == "aplay" {
			return "/usr/bin/" + bin, nil
		}
		return "", errors.New("not found")
	}
	got, err := selectPlayerCommand(lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"paplay"}) {
		t.Fatalf("unexpected player: %v", got)
	}

	none := func(string) (string, error) { return "", errors.New("not found") }
	if _, err := selectPlayerCommand(none); !errors.Is(err, ErrNoPlayer) {
		t.Fatalf("expected ErrNoPlayer, got %v", err)
	}
}

func TestExecPlayer_ConfiguredPlayerMissing(t *testing.T) {
	p := &ExecPlayer{
		command: []string{"definitely-not-a-player"},
		lookup:  func(string) (string, error) { return "", exec.ErrNotFound },
	}
	_, err := p.Play(context.Background(), &speech.Clip{Path: "/tmp/x.wav"})
	if err == nil {
		t.Fatal("expected error for missing configured player")
	}
}

func TestExecPlayer_PlayAndWait(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}
	p := NewExecPlayer("true")
	h, err := p.Play(context.Background(), &speech.Clip{Path: filepath.Join(t.TempDir(), "a.wav")})
	if err != nil {
		t.Fatalf("Play returned error: %v", err)
	}
	if err := h.Wait(); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
}

func TestExecPlayer_StopEndsPlayback(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	p := &ExecPlayer{command: []string{"sh", "-c", "sleep 5"}, lookup: exec.LookPath}
	h, err := p.Play(context.Background(), &speech.Clip{Path: "clip.wav"})
	if err != nil {
		t.Fatalf("Play returned error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- h.Wait() }()
	h.Stop()
	h.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("stopped playback should not report an error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after Stop")
	}
}

func TestLock_SecondHolderIsBusy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "playback.lock")
	first := NewLock(path)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire returned error: %v", err)
	}
	second := NewLock(path)
	if err := second.Acquire(); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if err := second.Acquire(); err != nil {
		t.Fatalf("Acquire after release returned error: %v", err)
	}
	_ = second.Release()
	if err := second.Release(); err != nil {
		t.Fatalf("double Release returned error: %v", err)
	}
}
