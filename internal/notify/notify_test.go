package notify

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/glabrego/readaloud-cli/internal/apperr"
)

func TestFailure_UsesUserMessage(t *testing.T) {
	err := fmt.Errorf("list bookmarks: %w", apperr.ErrAuthExpired)
	n := Failure(err)
	if n.Level != Error {
		t.Fatalf("expected error level, got %s", n.Level)
	}
	if !strings.Contains(n.Message, "log in again") {
		t.Fatalf("unexpected message %q", n.Message)
	}
	if !errors.Is(n.Err, apperr.ErrAuthExpired) {
		t.Fatalf("expected wrapped error to be kept, got %v", n.Err)
	}
}

func TestMulti_FansOutInOrder(t *testing.T) {
	var order []string
	first := Func(func(Notice) { order = append(order, "first") })
	rec := &Recorder{}
	m := Multi{first, nil, rec}

	m.Notify(Notice{Message: "hello"})

	if len(order) != 1 {
		t.Fatalf("expected first notifier to run once, got %v", order)
	}
	got := rec.Notices()
	if len(got) != 1 || got[0].Message != "hello" {
		t.Fatalf("unexpected recorded notices %+v", got)
	}
}

func TestLogger_WritesLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{Log: slog.New(slog.NewTextHandler(&buf, nil))}

	l.Notify(Notice{Level: Info, Message: "saved"})
	l.Notify(Failure(apperr.ErrNoVoice))

	out := buf.String()
	if !strings.Contains(out, "level=INFO msg=saved") {
		t.Fatalf("expected info line, got %q", out)
	}
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "kind=") {
		t.Fatalf("expected error line with kind, got %q", out)
	}
}
