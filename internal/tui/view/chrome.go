package view

import (
	"fmt"
	"strings"

	"github.com/glabrego/readaloud-cli/internal/playback"
	tuitheme "github.com/glabrego/readaloud-cli/internal/tui/theme"
)

func Toolbar(inDetail bool) string {
	if inDetail {
		return "j/k scroll | l listen | s stop | b bookmark | o open | y copy | esc back | ? help"
	}
	return "j/k move | enter open | l listen | L listen all | s stop | b bookmark | n/N page | B saved | v voice | ? help"
}

func HelpLines() []string {
	return []string{
		"j/k, arrows   move or scroll",
		"enter         open article",
		"esc           back to list",
		"l             listen to the page, or the open article",
		"L             listen to every page in order",
		"s             stop listening",
		"b             toggle bookmark",
		"B             show bookmarks / back to news",
		"n / N         next / previous page",
		"v             next voice",
		"o / y         open / copy article URL",
		"r             reload",
		"q             quit",
	}
}

// FooterInput describes what the footer line shows.
type FooterInput struct {
	Source string
	Page   int
	Pages  int
	Shown  int
	Voice  string
}

func Footer(in FooterInput, th tuitheme.Theme) string {
	parts := []string{th.MetaLabel.Render("view") + " " + th.MetaValue.Render(in.Source)}
	if in.Pages > 0 {
		parts = append(parts, th.MetaLabel.Render("page")+" "+th.MetaValue.Render(fmt.Sprintf("%d/%d", in.Page, in.Pages)))
	}
	parts = append(parts, th.MetaValue.Render(fmt.Sprintf("%d shown", in.Shown)))
	voice := in.Voice
	if voice == "" {
		voice = "none"
	}
	parts = append(parts, th.MetaLabel.Render("voice")+" "+th.MetaValue.Render(voice))
	return strings.Join(parts, " • ")
}

// PlaybackLabel renders the playback part of the status line.
func PlaybackLabel(st playback.Status, th tuitheme.Theme) string {
	label := st.State.String()
	if st.State != playback.Idle && st.Total > 1 {
		label = fmt.Sprintf("%s %d/%d", label, st.Index+1, st.Total)
	}
	return th.PlaybackStyle(st.State).Render(label)
}

func Message(loading bool, hasWarning bool, status, warning string, st playback.Status, th tuitheme.Theme) string {
	state := "idle"
	if loading {
		state = "loading"
	}
	if hasWarning {
		state = "warning"
	}
	main := "Ready"
	if status != "" {
		main = status
	} else if hasWarning {
		main = warning
	}
	stateLabel := th.StateIdle.Render("state")
	switch state {
	case "warning":
		stateLabel = th.StateWarn.Render("state")
	case "loading":
		stateLabel = th.StateLoad.Render("state")
	}
	return fmt.Sprintf("%s: %s | %s: %s | %s", stateLabel, state, th.MetaLabel.Render("audio"), PlaybackLabel(st, th), th.MetaValue.Render(main))
}
