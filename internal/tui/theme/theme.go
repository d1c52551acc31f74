package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/glabrego/readaloud-cli/internal/news"
	"github.com/glabrego/readaloud-cli/internal/playback"
)

type Theme struct {
	Title      lipgloss.Style
	ModePill   lipgloss.Style
	Section    lipgloss.Style
	Marker     lipgloss.Style
	ActiveLine lipgloss.Style
	MetaLabel  lipgloss.Style
	MetaValue  lipgloss.Style
	StateIdle  lipgloss.Style
	StateWarn  lipgloss.Style
	StateLoad  lipgloss.Style
	StatePlay  lipgloss.Style

	TitlePlain      lipgloss.Style
	TitleBookmarked lipgloss.Style
}

func Default() Theme {
	cpMauve := lipgloss.Color("#cba6f7")
	cpRed := lipgloss.Color("#f38ba8")
	cpPeach := lipgloss.Color("#fab387")
	cpYellow := lipgloss.Color("#f9e2af")
	cpGreen := lipgloss.Color("#a6e3a1")
	cpTeal := lipgloss.Color("#94e2d5")
	cpSky := lipgloss.Color("#89dceb")
	cpLavender := lipgloss.Color("#b4befe")
	cpText := lipgloss.Color("#cdd6f4")
	cpSubtext1 := lipgloss.Color("#bac2de")
	cpOverlay1 := lipgloss.Color("#7f849c")
	cpSurface0 := lipgloss.Color("#313244")

	return Theme{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(cpMauve),
		ModePill:   lipgloss.NewStyle().Foreground(cpLavender).Background(cpSurface0).Padding(0, 1),
		Section:    lipgloss.NewStyle().Bold(true).Foreground(cpTeal),
		Marker:     lipgloss.NewStyle().Foreground(cpYellow).Bold(true),
		ActiveLine: lipgloss.NewStyle().Background(cpSurface0).Foreground(cpText),
		MetaLabel:  lipgloss.NewStyle().Foreground(cpOverlay1),
		MetaValue:  lipgloss.NewStyle().Foreground(cpSubtext1),
		StateIdle:  lipgloss.NewStyle().Foreground(cpGreen),
		StateWarn:  lipgloss.NewStyle().Foreground(cpRed),
		StateLoad:  lipgloss.NewStyle().Foreground(cpPeach),
		StatePlay:  lipgloss.NewStyle().Bold(true).Foreground(cpSky),

		TitlePlain: lipgloss.NewStyle().Foreground(cpText),
		TitleBookmarked: lipgloss.NewStyle().
			Bold(true).
			Foreground(cpLavender),
	}
}

func (t Theme) StyleArticleTitle(a news.Article, title string) string {
	if title == "" {
		return title
	}
	if a.IsBookmarked {
		return t.TitleBookmarked.Render(title)
	}
	return t.TitlePlain.Render(title)
}

// PlaybackStyle picks the state color for a playback state.
func (t Theme) PlaybackStyle(s playback.State) lipgloss.Style {
	switch s {
	case playback.Loading:
		return t.StateLoad
	case playback.Playing:
		return t.StatePlay
	default:
		return t.StateIdle
	}
}

func (t Theme) RenderActiveLine(active bool, line string) string {
	if !active {
		return line
	}
	return t.ActiveLine.Render(line)
}
