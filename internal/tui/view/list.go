package view

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/glabrego/readaloud-cli/internal/news"
	"github.com/glabrego/readaloud-cli/internal/textutil"
	tuitheme "github.com/glabrego/readaloud-cli/internal/tui/theme"
)

var reANSICodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

type ArticleLineParams struct {
	Article    news.Article
	Position   int
	Active     bool
	Speaking   bool
	Width      int
	ShowNumber bool
}

func RenderArticleLine(p ArticleLineParams, th tuitheme.Theme) string {
	cursorMarker := " "
	if p.Active {
		cursorMarker = ">"
	}
	bookmarkMarker := " "
	if p.Article.IsBookmarked {
		bookmarkMarker = "★"
	}

	prefix := fmt.Sprintf(" %s%s ", cursorMarker, bookmarkMarker)
	if p.ShowNumber {
		prefix = fmt.Sprintf(" %s%s%2d. ", cursorMarker, bookmarkMarker, p.Position+1)
	}
	suffix := ""
	if p.Speaking {
		suffix = "♪"
	}
	available := p.Width - visibleLen(prefix) - 1 - visibleLen(suffix)
	if available < 1 {
		available = 1
	}

	label := truncateRunes(ArticleLabel(p.Article), available)
	styledTitle := th.StyleArticleTitle(p.Article, label)
	if suffix == "" {
		return th.RenderActiveLine(p.Active, prefix+styledTitle)
	}
	gap := p.Width - visibleLen(prefix) - visibleLen(label) - visibleLen(suffix)
	if gap < 1 {
		gap = 1
	}
	return th.RenderActiveLine(p.Active, prefix+styledTitle+strings.Repeat(" ", gap)+th.Marker.Render(suffix))
}

// ArticleLabel is the one-line title shown in lists.
func ArticleLabel(a news.Article) string {
	title := textutil.Clean(textutil.PlainText(a.Title))
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return "(untitled)"
	}
	return title
}

func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return strings.Repeat(".", maxLen)
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

func visibleLen(s string) int {
	return utf8.RuneCountInString(stripANSIText(s))
}

func stripANSIText(s string) string {
	return reANSICodes.ReplaceAllString(s, "")
}
