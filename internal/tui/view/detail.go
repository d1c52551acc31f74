package view

import (
	"strings"

	"github.com/glabrego/readaloud-cli/internal/news"
	"github.com/glabrego/readaloud-cli/internal/textutil"
)

type WrapFunc func(string, int) []string

func DetailMetaLines(a news.Article, width int, wrap WrapFunc) []string {
	title := ArticleLabel(a)
	lines := make([]string, 0, 8)
	lines = append(lines, wrap(title, width)...)
	lines = append(lines, strings.Repeat("=", max(1, min(width, len([]rune(title))))))
	lines = append(lines, "")

	if a.IsBookmarked {
		lines = append(lines, "Bookmarked: yes")
	} else {
		lines = append(lines, "Bookmarked: no")
	}
	if a.URL != "" {
		lines = append(lines, wrap("URL: "+a.URL, width)...)
	}
	return lines
}

// DetailLines is the full article view: metadata, then the plain-text body.
func DetailLines(a news.Article, width, margin int, wrap WrapFunc) []string {
	if wrap == nil {
		wrap = textutil.Wrap
	}
	contentWidth := width - 2*margin
	if contentWidth < 20 {
		contentWidth = 20
	}
	lines := DetailMetaLines(a, contentWidth, wrap)
	if body := textutil.PlainText(a.Body()); body != "" {
		lines = append(lines, "")
		for _, paragraph := range strings.Split(body, "\n") {
			lines = append(lines, wrap(paragraph, contentWidth)...)
		}
	}
	return leftPadLines(lines, margin)
}

func DetailMaxTop(linesLen, bodyHeight int) int {
	maxTop := linesLen - bodyHeight
	if maxTop < 0 {
		return 0
	}
	return maxTop
}

func RenderDetailLines(lines []string, top, maxLines int) string {
	if len(lines) == 0 {
		return ""
	}
	if top < 0 {
		top = 0
	}
	if top > len(lines)-1 {
		top = len(lines) - 1
	}
	end := len(lines)
	if maxLines > 0 && top+maxLines < end {
		end = top + maxLines
	}
	return strings.Join(lines[top:end], "\n") + "\n"
}

func leftPadLines(lines []string, padding int) []string {
	if padding <= 0 || len(lines) == 0 {
		return lines
	}
	prefix := strings.Repeat(" ", padding)
	out := make([]string, len(lines))
	for i, line := range lines {
		if line == "" {
			continue
		}
		out[i] = prefix + line
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
