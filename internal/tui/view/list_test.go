package view

import (
	"strings"
	"testing"

	"github.com/glabrego/readaloud-cli/internal/news"
	tuitheme "github.com/glabrego/readaloud-cli/internal/tui/theme"
)

func TestRenderArticleLine_Markers(t *testing.T) {
	th := tuitheme.Default()
	a := news.Article{Title: "<b>Rates</b> rise", URL: "https://example.com/1", IsBookmarked: true}

	plain := stripANSI(RenderArticleLine(ArticleLineParams{
		Article:    a,
		Position:   0,
		Active:     true,
		Speaking:   true,
		Width:      40,
		ShowNumber: true,
	}, th))
	if !strings.HasPrefix(plain, " >★ 1. Rates rise") {
		t.Fatalf("unexpected line prefix: %q", plain)
	}
	if !strings.HasSuffix(plain, "♪") {
		t.Fatalf("expected speaking marker at right edge, got %q", plain)
	}
	if visibleLen(plain) != 40 {
		t.Fatalf("expected line padded to width, got %d", visibleLen(plain))
	}
}

func TestRenderArticleLine_Truncates(t *testing.T) {
	th := tuitheme.Default()
	line := stripANSI(RenderArticleLine(ArticleLineParams{
		Article: news.Article{Title: strings.Repeat("word ", 20)},
		Width:   20,
	}, th))
	if !strings.HasSuffix(line, "...") {
		t.Fatalf("expected truncated title, got %q", line)
	}
}

func TestArticleLabel(t *testing.T) {
	if got := ArticleLabel(news.Article{Title: "  "}); got != "(untitled)" {
		t.Fatalf("unexpected label for empty title: %q", got)
	}
	if got := ArticleLabel(news.Article{Title: "Line one\nline two"}); got != "Line one line two" {
		t.Fatalf("unexpected label: %q", got)
	}
}

func TestRenderListBody_WindowAndSpeaking(t *testing.T) {
	th := tuitheme.Default()
	articles := []news.Article{
		{Title: "A", URL: "https://example.com/a"},
		{Title: "B", URL: "https://example.com/b"},
		{Title: "C", URL: "https://example.com/c"},
	}
	body := stripANSI(RenderListBody(ListRenderInput{
		Articles:    articles,
		Start:       1,
		End:         5,
		Cursor:      2,
		Width:       30,
		SpeakingKey: "https://example.com/b",
	}, th))
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d: %q", len(lines), body)
	}
	if !strings.Contains(lines[0], "2. B") || !strings.HasSuffix(lines[0], "♪") {
		t.Fatalf("unexpected first row: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], " > ") {
		t.Fatalf("expected cursor on second row, got %q", lines[1])
	}

	if got := RenderListBody(ListRenderInput{}, th); got != "" {
		t.Fatalf("expected empty body, got %q", got)
	}
}

func TestDetailLines(t *testing.T) {
	a := news.Article{
		Title:   "Entry",
		URL:     "https://example.com/1",
		Summary: "<p>First paragraph.</p><p>Second paragraph.</p>",
	}
	lines := DetailLines(a, 60, 4, nil)
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"    Entry", "    Bookmarked: no", "    URL: https://example.com/1", "    First paragraph.", "    Second paragraph."} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in detail, got %q", want, joined)
		}
	}
	if strings.Contains(joined, "<p>") {
		t.Fatalf("expected markup to be stripped, got %q", joined)
	}
}

func TestRenderDetailLines(t *testing.T) {
	lines := []string{"a", "b", "c", "d"}
	if got := RenderDetailLines(lines, 1, 2); got != "b\nc\n" {
		t.Fatalf("unexpected window: %q", got)
	}
	if got := DetailMaxTop(4, 10); got != 0 {
		t.Fatalf("expected max top 0, got %d", got)
	}
}
