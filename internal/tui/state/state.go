package state

import (
	"github.com/glabrego/readaloud-cli/internal/news"
	"github.com/glabrego/readaloud-cli/internal/speech"
)

func ClampCursor(cursor, size int) int {
	if size <= 0 {
		return 0
	}
	if cursor >= size {
		return size - 1
	}
	if cursor < 0 {
		return 0
	}
	return cursor
}

func PageStep(height int, hasStatus bool) int {
	if height <= 0 {
		return 10
	}
	headerLines := 6
	if hasStatus {
		headerLines += 2
	}
	step := height - headerLines
	if step < 3 {
		step = 3
	}
	return step
}

func CenteredWindow(totalRows, cursor, height int) (int, int) {
	if totalRows <= 0 {
		return 0, 0
	}
	if height <= 0 || totalRows <= height {
		return 0, totalRows
	}
	cursor = ClampCursor(cursor, totalRows)
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	maxStart := totalRows - height
	if start > maxStart {
		start = maxStart
	}
	return start, start + height
}

// StepPage moves page by delta within 1..pages, wrapping at both ends.
func StepPage(page, delta, pages int) int {
	if pages <= 0 {
		return 1
	}
	next := (page - 1 + delta) % pages
	if next < 0 {
		next += pages
	}
	return next + 1
}

func ArticleIndexByKey(articles []news.Article, key string) int {
	for i, a := range articles {
		if a.Key() == key {
			return i
		}
	}
	return -1
}

// WithBookmark returns a copy of articles with the flag set on the article
// identified by key.
func WithBookmark(articles []news.Article, key string, on bool) []news.Article {
	out := make([]news.Article, len(articles))
	copy(out, articles)
	if i := ArticleIndexByKey(out, key); i >= 0 {
		out[i].IsBookmarked = on
	}
	return out
}

// WithoutArticle drops the article identified by key.
func WithoutArticle(articles []news.Article, key string) []news.Article {
	out := make([]news.Article, 0, len(articles))
	for _, a := range articles {
		if a.Key() != key {
			out = append(out, a)
		}
	}
	return out
}

// NextVoice returns the voice after current, or the first voice when current
// is not in the list.
func NextVoice(voices []speech.Voice, current string) (speech.Voice, bool) {
	if len(voices) == 0 {
		return speech.Voice{}, false
	}
	for i, v := range voices {
		if v.ID == current {
			return voices[(i+1)%len(voices)], true
		}
	}
	return voices[0], true
}
