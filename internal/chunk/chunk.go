// Package chunk builds the text submitted to speech synthesis from feed
// articles, one chunk per request.
package chunk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/glabrego/readaloud-cli/internal/apperr"
	"github.com/glabrego/readaloud-cli/internal/news"
	"github.com/glabrego/readaloud-cli/internal/textutil"
)

const (
	// Header opens a single-page chunk.
	Header = "Here is today's news summary."
	// Placeholder is read when a page has no articles.
	Placeholder = "There is no news to read right now."
	// DefaultPages matches the number of pages in the paginated feed.
	DefaultPages = 4
)

// PageFetcher loads one page of the feed.
type PageFetcher interface {
	ListSummaryNews(ctx context.Context, page int) ([]news.Article, error)
}

// Page returns the chunks for the articles currently on screen. An empty
// list still yields one chunk so the listener hears something.
func Page(articles []news.Article) []string {
	body := join(articles)
	if body == "" {
		return []string{Placeholder}
	}
	return []string{Header + " " + body}
}

// AllPages fetches pages 1..pages in order and builds one chunk per page that
// has articles. Pages that fail to load are logged and skipped. An expired
// session stops the scan since every later page would fail the same way.
func AllPages(ctx context.Context, fetcher PageFetcher, pages int, logger *slog.Logger) ([]string, error) {
	if pages < 1 {
		pages = DefaultPages
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	chunks := make([]string, 0, pages)
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		articles, err := fetcher.ListSummaryNews(ctx, page)
		if err != nil {
			if errors.Is(err, apperr.ErrAuthExpired) || errors.Is(err, context.Canceled) {
				return nil, err
			}
			logger.Warn("skip page", "page", page, "error", err)
			continue
		}
		body := join(articles)
		if body == "" {
			continue
		}
		chunks = append(chunks, fmt.Sprintf("Page %d. %s", page, body))
	}
	if len(chunks) == 0 {
		return nil, apperr.ErrNothingToRead
	}
	return chunks, nil
}

// Article renders one article as a single chunk for the detail view.
func Article(a news.Article) []string {
	text := join([]news.Article{a})
	if text == "" {
		return []string{Placeholder}
	}
	return []string{text}
}

func join(articles []news.Article) string {
	parts := make([]string, 0, len(articles)*2)
	for _, a := range articles {
		if title := textutil.Sentence(textutil.PlainText(a.Title)); title != "" {
			parts = append(parts, title)
		}
		if body := textutil.Sentence(flatten(textutil.PlainText(a.Body()))); body != "" {
			parts = append(parts, body)
		}
	}
	return strings.Join(parts, " ")
}

func flatten(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
