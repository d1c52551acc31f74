package chunk

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/glabrego/readaloud-cli/internal/apperr"
	"github.com/glabrego/readaloud-cli/internal/news"
)

type fakeFetcher struct {
	pages map[int][]news.Article
	errs  map[int]error
	calls []int
}

func (f *fakeFetcher) ListSummaryNews(_ context.Context, page int) ([]news.Article, error) {
	f.calls = append(f.calls, page)
	if err := f.errs[page]; err != nil {
		return nil, err
	}
	return f.pages[page], nil
}

func TestPage_EmptyYieldsOnePlaceholder(t *testing.T) {
	got := Page(nil)
	if !reflect.DeepEqual(got, []string{Placeholder}) {
		t.Fatalf("expected exactly one placeholder chunk, got %#v", got)
	}
}

func TestPage_JoinsTitleAndSummary(t *testing.T) {
	got := Page([]news.Article{
		{Title: "Rain", Summary: "<p>Heavy rain expected</p>"},
		{Title: "Markets up!", Content: "Stocks rose"},
	})
	want := Header + " Rain. Heavy rain expected. Markets up! Stocks rose."
	if len(got) != 1 || got[0] != want {
		t.Fatalf("Page() = %#v, want %q", got, want)
	}
}

func TestArticle_SingleChunk(t *testing.T) {
	got := Article(news.Article{Title: "Rain", Summary: "Line one\nLine two"})
	if len(got) != 1 || got[0] != "Rain. Line one Line two." {
		t.Fatalf("unexpected chunk: %#v", got)
	}
}

func TestAllPages_SkipsFailedAndEmptyPages(t *testing.T) {
	f := &fakeFetcher{
		pages: map[int][]news.Article{
			1: {{Title: "One", Summary: "First"}},
			3: {{Title: "Three", Summary: "Third"}},
		},
		errs: map[int]error{2: apperr.Transport("list summary news", errors.New("boom"))},
	}

	got, err := AllPages(context.Background(), f, DefaultPages, nil)
	if err != nil {
		t.Fatalf("AllPages returned error: %v", err)
	}
	want := []string{"Page 1. One. First.", "Page 3. Three. Third."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AllPages() = %#v, want %#v", got, want)
	}
	if !reflect.DeepEqual(f.calls, []int{1, 2, 3, 4}) {
		t.Fatalf("expected pages fetched in order, got %v", f.calls)
	}
}

func TestAllPages_TotalFailureIsNothingToRead(t *testing.T) {
	f := &fakeFetcher{errs: map[int]error{
		1: errors.New("down"), 2: errors.New("down"), 3: errors.New("down"), 4: errors.New("down"),
	}}
	_, err := AllPages(context.Background(), f, DefaultPages, nil)
	if !errors.Is(err, apperr.ErrNothingToRead) {
		t.Fatalf("expected ErrNothingToRead, got %v", err)
	}
}

func TestAllPages_AuthExpiredAborts(t *testing.T) {
	f := &fakeFetcher{
		pages: map[int][]news.Article{1: {{Title: "One"}}},
		errs:  map[int]error{2: &apperr.StatusError{Op: "list summary news", StatusCode: 401}},
	}
	_, err := AllPages(context.Background(), f, DefaultPages, nil)
	if !errors.Is(err, apperr.ErrAuthExpired) {
		t.Fatalf("expected auth expired, got %v", err)
	}
	if len(f.calls) != 2 {
		t.Fatalf("expected scan to stop at page 2, got calls %v", f.calls)
	}
}

func TestAllPages_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeFetcher{}
	_, err := AllPages(ctx, f, 2, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if len(f.calls) != 0 {
		t.Fatalf("expected no fetches, got %v", f.calls)
	}
	if strings.TrimSpace(Placeholder) == "" {
		t.Fatal("placeholder must not be blank")
	}
}
