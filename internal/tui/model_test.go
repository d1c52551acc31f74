package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/readaloud-cli/internal/news"
	"github.com/glabrego/readaloud-cli/internal/notify"
	"github.com/glabrego/readaloud-cli/internal/playback"
	"github.com/glabrego/readaloud-cli/internal/speech"
	tuiactions "github.com/glabrego/readaloud-cli/internal/tui/actions"
)

type fakeService struct {
	pages      map[int][]news.Article
	pageErr    error
	bookmarks  []news.Article
	toggleNext bool
	toggleErr  error
	voices     []speech.Voice
	status     playback.Status

	loadedPages    []int
	listenedPage   []news.Article
	listenedAll    int
	selectedVoices []string
	stops          int
}

func (f *fakeService) LoadPage(_ context.Context, page int) ([]news.Article, error) {
	f.loadedPages = append(f.loadedPages, page)
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	return f.pages[page], nil
}

func (f *fakeService) ListenPage(_ context.Context, articles []news.Article) (*playback.Session, error) {
	f.listenedPage = articles
	return nil, nil
}

func (f *fakeService) ListenArticle(context.Context, news.Article) (*playback.Session, error) {
	return nil, nil
}

func (f *fakeService) ListenAll(context.Context) (*playback.Session, error) {
	f.listenedAll++
	return nil, errors.New("no voice selected")
}

func (f *fakeService) StopListening() { f.stops++ }

func (f *fakeService) ToggleBookmark(context.Context, news.Article) (bool, error) {
	return f.toggleNext, f.toggleErr
}

func (f *fakeService) Bookmarks(context.Context) ([]news.Article, error) {
	return f.bookmarks, nil
}

func (f *fakeService) Voices(context.Context) ([]speech.Voice, error) {
	return f.voices, nil
}

func (f *fakeService) SelectVoice(_ context.Context, voiceID string) error {
	f.selectedVoices = append(f.selectedVoices, voiceID)
	return nil
}

func (f *fakeService) PlaybackStatus() playback.Status { return f.status }

type failingSynth struct{}

func (failingSynth) Synthesize(context.Context, string, string) (*speech.Clip, error) {
	return nil, errors.New("speech service down")
}

type staticVoice string

func (v staticVoice) VoiceID() string { return string(v) }

func sampleArticles() []news.Article {
	return []news.Article{
		{Title: "First story", URL: "https://example.com/1", Summary: "Summary one."},
		{Title: "Second story", URL: "https://example.com/2", Summary: "Summary two.", IsBookmarked: true},
	}
}

func press(t *testing.T, m Model, key string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func apply(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func loaded(t *testing.T, svc *fakeService) Model {
	t.Helper()
	m := NewModel(svc, 4, "v1")
	m, _ = apply(t, m, tuiactions.PageLoadSuccessMsg{Page: 1, Articles: svc.pages[1]})
	return m
}

func TestModelView_ShowsArticlesWithMarkers(t *testing.T) {
	svc := &fakeService{pages: map[int][]news.Article{1: sampleArticles()}}
	m := loaded(t, svc)

	view := m.View()
	for _, want := range []string{"Readaloud", "First story", "★ 2. Second story", "> ", "page 1/4"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view, got:\n%s", want, view)
		}
	}
}

func TestModelUpdate_NavigateAndOpenDetail(t *testing.T) {
	svc := &fakeService{pages: map[int][]news.Article{1: sampleArticles()}}
	m := loaded(t, svc)

	m, _ = press(t, m, "j")
	if m.cursor != 1 {
		t.Fatalf("expected cursor at 1, got %d", m.cursor)
	}
	m, _ = press(t, m, "enter")
	if !m.inDetail {
		t.Fatal("expected detail view")
	}
	view := m.View()
	if !strings.Contains(view, "URL: https://example.com/2") || !strings.Contains(view, "Summary two.") {
		t.Fatalf("expected article detail, got:\n%s", view)
	}

	m, _ = press(t, m, "esc")
	if m.inDetail {
		t.Fatal("expected esc to return to list")
	}
}

func TestModelUpdate_PageLoadError(t *testing.T) {
	svc := &fakeService{pageErr: errors.New("network")}
	m := NewModel(svc, 4, "")

	m, _ = apply(t, m, tuiactions.LoadPageCmd(svc, 1)())
	if m.warning != "network" {
		t.Fatalf("expected warning, got %q", m.warning)
	}
	if !strings.Contains(m.View(), "state: warning") {
		t.Fatalf("expected warning state in view, got:\n%s", m.View())
	}
}

func TestModelUpdate_NextPageWrapsAndIgnoresStaleLoads(t *testing.T) {
	svc := &fakeService{pages: map[int][]news.Article{
		1: sampleArticles(),
		4: {{Title: "Last page story", URL: "https://example.com/4"}},
	}}
	m := loaded(t, svc)

	m, cmd := press(t, m, "N")
	if m.page != 4 || cmd == nil {
		t.Fatalf("expected wrap to page 4 with a load, got page %d", m.page)
	}
	m, _ = apply(t, m, tuiactions.PageLoadSuccessMsg{Page: 1, Articles: sampleArticles()})
	if len(m.articles) != 2 || m.articles[0].Title != "First story" {
		t.Fatalf("unexpected articles after stale load: %+v", m.articles)
	}

	m, _ = apply(t, m, cmd())
	if len(m.articles) != 1 || m.articles[0].Title != "Last page story" {
		t.Fatalf("expected page 4 articles, got %+v", m.articles)
	}
	if svc.loadedPages[len(svc.loadedPages)-1] != 4 {
		t.Fatalf("expected last load to be page 4, got %v", svc.loadedPages)
	}
}

func TestModelUpdate_ToggleBookmark(t *testing.T) {
	svc := &fakeService{pages: map[int][]news.Article{1: sampleArticles()}, toggleNext: true}
	m := loaded(t, svc)

	m, cmd := press(t, m, "b")
	if cmd == nil {
		t.Fatal("expected toggle command")
	}
	m, _ = apply(t, m, cmd())
	if !m.articles[0].IsBookmarked {
		t.Fatal("expected first article to be bookmarked")
	}
	if m.status != "Bookmarked" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelUpdate_ToggleBookmarkErrorKeepsSettledState(t *testing.T) {
	svc := &fakeService{
		pages:      map[int][]news.Article{1: sampleArticles()},
		toggleNext: false,
		toggleErr:  errors.New("server error"),
	}
	m := loaded(t, svc)
	m, _ = press(t, m, "j")

	m, cmd := press(t, m, "b")
	m, _ = apply(t, m, cmd())
	if m.articles[1].IsBookmarked {
		t.Fatal("expected settled state from the reconciler to be applied")
	}
	if m.warning != "server error" {
		t.Fatalf("unexpected warning %q", m.warning)
	}
}

func TestModelUpdate_BookmarksViewDropsRemoved(t *testing.T) {
	saved := []news.Article{{Title: "Saved", URL: "https://example.com/s", IsBookmarked: true}}
	svc := &fakeService{pages: map[int][]news.Article{1: sampleArticles()}, bookmarks: saved}
	m := loaded(t, svc)

	m, cmd := press(t, m, "B")
	if m.source != sourceBookmarks {
		t.Fatalf("expected bookmarks view, got %s", m.source)
	}
	m, _ = apply(t, m, cmd())
	if len(m.articles) != 1 {
		t.Fatalf("expected bookmarks list, got %+v", m.articles)
	}

	m, cmd = press(t, m, "b")
	m, _ = apply(t, m, cmd())
	if len(m.articles) != 0 {
		t.Fatalf("expected unbookmarked article to leave the list, got %+v", m.articles)
	}
	if !strings.Contains(m.View(), "No bookmarks yet.") {
		t.Fatalf("expected empty bookmarks view, got:\n%s", m.View())
	}
}

func TestModelUpdate_ListenKeys(t *testing.T) {
	svc := &fakeService{pages: map[int][]news.Article{1: sampleArticles()}}
	m := loaded(t, svc)

	_, cmd := press(t, m, "l")
	_ = cmd()
	if len(svc.listenedPage) != 2 {
		t.Fatalf("expected page articles to be read, got %+v", svc.listenedPage)
	}

	m, cmd = press(t, m, "L")
	m, _ = apply(t, m, cmd())
	if svc.listenedAll != 1 || m.warning != "no voice selected" {
		t.Fatalf("expected listen-all error to surface, warning=%q", m.warning)
	}

	_, cmd = press(t, m, "s")
	_ = cmd()
	if svc.stops != 1 {
		t.Fatalf("expected stop, got %d", svc.stops)
	}
}

func TestModelUpdate_SessionLifecycle(t *testing.T) {
	svc := &fakeService{
		pages:  map[int][]news.Article{1: sampleArticles()},
		status: playback.Status{State: playback.Loading, Total: 1},
	}
	m := loaded(t, svc)

	ctrl := playback.New(failingSynth{}, nil, staticVoice("v1"))
	s, err := ctrl.StartSingle(context.Background(), "hello")
	if err != nil {
		t.Fatalf("StartSingle returned error: %v", err)
	}

	m, cmd := apply(t, m, tuiactions.ListenStartedMsg{Session: s, Label: "Reading page 1"})
	if cmd == nil || m.session != s {
		t.Fatal("expected the model to track the session")
	}
	if !strings.Contains(m.View(), "audio: loading") {
		t.Fatalf("expected playback state in view, got:\n%s", m.View())
	}

	done := tuiactions.WaitPlaybackCmd(s)()
	m, _ = apply(t, m, done)
	if m.session != nil {
		t.Fatal("expected session to be cleared")
	}
	if m.warning == "" {
		t.Fatal("expected failed session to leave a warning")
	}

	// A late tick for a finished session is ignored.
	m, cmd = apply(t, m, playbackTickMsg{sessionID: s.ID})
	if cmd != nil {
		t.Fatal("expected no further polling")
	}
}

func TestModelUpdate_CycleVoiceLoadsThenSelects(t *testing.T) {
	svc := &fakeService{
		pages:  map[int][]news.Article{1: sampleArticles()},
		voices: []speech.Voice{{ID: "v1", DisplayName: "Ava"}, {ID: "v2", DisplayName: "Ben"}},
	}
	m := loaded(t, svc)

	m, cmd := press(t, m, "v")
	if !m.cyclePending {
		t.Fatal("expected voices to be loaded first")
	}
	m, cmd = apply(t, m, cmd())
	if cmd == nil {
		t.Fatal("expected select command after voices load")
	}
	m, _ = apply(t, m, cmd())
	if m.voiceID != "v2" || len(svc.selectedVoices) != 1 {
		t.Fatalf("expected v2 to be selected, got %q (%v)", m.voiceID, svc.selectedVoices)
	}
	if !strings.Contains(m.View(), "voice Ben") {
		t.Fatalf("expected voice in footer, got:\n%s", m.View())
	}
}

func TestModelUpdate_OpenURLRejectsMissingURL(t *testing.T) {
	svc := &fakeService{pages: map[int][]news.Article{1: {{Title: "No link"}}}}
	m := loaded(t, svc)

	m, cmd := press(t, m, "o")
	if cmd != nil {
		t.Fatal("expected no command for article without URL")
	}
	if !strings.Contains(m.warning, "no URL") {
		t.Fatalf("unexpected warning %q", m.warning)
	}
}

func TestModelUpdate_Notices(t *testing.T) {
	m := NewModel(&fakeService{}, 4, "")

	m, _ = apply(t, m, NoticeMsg{Notice: notify.Notice{Level: notify.Error, Message: "Please log in again."}})
	if m.warning != "Please log in again." {
		t.Fatalf("unexpected warning %q", m.warning)
	}
	m, _ = apply(t, m, NoticeMsg{Notice: notify.Notice{Level: notify.Info, Message: "Offline: showing saved news."}})
	if m.status != "Offline: showing saved news." {
		t.Fatalf("unexpected status %q", m.status)
	}

	m, _ = apply(t, m, clearStatusMsg{id: m.statusID})
	if m.status != "" {
		t.Fatalf("expected status cleared, got %q", m.status)
	}
}

func TestNotices_HoldUntilAttached(t *testing.T) {
	var n Notices
	n.Notify(notify.Notice{Message: "early"})

	var mu sync.Mutex
	var got []string
	n.attach(func(msg tea.Msg) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg.(NoticeMsg).Notice.Message)
	})
	n.Notify(notify.Notice{Message: "late"})

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(got, ",") != "early,late" {
		t.Fatalf("unexpected delivery order: %v", got)
	}
}
