package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glabrego/readaloud-cli/internal/apperr"
	"github.com/glabrego/readaloud-cli/internal/chunk"
	"github.com/glabrego/readaloud-cli/internal/news"
	"github.com/glabrego/readaloud-cli/internal/notify"
	"github.com/glabrego/readaloud-cli/internal/playback"
	"github.com/glabrego/readaloud-cli/internal/session"
	"github.com/glabrego/readaloud-cli/internal/speech"
)

type fakeNews struct {
	pages    map[int][]news.Article
	pageErr  map[int]error
	ranking  []news.RankedArticle
	loginErr error
	fetches  int

	taken       map[string]string
	signups     []news.SignupRequest
	passwords   [][2]string
	passwordErr error
}

func (f *fakeNews) ListSummaryNews(_ context.Context, page int) ([]news.Article, error) {
	f.fetches++
	if err := f.pageErr[page]; err != nil {
		return nil, err
	}
	return f.pages[page], nil
}

func (f *fakeNews) ListRanking(context.Context) ([]news.RankedArticle, error) {
	return f.ranking, nil
}

func (f *fakeNews) Login(_ context.Context, username, _ string) (string, string, error) {
	if f.loginErr != nil {
		return "", "", f.loginErr
	}
	return "tok-" + username, strings.ToUpper(username), nil
}

func (f *fakeNews) Signup(_ context.Context, in news.SignupRequest) error {
	f.signups = append(f.signups, in)
	return nil
}

func (f *fakeNews) CheckUsername(_ context.Context, username string) (news.UsernameAvailability, error) {
	if msg, ok := f.taken[username]; ok {
		return news.UsernameAvailability{Message: msg}, nil
	}
	return news.UsernameAvailability{Available: true}, nil
}

func (f *fakeNews) ChangePassword(_ context.Context, current, next string) error {
	if f.passwordErr != nil {
		return f.passwordErr
	}
	f.passwords = append(f.passwords, [2]string{current, next})
	return nil
}

type fakeRepo struct {
	saved map[int][]news.Article
}

func (f *fakeRepo) SavePage(_ context.Context, page int, articles []news.Article) error {
	if f.saved == nil {
		f.saved = map[int][]news.Article{}
	}
	f.saved[page] = append([]news.Article(nil), articles...)
	return nil
}

func (f *fakeRepo) ListPage(_ context.Context, page int) ([]news.Article, error) {
	return f.saved[page], nil
}

type fakeBookmarks struct {
	marked    map[string]bool
	toggleErr error
	syncs     int
}

func (f *fakeBookmarks) Toggle(_ context.Context, a news.Article) (bool, error) {
	if f.toggleErr != nil {
		return f.marked[a.Key()], f.toggleErr
	}
	f.marked[a.Key()] = !f.marked[a.Key()]
	return f.marked[a.Key()], nil
}

func (f *fakeBookmarks) Annotate(_ context.Context, articles []news.Article) []news.Article {
	for i := range articles {
		articles[i].IsBookmarked = f.marked[articles[i].Key()]
	}
	return articles
}

func (f *fakeBookmarks) List(context.Context) ([]news.Article, error) { return nil, nil }

func (f *fakeBookmarks) Sync(context.Context) error {
	f.syncs++
	return nil
}

type fakePlayback struct {
	mu       sync.Mutex
	singles  []string
	sequence []string
	stops    int
}

func (f *fakePlayback) StartSingle(_ context.Context, text string) (*playback.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singles = append(f.singles, text)
	return &playback.Session{ID: "s"}, nil
}

func (f *fakePlayback) StartSequence(_ context.Context, chunks []string) (*playback.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sequence = append([]string(nil), chunks...)
	return &playback.Session{ID: "seq", Mode: playback.Sequence}, nil
}

func (f *fakePlayback) Stop() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func (f *fakePlayback) Status() playback.Status { return playback.Status{} }

type fakeVoices struct{}

func (fakeVoices) ListVoices(context.Context) ([]speech.Voice, error) {
	return []speech.Voice{{ID: "v1", DisplayName: "Alice"}}, nil
}

type memBackend map[string]string

func (m memBackend) GetState(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memBackend) SetState(_ context.Context, values map[string]string) error {
	for k, v := range values {
		m[k] = v
	}
	return nil
}

type fixture struct {
	svc       *Service
	news      *fakeNews
	repo      *fakeRepo
	bookmarks *fakeBookmarks
	player    *fakePlayback
	store     *session.Store
	notices   *notify.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		news:      &fakeNews{pages: map[int][]news.Article{}, pageErr: map[int]error{}},
		repo:      &fakeRepo{},
		bookmarks: &fakeBookmarks{marked: map[string]bool{}},
		player:    &fakePlayback{},
		store:     session.NewStore(memBackend{}, nil),
		notices:   &notify.Recorder{},
	}
	f.svc = NewService(Deps{
		News:      f.news,
		Repo:      f.repo,
		Bookmarks: f.bookmarks,
		Player:    f.player,
		Voices:    fakeVoices{},
		Session:   f.store,
		Notifier:  f.notices,
	})
	return f
}

func TestService_LoadPage_CachesAndAnnotates(t *testing.T) {
	f := newFixture(t)
	a := news.Article{ID: "1", Title: "Rain", URL: "https://example.com/rain"}
	f.news.pages[1] = []news.Article{a}
	f.bookmarks.marked[a.Key()] = true

	articles, err := f.svc.LoadPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("LoadPage returned error: %v", err)
	}
	if len(articles) != 1 || !articles[0].IsBookmarked {
		t.Fatalf("unexpected articles: %+v", articles)
	}
	if len(f.repo.saved[1]) != 1 {
		t.Fatalf("expected page cached, got %+v", f.repo.saved)
	}
}

func TestService_LoadPage_FallsBackToCache(t *testing.T) {
	f := newFixture(t)
	f.repo.saved = map[int][]news.Article{2: {{Title: "Cached"}}}
	f.news.pageErr[2] = apperr.Transport("list summary news", errors.New("offline"))

	articles, err := f.svc.LoadPage(context.Background(), 2)
	if err != nil {
		t.Fatalf("LoadPage returned error: %v", err)
	}
	if len(articles) != 1 || articles[0].Title != "Cached" {
		t.Fatalf("unexpected articles: %+v", articles)
	}
	if n := f.notices.Notices(); len(n) != 1 || n[0].Level != notify.Info {
		t.Fatalf("expected offline notice, got %+v", n)
	}
}

func TestService_LoadPage_UnauthorizedExpiresSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.Save(ctx, session.State{AccessToken: "tok", Username: "mina", VoiceID: "v1"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	f.news.pageErr[1] = &apperr.StatusError{Op: "list summary news", StatusCode: 401}
	f.repo.saved = map[int][]news.Article{1: {{Title: "Cached"}}}

	_, err := f.svc.LoadPage(ctx, 1)
	if !errors.Is(err, apperr.ErrAuthExpired) {
		t.Fatalf("expected auth expired, got %v", err)
	}
	if f.store.Snapshot().LoggedIn() || !f.store.Expired() {
		t.Fatal("expected session cleared")
	}
	if f.store.Snapshot().VoiceID != "v1" {
		t.Fatal("expected voice kept after expiry")
	}
	n := f.notices.Notices()
	if len(n) != 1 || !strings.Contains(n[0].Message, "log in again") {
		t.Fatalf("expected auth notice, got %+v", n)
	}
}

func TestService_ListenPage_UsesChunkBuilder(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.ListenPage(context.Background(), nil); err != nil {
		t.Fatalf("ListenPage returned error: %v", err)
	}
	if len(f.player.singles) != 1 || f.player.singles[0] != chunk.Placeholder {
		t.Fatalf("expected placeholder chunk, got %v", f.player.singles)
	}
}

func (f *fixture) selectVoice(t *testing.T, id string) {
	t.Helper()
	if err := f.svc.SelectVoice(context.Background(), id); err != nil {
		t.Fatalf("SelectVoice returned error: %v", err)
	}
}

func TestService_ListenAll_StopsThenStartsSequence(t *testing.T) {
	f := newFixture(t)
	f.selectVoice(t, "v1")
	f.news.pages[1] = []news.Article{{Title: "One", Summary: "First"}}
	f.news.pages[3] = []news.Article{{Title: "Three", Summary: "Third"}}

	if _, err := f.svc.ListenAll(context.Background()); err != nil {
		t.Fatalf("ListenAll returned error: %v", err)
	}
	if f.player.stops != 1 {
		t.Fatalf("expected current session stopped first, got %d stops", f.player.stops)
	}
	if len(f.player.sequence) != 2 || !strings.HasPrefix(f.player.sequence[1], "Page 3.") {
		t.Fatalf("unexpected sequence: %v", f.player.sequence)
	}
}

func TestService_ListenAll_NothingToRead(t *testing.T) {
	f := newFixture(t)
	f.selectVoice(t, "v1")

	_, err := f.svc.ListenAll(context.Background())
	if !errors.Is(err, apperr.ErrNothingToRead) {
		t.Fatalf("expected ErrNothingToRead, got %v", err)
	}
	if len(f.player.sequence) != 0 {
		t.Fatal("playback must not start when nothing was built")
	}
	if len(f.notices.Notices()) != 1 {
		t.Fatalf("expected a notice, got %+v", f.notices.Notices())
	}
}

func TestService_ToggleBookmark_NotifiesFailure(t *testing.T) {
	f := newFixture(t)
	f.bookmarks.toggleErr = apperr.ErrMissingIdentity

	_, err := f.svc.ToggleBookmark(context.Background(), news.Article{Title: "x"})
	if !errors.Is(err, apperr.ErrMissingIdentity) {
		t.Fatalf("expected missing identity, got %v", err)
	}
	if n := f.notices.Notices(); len(n) != 1 || n[0].Level != notify.Error {
		t.Fatalf("expected error notice, got %+v", n)
	}
}

func TestService_LoginSelectVoiceLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.Login(ctx, "mina", "pw"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	st := f.store.Snapshot()
	if st.AccessToken != "tok-mina" || st.Nickname != "MINA" {
		t.Fatalf("unexpected state after login: %+v", st)
	}
	if f.bookmarks.syncs != 1 {
		t.Fatalf("expected bookmark sync after login, got %d", f.bookmarks.syncs)
	}

	if err := f.svc.SelectVoice(ctx, " v1 "); err != nil {
		t.Fatalf("SelectVoice returned error: %v", err)
	}
	if f.svc.SelectedVoice() != "v1" {
		t.Fatalf("unexpected voice: %q", f.svc.SelectedVoice())
	}
	if err := f.svc.SelectVoice(ctx, ""); !errors.Is(err, apperr.ErrNoVoice) {
		t.Fatalf("expected ErrNoVoice, got %v", err)
	}

	if err := f.svc.Logout(ctx); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if f.store.Snapshot().LoggedIn() || f.player.stops != 1 {
		t.Fatal("expected logout to stop playback and clear the token")
	}
	if f.svc.SelectedVoice() != "v1" {
		t.Fatal("expected voice preference kept")
	}
}

func TestService_ExpiredTokenShortCircuits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// exp 1700000000 (2023-11-14).
	expired := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJleHAiOjE3MDAwMDAwMDB9.c2ln"
	if err := f.store.Save(ctx, session.State{AccessToken: expired, Username: "mina"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	f.svc.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	f.news.pages[1] = []news.Article{{Title: "unreachable"}}

	_, err := f.svc.LoadPage(ctx, 1)
	if !errors.Is(err, apperr.ErrAuthExpired) {
		t.Fatalf("expected auth expired, got %v", err)
	}
	if len(f.repo.saved) != 0 {
		t.Fatal("no request should have been made")
	}
}

func TestService_RankingAndVoices(t *testing.T) {
	f := newFixture(t)
	f.news.ranking = []news.RankedArticle{{Rank: 1, Title: "Top"}}

	ranked, err := f.svc.Ranking(context.Background())
	if err != nil || len(ranked) != 1 {
		t.Fatalf("unexpected ranking: %+v err=%v", ranked, err)
	}
	voices, err := f.svc.Voices(context.Background())
	if err != nil || len(voices) != 1 || voices[0].ID != "v1" {
		t.Fatalf("unexpected voices: %+v err=%v", voices, err)
	}
}
