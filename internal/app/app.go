package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glabrego/readaloud-cli/internal/apperr"
	"github.com/glabrego/readaloud-cli/internal/chunk"
	"github.com/glabrego/readaloud-cli/internal/news"
	"github.com/glabrego/readaloud-cli/internal/notify"
	"github.com/glabrego/readaloud-cli/internal/playback"
	"github.com/glabrego/readaloud-cli/internal/session"
	"github.com/glabrego/readaloud-cli/internal/speech"
)

type NewsClient interface {
	ListSummaryNews(ctx context.Context, page int) ([]news.Article, error)
	ListRanking(ctx context.Context) ([]news.RankedArticle, error)
	Login(ctx context.Context, username, password string) (string, string, error)
	Signup(ctx context.Context, in news.SignupRequest) error
	CheckUsername(ctx context.Context, username string) (news.UsernameAvailability, error)
	ChangePassword(ctx context.Context, current, next string) error
}

type Repository interface {
	SavePage(ctx context.Context, page int, articles []news.Article) error
	ListPage(ctx context.Context, page int) ([]news.Article, error)
}

type Bookmarks interface {
	Toggle(ctx context.Context, a news.Article) (bool, error)
	Annotate(ctx context.Context, articles []news.Article) []news.Article
	List(ctx context.Context) ([]news.Article, error)
	Sync(ctx context.Context) error
}

type Playback interface {
	StartSingle(ctx context.Context, text string) (*playback.Session, error)
	StartSequence(ctx context.Context, chunks []string) (*playback.Session, error)
	Stop()
	Status() playback.Status
}

type VoiceCatalog interface {
	ListVoices(ctx context.Context) ([]speech.Voice, error)
}

type SessionStore interface {
	Snapshot() session.State
	Update(ctx context.Context, fn func(*session.State)) (session.State, error)
	Logout(ctx context.Context) error
	Expire()
}

type Service struct {
	news      NewsClient
	repo      Repository
	bookmarks Bookmarks
	player    Playback
	voices    VoiceCatalog
	session   SessionStore
	notifier  notify.Notifier
	logger    *slog.Logger
	pages     int
	now       func() time.Time
}

type Deps struct {
	News      NewsClient
	Repo      Repository
	Bookmarks Bookmarks
	Player    Playback
	Voices    VoiceCatalog
	Session   SessionStore
	Notifier  notify.Notifier
	Logger    *slog.Logger
	// Pages is how many feed pages "listen all" reads.
	Pages int
}

func NewService(d Deps) *Service {
	s := &Service{
		news:      d.News,
		repo:      d.Repo,
		bookmarks: d.Bookmarks,
		player:    d.Player,
		voices:    d.Voices,
		session:   d.Session,
		notifier:  d.Notifier,
		logger:    d.Logger,
		pages:     d.Pages,
		now:       time.Now,
	}
	if s.notifier == nil {
		s.notifier = notify.Discard
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.pages < 1 {
		s.pages = chunk.DefaultPages
	}
	return s
}

// Pages is the number of feed pages.
func (s *Service) Pages() int { return s.pages }

// LoadPage fetches one feed page and marks bookmarked articles. When the
// backend is unreachable the cached copy of the page is returned instead.
func (s *Service) LoadPage(ctx context.Context, page int) ([]news.Article, error) {
	if err := s.checkToken(); err != nil {
		return nil, s.fail(err)
	}
	articles, err := s.news.ListSummaryNews(ctx, page)
	if err != nil {
		if errors.Is(err, apperr.ErrAuthExpired) {
			s.session.Expire()
			return nil, s.fail(err)
		}
		cached, cerr := s.repo.ListPage(ctx, page)
		if cerr != nil || len(cached) == 0 {
			return nil, s.fail(fmt.Errorf("fetch page %d: %w", page, err))
		}
		s.logger.Warn("showing cached page", "page", page, "error", err)
		s.notifier.Notify(notify.Notice{Level: notify.Info, Message: "Offline: showing saved news."})
		return s.bookmarks.Annotate(ctx, cached), nil
	}
	if err := s.repo.SavePage(ctx, page, articles); err != nil {
		s.logger.Warn("cache page", "page", page, "error", err)
	}
	return s.bookmarks.Annotate(ctx, articles), nil
}

// ListenPage reads the given articles as one chunk.
func (s *Service) ListenPage(ctx context.Context, articles []news.Article) (*playback.Session, error) {
	return s.player.StartSingle(ctx, chunk.Page(articles)[0])
}

// ListenArticle reads a single article.
func (s *Service) ListenArticle(ctx context.Context, a news.Article) (*playback.Session, error) {
	return s.player.StartSingle(ctx, chunk.Article(a)[0])
}

// ListenAll fetches every feed page and reads them as a sequence. The
// current session is stopped before the pages are fetched, and nothing is
// fetched without a selected voice.
func (s *Service) ListenAll(ctx context.Context) (*playback.Session, error) {
	s.player.Stop()
	if strings.TrimSpace(s.session.Snapshot().VoiceID) == "" {
		return nil, s.fail(apperr.ErrNoVoice)
	}
	chunks, err := chunk.AllPages(ctx, s.news, s.pages, s.logger)
	if err != nil {
		if errors.Is(err, apperr.ErrAuthExpired) {
			s.session.Expire()
		}
		return nil, s.fail(err)
	}
	return s.player.StartSequence(ctx, chunks)
}

func (s *Service) StopListening() {
	s.player.Stop()
}

func (s *Service) PlaybackStatus() playback.Status {
	return s.player.Status()
}

func (s *Service) ToggleBookmark(ctx context.Context, a news.Article) (bool, error) {
	on, err := s.bookmarks.Toggle(ctx, a)
	if err != nil {
		return on, s.fail(err)
	}
	return on, nil
}

func (s *Service) Bookmarks(ctx context.Context) ([]news.Article, error) {
	articles, err := s.bookmarks.List(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	return articles, nil
}

func (s *Service) Ranking(ctx context.Context) ([]news.RankedArticle, error) {
	ranked, err := s.news.ListRanking(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrAuthExpired) {
			s.session.Expire()
		}
		return nil, s.fail(err)
	}
	return ranked, nil
}

func (s *Service) Voices(ctx context.Context) ([]speech.Voice, error) {
	voices, err := s.voices.ListVoices(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	return voices, nil
}

// SelectedVoice returns the stored voice id, or "".
func (s *Service) SelectedVoice() string {
	return s.session.Snapshot().VoiceID
}

func (s *Service) SelectVoice(ctx context.Context, voiceID string) error {
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return s.fail(apperr.ErrNoVoice)
	}
	if _, err := s.session.Update(ctx, func(st *session.State) { st.VoiceID = voiceID }); err != nil {
		return s.fail(err)
	}
	s.logger.Info("voice selected", "voice", voiceID)
	return nil
}

// Login signs in and refreshes the bookmark set for the new user.
func (s *Service) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return s.fail(apperr.Configuration("username and password are required"))
	}
	token, nickname, err := s.news.Login(ctx, username, password)
	if err != nil {
		return s.fail(err)
	}
	if _, err := s.session.Update(ctx, func(st *session.State) {
		st.AccessToken = token
		st.Username = username
		st.Nickname = nickname
	}); err != nil {
		return s.fail(err)
	}
	if err := s.bookmarks.Sync(ctx); err != nil {
		s.logger.Warn("sync bookmarks after login", "error", err)
	}
	s.logger.Info("logged in", "username", username)
	return nil
}

// Logout stops playback and forgets the account.
func (s *Service) Logout(ctx context.Context) error {
	s.player.Stop()
	if err := s.session.Logout(ctx); err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *Service) checkToken() error {
	st := s.session.Snapshot()
	if st.TokenExpired(s.now()) {
		s.session.Expire()
		return fmt.Errorf("%w: token expired locally", apperr.ErrAuthExpired)
	}
	return nil
}

func (s *Service) fail(err error) error {
	s.notifier.Notify(notify.Failure(err))
	return err
}
