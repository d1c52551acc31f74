package actions

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/readaloud-cli/internal/news"
	"github.com/glabrego/readaloud-cli/internal/playback"
	"github.com/glabrego/readaloud-cli/internal/speech"
)

type Service interface {
	LoadPage(ctx context.Context, page int) ([]news.Article, error)
	ListenPage(ctx context.Context, articles []news.Article) (*playback.Session, error)
	ListenArticle(ctx context.Context, a news.Article) (*playback.Session, error)
	ListenAll(ctx context.Context) (*playback.Session, error)
	StopListening()
	ToggleBookmark(ctx context.Context, a news.Article) (bool, error)
	Bookmarks(ctx context.Context) ([]news.Article, error)
	Voices(ctx context.Context) ([]speech.Voice, error)
	SelectVoice(ctx context.Context, voiceID string) error
}

type PageLoadSuccessMsg struct {
	Page     int
	Articles []news.Article
	Duration time.Duration
}

type PageLoadErrorMsg struct {
	Page     int
	Err      error
	Duration time.Duration
}

type BookmarksLoadSuccessMsg struct {
	Articles []news.Article
}

type BookmarksLoadErrorMsg struct {
	Err error
}

// ListenStartedMsg reports a playback session that is now loading or playing.
type ListenStartedMsg struct {
	Session *playback.Session
	Label   string
}

type ListenErrorMsg struct {
	Err error
}

// ListenDoneMsg arrives once a session has finished, failed or been stopped.
type ListenDoneMsg struct {
	SessionID string
	Stopped   bool
	Err       error
}

type ToggleBookmarkSuccessMsg struct {
	Key          string
	IsBookmarked bool
	Status       string
}

// ToggleBookmarkErrorMsg carries the state the reconciler settled on even
// though the toggle failed.
type ToggleBookmarkErrorMsg struct {
	Key          string
	IsBookmarked bool
	Err          error
}

type VoicesLoadSuccessMsg struct {
	Voices []speech.Voice
}

type VoicesLoadErrorMsg struct {
	Err error
}

type VoiceSelectedMsg struct {
	Voice speech.Voice
}

type VoiceSelectErrorMsg struct {
	Err error
}

type OpenURLSuccessMsg struct {
	Status string
	Opened bool
}

type OpenURLErrorMsg struct {
	Err error
}

func LoadPageCmd(service Service, page int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		start := time.Now()

		articles, err := service.LoadPage(ctx, page)
		if err != nil {
			return PageLoadErrorMsg{Page: page, Err: err, Duration: time.Since(start)}
		}
		return PageLoadSuccessMsg{Page: page, Articles: articles, Duration: time.Since(start)}
	}
}

func LoadBookmarksCmd(service Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		articles, err := service.Bookmarks(ctx)
		if err != nil {
			return BookmarksLoadErrorMsg{Err: err}
		}
		return BookmarksLoadSuccessMsg{Articles: articles}
	}
}

// Playback sessions outlive the command that started them, so the start
// commands hand a background context to the service.

func ListenPageCmd(service Service, page int, articles []news.Article) tea.Cmd {
	return func() tea.Msg {
		s, err := service.ListenPage(context.Background(), articles)
		if err != nil {
			return ListenErrorMsg{Err: err}
		}
		return ListenStartedMsg{Session: s, Label: fmt.Sprintf("Reading page %d", page)}
	}
}

func ListenArticleCmd(service Service, a news.Article) tea.Cmd {
	return func() tea.Msg {
		s, err := service.ListenArticle(context.Background(), a)
		if err != nil {
			return ListenErrorMsg{Err: err}
		}
		return ListenStartedMsg{Session: s, Label: "Reading article"}
	}
}

func ListenAllCmd(service Service) tea.Cmd {
	return func() tea.Msg {
		s, err := service.ListenAll(context.Background())
		if err != nil {
			return ListenErrorMsg{Err: err}
		}
		return ListenStartedMsg{Session: s, Label: "Reading all pages"}
	}
}

// WaitPlaybackCmd blocks until s is done.
func WaitPlaybackCmd(s *playback.Session) tea.Cmd {
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		<-s.Done()
		return ListenDoneMsg{SessionID: s.ID, Stopped: s.Stopped(), Err: s.Err()}
	}
}

func StopCmd(service Service) tea.Cmd {
	return func() tea.Msg {
		service.StopListening()
		return nil
	}
}

func ToggleBookmarkCmd(service Service, a news.Article) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		next, err := service.ToggleBookmark(ctx, a)
		if err != nil {
			return ToggleBookmarkErrorMsg{Key: a.Key(), IsBookmarked: next, Err: err}
		}

		status := "Bookmark removed"
		if next {
			status = "Bookmarked"
		}
		return ToggleBookmarkSuccessMsg{Key: a.Key(), IsBookmarked: next, Status: status}
	}
}

func LoadVoicesCmd(service Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		voices, err := service.Voices(ctx)
		if err != nil {
			return VoicesLoadErrorMsg{Err: err}
		}
		return VoicesLoadSuccessMsg{Voices: voices}
	}
}

func SelectVoiceCmd(service Service, voice speech.Voice) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := service.SelectVoice(ctx, voice.ID); err != nil {
			return VoiceSelectErrorMsg{Err: err}
		}
		return VoiceSelectedMsg{Voice: voice}
	}
}

func OpenURLCmd(url string, openFn, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		if openFn != nil {
			if err := openFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "Opened URL in browser", Opened: true}
			}
		}
		if copyFn != nil {
			if err := copyFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "Could not open browser, URL copied to clipboard"}
			}
		}
		return OpenURLErrorMsg{Err: fmt.Errorf("could not open URL or copy to clipboard")}
	}
}

func CopyURLCmd(url string, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		if copyFn != nil {
			if err := copyFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "URL copied to clipboard"}
			}
		}
		return OpenURLErrorMsg{Err: fmt.Errorf("could not copy URL to clipboard")}
	}
}
