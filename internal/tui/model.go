package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/readaloud-cli/internal/news"
	"github.com/glabrego/readaloud-cli/internal/notify"
	"github.com/glabrego/readaloud-cli/internal/playback"
	"github.com/glabrego/readaloud-cli/internal/speech"
	tuiactions "github.com/glabrego/readaloud-cli/internal/tui/actions"
	tuiplatform "github.com/glabrego/readaloud-cli/internal/tui/platform"
	tuistate "github.com/glabrego/readaloud-cli/internal/tui/state"
	tuitheme "github.com/glabrego/readaloud-cli/internal/tui/theme"
	tuiview "github.com/glabrego/readaloud-cli/internal/tui/view"
)

const (
	sourceNews      = "news"
	sourceBookmarks = "bookmarks"

	detailMargin = 2
	playbackPoll = 400 * time.Millisecond
)

type Service interface {
	tuiactions.Service
	PlaybackStatus() playback.Status
}

// NoticeMsg carries a notice raised by background work.
type NoticeMsg struct {
	Notice notify.Notice
}

type clearStatusMsg struct {
	id int
}

type playbackTickMsg struct {
	sessionID string
}

type Model struct {
	service Service
	theme   tuitheme.Theme

	articles []news.Article
	source   string
	page     int
	pages    int
	cursor   int

	showHelp  bool
	inDetail  bool
	detailTop int
	width     int
	height    int

	loading  bool
	status   string
	statusID int
	warning  string

	session     *playback.Session
	speakingKey string
	playback    playback.Status

	voices       []speech.Voice
	voiceID      string
	cyclePending bool

	openURLFn func(string) error
	copyURLFn func(string) error
}

// NewModel builds the reader model. pages is how many feed pages n/N cycle
// through; voiceID is the stored voice, if any.
func NewModel(service Service, pages int, voiceID string) Model {
	if pages < 1 {
		pages = 1
	}
	return Model{
		service:   service,
		theme:     tuitheme.Default(),
		source:    sourceNews,
		page:      1,
		pages:     pages,
		voiceID:   voiceID,
		openURLFn: tuiplatform.OpenURLInBrowser,
		copyURLFn: tuiplatform.CopyURLToClipboard,
	}
}

func (m Model) Init() tea.Cmd {
	if m.service == nil {
		return nil
	}
	return tea.Batch(tuiactions.LoadPageCmd(m.service, m.page), tuiactions.LoadVoicesCmd(m.service))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tuiactions.PageLoadSuccessMsg:
		if m.source != sourceNews || msg.Page != m.page {
			return m, nil
		}
		m.loading = false
		m.warning = ""
		m.articles = msg.Articles
		m.cursor = tuistate.ClampCursor(m.cursor, len(m.articles))
		return m.setStatus(fmt.Sprintf("Page %d loaded in %dms", msg.Page, msg.Duration.Milliseconds()), 3*time.Second)
	case tuiactions.PageLoadErrorMsg:
		if msg.Page != m.page {
			return m, nil
		}
		m.loading = false
		m.warning = msg.Err.Error()
		return m, nil
	case tuiactions.BookmarksLoadSuccessMsg:
		if m.source != sourceBookmarks {
			return m, nil
		}
		m.loading = false
		m.warning = ""
		m.articles = msg.Articles
		m.cursor = tuistate.ClampCursor(m.cursor, len(m.articles))
		return m, nil
	case tuiactions.BookmarksLoadErrorMsg:
		m.loading = false
		m.warning = msg.Err.Error()
		return m, nil
	case tuiactions.ListenStartedMsg:
		if msg.Session == nil {
			return m, nil
		}
		m.session = msg.Session
		m.playback = m.service.PlaybackStatus()
		model, cmd := m.setStatus(msg.Label, 3*time.Second)
		return model, tea.Batch(cmd, tuiactions.WaitPlaybackCmd(msg.Session), playbackTickCmd(msg.Session.ID))
	case tuiactions.ListenErrorMsg:
		m.speakingKey = ""
		m.warning = msg.Err.Error()
		return m, nil
	case tuiactions.ListenDoneMsg:
		if m.session == nil || m.session.ID != msg.SessionID {
			return m, nil
		}
		m.session = nil
		m.speakingKey = ""
		m.playback = playback.Status{}
		switch {
		case msg.Stopped:
			return m.setStatus("Stopped", 3*time.Second)
		case msg.Err != nil:
			m.warning = msg.Err.Error()
			return m, nil
		default:
			return m.setStatus("Finished reading", 3*time.Second)
		}
	case playbackTickMsg:
		if m.session == nil || m.session.ID != msg.sessionID {
			return m, nil
		}
		m.playback = m.service.PlaybackStatus()
		return m, playbackTickCmd(msg.sessionID)
	case tuiactions.ToggleBookmarkSuccessMsg:
		m.applyBookmark(msg.Key, msg.IsBookmarked)
		return m.setStatus(msg.Status, 3*time.Second)
	case tuiactions.ToggleBookmarkErrorMsg:
		m.applyBookmark(msg.Key, msg.IsBookmarked)
		m.warning = msg.Err.Error()
		return m, nil
	case tuiactions.VoicesLoadSuccessMsg:
		m.voices = msg.Voices
		if m.cyclePending {
			m.cyclePending = false
			return m.cycleVoice()
		}
		return m, nil
	case tuiactions.VoicesLoadErrorMsg:
		if m.cyclePending {
			m.cyclePending = false
			m.warning = msg.Err.Error()
		}
		return m, nil
	case tuiactions.VoiceSelectedMsg:
		m.voiceID = msg.Voice.ID
		return m.setStatus("Voice: "+msg.Voice.Label(), 3*time.Second)
	case tuiactions.VoiceSelectErrorMsg:
		m.warning = msg.Err.Error()
		return m, nil
	case tuiactions.OpenURLSuccessMsg:
		return m.setStatus(msg.Status, 3*time.Second)
	case tuiactions.OpenURLErrorMsg:
		m.warning = msg.Err.Error()
		return m, nil
	case NoticeMsg:
		if msg.Notice.Level == notify.Error {
			m.warning = msg.Notice.Message
			return m, nil
		}
		return m.setStatus(msg.Notice.Message, 4*time.Second)
	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	}
	if m.showHelp {
		if key == "esc" {
			m.showHelp = false
		}
		return m, nil
	}
	if m.service == nil {
		return m.navigate(key)
	}

	switch key {
	case "s":
		m.speakingKey = ""
		return m, tuiactions.StopCmd(m.service)
	case "b":
		a, ok := m.current()
		if !ok {
			return m, nil
		}
		return m, tuiactions.ToggleBookmarkCmd(m.service, a)
	case "o", "y":
		a, ok := m.current()
		if !ok {
			return m, nil
		}
		url, err := tuiplatform.ValidateArticleURL(a.URL)
		if err != nil {
			m.warning = err.Error()
			return m, nil
		}
		if key == "o" {
			return m, tuiactions.OpenURLCmd(url, m.openURLFn, m.copyURLFn)
		}
		return m, tuiactions.CopyURLCmd(url, m.copyURLFn)
	case "v":
		return m.cycleVoice()
	}

	if m.inDetail {
		switch key {
		case "esc", "backspace":
			m.inDetail = false
			m.detailTop = 0
			return m, nil
		case "l":
			a, ok := m.current()
			if !ok {
				return m, nil
			}
			m.speakingKey = a.Key()
			return m, tuiactions.ListenArticleCmd(m.service, a)
		}
		return m.navigate(key)
	}

	switch key {
	case "enter":
		if _, ok := m.current(); ok {
			m.inDetail = true
			m.detailTop = 0
		}
		return m, nil
	case "l":
		m.speakingKey = ""
		return m, tuiactions.ListenPageCmd(m.service, m.page, m.articles)
	case "L":
		m.speakingKey = ""
		return m, tuiactions.ListenAllCmd(m.service)
	case "n", "N":
		if m.source != sourceNews {
			return m, nil
		}
		delta := 1
		if key == "N" {
			delta = -1
		}
		m.page = tuistate.StepPage(m.page, delta, m.pages)
		m.cursor = 0
		m.loading = true
		return m, tuiactions.LoadPageCmd(m.service, m.page)
	case "B":
		m.cursor = 0
		m.loading = true
		if m.source == sourceBookmarks {
			m.source = sourceNews
			return m, tuiactions.LoadPageCmd(m.service, m.page)
		}
		m.source = sourceBookmarks
		return m, tuiactions.LoadBookmarksCmd(m.service)
	case "r":
		m.loading = true
		if m.source == sourceBookmarks {
			return m, tuiactions.LoadBookmarksCmd(m.service)
		}
		return m, tuiactions.LoadPageCmd(m.service, m.page)
	}
	return m.navigate(key)
}

func (m Model) navigate(key string) (tea.Model, tea.Cmd) {
	if m.inDetail {
		switch key {
		case "j", "down":
			m.detailTop = min(m.detailTop+1, m.detailMaxTop())
		case "k", "up":
			m.detailTop = max(m.detailTop-1, 0)
		case "pgdown", " ":
			m.detailTop = min(m.detailTop+m.bodyHeight(), m.detailMaxTop())
		case "pgup":
			m.detailTop = max(m.detailTop-m.bodyHeight(), 0)
		case "esc", "backspace":
			m.inDetail = false
			m.detailTop = 0
		}
		return m, nil
	}
	switch key {
	case "j", "down":
		m.cursor = tuistate.ClampCursor(m.cursor+1, len(m.articles))
	case "k", "up":
		m.cursor = tuistate.ClampCursor(m.cursor-1, len(m.articles))
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = tuistate.ClampCursor(len(m.articles)-1, len(m.articles))
	case "pgdown":
		m.cursor = tuistate.ClampCursor(m.cursor+tuistate.PageStep(m.height, m.hasMessage()), len(m.articles))
	case "pgup":
		m.cursor = tuistate.ClampCursor(m.cursor-tuistate.PageStep(m.height, m.hasMessage()), len(m.articles))
	case "enter":
		if _, ok := m.current(); ok {
			m.inDetail = true
			m.detailTop = 0
		}
	}
	return m, nil
}

func (m Model) cycleVoice() (tea.Model, tea.Cmd) {
	if len(m.voices) == 0 {
		m.cyclePending = true
		return m, tuiactions.LoadVoicesCmd(m.service)
	}
	next, ok := tuistate.NextVoice(m.voices, m.voiceID)
	if !ok {
		return m, nil
	}
	return m, tuiactions.SelectVoiceCmd(m.service, next)
}

func (m *Model) applyBookmark(key string, on bool) {
	if m.source == sourceBookmarks && !on {
		m.articles = tuistate.WithoutArticle(m.articles, key)
		m.cursor = tuistate.ClampCursor(m.cursor, len(m.articles))
		if len(m.articles) == 0 {
			m.inDetail = false
		}
		return
	}
	m.articles = tuistate.WithBookmark(m.articles, key, on)
}

func (m Model) current() (news.Article, bool) {
	if len(m.articles) == 0 {
		return news.Article{}, false
	}
	return m.articles[tuistate.ClampCursor(m.cursor, len(m.articles))], true
}

func (m Model) setStatus(status string, after time.Duration) (tea.Model, tea.Cmd) {
	m.statusID++
	m.status = status
	return m, clearStatusCmd(m.statusID, after)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	if m.showHelp {
		b.WriteString("Help (? to close)\n\n")
		b.WriteString(strings.Join(tuiview.HelpLines(), "\n"))
		b.WriteString("\n\n")
		b.WriteString(m.messagePanel())
		b.WriteString("\n")
		b.WriteString(m.footer())
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(tuiview.Toolbar(m.inDetail))
	b.WriteString("\n\n")

	if m.inDetail {
		lines := m.detailLines()
		b.WriteString(tuiview.RenderDetailLines(lines, m.detailTop, m.bodyHeight()))
	} else if m.loading && len(m.articles) == 0 {
		b.WriteString("Loading news...\n")
	} else if len(m.articles) == 0 {
		if m.source == sourceBookmarks {
			b.WriteString("No bookmarks yet.\n")
		} else {
			b.WriteString("No news available.\n")
		}
	} else {
		start, end := tuistate.CenteredWindow(len(m.articles), m.cursor, m.bodyHeight())
		b.WriteString(tuiview.RenderListBody(tuiview.ListRenderInput{
			Articles:    m.articles,
			Start:       start,
			End:         end,
			Cursor:      m.cursor,
			Width:       m.contentWidth(),
			SpeakingKey: m.speakingKey,
		}, m.theme))
	}
	b.WriteString("\n")
	b.WriteString(m.messagePanel())
	b.WriteString("\n")
	b.WriteString(m.footer())
	b.WriteString("\n")
	return b.String()
}

func (m Model) header() string {
	mode := m.source
	if m.inDetail {
		mode = "article"
	}
	return m.theme.Title.Render("Readaloud") + " " + m.theme.ModePill.Render(mode)
}

func (m Model) messagePanel() string {
	return tuiview.Message(m.loading, m.warning != "", m.status, m.warning, m.playback, m.theme)
}

func (m Model) footer() string {
	in := tuiview.FooterInput{
		Source: m.source,
		Shown:  len(m.articles),
		Voice:  m.voiceLabel(),
	}
	if m.source == sourceNews {
		in.Page = m.page
		in.Pages = m.pages
	}
	return tuiview.Footer(in, m.theme)
}

func (m Model) voiceLabel() string {
	for _, v := range m.voices {
		if v.ID == m.voiceID {
			return v.Label()
		}
	}
	return m.voiceID
}

func (m Model) detailLines() []string {
	a, ok := m.current()
	if !ok {
		return nil
	}
	return tuiview.DetailLines(a, m.contentWidth(), detailMargin, nil)
}

func (m Model) detailMaxTop() int {
	return tuiview.DetailMaxTop(len(m.detailLines()), m.bodyHeight())
}

func (m Model) hasMessage() bool {
	return m.status != "" || m.warning != ""
}

func (m Model) bodyHeight() int {
	if m.height <= 0 {
		return 0
	}
	return tuistate.PageStep(m.height, m.hasMessage())
}

func (m Model) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

func clearStatusCmd(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

func playbackTickCmd(sessionID string) tea.Cmd {
	return tea.Tick(playbackPoll, func(time.Time) tea.Msg {
		return playbackTickMsg{sessionID: sessionID}
	})
}
