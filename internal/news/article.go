package news

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/glabrego/readaloud-cli/internal/apperr"
)

// ID is an opaque backend identifier that may arrive as a JSON number or string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Article is the subset of summary-news fields the reader needs.
type Article struct {
	ID        ID     `json:"id"`
	CacheID   ID     `json:"summaryNewsCacheId"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Content   string `json:"content"`
	URL       string `json:"url"`
	SectionID ID     `json:"sectionId"`

	IsBookmarked bool `json:"-"`
}

// BookmarkRef is how the backend identifies a bookmark target.
type BookmarkRef struct {
	CacheID ID
	URL     string
}

// synthesizedKeySpace namespaces keys derived from article text.
var synthesizedKeySpace = uuid.MustParse("6f1c3c2e-8d4b-4c55-9a43-7d1c1b9b7e10")

// Key is the stable local identity: the URL when present, then the backend
// id (summaryNewsCacheId before id), then a name-based UUID over the text.
func (a Article) Key() string {
	if u := strings.TrimSpace(a.URL); u != "" {
		return u
	}
	if id := a.backendID(); id != "" {
		return "id:" + string(id)
	}
	seed := strings.TrimSpace(a.Title) + "\x00" + strings.TrimSpace(a.Summary)
	return "syn:" + uuid.NewSHA1(synthesizedKeySpace, []byte(seed)).String()
}

// Ref returns the server-side reference for bookmark calls.
// Articles with neither an id nor a URL cannot be bookmarked.
func (a Article) Ref() (BookmarkRef, error) {
	ref := BookmarkRef{CacheID: a.backendID(), URL: strings.TrimSpace(a.URL)}
	if ref.CacheID == "" && ref.URL == "" {
		return BookmarkRef{}, apperr.ErrMissingIdentity
	}
	return ref, nil
}

// Body returns the text that represents the article when read aloud.
func (a Article) Body() string {
	if s := strings.TrimSpace(a.Summary); s != "" {
		return s
	}
	return strings.TrimSpace(a.Content)
}

func (a Article) backendID() ID {
	if a.CacheID != "" {
		return a.CacheID
	}
	return a.ID
}
