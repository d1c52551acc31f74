// Package bookmark keeps the local bookmark set consistent with the backend.
// Local state only changes after the server answered.
package bookmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/glabrego/readaloud-cli/internal/apperr"
	"github.com/glabrego/readaloud-cli/internal/news"
)

type Remote interface {
	ListBookmarks(ctx context.Context) ([]news.Article, error)
	AddBookmark(ctx context.Context, ref news.BookmarkRef) error
	RemoveBookmark(ctx context.Context, ref news.BookmarkRef) error
}

// Mirror persists the per-user set between runs.
type Mirror interface {
	ListBookmarks(ctx context.Context, username string) ([]news.Article, error)
	ReplaceBookmarks(ctx context.Context, username string, articles []news.Article) error
	SaveBookmark(ctx context.Context, username string, article news.Article) error
	DeleteBookmark(ctx context.Context, username, key string) error
}

// SessionExpirer is told when the backend rejected the token.
type SessionExpirer interface {
	Expire()
}

type UserSource interface {
	Username() string
}

type Reconciler struct {
	remote  Remote
	mirror  Mirror
	users   UserSource
	expirer SessionExpirer
	logger  *slog.Logger

	mu     sync.Mutex
	user   string
	loaded bool
	// saved maps canonical key to article; aliases maps every identity of a
	// saved article back to its canonical key.
	saved   map[string]news.Article
	aliases map[string]string
}

func New(remote Remote, mirror Mirror, users UserSource, expirer SessionExpirer, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{
		remote:  remote,
		mirror:  mirror,
		users:   users,
		expirer: expirer,
		logger:  logger,
		saved:   map[string]news.Article{},
		aliases: map[string]string{},
	}
}

// IsBookmarked reports the local view for a.
func (r *Reconciler) IsBookmarked(ctx context.Context, a news.Article) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoadedLocked(ctx)
	_, ok := r.lookupLocked(a)
	return ok
}

// Annotate sets IsBookmarked on each article from the local set.
func (r *Reconciler) Annotate(ctx context.Context, articles []news.Article) []news.Article {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoadedLocked(ctx)
	for i := range articles {
		_, articles[i].IsBookmarked = r.lookupLocked(articles[i])
	}
	return articles
}

// Toggle flips the bookmark on a after the backend confirms, and returns the
// resulting local state. DELETE goes by URL, POST by id.
func (r *Reconciler) Toggle(ctx context.Context, a news.Article) (bool, error) {
	ref, err := a.Ref()
	if err != nil {
		return r.IsBookmarked(ctx, a), err
	}

	r.mu.Lock()
	r.ensureLoadedLocked(ctx)
	_, current := r.lookupLocked(a)
	r.mu.Unlock()

	target := !current
	if current {
		err = r.remote.RemoveBookmark(ctx, ref)
	} else {
		err = r.remote.AddBookmark(ctx, ref)
	}

	switch code := apperr.StatusCode(err); {
	case err == nil:
	case code == http.StatusBadRequest || code == http.StatusNotFound:
		// Server already had the target state.
		r.logger.Info("bookmark already in target state", "key", a.Key(), "bookmarked", target, "status", code)
	case errors.Is(err, apperr.ErrAuthExpired):
		if r.expirer != nil {
			r.expirer.Expire()
		}
		return current, err
	default:
		r.logger.Warn("bookmark toggle failed, resyncing", "key", a.Key(), "error", err)
		if serr := r.Sync(ctx); serr != nil {
			r.logger.Warn("bookmark resync failed", "error", serr)
		}
		return r.IsBookmarked(ctx, a), err
	}

	r.apply(ctx, a, target)
	return target, nil
}

// Sync replaces the local set with the server's list.
func (r *Reconciler) Sync(ctx context.Context) error {
	articles, err := r.remote.ListBookmarks(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrAuthExpired) && r.expirer != nil {
			r.expirer.Expire()
		}
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.switchUserLocked()
	r.saved = map[string]news.Article{}
	r.aliases = map[string]string{}
	for _, a := range articles {
		a.IsBookmarked = true
		r.addLocked(a)
	}
	r.loaded = true
	if err := r.mirror.ReplaceBookmarks(ctx, r.user, articles); err != nil {
		return fmt.Errorf("mirror bookmarks: %w", err)
	}
	return nil
}

// List returns the user's bookmarks, from the server when reachable and
// from the local mirror otherwise.
func (r *Reconciler) List(ctx context.Context) ([]news.Article, error) {
	if err := r.Sync(ctx); err != nil {
		if errors.Is(err, apperr.ErrAuthExpired) {
			return nil, err
		}
		r.logger.Warn("list bookmarks from local mirror", "error", err)
	}
	r.mu.Lock()
	user := r.user
	r.mu.Unlock()
	articles, err := r.mirror.ListBookmarks(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list local bookmarks: %w", err)
	}
	return articles, nil
}

func (r *Reconciler) apply(ctx context.Context, a news.Article, bookmarked bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bookmarked {
		a.IsBookmarked = true
		r.addLocked(a)
		if err := r.mirror.SaveBookmark(ctx, r.user, a); err != nil {
			r.logger.Warn("mirror bookmark", "key", a.Key(), "error", err)
		}
		return
	}
	key, ok := r.lookupLocked(a)
	if !ok {
		key = a.Key()
	}
	r.removeLocked(key)
	if err := r.mirror.DeleteBookmark(ctx, r.user, key); err != nil {
		r.logger.Warn("mirror bookmark removal", "key", key, "error", err)
	}
}

func (r *Reconciler) ensureLoadedLocked(ctx context.Context) {
	r.switchUserLocked()
	if r.loaded {
		return
	}
	r.loaded = true
	articles, err := r.mirror.ListBookmarks(ctx, r.user)
	if err != nil {
		r.logger.Warn("load local bookmarks", "error", err)
		return
	}
	for _, a := range articles {
		r.addLocked(a)
	}
}

func (r *Reconciler) switchUserLocked() {
	user := ""
	if r.users != nil {
		user = r.users.Username()
	}
	if user == r.user {
		return
	}
	r.user = user
	r.loaded = false
	r.saved = map[string]news.Article{}
	r.aliases = map[string]string{}
}

func (r *Reconciler) lookupLocked(a news.Article) (string, bool) {
	for _, alias := range identities(a) {
		if key, ok := r.aliases[alias]; ok {
			return key, true
		}
	}
	return "", false
}

func (r *Reconciler) addLocked(a news.Article) {
	key := a.Key()
	r.saved[key] = a
	for _, alias := range identities(a) {
		r.aliases[alias] = key
	}
}

func (r *Reconciler) removeLocked(key string) {
	a, ok := r.saved[key]
	if !ok {
		return
	}
	delete(r.saved, key)
	for _, alias := range identities(a) {
		if r.aliases[alias] == key {
			delete(r.aliases, alias)
		}
	}
}

// identities lists the URL key first, then the id-based legacy aliases.
func identities(a news.Article) []string {
	out := []string{a.Key()}
	if a.CacheID != "" {
		out = append(out, "id:"+string(a.CacheID))
	}
	if a.ID != "" {
		out = append(out, "id:"+string(a.ID))
	}
	return out
}
