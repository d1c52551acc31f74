package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/glabrego/readaloud-cli/internal/news"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(path string) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS articles (
  page INTEGER NOT NULL,
  position INTEGER NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  fetched_at TEXT NOT NULL,
  PRIMARY KEY (page, position)
);
CREATE TABLE IF NOT EXISTS bookmarks (
  username TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  saved_at TEXT NOT NULL,
  PRIMARY KEY (username, key)
);
CREATE TABLE IF NOT EXISTS app_state (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// CheckWritable fails early when the database file is read-only.
func (r *Repository) CheckWritable(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `INSERT INTO app_state (key, value) VALUES ('_probe', '') ON CONFLICT(key) DO UPDATE SET value=excluded.value`); err != nil {
		return fmt.Errorf("database is not writable: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM app_state WHERE key = '_probe'`); err != nil {
		return fmt.Errorf("database is not writable: %w", err)
	}
	return nil
}

// SavePage replaces the cached articles for page.
func (r *Repository) SavePage(ctx context.Context, page int, articles []news.Article) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE page = ?`, page); err != nil {
		return fmt.Errorf("clear page %d: %w", page, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO articles (page, position, key, data, fetched_at)
VALUES (?, ?, ?, ?, ?)
`)
	if err != nil {
		return fmt.Errorf("prepare save statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i, article := range articles {
		data, err := json.Marshal(article)
		if err != nil {
			return fmt.Errorf("encode article %s: %w", article.Key(), err)
		}
		if _, err := stmt.ExecContext(ctx, page, i, article.Key(), string(data), now); err != nil {
			return fmt.Errorf("save article %s: %w", article.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListPage returns the cached articles for page in feed order.
func (r *Repository) ListPage(ctx context.Context, page int) ([]news.Article, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT data
FROM articles
WHERE page = ?
ORDER BY position ASC
`, page)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	return scanArticles(rows)
}

// ReplaceBookmarks makes the stored set for username exactly articles.
func (r *Repository) ReplaceBookmarks(ctx context.Context, username string, articles []news.Article) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookmarks WHERE username = ?`, username); err != nil {
		return fmt.Errorf("clear bookmarks: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, upsertBookmark)
	if err != nil {
		return fmt.Errorf("prepare bookmark statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, article := range articles {
		if err := execBookmark(ctx, stmt, username, article, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const upsertBookmark = `
INSERT INTO bookmarks (username, key, data, saved_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(username, key) DO UPDATE SET
  data=excluded.data,
  saved_at=excluded.saved_at
`

func (r *Repository) SaveBookmark(ctx context.Context, username string, article news.Article) error {
	stmt, err := r.db.PrepareContext(ctx, upsertBookmark)
	if err != nil {
		return fmt.Errorf("prepare bookmark statement: %w", err)
	}
	defer stmt.Close()
	return execBookmark(ctx, stmt, username, article, time.Now().UTC().Format(time.RFC3339Nano))
}

func execBookmark(ctx context.Context, stmt *sql.Stmt, username string, article news.Article, now string) error {
	data, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("encode bookmark %s: %w", article.Key(), err)
	}
	if _, err := stmt.ExecContext(ctx, username, article.Key(), string(data), now); err != nil {
		return fmt.Errorf("save bookmark %s: %w", article.Key(), err)
	}
	return nil
}

func (r *Repository) DeleteBookmark(ctx context.Context, username, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE username = ? AND key = ?`, username, key); err != nil {
		return fmt.Errorf("delete bookmark %s: %w", key, err)
	}
	return nil
}

// ListBookmarks returns the saved bookmarks for username, newest first.
func (r *Repository) ListBookmarks(ctx context.Context, username string) ([]news.Article, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT data
FROM bookmarks
WHERE username = ?
ORDER BY saved_at DESC, key ASC
`, username)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	articles, err := scanArticles(rows)
	if err != nil {
		return nil, err
	}
	for i := range articles {
		articles[i].IsBookmarked = true
	}
	return articles, nil
}

// GetState returns the value for key and whether it was present.
func (r *Repository) GetState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read state %s: %w", key, err)
	}
	return value, true, nil
}

// SetState writes every pair in one transaction; an empty value deletes the key.
func (r *Repository) SetState(ctx context.Context, values map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for key, value := range values {
		if value == "" {
			if _, err := tx.ExecContext(ctx, `DELETE FROM app_state WHERE key = ?`, key); err != nil {
				return fmt.Errorf("clear state %s: %w", key, err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO app_state (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value
`, key, value); err != nil {
			return fmt.Errorf("write state %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func scanArticles(rows *sql.Rows) ([]news.Article, error) {
	defer rows.Close()

	articles := make([]news.Article, 0, 16)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		var article news.Article
		if err := json.Unmarshal([]byte(data), &article); err != nil {
			return nil, fmt.Errorf("decode article: %w", err)
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return articles, nil
}
