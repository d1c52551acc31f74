package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/glabrego/readaloud-cli/internal/apperr"
)

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	AccessToken() string
}

// StaticToken is a TokenSource for a fixed token.
type StaticToken string

func (t StaticToken) AccessToken() string { return string(t) }

// RankedArticle is one entry of the daily ranking.
type RankedArticle struct {
	Rank    int    `json:"rank"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
	Press   string `json:"press"`
}

type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

func NewClient(baseURL string, tokens TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    httpClient,
	}
}

// ListSummaryNews fetches one page of the summarized feed. The backend
// answers with either a bare array or a Spring-style {content: [...]} page.
func (c *Client) ListSummaryNews(ctx context.Context, page int) ([]Article, error) {
	if page < 1 {
		page = 1
	}
	q := make(url.Values)
	q.Set("page", strconv.Itoa(page))

	var articles []Article
	if err := c.getList(ctx, "list summary news", "/api/v1/summary-news?"+q.Encode(), &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func (c *Client) ListRanking(ctx context.Context) ([]RankedArticle, error) {
	var ranked []RankedArticle
	if err := c.getList(ctx, "list ranking", "/api/v1/news/ranking", &ranked); err != nil {
		return nil, err
	}
	return ranked, nil
}

func (c *Client) ListBookmarks(ctx context.Context) ([]Article, error) {
	var articles []Article
	if err := c.getList(ctx, "list bookmarks", "/api/bookmark", &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// AddBookmark creates a bookmark, preferring the backend id over the URL.
func (c *Client) AddBookmark(ctx context.Context, ref BookmarkRef) error {
	payload := map[string]any{}
	if ref.CacheID != "" {
		payload["summaryNewsCacheId"] = ref.CacheID
	} else {
		payload["url"] = ref.URL
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode bookmark payload: %w", err)
	}
	return c.sendNoContent(ctx, "add bookmark", http.MethodPost, "/api/bookmark", body)
}

// RemoveBookmark deletes a bookmark, preferring the URL over the backend id.
func (c *Client) RemoveBookmark(ctx context.Context, ref BookmarkRef) error {
	q := make(url.Values)
	if ref.URL != "" {
		q.Set("url", ref.URL)
	} else {
		q.Set("summaryNewsCacheId", string(ref.CacheID))
	}
	return c.sendNoContent(ctx, "remove bookmark", http.MethodDelete, "/api/bookmark?"+q.Encode(), nil)
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
	Nickname    string `json:"nickname"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (string, string, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", "", fmt.Errorf("encode login payload: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/login", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", apperr.Transport(apperr.OpLogin, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", statusError(apperr.OpLogin, resp)
	}
	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("decode login response: %w", err)
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return "", "", fmt.Errorf("login response did not include an access token")
	}
	return out.AccessToken, out.Nickname, nil
}

func (c *Client) getList(ctx context.Context, op, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Transport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(op, resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Transport(op, err)
	}
	if err := decodeList(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) sendNoContent(ctx context.Context, op, method, path string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Transport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return statusError(op, resp)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token := strings.TrimSpace(c.tokens.AccessToken()); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// decodeList accepts either `[...]` or `{"content": [...]}`.
func decodeList(raw []byte, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}
	var page struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return err
	}
	if len(page.Content) == 0 || bytes.Equal(page.Content, []byte("null")) {
		return nil
	}
	return json.Unmarshal(page.Content, out)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	se := &apperr.StatusError{Op: op, StatusCode: resp.StatusCode}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		se.Message = firstNonEmpty(parsed.Error, parsed.Message, parsed.Reason)
		se.Detail = parsed.Details
	}
	if se.Message == "" && se.Detail == "" {
		se.Message = strings.TrimSpace(string(body))
	}
	return se
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
