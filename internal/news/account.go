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

	"github.com/glabrego/readaloud-cli/internal/apperr"
)

// Category is one interest section a user can follow.
type Category struct {
	ID   int
	Slug string
	Name string
}

// Categories are the backend's interest sections.
var Categories = []Category{
	{ID: 100, Slug: "politics", Name: "Politics"},
	{ID: 101, Slug: "economy", Name: "Economy"},
	{ID: 102, Slug: "society", Name: "Society"},
	{ID: 103, Slug: "lifestyle", Name: "Life/Culture"},
	{ID: 104, Slug: "world", Name: "World"},
	{ID: 105, Slug: "science", Name: "IT/Science"},
}

// LookupCategory accepts a slug or a numeric section id.
func LookupCategory(v string) (Category, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	id, _ := strconv.Atoi(v)
	for _, c := range Categories {
		if c.Slug == v || (id != 0 && c.ID == id) {
			return c, true
		}
	}
	return Category{}, false
}

type SignupRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Nickname    string `json:"nickname"`
	InterestIDs []int  `json:"interestIds"`
}

// UsernameAvailability is the answer of the username check.
type UsernameAvailability struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// Signup creates an account. A 2xx answer may still carry
// {"success": false, "reason": ...}; plain-text 2xx bodies count as success.
func (c *Client) Signup(ctx context.Context, in SignupRequest) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode signup payload: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/signup", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Transport(apperr.OpSignup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(apperr.OpSignup, resp)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return apperr.Transport(apperr.OpSignup, err)
	}
	var result struct {
		Success *bool  `json:"success"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &result) == nil && result.Success != nil && !*result.Success {
		return &apperr.StatusError{
			Op:         apperr.OpSignup,
			StatusCode: resp.StatusCode,
			Message:    firstNonEmpty(result.Reason, result.Message, "rejected"),
		}
	}
	return nil
}

// CheckUsername asks whether username is still free.
func (c *Client) CheckUsername(ctx context.Context, username string) (UsernameAvailability, error) {
	q := url.Values{"username": {username}}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/auth/check-username?"+q.Encode(), nil)
	if err != nil {
		return UsernameAvailability{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return UsernameAvailability{}, apperr.Transport("check username", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return UsernameAvailability{}, statusError("check username", resp)
	}
	var out UsernameAvailability
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return UsernameAvailability{}, fmt.Errorf("decode check username response: %w", err)
	}
	return out, nil
}

// ChangePassword replaces the signed-in user's password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body, err := json.Marshal(map[string]string{"currentPassword": current, "newPassword": next})
	if err != nil {
		return fmt.Errorf("encode change password payload: %w", err)
	}
	return c.sendNoContent(ctx, apperr.OpChangePassword, http.MethodPost, "/api/change-password", body)
}
