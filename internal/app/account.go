package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/glabrego/readaloud-cli/internal/apperr"
	"github.com/glabrego/readaloud-cli/internal/news"
	"github.com/glabrego/readaloud-cli/internal/session"
)

const passwordSpecials = "@$!%*#?&"

// Signup registers a new account. The caller logs in afterwards.
func (s *Service) Signup(ctx context.Context, username, password, nickname string, interests []string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return s.fail(apperr.Invalid("username is required"))
	}
	if err := ValidatePassword(password); err != nil {
		return s.fail(err)
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = username
	}
	categories, err := ParseInterests(interests)
	if err != nil {
		return s.fail(err)
	}

	avail, err := s.news.CheckUsername(ctx, username)
	if err != nil {
		return s.fail(err)
	}
	if !avail.Available {
		msg := strings.TrimSpace(avail.Message)
		if msg == "" {
			msg = fmt.Sprintf("username %q is already taken", username)
		}
		return s.fail(apperr.Invalid("%s", msg))
	}

	ids := make([]int, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID)
	}
	if err := s.news.Signup(ctx, news.SignupRequest{
		Username:    username,
		Password:    password,
		Nickname:    nickname,
		InterestIDs: ids,
	}); err != nil {
		return s.fail(err)
	}
	s.logger.Info("account created", "username", username, "interests", len(ids))
	return nil
}

// ChangePassword updates the signed-in user's password on the backend.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	if err := s.requireLogin(); err != nil {
		return s.fail(err)
	}
	if current == "" {
		return s.fail(apperr.Invalid("current password is required"))
	}
	if err := ValidatePassword(next); err != nil {
		return s.fail(err)
	}
	if err := s.news.ChangePassword(ctx, current, next); err != nil {
		if errors.Is(err, apperr.ErrAuthExpired) {
			s.session.Expire()
		}
		return s.fail(err)
	}
	s.logger.Info("password changed", "username", s.session.Snapshot().Username)
	return nil
}

// UpdateProfile stores a new nickname and interest list locally. At least
// one interest is required and an unchanged profile is rejected.
func (s *Service) UpdateProfile(ctx context.Context, nickname string, interests []string) (session.State, error) {
	if err := s.requireLogin(); err != nil {
		return session.State{}, s.fail(err)
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return session.State{}, s.fail(apperr.Invalid("nickname is required"))
	}
	categories, err := ParseInterests(interests)
	if err != nil {
		return session.State{}, s.fail(err)
	}
	slugs := make([]string, 0, len(categories))
	for _, c := range categories {
		slugs = append(slugs, c.Slug)
	}

	cur := s.session.Snapshot()
	if nickname == cur.Nickname && sameSet(slugs, cur.Interests) {
		return session.State{}, s.fail(apperr.Invalid("nothing changed"))
	}
	st, err := s.session.Update(ctx, func(st *session.State) {
		st.Nickname = nickname
		st.Interests = slugs
	})
	if err != nil {
		return session.State{}, s.fail(err)
	}
	s.logger.Info("profile updated", "username", st.Username, "interests", len(slugs))
	return st, nil
}

func (s *Service) requireLogin() error {
	if !s.session.Snapshot().LoggedIn() {
		return fmt.Errorf("%w: not logged in", apperr.ErrAuthExpired)
	}
	return s.checkToken()
}

// ParseInterests resolves slugs or section ids, comma separated or not,
// keeping first-seen order. At least one interest is required.
func ParseInterests(values []string) ([]news.Category, error) {
	var out []news.Category
	seen := map[int]bool{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			c, ok := news.LookupCategory(part)
			if !ok {
				return nil, apperr.Invalid("unknown interest %q", strings.TrimSpace(part))
			}
			if !seen[c.ID] {
				seen[c.ID] = true
				out = append(out, c)
			}
		}
	}
	if len(out) == 0 {
		return nil, apperr.Invalid("pick at least one interest")
	}
	return out, nil
}

// ValidatePassword requires 8+ characters drawn from letters, digits and
// @$!%*#?&, with at least one of each class.
func ValidatePassword(pw string) error {
	var letter, digit, special bool
	for _, r := range pw {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
			letter = true
		case '0' <= r && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return apperr.Invalid("password may only contain letters, digits and %s", passwordSpecials)
		}
	}
	if len(pw) < 8 || !letter || !digit || !special {
		return apperr.Invalid("password needs 8+ characters with a letter, a digit and one of %s", passwordSpecials)
	}
	return nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !slices.Contains(b, v) {
			return false
		}
	}
	return true
}
