// Package session is the single read/write boundary for the signed-in
// user's persisted state: token, profile and voice preference.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	keyAccessToken = "access_token"
	keyUsername    = "username"
	keyNickname    = "nickname"
	keyInterests   = "interests"
	keyVoiceID     = "voice_id"
)

// State is everything remembered between runs.
type State struct {
	AccessToken string
	Username    string
	Nickname    string
	Interests   []string
	VoiceID     string
}

func (s State) LoggedIn() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

// TokenExpired reads the exp claim without verifying the signature; the
// backend stays the authority. Tokens without exp never expire here.
func (s State) TokenExpired(now time.Time) bool {
	if !s.LoggedIn() {
		return false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

// Backend is the key/value table behind the store.
type Backend interface {
	GetState(ctx context.Context, key string) (string, bool, error)
	SetState(ctx context.Context, values map[string]string) error
}

type Store struct {
	backend Backend
	logger  *slog.Logger

	mu      sync.RWMutex
	state   State
	expired bool
	onExp   func()
}

func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{backend: backend, logger: logger}
}

// OnExpire registers fn to run after Expire clears the session.
func (s *Store) OnExpire(fn func()) {
	s.mu.Lock()
	s.onExp = fn
	s.mu.Unlock()
}

// Load reads the persisted state into memory.
func (s *Store) Load(ctx context.Context) (State, error) {
	var st State
	var err error
	read := func(key string) string {
		if err != nil {
			return ""
		}
		var v string
		v, _, err = s.backend.GetState(ctx, key)
		return v
	}
	st.AccessToken = read(keyAccessToken)
	st.Username = read(keyUsername)
	st.Nickname = read(keyNickname)
	st.VoiceID = read(keyVoiceID)
	rawInterests := read(keyInterests)
	if err != nil {
		return State{}, fmt.Errorf("load session: %w", err)
	}
	if rawInterests != "" {
		if jerr := json.Unmarshal([]byte(rawInterests), &st.Interests); jerr != nil {
			s.logger.Warn("ignore malformed interests", "error", jerr)
			st.Interests = nil
		}
	}

	s.mu.Lock()
	s.state = st
	s.expired = false
	s.mu.Unlock()
	return st, nil
}

// Save persists st as a whole and makes it the in-memory state.
func (s *Store) Save(ctx context.Context, st State) error {
	interests := ""
	if len(st.Interests) > 0 {
		raw, err := json.Marshal(st.Interests)
		if err != nil {
			return fmt.Errorf("encode interests: %w", err)
		}
		interests = string(raw)
	}
	if err := s.backend.SetState(ctx, map[string]string{
		keyAccessToken: st.AccessToken,
		keyUsername:    st.Username,
		keyNickname:    st.Nickname,
		keyInterests:   interests,
		keyVoiceID:     st.VoiceID,
	}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.mu.Lock()
	s.state = st
	if st.LoggedIn() {
		s.expired = false
	}
	s.mu.Unlock()
	return nil
}

// Update applies fn to a copy of the current state and saves the result.
func (s *Store) Update(ctx context.Context, fn func(*State)) (State, error) {
	st := s.Snapshot()
	st.Interests = append([]string(nil), st.Interests...)
	fn(&st)
	if err := s.Save(ctx, st); err != nil {
		return State{}, err
	}
	return st, nil
}

// Logout forgets the account but keeps the voice preference.
func (s *Store) Logout(ctx context.Context) error {
	_, err := s.Update(ctx, func(st *State) {
		st.AccessToken = ""
		st.Username = ""
		st.Nickname = ""
		st.Interests = nil
	})
	return err
}

// Expire is called when the backend rejected the token.
func (s *Store) Expire() {
	if err := s.Logout(context.Background()); err != nil {
		s.logger.Warn("clear expired session", "error", err)
	}
	s.mu.Lock()
	s.expired = true
	fn := s.onExp
	s.mu.Unlock()
	s.logger.Info("session expired")
	if fn != nil {
		fn()
	}
}

// Expired reports whether the last session ended because the token was rejected.
func (s *Store) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expired
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) AccessToken() string {
	return s.Snapshot().AccessToken
}

func (s *Store) Username() string {
	return s.Snapshot().Username
}

func (s *Store) VoiceID() string {
	return s.Snapshot().VoiceID
}
