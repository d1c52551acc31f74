// Package speech talks to the speech proxy: it synthesizes text into
// playable clips and lists the available voices.
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/glabrego/readaloud-cli/internal/apperr"
)

const (
	DefaultModel  = "simba-multilingual"
	DefaultFormat = "wav"
)

// Voice is one entry of the voice catalogue.
type Voice struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Locale      string `json:"locale"`
	Gender      string `json:"gender,omitempty"`
}

// Label is the name shown in lists.
func (v Voice) Label() string {
	name := strings.TrimSpace(v.DisplayName)
	if name == "" {
		name = v.ID
	}
	if v.Locale != "" {
		return name + " (" + v.Locale + ")"
	}
	return name
}

type Option func(*Client)

// WithModel overrides the synthesis model identifier.
func WithModel(model string) Option {
	return func(c *Client) {
		if m := strings.TrimSpace(model); m != "" {
			c.model = m
		}
	}
}

// WithDefaultFormat sets the format assumed when the proxy omits one.
func WithDefaultFormat(format string) Option {
	return func(c *Client) {
		if f := strings.TrimSpace(format); f != "" {
			c.defaultFormat = f
		}
	}
}

// WithSpoolDir sets where clips are written. Empty means os.TempDir.
func WithSpoolDir(dir string) Option {
	return func(c *Client) { c.spoolDir = dir }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

type Client struct {
	baseURL       string
	model         string
	defaultFormat string
	spoolDir      string
	http          *http.Client
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		model:         DefaultModel,
		defaultFormat: DefaultFormat,
		http:          &http.Client{Timeout: 90 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type speechRequest struct {
	Input   string `json:"input"`
	VoiceID string `json:"voice_id"`
	Model   string `json:"model"`
}

type speechResponse struct {
	AudioData   string `json:"audio_data"`
	AudioFormat string `json:"audio_format"`
}

type proxyError struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

// Synthesize asks the proxy to speak text with voiceID and returns the
// decoded audio as a Clip. There are no retries: any failure is terminal
// for this attempt.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) (*Clip, error) {
	if strings.TrimSpace(voiceID) == "" {
		return nil, apperr.ErrNoVoice
	}
	body, err := json.Marshal(speechRequest{Input: text, VoiceID: voiceID, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("encode speech request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/get-speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Transport(apperr.OpSynthesize, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(apperr.OpSynthesize, resp)
	}

	var out speechResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode speech response: %w", err)
	}
	if out.AudioData == "" {
		return nil, &apperr.StatusError{Op: apperr.OpSynthesize, StatusCode: resp.StatusCode, Message: "response had no audio data"}
	}
	data, err := base64.StdEncoding.DecodeString(out.AudioData)
	if err != nil {
		return nil, fmt.Errorf("decode audio payload: %w", err)
	}
	format := strings.TrimSpace(out.AudioFormat)
	if format == "" {
		format = c.defaultFormat
	}
	return spool(c.spoolDir, data, format)
}

// ListVoices returns the voice catalogue. The proxy may answer with
// {"voices": [...]} or a bare array.
func (c *Client) ListVoices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/get-voices", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Transport("list voices", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list voices", resp)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Transport("list voices", err)
	}
	return decodeVoices(raw)
}

func decodeVoices(raw []byte) ([]Voice, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var voices []Voice
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &voices); err != nil {
			return nil, fmt.Errorf("decode voices: %w", err)
		}
		return voices, nil
	}
	var wrapped struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode voices: %w", err)
	}
	return wrapped.Voices, nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	se := &apperr.StatusError{Op: op, StatusCode: resp.StatusCode}

	var parsed proxyError
	if err := json.Unmarshal(body, &parsed); err == nil {
		se.Message = strings.TrimSpace(parsed.Error)
		se.Detail = detailText(parsed.Details)
	}
	if se.Message == "" && se.Detail == "" {
		se.Message = strings.TrimSpace(string(body))
	}
	return se
}

// detailText flattens details, which upstream sends as a string or an object.
func detailText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}
