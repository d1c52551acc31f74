// Package speechproxy serves the two endpoints the reader uses for speech,
// forwarding them to the provider with the API key kept server-side.
package speechproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"github.com/glabrego/readaloud-cli/internal/config"
)

const voicesCacheKey = "voices"

type Server struct {
	cfg    config.Proxy
	http   *http.Client
	voices *cache.Cache
	logger *slog.Logger
}

type Option func(*Server)

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Server) {
		if hc != nil {
			s.http = hc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(cfg config.Proxy, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		http:   &http.Client{Timeout: 60 * time.Second},
		logger: slog.Default(),
	}
	if cfg.VoicesCacheSeconds > 0 {
		ttl := time.Duration(cfg.VoicesCacheSeconds) * time.Second
		s.voices = cache.New(ttl, 2*ttl)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())
	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	r.Any("/api/get-speech", s.GetSpeech)
	r.GET("/api/get-voices", s.GetVoices)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Bind,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("speech proxy listening", "addr", s.cfg.Bind, "upstream", s.cfg.UpstreamURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve speech proxy: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown speech proxy: %w", err)
		}
		return nil
	}
}

type speechRequest struct {
	Input   string `json:"input"`
	VoiceID string `json:"voice_id"`
	Model   string `json:"model"`
}

func (s *Server) GetSpeech(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method Not Allowed"})
		return
	}

	var req speechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("bad speech request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object", "details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Input) == "" || strings.TrimSpace(req.VoiceID) == "" || strings.TrimSpace(req.Model) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "input, voice_id and model are required"})
		return
	}
	if !s.hasKey(c) {
		return
	}

	body, err := json.Marshal(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not encode speech request"})
		return
	}
	status, payload, err := s.forward(c.Request.Context(), http.MethodPost, "/v1/audio/speech", body)
	if err != nil {
		s.logger.Error("speech upstream request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "speech generation failed on the server"})
		return
	}
	if status < 200 || status >= 300 {
		s.logger.Warn("speech upstream error", "status", status, "body", string(payload))
		c.JSON(status, gin.H{"error": "speech API returned an error", "details": string(payload)})
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

func (s *Server) GetVoices(c *gin.Context) {
	if !s.hasKey(c) {
		return
	}
	if s.voices != nil {
		if cached, ok := s.voices.Get(voicesCacheKey); ok {
			c.Data(http.StatusOK, "application/json", cached.([]byte))
			return
		}
	}

	status, payload, err := s.forward(c.Request.Context(), http.MethodGet, "/v1/voices", nil)
	if err != nil {
		s.logger.Error("voices upstream request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing voices failed on the server"})
		return
	}
	if status != http.StatusOK {
		s.logger.Warn("voices upstream error", "status", status, "body", string(payload))
		c.JSON(status, gin.H{"error": "speech API returned an error", "details": string(payload)})
		return
	}
	if s.voices != nil {
		s.voices.SetDefault(voicesCacheKey, payload)
	}
	c.Data(http.StatusOK, "application/json", payload)
}

func (s *Server) hasKey(c *gin.Context) bool {
	if strings.TrimSpace(s.cfg.APIKey) != "" {
		return true
	}
	s.logger.Error("speech API key is not configured", "env", "SPEECHIFY_API_KEY")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "speech API key is not configured on the server"})
	return false
}

func (s *Server) forward(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(s.cfg.UpstreamURL, "/")+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read upstream response: %w", err)
	}
	return resp.StatusCode, payload, nil
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
