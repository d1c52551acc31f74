package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/glabrego/readaloud-cli/internal/apperr"
)

//go:embed sample_config.toml
var sampleConfig string

const (
	defaultBackendURL   = "http://localhost:8080"
	defaultProxyURL     = "http://localhost:8787"
	defaultSpeechModel  = "simba-multilingual"
	defaultAudioFormat  = "wav"
	defaultUpstreamURL  = "https://api.sws.speechify.com"
	defaultProxyBind    = "127.0.0.1:8787"
	defaultVoicesCache  = 600
	defaultDBFile       = "~/.local/share/readaloud/readaloud.db"
	defaultConfigSuffix = ".config/readaloud/config.toml"
)

// Backend points at the news/auth/bookmark REST API.
type Backend struct {
	BaseURL string `toml:"base_url"`
}

// Speech configures the client side of text-to-speech.
type Speech struct {
	ProxyURL      string `toml:"proxy_url"`
	Model         string `toml:"model"`
	DefaultFormat string `toml:"default_format"`
	Player        string `toml:"player"`
}

type Storage struct {
	DBPath string `toml:"db_path"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Proxy configures `readaloud proxy serve`, which holds the provider API key.
type Proxy struct {
	Bind               string   `toml:"bind"`
	UpstreamURL        string   `toml:"upstream_url"`
	APIKey             string   `toml:"api_key"`
	VoicesCacheSeconds int      `toml:"voices_cache_seconds"`
	AllowedOrigins     []string `toml:"allowed_origins"`
}

// Config holds runtime settings for the CLI app.
type Config struct {
	Backend Backend `toml:"backend"`
	Speech  Speech  `toml:"speech"`
	Storage Storage `toml:"storage"`
	Logging Logging `toml:"logging"`
	Proxy   Proxy   `toml:"proxy"`
}

// Default returns a config with every optional field populated.
func Default() Config {
	return Config{
		Backend: Backend{BaseURL: defaultBackendURL},
		Speech: Speech{
			ProxyURL:      defaultProxyURL,
			Model:         defaultSpeechModel,
			DefaultFormat: defaultAudioFormat,
		},
		Storage: Storage{DBPath: defaultDBFile},
		Logging: Logging{Level: "info"},
		Proxy: Proxy{
			Bind:               defaultProxyBind,
			UpstreamURL:        defaultUpstreamURL,
			VoicesCacheSeconds: defaultVoicesCache,
		},
	}
}

// Load reads path (or the default locations when path is empty), applies
// environment overrides and validates the result. A missing file is not an
// error; the returned bool reports whether one was read.
func Load(path string) (Config, string, bool, error) {
	_ = godotenv.Load()

	cfg := Default()
	resolved, exists, err := resolvePath(path)
	if err != nil {
		return Config{}, "", false, err
	}
	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return Config{}, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return Config{}, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, "", false, err
	}
	return cfg, resolved, exists, nil
}

// LoadFromEnv builds a config from defaults and environment only.
func LoadFromEnv() (Config, error) {
	cfg := Default()
	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("READALOUD_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("READALOUD_PROXY_URL"); v != "" {
		c.Speech.ProxyURL = v
	}
	if v := os.Getenv("READALOUD_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("READALOUD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SPEECHIFY_API_KEY"); v != "" {
		c.Proxy.APIKey = v
	}
}

func (c *Config) normalize() {
	c.Backend.BaseURL = strings.TrimSpace(c.Backend.BaseURL)
	c.Speech.ProxyURL = strings.TrimSpace(c.Speech.ProxyURL)
	c.Proxy.UpstreamURL = strings.TrimRight(strings.TrimSpace(c.Proxy.UpstreamURL), "/")
	c.Proxy.APIKey = strings.TrimSpace(c.Proxy.APIKey)
	if strings.TrimSpace(c.Speech.Model) == "" {
		c.Speech.Model = defaultSpeechModel
	}
	if strings.TrimSpace(c.Speech.DefaultFormat) == "" {
		c.Speech.DefaultFormat = defaultAudioFormat
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Proxy.VoicesCacheSeconds <= 0 {
		c.Proxy.VoicesCacheSeconds = defaultVoicesCache
	}
	if expanded, err := ExpandPath(c.Storage.DBPath); err == nil {
		c.Storage.DBPath = expanded
	}
}

func (c Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return apperr.Configuration("backend base_url is required")
	}
	if strings.HasSuffix(c.Backend.BaseURL, "/") {
		return apperr.Configuration("backend base_url must not end with '/': %s", c.Backend.BaseURL)
	}
	if c.Speech.ProxyURL == "" {
		return apperr.Configuration("speech proxy_url is required")
	}
	if strings.HasSuffix(c.Speech.ProxyURL, "/") {
		return apperr.Configuration("speech proxy_url must not end with '/': %s", c.Speech.ProxyURL)
	}
	if c.Storage.DBPath == "" {
		return apperr.Configuration("storage db_path is required")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return apperr.Configuration("logging format must be console or json: %s", c.Logging.Format)
	}
	return nil
}

// DefaultPath returns ~/.config/readaloud/config.toml.
func DefaultPath() (string, error) {
	return ExpandPath("~/" + defaultConfigSuffix)
}

func resolvePath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	projectPath, err := filepath.Abs("readaloud.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// ExpandPath resolves a leading ~ and makes the path absolute.
func ExpandPath(value string) (string, error) {
	if value == "" {
		return value, nil
	}
	if strings.HasPrefix(value, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if value == "~" {
			value = home
		} else if len(value) > 1 && (value[1] == '/' || value[1] == '\\') {
			value = filepath.Join(home, value[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(value))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
