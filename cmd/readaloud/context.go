package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/glabrego/readaloud-cli/internal/app"
	"github.com/glabrego/readaloud-cli/internal/audio"
	"github.com/glabrego/readaloud-cli/internal/bookmark"
	"github.com/glabrego/readaloud-cli/internal/config"
	"github.com/glabrego/readaloud-cli/internal/logging"
	"github.com/glabrego/readaloud-cli/internal/news"
	"github.com/glabrego/readaloud-cli/internal/notify"
	"github.com/glabrego/readaloud-cli/internal/playback"
	"github.com/glabrego/readaloud-cli/internal/session"
	"github.com/glabrego/readaloud-cli/internal/speech"
	"github.com/glabrego/readaloud-cli/internal/storage"
)

const (
	annotationSkipConfig = "skipConfigLoad"
	annotationLogToFile  = "logToFile"

	logFileName  = "readaloud.log"
	lockFileName = "playback.lock"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		c.config = &cfg
	})
	return c.config, c.configErr
}

// newLogger writes to stderr, or to a file beside the database for commands
// that own the terminal.
func (c *commandContext) newLogger(cmd *cobra.Command) (*slog.Logger, io.Closer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	opts := logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if cmd.Annotations[annotationLogToFile] == "true" {
		opts.Output = filepath.Join(filepath.Dir(cfg.Storage.DBPath), logFileName)
	}
	return logging.New(opts)
}

// appRuntime is the wired application for one command invocation.
type appRuntime struct {
	cfg     *config.Config
	logger  *slog.Logger
	session *session.Store
	service *app.Service
}

// withApp wires storage, session, clients and playback, runs fn and tears
// everything down again. extra receives every user-facing notice.
func (c *commandContext) withApp(cmd *cobra.Command, extra notify.Notifier, fn func(context.Context, *appRuntime) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, logCloser, err := c.newLogger(cmd)
	if err != nil {
		return err
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	repo, err := storage.NewRepository(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("storage init: %w", err)
	}
	defer repo.Close()
	if err := repo.Init(initCtx); err != nil {
		return fmt.Errorf("storage schema: %w", err)
	}
	if err := repo.CheckWritable(initCtx); err != nil {
		return fmt.Errorf("storage write check failed (%v); verify db_path is writable: %s", err, cfg.Storage.DBPath)
	}

	store := session.NewStore(repo, logger)
	if _, err := store.Load(initCtx); err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	store.OnExpire(func() {
		logger.Warn("session expired; log in again")
	})

	notifier := notify.Multi{notify.Logger{Log: logger}, extra}

	newsClient := news.NewClient(cfg.Backend.BaseURL, store, nil)
	marks := bookmark.New(newsClient, repo, store, store, logger)
	speechClient := speech.NewClient(cfg.Speech.ProxyURL,
		speech.WithModel(cfg.Speech.Model),
		speech.WithDefaultFormat(cfg.Speech.DefaultFormat),
	)
	lock := audio.NewLock(filepath.Join(filepath.Dir(cfg.Storage.DBPath), lockFileName))
	ctrl := playback.New(speechClient, audio.NewExecPlayer(cfg.Speech.Player), store,
		playback.WithNotifier(notifier),
		playback.WithLogger(logger),
		playback.WithLock(lock),
	)
	defer ctrl.Stop()

	svc := app.NewService(app.Deps{
		News:      newsClient,
		Repo:      repo,
		Bookmarks: marks,
		Player:    ctrl,
		Voices:    speechClient,
		Session:   store,
		Notifier:  notifier,
		Logger:    logger,
	})

	return fn(ctx, &appRuntime{
		cfg:     cfg,
		logger:  logger,
		session: store,
		service: svc,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	return hasAnnotation(cmd, annotationSkipConfig)
}

func hasAnnotation(cmd *cobra.Command, key string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations[key] == "true" {
			return true
		}
	}
	return false
}
