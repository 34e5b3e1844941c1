// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wiring shared by every mychat command.
//
// OpenApp loads the configuration, starts logging and telemetry, opens the
// chat store, builds the completion source for the configured backend and
// loads the saved chats into a session manager.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/kosiew/my-chat-gpt/internal/config"
	"github.com/kosiew/my-chat-gpt/internal/ollama"
	"github.com/kosiew/my-chat-gpt/internal/openai"
	"github.com/kosiew/my-chat-gpt/internal/session"
	"github.com/kosiew/my-chat-gpt/internal/storage"
	"github.com/kosiew/my-chat-gpt/internal/stream"
	"github.com/kosiew/my-chat-gpt/internal/telemetry"
	"github.com/kosiew/my-chat-gpt/internal/upload"
)

// =============================================================================
// APPLICATION
// =============================================================================

// Options selects where configuration and data come from.
type Options struct {
	// ConfigPath overrides the default config file location.
	ConfigPath string

	// DataDir overrides storage.data_dir.
	DataDir string

	// Source replaces the configured completion backend.
	Source stream.Source
}

// App bundles the components a command works with.
type App struct {
	Config     *config.Config
	ConfigPath string
	DataDir    string

	Logger   *slog.Logger
	Source   stream.Source
	Store    storage.Store
	Manager  *session.Manager
	Uploader *upload.Uploader

	providers *telemetry.Providers
	logFile   io.Closer
}

// OpenApp builds an App from opts. Callers must Close it.
func OpenApp(ctx context.Context, opts Options) (*App, error) {
	cfg, path, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.DataDir != "" {
		cfg.Storage.DataDir = opts.DataDir
	}
	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, ConfigPath: path, DataDir: dataDir}
	logDir := filepath.Join(dataDir, "logs")

	logger, logFile, err := telemetry.InitLogger(logDir, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	app.Logger = logger
	app.logFile = logFile

	mcfg := session.DefaultConfig()
	if cfg.Log.Telemetry {
		providers, err := telemetry.InitTelemetry(ctx, logDir, Version, 0)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.providers = providers
		mcfg.Tracer = providers.Tracer
		mcfg.Meter = providers.Meter
	}

	store, err := storage.Open(cfg.Storage.Store, dataDir, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("open chat store: %w", err)
	}
	app.Store = store

	src := opts.Source
	if src == nil {
		src, err = NewSource(cfg, logger)
		if err != nil {
			// list, clear and prune still work without a backend
			logger.Warn("completion backend unavailable", "backend", cfg.Chat.Backend, "error", err)
			src = unavailableSource(err)
		}
	}

	app.Source = src
	mcfg.Model = cfg.Chat.Model
	mcfg.MaxTokens = cfg.Chat.MaxTokens
	mcfg.StreamTimeout = cfg.StreamTimeout()
	mcfg.Store = store
	mcfg.Logger = logger
	app.Manager = session.NewManager(src, mcfg)

	if err := app.Manager.Load(); err != nil {
		app.Close()
		return nil, err
	}

	app.Uploader = upload.New(app.Manager, upload.Config{
		ChunkSize: cfg.Upload.ChunkSize,
		Interval:  cfg.UploadInterval(),
	}, logger)

	logger.Info("mychat started", "version", Version, "backend", cfg.Chat.Backend, "store", cfg.Storage.Store)
	return app, nil
}

// Close stops streaming and releases the store, telemetry and log file.
func (a *App) Close() error {
	var errs []error
	if a.Manager != nil {
		a.Manager.Close()
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.providers != nil {
		errs = append(errs, a.providers.Shutdown(context.Background()))
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}

// EnsureActiveChat returns the active chat id, creating a chat when none is
// active.
func (a *App) EnsureActiveChat() (string, error) {
	if id, ok := a.Manager.Active(); ok {
		return id, nil
	}
	return a.Manager.CreateChat(a.Config.Chat.Preamble)
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.LoadFromPath(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, "", err
	}
	def, _ := config.ConfigPathTOML()
	return cfg, def, nil
}

// =============================================================================
// COMPLETION BACKENDS
// =============================================================================

// NewSource builds the completion source for cfg.Chat.Backend.
func NewSource(cfg *config.Config, logger *slog.Logger) (stream.Source, error) {
	switch cfg.Chat.Backend {
	case config.BackendOllama:
		return ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL:      cfg.Chat.BaseURL,
			DefaultModel: cfg.Chat.Model,
			Logger:       logger,
		}), nil
	case config.BackendOpenAI, "":
		return openai.NewClient(openai.Config{
			APIKey:       cfg.Chat.APIKey,
			BaseURL:      cfg.Chat.BaseURL,
			DefaultModel: cfg.Chat.Model,
			Logger:       logger,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Chat.Backend)
	}
}

// backendCheckTimeout bounds the reachability probe made before chatting.
const backendCheckTimeout = 3 * time.Second

// healthChecker is implemented by sources that can report reachability.
type healthChecker interface {
	CheckRunning(ctx context.Context) error
}

// CheckBackend reports whether the completion backend answers. Sources
// without a health check are assumed reachable.
func (a *App) CheckBackend(ctx context.Context) error {
	hc, ok := a.Source.(healthChecker)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, backendCheckTimeout)
	defer cancel()
	if err := hc.CheckRunning(ctx); err != nil {
		return fmt.Errorf("%s backend: %w", a.Config.Chat.Backend, err)
	}
	return nil
}

// unavailableSource fails every completion with cause.
func unavailableSource(cause error) stream.Source {
	return stream.SourceFunc(func(ctx context.Context, _ stream.Request) <-chan stream.Chunk {
		ch := make(chan stream.Chunk, 1)
		ch <- stream.Chunk{Err: fmt.Errorf("completion backend unavailable: %w", cause)}
		close(ch)
		return ch
	})
}
