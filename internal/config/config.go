// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for mychat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.mychat/config.toml
//   - ~/.mychat/config.json
//   - Built-in defaults
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/kosiew/my-chat-gpt/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete mychat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Chat holds the completion settings.
	Chat ChatConfig `toml:"chat" json:"chat"`

	// UI holds display and input preferences.
	UI UIConfig `toml:"ui" json:"ui"`

	// Storage selects where chats are persisted.
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Upload controls how files are split and paced into a chat.
	Upload UploadConfig `toml:"upload" json:"upload"`

	// Log controls logging and telemetry output.
	Log LogConfig `toml:"log" json:"log"`
}

// ChatConfig contains completion backend settings.
type ChatConfig struct {
	// Backend is "openai" or "ollama".
	Backend string `toml:"backend" json:"backend"`

	// Model is the model name sent with every request.
	Model string `toml:"model" json:"model"`

	// APIKey authenticates against the openai backend.
	APIKey string `toml:"api_key" json:"api_key"`

	// BaseURL overrides the backend endpoint. Empty uses the backend default.
	BaseURL string `toml:"base_url" json:"base_url"`

	// MaxTokens caps the length of each completion.
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`

	// Preamble seeds every new chat as its system message.
	Preamble string `toml:"preamble" json:"preamble"`

	// StreamTimeoutSecs force-fails a completion after this many seconds (0 = none).
	StreamTimeoutSecs int `toml:"stream_timeout" json:"stream_timeout"`
}

// UIConfig contains interface preferences.
type UIConfig struct {
	// ShiftSend makes Enter insert a newline and Shift+Enter (alt+enter in terminals) send.
	ShiftSend bool `toml:"shift_send" json:"shift_send"`

	// MuteSound disables the bell on completed responses.
	MuteSound bool `toml:"mute_sound" json:"mute_sound"`

	// ShowPreamble shows the preamble message in the transcript.
	ShowPreamble bool `toml:"show_preamble" json:"show_preamble"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	// DataDir holds chats, the database and logs. Empty means ~/.mychat.
	DataDir string `toml:"data_dir" json:"data_dir"`

	// Store is "file" or "sqlite".
	Store string `toml:"store" json:"store"`

	// StaleDays is the age after which chats are offered for pruning.
	StaleDays int `toml:"stale_days" json:"stale_days"`
}

// UploadConfig contains file upload settings.
type UploadConfig struct {
	// ChunkSize is the maximum number of characters per uploaded part.
	ChunkSize int `toml:"chunk_size" json:"chunk_size"`

	// IntervalMs paces parts by this many milliseconds (0 = unpaced).
	IntervalMs int `toml:"interval_ms" json:"interval_ms"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" json:"level"`

	// Telemetry enables OpenTelemetry trace and metric files under the data dir.
	Telemetry bool `toml:"telemetry" json:"telemetry"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"

	StoreFile   = "file"
	StoreSQLite = "sqlite"

	DefaultPreamble = "You are a helpful assistant."

	// Default models per backend, used when chat.model is empty.
	DefaultModel       = "gpt-3.5-turbo"
	DefaultOllamaModel = "llama3.2"
)

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Version: "1",
		Chat: ChatConfig{
			Backend:   BackendOpenAI,
			MaxTokens: 4000,
			Preamble:  DefaultPreamble,
		},
		UI: UIConfig{
			ShiftSend:    false,
			MuteSound:    false,
			ShowPreamble: false,
		},
		Storage: StorageConfig{
			Store:     StoreFile,
			StaleDays: 30,
		},
		Upload: UploadConfig{
			ChunkSize: 15000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// StreamTimeout returns the completion timeout as a duration.
func (c *Config) StreamTimeout() time.Duration {
	return time.Duration(c.Chat.StreamTimeoutSecs) * time.Second
}

// UploadInterval returns the upload pacing as a duration.
func (c *Config) UploadInterval() time.Duration {
	return time.Duration(c.Upload.IntervalMs) * time.Millisecond
}

// DataDir returns the configured data directory or ~/.mychat.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir, nil
	}
	return ConfigDir()
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the mychat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".mychat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path. Settings the
// file leaves out keep their default values.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills zero values that have no meaning with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Chat.Backend == "" {
		c.Chat.Backend = defaults.Chat.Backend
	}
	if c.Chat.Model == "" {
		switch c.Chat.Backend {
		case BackendOpenAI:
			c.Chat.Model = DefaultModel
		case BackendOllama:
			c.Chat.Model = DefaultOllamaModel
		}
	}
	if c.Chat.MaxTokens == 0 {
		c.Chat.MaxTokens = defaults.Chat.MaxTokens
	}
	if c.Storage.Store == "" {
		c.Storage.Store = defaults.Storage.Store
	}
	if c.Storage.StaleDays == 0 {
		c.Storage.StaleDays = defaults.Storage.StaleDays
	}
	if c.Upload.ChunkSize == 0 {
		c.Upload.ChunkSize = defaults.Upload.ChunkSize
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration as TOML. The file is readable by its
// owner only since it may hold an API key.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# mychat configuration file")
	fmt.Fprintln(&buf, "# Generated by mychat - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes the configuration as indented JSON.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate validates the configuration and returns ValidateErrors listing
// every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Chat.Backend {
	case BackendOpenAI, BackendOllama:
	default:
		add("chat.backend", "must be %q or %q, got %q", BackendOpenAI, BackendOllama, c.Chat.Backend)
	}
	if c.Chat.MaxTokens < 1 {
		add("chat.max_tokens", "must be positive, got %d", c.Chat.MaxTokens)
	}
	if c.Chat.StreamTimeoutSecs < 0 {
		add("chat.stream_timeout", "must not be negative, got %d", c.Chat.StreamTimeoutSecs)
	}
	if c.Chat.BaseURL != "" {
		u, err := url.Parse(c.Chat.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			add("chat.base_url", "must be an absolute URL, got %q", c.Chat.BaseURL)
		} else if u.Scheme != "http" && u.Scheme != "https" {
			add("chat.base_url", "scheme must be http or https, got %q", u.Scheme)
		}
	}

	switch c.Storage.Store {
	case StoreFile, StoreSQLite:
	default:
		add("storage.store", "must be %q or %q, got %q", StoreFile, StoreSQLite, c.Storage.Store)
	}
	if c.Storage.StaleDays < 1 {
		add("storage.stale_days", "must be positive, got %d", c.Storage.StaleDays)
	}

	if c.Upload.ChunkSize < 1 {
		add("upload.chunk_size", "must be positive, got %d", c.Upload.ChunkSize)
	}
	if c.Upload.IntervalMs < 0 {
		add("upload.interval_ms", "must not be negative, got %d", c.Upload.IntervalMs)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", "must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - MYCHAT_API_KEY: overrides chat.api_key (OPENAI_API_KEY is used when unset)
//   - MYCHAT_MODEL: overrides chat.model
//   - MYCHAT_BACKEND: overrides chat.backend
//   - MYCHAT_BASE_URL: overrides chat.base_url
//   - MYCHAT_DATA_DIR: overrides storage.data_dir
//   - MYCHAT_MUTE: set to "1" or "true" to mute the completion bell
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("MYCHAT_API_KEY"); key != "" {
		c.Chat.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.Chat.APIKey == "" {
		c.Chat.APIKey = key
	}
	if model := os.Getenv("MYCHAT_MODEL"); model != "" {
		c.Chat.Model = model
	}
	if backend := os.Getenv("MYCHAT_BACKEND"); backend != "" {
		c.Chat.Backend = strings.ToLower(backend)
	}
	if baseURL := os.Getenv("MYCHAT_BASE_URL"); baseURL != "" {
		c.Chat.BaseURL = baseURL
	}
	if dir := os.Getenv("MYCHAT_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
	if mute := os.Getenv("MYCHAT_MUTE"); mute != "" {
		c.UI.MuteSound = mute == "1" || strings.ToLower(mute) == "true"
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "chat.max_tokens").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup resolves a dotted key by matching toml tags.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if strings.EqualFold(t.Field(i).Tag.Get("toml"), name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets a reflect.Value from an interface value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every configuration key in dot notation.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("toml")
		if f.Type.Kind() != reflect.Struct {
			keys = append(keys, tag)
			continue
		}
		for j := 0; j < f.Type.NumField(); j++ {
			keys = append(keys, tag+"."+f.Type.Field(j).Tag.Get("toml"))
		}
	}
	return keys
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the configuration as TOML with the API key redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Chat.APIKey != "" {
		safe.Chat.APIKey = "[REDACTED]"
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(safe); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return buf.String()
}
