// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/streamchat/internal/llm"
	"github.com/jeranaias/streamchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete streamchat configuration.
type Config struct {
	Server   ServerConfig   `toml:"server" json:"server"`
	Storage  StorageConfig  `toml:"storage" json:"storage"`
	Provider ProviderConfig `toml:"provider" json:"provider"`
	Client   ClientConfig   `toml:"client" json:"client"`
	Log      LogConfig      `toml:"log" json:"log"`
}

// ServerConfig configures `streamchat serve`.
type ServerConfig struct {
	// Addr is the listen address (host:port).
	Addr string `toml:"addr" json:"addr"`
	// SystemPrompt is prepended to every conversation. Reloaded live.
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
	// ReadTimeoutSecs bounds reading a request.
	ReadTimeoutSecs int `toml:"read_timeout_secs" json:"read_timeout_secs"`
	// WriteTimeoutSecs bounds each write; streams extend it per fragment.
	WriteTimeoutSecs int `toml:"write_timeout_secs" json:"write_timeout_secs"`
	// IdleTimeoutSecs bounds keep-alive connections.
	IdleTimeoutSecs int `toml:"idle_timeout_secs" json:"idle_timeout_secs"`
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `toml:"max_body_bytes" json:"max_body_bytes"`
	// RateLimit is requests per minute per client IP (0 = off).
	RateLimit int `toml:"rate_limit" json:"rate_limit"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `toml:"cors_origins" json:"cors_origins"`
}

// StorageConfig configures the message database.
type StorageConfig struct {
	// Path is the SQLite file (":memory:" for a throwaway store).
	Path string `toml:"path" json:"path"`
}

// ProviderConfig selects and configures the model backend.
type ProviderConfig struct {
	// Kind is one of: ollama, openai, echo
	Kind string `toml:"kind" json:"kind"`
	// IdleTimeoutSecs aborts a reply that stalls this long (0 = off).
	IdleTimeoutSecs int `toml:"idle_timeout_secs" json:"idle_timeout_secs"`

	Ollama OllamaConfig `toml:"ollama" json:"ollama"`
	OpenAI OpenAIConfig `toml:"openai" json:"openai"`
	Echo   EchoConfig   `toml:"echo" json:"echo"`
}

// OllamaConfig configures the local Ollama provider.
type OllamaConfig struct {
	URL   string `toml:"url" json:"url"`
	Model string `toml:"model" json:"model"`
}

// OpenAIConfig configures any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key" json:"api_key"`
	BaseURL string `toml:"base_url" json:"base_url"`
	Model   string `toml:"model" json:"model"`
}

// EchoConfig configures the offline echo provider.
type EchoConfig struct {
	ChunkBytes int `toml:"chunk_bytes" json:"chunk_bytes"`
	DelayMs    int `toml:"delay_ms" json:"delay_ms"`
}

// ClientConfig configures the TUI, REPL and one-shot commands.
type ClientConfig struct {
	// ServerURL is the streamchat server the client talks to.
	ServerURL string `toml:"server_url" json:"server_url"`
	// TimeoutSecs bounds non-streaming requests.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// Markdown renders assistant replies with glamour in the TUI.
	Markdown bool `toml:"markdown" json:"markdown"`
	// HistoryFile keeps REPL input history (empty = default).
	HistoryFile string `toml:"history_file" json:"history_file"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of: debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// Format is one of: text, json
	Format string `toml:"format" json:"format"`
	// Output is one of: stderr, stdout, file
	Output string `toml:"output" json:"output"`
	// File is the log path when Output is "file" (empty = default).
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Provider kinds.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderEcho   = "echo"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:             "127.0.0.1:8787",
			SystemPrompt:     llm.DefaultSystemPrompt,
			ReadTimeoutSecs:  30,
			WriteTimeoutSecs: 120,
			IdleTimeoutSecs:  120,
			MaxBodyBytes:     1 << 20,
			RateLimit:        120,
			CORSOrigins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
				"http://127.0.0.1:3000",
				"http://127.0.0.1:5173",
			},
		},
		Storage: StorageConfig{
			Path: "", // resolved to ~/.streamchat/messages.db
		},
		Provider: ProviderConfig{
			Kind:            ProviderOllama,
			IdleTimeoutSecs: 60,
			Ollama: OllamaConfig{
				URL:   "http://127.0.0.1:11434",
				Model: "llama3.2",
			},
			OpenAI: OpenAIConfig{
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4o",
			},
			Echo: EchoConfig{
				ChunkBytes: 4,
				DelayMs:    30,
			},
		},
		Client: ClientConfig{
			ServerURL:   "http://127.0.0.1:8787",
			TimeoutSecs: 15,
			Markdown:    true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// SetDefaults fills zero values left by a partial config file.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.ReadTimeoutSecs == 0 {
		c.Server.ReadTimeoutSecs = d.Server.ReadTimeoutSecs
	}
	if c.Server.WriteTimeoutSecs == 0 {
		c.Server.WriteTimeoutSecs = d.Server.WriteTimeoutSecs
	}
	if c.Server.IdleTimeoutSecs == 0 {
		c.Server.IdleTimeoutSecs = d.Server.IdleTimeoutSecs
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = d.Server.MaxBodyBytes
	}
	if c.Provider.Kind == "" {
		c.Provider.Kind = d.Provider.Kind
	}
	c.Provider.Kind = strings.ToLower(c.Provider.Kind)
	if c.Provider.Ollama.URL == "" {
		c.Provider.Ollama.URL = d.Provider.Ollama.URL
	}
	if c.Provider.Ollama.Model == "" {
		c.Provider.Ollama.Model = d.Provider.Ollama.Model
	}
	if c.Provider.OpenAI.BaseURL == "" {
		c.Provider.OpenAI.BaseURL = d.Provider.OpenAI.BaseURL
	}
	if c.Provider.OpenAI.Model == "" {
		c.Provider.OpenAI.Model = d.Provider.OpenAI.Model
	}
	if c.Provider.Echo.ChunkBytes == 0 {
		c.Provider.Echo.ChunkBytes = d.Provider.Echo.ChunkBytes
	}
	if c.Client.ServerURL == "" {
		c.Client.ServerURL = d.Client.ServerURL
	}
	if c.Client.TimeoutSecs == 0 {
		c.Client.TimeoutSecs = d.Client.TimeoutSecs
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Log.Output == "" {
		c.Log.Output = d.Log.Output
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
	c.Log.Output = strings.ToLower(c.Log.Output)
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "STREAMCHAT_CONFIG"

// ConfigDir returns the streamchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".streamchat"), nil
}

// Path returns the config file path, honouring STREAMCHAT_CONFIG.
func Path() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StoragePath returns the database path, defaulting under the config dir.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "messages.db"), nil
}

// LogFilePath returns the log file path, defaulting under the config dir.
func (c *Config) LogFilePath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "streamchat.log"), nil
}

// HistoryFilePath returns the REPL history path, defaulting under the config dir.
func (c *Config) HistoryFilePath() (string, error) {
	if c.Client.HistoryFile != "" {
		return c.Client.HistoryFile, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "repl_history"), nil
}

// ensureSecurePermissions tightens a config file to 0600 since it may
// hold an API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file at Path(). A missing file yields defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the TOML file at path over the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ReadFile decodes the TOML file at path over the defaults without
// environment overrides or validation. `config set` edits this form so
// environment values never leak into the file.
func ReadFile(path string) (*Config, error) {
	// Permission fix is best effort; some filesystems do not support it.
	_ = ensureSecurePermissions(path)

	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Save writes cfg to Path().
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes cfg as TOML to path atomically with 0600 permissions.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# streamchat configuration file\n")
	buf.WriteString("# Environment variables STREAMCHAT_* override these values.\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
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
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Server
	if _, port, err := net.SplitHostPort(c.Server.Addr); err != nil {
		add("server.addr", "invalid address %q: %v", c.Server.Addr, err)
	} else if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		add("server.addr", "invalid port %q", port)
	}
	for _, f := range []struct {
		name string
		v    int
	}{
		{"server.read_timeout_secs", c.Server.ReadTimeoutSecs},
		{"server.write_timeout_secs", c.Server.WriteTimeoutSecs},
		{"server.idle_timeout_secs", c.Server.IdleTimeoutSecs},
		{"server.rate_limit", c.Server.RateLimit},
		{"provider.idle_timeout_secs", c.Provider.IdleTimeoutSecs},
		{"provider.echo.delay_ms", c.Provider.Echo.DelayMs},
	} {
		if f.v < 0 {
			add(f.name, "must not be negative, got %d", f.v)
		}
	}
	if c.Server.MaxBodyBytes < 1024 {
		add("server.max_body_bytes", "must be at least 1024, got %d", c.Server.MaxBodyBytes)
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" || strings.HasPrefix(origin, "*.") {
			continue
		}
		if err := validateURL(origin); err != nil {
			add("server.cors_origins", "invalid origin %q: %v", origin, err)
		}
	}

	// Provider
	switch c.Provider.Kind {
	case ProviderOllama:
		if err := validateURL(c.Provider.Ollama.URL); err != nil {
			add("provider.ollama.url", "%v", err)
		}
	case ProviderOpenAI:
		if err := validateURL(c.Provider.OpenAI.BaseURL); err != nil {
			add("provider.openai.base_url", "%v", err)
		}
		if c.Provider.OpenAI.APIKey == "" {
			add("provider.openai.api_key", "required when provider.kind is openai (or set OPENAI_API_KEY)")
		}
	case ProviderEcho:
		if c.Provider.Echo.ChunkBytes < 1 {
			add("provider.echo.chunk_bytes", "must be at least 1, got %d", c.Provider.Echo.ChunkBytes)
		}
	default:
		add("provider.kind", "invalid kind '%s', must be one of: ollama, openai, echo", c.Provider.Kind)
	}

	// Client
	if err := validateURL(c.Client.ServerURL); err != nil {
		add("client.server_url", "%v", err)
	}
	if c.Client.TimeoutSecs < 0 {
		add("client.timeout_secs", "must not be negative, got %d", c.Client.TimeoutSecs)
	}

	// Log
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		add("log.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}
	if !slices.Contains([]string{"text", "json"}, c.Log.Format) {
		add("log.format", "invalid format '%s', must be one of: text, json", c.Log.Format)
	}
	if !slices.Contains([]string{"stderr", "stdout", "file"}, c.Log.Output) {
		add("log.output", "invalid output '%s', must be one of: stderr, stdout, file", c.Log.Output)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - STREAMCHAT_ADDR: server.addr
//   - STREAMCHAT_SYSTEM_PROMPT: server.system_prompt
//   - STREAMCHAT_DB: storage.path
//   - STREAMCHAT_PROVIDER: provider.kind
//   - STREAMCHAT_MODEL: model of the selected provider
//   - STREAMCHAT_OLLAMA_URL: provider.ollama.url
//   - STREAMCHAT_OPENAI_BASE_URL: provider.openai.base_url
//   - OPENAI_API_KEY, STREAMCHAT_OPENAI_KEY: provider.openai.api_key
//   - STREAMCHAT_SERVER_URL: client.server_url
//   - STREAMCHAT_LOG_LEVEL: log.level
//   - STREAMCHAT_LOG_FORMAT: log.format
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("STREAMCHAT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("STREAMCHAT_SYSTEM_PROMPT"); v != "" {
		c.Server.SystemPrompt = v
	}
	if v := os.Getenv("STREAMCHAT_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("STREAMCHAT_PROVIDER"); v != "" {
		c.Provider.Kind = strings.ToLower(v)
	}
	if v := os.Getenv("STREAMCHAT_OLLAMA_URL"); v != "" {
		c.Provider.Ollama.URL = v
	}
	if v := os.Getenv("STREAMCHAT_OPENAI_BASE_URL"); v != "" {
		c.Provider.OpenAI.BaseURL = v
	}
	// The product-specific variable wins over the generic one.
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Provider.OpenAI.APIKey = v
	}
	if v := os.Getenv("STREAMCHAT_OPENAI_KEY"); v != "" {
		c.Provider.OpenAI.APIKey = v
	}
	if v := os.Getenv("STREAMCHAT_MODEL"); v != "" {
		switch c.Provider.Kind {
		case ProviderOpenAI:
			c.Provider.OpenAI.Model = v
		default:
			c.Provider.Ollama.Model = v
		}
	}
	if v := os.Getenv("STREAMCHAT_SERVER_URL"); v != "" {
		c.Client.ServerURL = v
	}
	if v := os.Getenv("STREAMCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("STREAMCHAT_LOG_FORMAT"); v != "" {
		c.Log.Format = strings.ToLower(v)
	}
}

// =============================================================================
// DURATION HELPERS
// =============================================================================

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// ReadTimeout returns server.read_timeout_secs as a duration.
func (s ServerConfig) ReadTimeout() time.Duration { return secs(s.ReadTimeoutSecs) }

// WriteTimeout returns server.write_timeout_secs as a duration.
func (s ServerConfig) WriteTimeout() time.Duration { return secs(s.WriteTimeoutSecs) }

// IdleTimeout returns server.idle_timeout_secs as a duration.
func (s ServerConfig) IdleTimeout() time.Duration { return secs(s.IdleTimeoutSecs) }

// IdleTimeout returns provider.idle_timeout_secs as a duration.
func (p ProviderConfig) IdleTimeout() time.Duration { return secs(p.IdleTimeoutSecs) }

// Timeout returns client.timeout_secs as a duration.
func (c ClientConfig) Timeout() time.Duration { return secs(c.TimeoutSecs) }

// Delay returns provider.echo.delay_ms as a duration.
func (e EchoConfig) Delay() time.Duration { return time.Duration(e.DelayMs) * time.Millisecond }

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "provider.ollama.model").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
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

// lookup walks key through the struct by toml tag.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i], "."))
		}
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return v, nil
}

// fieldByTag finds a struct field by its toml tag name. Dashes are
// accepted in place of underscores.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	name = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ",")
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets a reflect.Value from an any value with type conversion.
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
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				boolVal = strings.EqualFold(strVal, "yes")
			}
			field.SetBool(boolVal)
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, s := range strings.Split(strVal, ",") {
					if s = strings.TrimSpace(s); s != "" {
						items = append(items, s)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
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

// AllKeys returns every configuration key in dot notation.
func AllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			tag, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ",")
			key := prefix + tag
			if t.Field(i).Type.Kind() == reflect.Struct {
				walk(t.Field(i).Type, key+".")
				continue
			}
			keys = append(keys, key)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// =============================================================================
// CLONE / STRING
// =============================================================================

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Server.CORSOrigins = slices.Clone(c.Server.CORSOrigins)
	return &clone
}

// String returns the config as JSON with the API key redacted.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}

// Redacted returns a copy safe to print or encode.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.Provider.OpenAI.APIKey != "" {
		safe.Provider.OpenAI.APIKey = "[REDACTED]"
	}
	return safe
}
