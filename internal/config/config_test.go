// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable ApplyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"STREAMCHAT_ADDR", "STREAMCHAT_SYSTEM_PROMPT", "STREAMCHAT_DB", "STREAMCHAT_PROVIDER",
		"STREAMCHAT_OLLAMA_URL", "STREAMCHAT_OPENAI_BASE_URL", "OPENAI_API_KEY", "STREAMCHAT_OPENAI_KEY",
		"STREAMCHAT_MODEL", "STREAMCHAT_SERVER_URL", "STREAMCHAT_LOG_LEVEL", "STREAMCHAT_LOG_FORMAT",
		EnvConfigPath,
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "You are a helpful AI assistant.", cfg.Server.SystemPrompt)
	assert.Equal(t, ProviderOllama, cfg.Provider.Kind)
	assert.Equal(t, "gpt-4o", cfg.Provider.OpenAI.Model)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "absent.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Addr, cfg.Server.Addr)
}

func TestLoadFrom_PartialFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[server]
addr = "0.0.0.0:9000"
system_prompt = "Be brief."
cors_origins = ["https://chat.example.com"]

[provider]
kind = "ECHO"

[provider.echo]
chunk_bytes = 2

[log]
level = "DEBUG"
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, "Be brief.", cfg.Server.SystemPrompt)
	assert.Equal(t, []string{"https://chat.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, ProviderEcho, cfg.Provider.Kind)
	assert.Equal(t, 2, cfg.Provider.Echo.ChunkBytes)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched sections keep defaults.
	assert.Equal(t, "llama3.2", cfg.Provider.Ollama.Model)
	assert.Equal(t, 120, cfg.Server.RateLimit)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "permissions tightened")
	}
}

func TestLoadFrom_UnknownKey(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[server]\nadress = \"typo\"\n")

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.adress")
}

func TestLoadFrom_Invalid(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[provider]\nkind = \"gemini\"\n")

	_, err := LoadFrom(path)

	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 1)
	assert.Equal(t, "provider.kind", verrs[0].Field)
}

func TestLoadFrom_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[server\n")

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestReadFile_IgnoresEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("STREAMCHAT_ADDR", "127.0.0.1:9999")
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[server]\naddr = \"127.0.0.1:1111\"\n")

	raw, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1111", raw.Server.Addr)

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", loaded.Server.Addr)
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STREAMCHAT_ADDR", "127.0.0.1:1234")
	t.Setenv("STREAMCHAT_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-generic")
	t.Setenv("STREAMCHAT_OPENAI_KEY", "sk-specific")
	t.Setenv("STREAMCHAT_MODEL", "gpt-4o-mini")
	t.Setenv("STREAMCHAT_LOG_LEVEL", "WARN")
	t.Setenv("STREAMCHAT_DB", ":memory:")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "127.0.0.1:1234", cfg.Server.Addr)
	assert.Equal(t, ProviderOpenAI, cfg.Provider.Kind)
	assert.Equal(t, "sk-specific", cfg.Provider.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Provider.OpenAI.Model)
	assert.Equal(t, "llama3.2", cfg.Provider.Ollama.Model)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, ":memory:", cfg.Storage.Path)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvOverrides_ModelFollowsOllama(t *testing.T) {
	clearEnv(t)
	t.Setenv("STREAMCHAT_MODEL", "qwen2.5")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "qwen2.5", cfg.Provider.Ollama.Model)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"bad addr", func(c *Config) { c.Server.Addr = "nope" }, "server.addr"},
		{"bad port", func(c *Config) { c.Server.Addr = "127.0.0.1:99999" }, "server.addr"},
		{"negative timeout", func(c *Config) { c.Server.ReadTimeoutSecs = -1 }, "server.read_timeout_secs"},
		{"small body limit", func(c *Config) { c.Server.MaxBodyBytes = 10 }, "server.max_body_bytes"},
		{"bad origin", func(c *Config) { c.Server.CORSOrigins = []string{"ftp://x"} }, "server.cors_origins"},
		{"openai without key", func(c *Config) { c.Provider.Kind = ProviderOpenAI }, "provider.openai.api_key"},
		{"bad ollama url", func(c *Config) { c.Provider.Ollama.URL = "localhost" }, "provider.ollama.url"},
		{"echo zero chunk", func(c *Config) { c.Provider.Kind = ProviderEcho; c.Provider.Echo.ChunkBytes = 0 }, "provider.echo.chunk_bytes"},
		{"bad server url", func(c *Config) { c.Client.ServerURL = "::" }, "client.server_url"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad log output", func(c *Config) { c.Log.Output = "syslog" }, "log.output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs), "expected ValidateErrors, got %v", err)

			fields := make([]string, len(verrs))
			for i, v := range verrs {
				fields[i] = v.Field
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidateErrors_Error(t *testing.T) {
	errs := ValidateErrors{
		{Field: "a", Message: "bad"},
		{Field: "b", Message: "worse"},
	}
	assert.Equal(t, "a: bad; b: worse", errs.Error())
	assert.Equal(t, "no validation errors", ValidateErrors{}.Error())
}

func TestSaveTo_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Provider.Kind = ProviderOpenAI
	cfg.Provider.OpenAI.APIKey = "sk-test"
	cfg.Server.SystemPrompt = "Answer in French."
	require.NoError(t, SaveTo(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# streamchat configuration file"))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSave_UsesConfigPath(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv(EnvConfigPath, path)

	cfg := Default()
	cfg.Client.ServerURL = "http://127.0.0.1:9000"
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000", loaded.Client.ServerURL)
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("provider.ollama.model")
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", v)

	require.NoError(t, cfg.Set("provider.ollama.model", "mistral"))
	assert.Equal(t, "mistral", cfg.Provider.Ollama.Model)

	require.NoError(t, cfg.Set("server.rate-limit", "30"))
	assert.Equal(t, 30, cfg.Server.RateLimit)

	require.NoError(t, cfg.Set("client.markdown", "false"))
	assert.False(t, cfg.Client.Markdown)

	require.NoError(t, cfg.Set("server.cors_origins", "http://a.test, http://b.test"))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)

	_, err = cfg.Get("server.nope")
	assert.EqualError(t, err, "unknown field: server.nope")

	_, err = cfg.Get("log.level.extra")
	assert.Error(t, err)

	assert.Error(t, cfg.Set("server.rate_limit", "many"))
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestAllKeys(t *testing.T) {
	keys := AllKeys()
	assert.Contains(t, keys, "server.addr")
	assert.Contains(t, keys, "provider.openai.api_key")
	assert.Contains(t, keys, "log.file")
	assert.NotContains(t, keys, "provider.ollama")

	cfg := Default()
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestString_RedactsKey(t *testing.T) {
	cfg := Default()
	cfg.Provider.OpenAI.APIKey = "sk-secret"

	assert.NotContains(t, cfg.String(), "sk-secret")
	assert.Contains(t, cfg.String(), "[REDACTED]")
	assert.Equal(t, "sk-secret", cfg.Provider.OpenAI.APIKey, "original untouched")
}

func TestClone_IsDeep(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Server.CORSOrigins[0] = "http://changed"

	assert.NotEqual(t, "http://changed", cfg.Server.CORSOrigins[0])
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout())
	assert.Equal(t, 60*time.Second, cfg.Provider.IdleTimeout())
	assert.Equal(t, 30*time.Millisecond, cfg.Provider.Echo.Delay())
	assert.Equal(t, 15*time.Second, cfg.Client.Timeout())
}

func TestPathHelpers(t *testing.T) {
	clearEnv(t)
	custom := filepath.Join(t.TempDir(), "c.toml")
	t.Setenv(EnvConfigPath, custom)

	p, err := Path()
	require.NoError(t, err)
	assert.Equal(t, custom, p)

	cfg := Default()
	cfg.Storage.Path = "/data/chat.db"
	sp, err := cfg.StoragePath()
	require.NoError(t, err)
	assert.Equal(t, "/data/chat.db", sp)
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[server]\nsystem_prompt = \"one\"\n")

	got := make(chan string, 4)
	w, err := Watch(path, 20*time.Millisecond, func(cfg *Config) {
		got <- cfg.Server.SystemPrompt
	}, nil)
	require.NoError(t, err)
	defer w.Close()

	cfg := Default()
	cfg.Server.SystemPrompt = "two"
	require.NoError(t, SaveTo(cfg, path))

	select {
	case prompt := <-got:
		assert.Equal(t, "two", prompt)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after save")
	}
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
