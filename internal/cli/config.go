// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/streamchat/internal/config"
)

var configSubcommands = []string{"show", "path", "init", "get", "set", "keys"}

// RunConfig handles the config subcommands.
func RunConfig(env Env, args Args) error {
	p := NewArgParser(args.Raw)
	path, err := ConfigPath(args)
	if err != nil {
		return &ConfigError{Err: err}
	}

	switch args.Subcommand {
	case "", "show":
		return configShow(env, args)
	case "path":
		return configPath(env, args, path)
	case "init":
		return configInit(env, args, path)
	case "get":
		if p.PositionalCount() < 2 {
			return ErrMissingArgument("key", "streamchat config get server.addr")
		}
		return configGet(env, args, p.Positional(1))
	case "set":
		if p.PositionalCount() < 3 {
			return ErrMissingArgument("key and value", "streamchat config set provider.kind echo")
		}
		return configSet(env, args, path, p.Positional(1), JoinPositionalArgs(p, 2))
	case "keys":
		return OutputJSON(env.Stdout, args.JSON, "config keys", func() (any, error) {
			keys := config.AllKeys()
			if !args.JSON {
				for _, k := range keys {
					fmt.Fprintln(env.Stdout, k)
				}
			}
			return keys, nil
		})
	default:
		return ErrUnknownSubcommand("config", args.Subcommand, configSubcommands)
	}
}

// configShow prints the effective configuration, file plus environment,
// with secrets redacted.
func configShow(env Env, args Args) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	safe := cfg.Redacted()
	return OutputJSON(env.Stdout, args.JSON, "config show", func() (any, error) {
		if !args.JSON {
			if err := toml.NewEncoder(env.Stdout).Encode(safe); err != nil {
				return nil, fmt.Errorf("failed to encode config: %w", err)
			}
		}
		return safe, nil
	})
}

func configPath(env Env, args Args, path string) error {
	return OutputJSON(env.Stdout, args.JSON, "config path", func() (any, error) {
		exists := fileExists(path)
		if !args.JSON {
			fmt.Fprintln(env.Stdout, path)
		}
		return ConfigPathData{Path: path, Exists: exists}, nil
	})
}

// configInit writes a default config file. An existing file is kept
// unless --force is given.
func configInit(env Env, args Args, path string) error {
	if fileExists(path) && !args.Confirm {
		return &UsageError{
			Field:   "config init",
			Value:   path,
			Reason:  "file already exists",
			Example: "streamchat config init --force",
		}
	}
	return OutputJSON(env.Stdout, args.JSON, "config init", func() (any, error) {
		save := func(cfg *config.Config) error { return config.SaveTo(cfg, path) }
		if args.ConfigPath == "" {
			save = config.Save
		}
		if err := save(config.Default()); err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		if !args.JSON {
			fmt.Fprintf(env.Stdout, "%s Wrote %s\n", SuccessStyle.Render("[OK]"), path)
		}
		return ConfigPathData{Path: path, Exists: true, Written: true}, nil
	})
}

func configGet(env Env, args Args, key string) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	value, err := cfg.Redacted().Get(key)
	if err != nil {
		return &UsageError{Field: "key", Value: key, Reason: err.Error(), Example: "streamchat config keys"}
	}
	return OutputJSON(env.Stdout, args.JSON, "config get", func() (any, error) {
		if !args.JSON {
			fmt.Fprintln(env.Stdout, formatConfigValue(value))
		}
		return ConfigValueData{Key: key, Value: value}, nil
	})
}

// configSet changes one key in the config file. The file is read without
// environment overrides so they are not written back.
func configSet(env Env, args Args, path, key, value string) error {
	cfg, err := config.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return &ConfigError{Path: path, Err: err}
	}

	if err := cfg.Set(key, value); err != nil {
		return &UsageError{Field: "key", Value: key, Reason: err.Error(), Example: "streamchat config keys"}
	}
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Path: path, Err: err}
	}

	return OutputJSON(env.Stdout, args.JSON, "config set", func() (any, error) {
		if err := config.SaveTo(cfg, path); err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		got, _ := cfg.Redacted().Get(key)
		if !args.JSON {
			fmt.Fprintf(env.Stdout, "%s %s = %s\n", SuccessStyle.Render("[OK]"), key, formatConfigValue(got))
		}
		return ConfigValueData{Key: key, Value: got}, nil
	})
}

func formatConfigValue(v any) string {
	switch v := v.(type) {
	case []string:
		return strings.Join(v, ",")
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
