// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdServe
	CmdChat
	CmdAsk
	CmdHistory
	CmdClear
	CmdStatus
	CmdConfig
	CmdVersion
	CmdHelp
)

var commandNames = map[Command]string{
	CmdTUI:     "tui",
	CmdServe:   "serve",
	CmdChat:    "chat",
	CmdAsk:     "ask",
	CmdHistory: "history",
	CmdClear:   "clear",
	CmdStatus:  "status",
	CmdConfig:  "config",
	CmdVersion: "version",
	CmdHelp:    "help",
}

// String returns the command name as typed on the command line.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string // --config PATH
	ServerURL  string // --server URL (client commands)
	Quiet      bool
	Verbose    bool
	JSON       bool

	// serve flags
	Addr     string
	Provider string
	Model    string

	// Command-specific
	Query      string
	Subcommand string
	Confirm    bool
	Limit      int

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `streamchat - streaming chat over a persisted single conversation

Usage:
  streamchat                        Start the terminal UI (default)
  streamchat serve                  Run the chat server
  streamchat chat                   Interactive line chat (REPL)
  streamchat ask "question"         Ask a single question, stream the reply
  streamchat history [--json]       Print the conversation
  streamchat clear [--confirm]      Delete every message
  streamchat status, s              Server health
  streamchat config [subcommand]    Configuration
  streamchat version                Version information
  streamchat help                   This text

Serve Flags:
  --addr HOST:PORT                  Listen address (default 127.0.0.1:8787)
  --provider ollama|openai|echo     Model backend
  --model NAME                      Model for the selected backend

History Flags:
  --limit N                         Only the last N messages

Config Commands:
  streamchat config show            Print the effective configuration (keys redacted)
  streamchat config path            Print the config file path
  streamchat config init [--force]  Write a default config file
  streamchat config get KEY         Print one value (e.g. server.addr)
  streamchat config set KEY VALUE   Change one value in the config file
  streamchat config keys            List every settable key

Chat Commands (inside 'streamchat chat'):
  /help                             Show chat commands
  /history                          Print the conversation
  /clear                            Delete every message
  /quit                             Exit (Ctrl+D also exits)
  Ctrl+C                            Stop the reply being streamed

Global Flags:
  --config PATH                     Config file (default ~/.streamchat/config.toml)
  --server URL                      Server URL for client commands
  --json                            Output in JSON format
  -q, --quiet                       Errors only
  --verbose                         Debug logging

Environment:
  STREAMCHAT_CONFIG, STREAMCHAT_ADDR, STREAMCHAT_PROVIDER, STREAMCHAT_MODEL,
  STREAMCHAT_SERVER_URL, STREAMCHAT_LOG_LEVEL, OPENAI_API_KEY and others
  override the config file.

Examples:
  streamchat serve --provider echo  Offline demo server
  streamchat ask "What is Go?"      One-shot question
  streamchat history --json         Conversation as JSON
  streamchat config set provider.kind openai

Version: %s
`

// PrintUsage writes the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer, jsonMode bool) error {
	if jsonMode {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Write(w)
	}
	fmt.Fprintf(w, "streamchat version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s\n", runtime.Version())
	return nil
}

// Parse parses command-line arguments (without the program name) and
// returns the command and its args.
func Parse(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining
	p := NewArgParser(remaining)
	parsedArgs.JSON = parsedArgs.JSON || p.BoolFlag("json")

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "serve", "server":
		parsedArgs.Addr = p.Flag("addr")
		parsedArgs.Provider = p.Flag("provider")
		parsedArgs.Model = p.Flag("model")
		return CmdServe, parsedArgs

	case "chat", "repl":
		return CmdChat, parsedArgs

	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "history", "log":
		parsedArgs.Limit = p.FlagIntOrDefault("limit", 0)
		return CmdHistory, parsedArgs

	case "clear":
		parsedArgs.Confirm = p.BoolFlag("confirm") || p.BoolFlag("y") || p.BoolFlag("yes")
		return CmdClear, parsedArgs

	case "status", "s", "health":
		return CmdStatus, parsedArgs

	case "config":
		parsedArgs.Subcommand = p.Subcommand()
		parsedArgs.Confirm = p.BoolFlag("force")
		return CmdConfig, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown command: start the TUI with the words as a draft message.
		parsedArgs.Raw = append([]string{cmd}, remaining...)
		parsedArgs.Query = strings.Join(parsedArgs.Raw, " ")
		return CmdTUI, parsedArgs
	}
}

// parseAskArgs collects the question words. The generic ArgParser would
// take the word after a boolean flag as its value, so ask flags are
// matched by hand.
func parseAskArgs(args *Args, remaining []string) {
	var query []string
	for _, arg := range remaining {
		switch arg {
		case "--json":
			args.JSON = true
		case "-q", "--quiet":
			args.Quiet = true
		default:
			query = append(query, arg)
		}
	}
	args.Query = strings.Join(query, " ")
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
// Global flags are only recognised before the command word.
func parseGlobalFlags(args []string) ([]string, Args) {
	var parsedArgs Args

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")

		switch name {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--config", "--server":
			if !hasValue {
				if i+1 >= len(args) {
					continue
				}
				i++
				value = args[i]
			}
			if name == "--config" {
				parsedArgs.ConfigPath = value
			} else {
				parsedArgs.ServerURL = value
			}
		default:
			return args[i:], parsedArgs
		}
	}
	return nil, parsedArgs
}
