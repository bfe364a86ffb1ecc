// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses the streamchat command line and runs every command
// except the terminal UI.
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	if err := cli.Run(ctx, cmd, args, cli.DefaultEnv()); err != nil {
//	    cli.DisplayError(os.Stderr, cmd.String(), err, args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//
// # Commands
//
//   - serve: run the HTTP server (message store, stream relay)
//   - chat: line-oriented REPL over the server
//   - ask: send one message and stream the reply to stdout
//   - history, clear: read or delete the conversation
//   - status: server and provider health
//   - config: show, path, init, get, set, keys
//
// With --json every command writes a single JSONResponse envelope.
// Exit codes are derived from the returned error by GetExitCode.
package cli
