// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat is the Bubble Tea chat screen.

The screen renders the history cache and the live stream state; it never
owns conversation data. Three sources feed the Update loop through
tea.Program.Send:

  - history.Cache.OnChange delivers the message list (historyMsg)
  - stream.Consumer's OnState delivers the reply being streamed (stateMsg)
  - stream.Consumer's OnNotify delivers failures (notifyMsg), shown as toasts

Sending runs Consumer.Send inside a tea.Cmd so the read loop never blocks
rendering. Esc calls Consumer.Stop, which is safe from the Update goroutine.

# Keys

	Enter       send the message
	Alt+Enter   new line
	Esc         stop the reply being streamed
	Ctrl+N      new chat (press twice to clear the conversation)
	1-4         send a suggestion from the empty screen
	PgUp/PgDn   scroll
	Ctrl+C      quit
*/
package chat
