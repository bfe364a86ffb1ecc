// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the streamchat
terminal clients.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. The CLI commands and the chat TUI share this palette.

# Color System (colors.go)

  - Purple - assistant messages, titles
  - Cyan - user messages, prompts, key hints
  - Emerald - success
  - Amber - warnings, pending confirmations
  - Rose - errors

Status helpers (RenderSuccess, RenderError, RenderWarning, RenderInfo) pair
each color with an ASCII shape so state is readable without color.

# Theme System (theme.go)

Theme holds the lipgloss styles of the chat screen and the terminal's
detected profile:

	theme := styles.NewTheme()
	theme.SetSize(width, height)
	header := theme.Header.Width(width).Render(title)

# Animations (animations.go)

Spinner presets convert to bubbles spinners:

	s := spinner.New(spinner.WithSpinner(styles.DotsSpinner.Bubbles()))
*/
package styles
