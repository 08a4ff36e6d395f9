// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the rigchat TUI.

Colors are Lip Gloss AdaptiveColor values so the same palette works on light
and dark terminals. Theme bundles the styles used by the chat view and picks
a layout mode from the terminal width:

	theme := styles.NewTheme()
	theme.SetSize(120, 40)
	if w := theme.SidebarWidth(); w > 0 {
		// render the session list
	}
*/
package styles
