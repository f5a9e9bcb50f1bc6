// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import "github.com/atotto/clipboard"

// SystemClipboard writes to the OS clipboard (xclip/xsel/wl-copy on Linux).
type SystemClipboard struct{}

func (SystemClipboard) WriteString(text string) error {
	return clipboard.WriteAll(text)
}
