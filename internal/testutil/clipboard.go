// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package testutil

// Clipboard stores the last written text. Err, if set, is returned instead.
type Clipboard struct {
	Text   string
	Writes int
	Err    error
}

func (c *Clipboard) WriteString(text string) error {
	if c.Err != nil {
		return c.Err
	}
	c.Text = text
	c.Writes++
	return nil
}
