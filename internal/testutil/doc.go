// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package testutil holds test doubles shared by the keyscreen, tunnel and tui
// tests. Nothing here is used by production code.
package testutil
