// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

// Command wgkeys manages the WireGuard key of this device.
//
// Usage:
//
//	wgkeys [flags]            launch the key screen
//	wgkeys key show|verify|regenerate|copy
//	wgkeys account create|login|logout|get
//
// See --help for everything else.
package main

import (
	"os"
)

// Set by the linker, e.g. -ldflags "-X main.version=1.2.3".
var (
	version   = "dev"
	gitCommit = "none"
	buildDate = "unknown"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		// The error is already printed by Cobra on failure.
		os.Exit(1)
	}
}
