// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package logging

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	clog "github.com/charmbracelet/log"
)

// TestLoggingHelpers_WriteToBuffer verifies the package helper functions write
// formatted messages to the package-level logger `L`. The test swaps `L` with
// a buffer-backed logger and restores it afterwards.
func TestLoggingHelpers_WriteToBuffer(t *testing.T) {
	var buf bytes.Buffer
	prev := L
	L = clog.New(&buf)
	L.SetLevel(clog.DebugLevel)
	defer func() { L = prev }()

	Debugf("hello %s", "dbg")
	Infof("info %d", 1)
	Warnf("warn")
	Errorf("err %v", "E")

	out := buf.String()
	for _, want := range []string{"hello dbg", "info 1", "warn", "err E"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output; got: %s", want, out)
		}
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := L
	L = clog.New(&buf)
	defer func() { L = prev }()

	if err := SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	Infof("quiet")
	Warnf("loud")
	if strings.Contains(buf.String(), "quiet") {
		t.Fatalf("info message leaked at warn level: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "loud") {
		t.Fatalf("warn message missing: %s", buf.String())
	}
	if err := SetLevel("chatty"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

type codeErr struct{ code string }

func (e codeErr) Error() string { return "server error " + e.code }

func TestErrorChain(t *testing.T) {
	root := codeErr{code: "PUBKEY_NOT_FOUND"}
	mid := fmt.Errorf("GET /v1/wireguard-keys: %w", root)
	outer := &wrapper{msg: "verify key", err: mid}

	got := ErrorChain(outer)
	want := "verify key: GET /v1/wireguard-keys: server error PUBKEY_NOT_FOUND"
	if got != want {
		t.Fatalf("ErrorChain = %q, want %q", got, want)
	}
	if ErrorChain(nil) != "" {
		t.Fatalf("expected empty chain for nil")
	}
	if got := ErrorChain(errors.New("plain")); got != "plain" {
		t.Fatalf("ErrorChain(plain) = %q", got)
	}
}

type wrapper struct {
	msg string
	err error
}

func (w *wrapper) Error() string { return w.msg }
func (w *wrapper) Unwrap() error { return w.err }

func TestErrorChainf_LogsChain(t *testing.T) {
	var buf bytes.Buffer
	prev := L
	L = clog.New(&buf)
	defer func() { L = prev }()

	ErrorChainf(&wrapper{msg: "outer", err: errors.New("inner")}, "failed to %s", "regenerate")
	out := buf.String()
	if !strings.Contains(out, "failed to regenerate") || !strings.Contains(out, "outer: inner") {
		t.Fatalf("unexpected log output: %s", out)
	}
}
