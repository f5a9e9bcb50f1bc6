// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package wgkey

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestGeneratePrivateKey_Clamped(t *testing.T) {
	prev := randReader
	randReader = bytes.NewReader(bytes.Repeat([]byte{0xff}, KeyLen))
	defer func() { randReader = prev }()

	k, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	if k[0]&7 != 0 {
		t.Fatalf("low bits of first byte not cleared: %08b", k[0])
	}
	if k[31]&128 != 0 || k[31]&64 == 0 {
		t.Fatalf("last byte not clamped: %08b", k[31])
	}
}

func TestGeneratePrivateKey_ShortRead(t *testing.T) {
	prev := randReader
	randReader = bytes.NewReader([]byte{1, 2, 3})
	defer func() { randReader = prev }()

	if _, err := GeneratePrivateKey(); err == nil {
		t.Fatalf("expected error on short random read")
	}
}

func TestPublicKey_Deterministic(t *testing.T) {
	k, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	p1, err := k.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	p2, _ := k.PublicKey()
	if p1 != p2 {
		t.Fatalf("public key derivation is not deterministic")
	}
	if p1.IsZero() {
		t.Fatalf("derived public key is zero")
	}
}

func TestParseKey_RoundTrip(t *testing.T) {
	k, _ := GeneratePrivateKey()
	pub, _ := k.PublicKey()

	s := pub.String()
	if len(s) != 44 {
		t.Fatalf("expected 44 char base64 key, got %d (%q)", len(s), s)
	}
	got, err := ParseKey(s)
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	if got != pub {
		t.Fatalf("ParseKey returned a different key")
	}
}

func TestParseKey_Invalid(t *testing.T) {
	for _, in := range []string{"", "not base64!", "AAAA"} {
		if _, err := ParseKey(in); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("ParseKey(%q): expected ErrInvalidKey, got %v", in, err)
		}
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"abcdef", 0, "abcdef"},
		{"abcdef", 6, "abcdef"},
		{"abcdef", 10, "abcdef"},
		{"abcdef", 4, "abc…"},
		{"abcdef", 1, "…"},
	}
	for _, c := range cases {
		if got := Truncate(c.in, c.max); got != c.want {
			t.Fatalf("Truncate(%q, %d) = %q, want %q", c.in, c.max, got, c.want)
		}
	}
}

func TestDisplay_Length(t *testing.T) {
	k, _ := GeneratePrivateKey()
	pub, _ := k.PublicKey()
	d := pub.Display(20)
	if utf8.RuneCountInString(d) != 20 {
		t.Fatalf("expected 20 runes, got %d (%q)", utf8.RuneCountInString(d), d)
	}
	if !strings.HasPrefix(pub.String(), strings.TrimSuffix(d, "…")) {
		t.Fatalf("display %q is not a prefix of %q", d, pub.String())
	}
}
