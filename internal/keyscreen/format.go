// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package keyscreen

import (
	"time"

	"github.com/toeirei/wgkeys/internal/i18n"
	"github.com/toeirei/wgkeys/internal/model"
)

const (
	day  = 24 * time.Hour
	year = 365 * day
)

// AgeLabel renders how long ago key was generated using the largest whole
// unit. A missing key or a creation time in the future renders as "-".
func AgeLabel(key *model.KeyMetadata, now time.Time) string {
	if key == nil {
		return i18n.T("key_screen.no_value")
	}
	d := now.Sub(key.CreatedAt)
	if d < 0 {
		return i18n.T("key_screen.no_value")
	}
	var elapsed string
	switch {
	case d >= year:
		elapsed = i18n.Plural("age.years", int(d/year))
	case d >= day:
		elapsed = i18n.Plural("age.days", int(d/day))
	case d >= time.Hour:
		elapsed = i18n.Plural("age.hours", int(d/time.Hour))
	case d >= time.Minute:
		elapsed = i18n.Plural("age.minutes", int(d/time.Minute))
	default:
		elapsed = i18n.T("key_screen.age_less_than_minute")
	}
	return i18n.T("key_screen.age_format", elapsed)
}

// KeyLabel renders key truncated to maxLen runes, or "-" when absent.
func KeyLabel(key *model.KeyMetadata, maxLen int) string {
	if key == nil {
		return i18n.T("key_screen.no_value")
	}
	return key.Display(maxLen)
}
