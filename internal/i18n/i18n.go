// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

// package i18n provides internationalization and localization support for wgkeys.
// It uses the go-i18n library to load and manage translation files, allowing the
// key screen and CLI output to be displayed in multiple languages.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// localeFS embeds the YAML translation files from the 'locales' directory
// into the application binary.
//
//go:embed locales/*.yaml
var localeFS embed.FS

var (
	mu        sync.RWMutex
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	current   string
)

// displayNames maps locale codes to the name shown in language pickers.
var displayNames = map[string]string{
	"en": "English",
	"de": "Deutsch",
}

// Init initializes the i18n bundle and sets up the localizer for a specific language.
// It parses all embedded YAML files from the 'locales' directory.
func Init(lang string) {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, _ := fs.ReadDir(localeFS, "locales")
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			continue
		}
		_, _ = b.ParseMessageFileBytes(data, f.Name())
	}

	mu.Lock()
	defer mu.Unlock()
	bundle = b
	localizer = i18n.NewLocalizer(b, lang)
	current = lang
}

func ensureInit() *i18n.Localizer {
	mu.RLock()
	l := localizer
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init("en")
	mu.RLock()
	defer mu.RUnlock()
	return localizer
}

// T translates a message by its ID. A single map argument is passed as
// template data; any other arguments are applied fmt-style to the
// translated text. Unknown IDs are returned unchanged.
func T(messageID string, args ...any) string {
	l := ensureInit()

	cfg := &i18n.LocalizeConfig{MessageID: messageID}
	if len(args) == 1 {
		if data, ok := args[0].(map[string]any); ok {
			cfg.TemplateData = data
			args = nil
		}
	}
	msg, err := l.Localize(cfg)
	if err != nil {
		return messageID
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// Plural translates a message with plural forms for count. The count is
// available to the template as {{.Count}}.
func Plural(messageID string, count int) string {
	l := ensureInit()
	msg, err := l.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
	if err != nil {
		return fmt.Sprintf("%d %s", count, messageID)
	}
	return msg
}

// SetLang changes the active language of the localizer.
func SetLang(lang string) {
	Init(lang)
}

// GetLang returns the language passed to the last Init.
func GetLang() string {
	ensureInit()
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// GetAvailableLocales returns the loaded locale codes mapped to their
// display names.
func GetAvailableLocales() map[string]string {
	ensureInit()
	mu.RLock()
	defer mu.RUnlock()
	out := make(map[string]string)
	for _, tag := range bundle.LanguageTags() {
		code := tag.String()
		name, ok := displayNames[code]
		if !ok {
			name = code
		}
		out[code] = name
	}
	return out
}

// SortedLocales returns the available locale codes in stable order.
func SortedLocales() []string {
	av := GetAvailableLocales()
	codes := make([]string, 0, len(av))
	for c := range av {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
