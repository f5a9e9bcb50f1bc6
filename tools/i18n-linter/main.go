// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks the locale files against the source tree. It fails
// when a key used in code is missing from a locale and warns about keys no
// code uses.
//
//	go run ./tools/i18n-linter
package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
	projectRoot   = "."
)

// pluralForms are the CLDR categories go-i18n accepts under a plural key.
var pluralForms = map[string]bool{
	"zero": true, "one": true, "two": true, "few": true, "many": true, "other": true,
}

var keyCallRe = regexp.MustCompile(`i18n\.(?:T|Plural)\("([^"]+)"`)

// report is the outcome of one lint run.
type report struct {
	used     map[string][]string // key -> files using it
	orphaned []string
	// missing maps locale file to keys it lacks.
	missing map[string][]string
}

func (r *report) failed() bool {
	return len(r.missing) > 0
}

func main() {
	r, err := lint(projectRoot, localesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "i18n-linter: %v\n", err)
		os.Exit(1)
	}
	r.print(os.Stdout)
	if r.failed() {
		os.Exit(1)
	}
}

func lint(root, locales string) (*report, error) {
	used, err := findUsedKeys(root)
	if err != nil {
		return nil, fmt.Errorf("scan sources: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(locales, "*.yaml"))
	if err != nil {
		return nil, err
	}
	primary, err := loadKeysFromLocale(filepath.Join(locales, primaryLocale))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", primaryLocale, err)
	}

	r := &report{used: used, missing: make(map[string][]string)}
	for key := range primary {
		if _, ok := used[key]; !ok {
			r.orphaned = append(r.orphaned, key)
		}
	}
	sort.Strings(r.orphaned)

	for _, file := range files {
		keys, err := loadKeysFromLocale(file)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
		var missing []string
		for key := range used {
			if _, ok := keys[key]; !ok {
				missing = append(missing, key)
			}
		}
		if filepath.Base(file) != primaryLocale {
			for key := range primary {
				if _, ok := keys[key]; !ok && !contains(missing, key) {
					missing = append(missing, key)
				}
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			r.missing[filepath.Base(file)] = missing
		}
	}
	return r, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r *report) print(w io.Writer) {
	fmt.Fprintf(w, "Found %d translation keys used in source code.\n\n", len(r.used))

	fmt.Fprintln(w, "--- Orphaned keys (in primary locale, unused in code) ---")
	if len(r.orphaned) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, key := range r.orphaned {
		fmt.Fprintf(w, "  - %s\n", key)
	}

	fmt.Fprintln(w, "\n--- Missing keys ---")
	if len(r.missing) == 0 {
		fmt.Fprintln(w, "  none")
	}
	locales := make([]string, 0, len(r.missing))
	for l := range r.missing {
		locales = append(locales, l)
	}
	sort.Strings(locales)
	for _, l := range locales {
		for _, key := range r.missing[l] {
			fmt.Fprintf(w, "  - %s: %s (used in %s)\n", l, key, strings.Join(r.used[key], ", "))
		}
	}
}

// findUsedKeys collects the literal keys passed to i18n.T and i18n.Plural
// in non-test Go files, skipping tools/ and _examples-style directories.
func findUsedKeys(root string) (map[string][]string, error) {
	keys := make(map[string][]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (name == "tools" || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, m := range keyCallRe.FindAllStringSubmatch(string(content), -1) {
			if !contains(keys[m[1]], path) {
				keys[m[1]] = append(keys[m[1]], path)
			}
		}
		return nil
	})
	return keys, err
}

// loadKeysFromLocale returns the message IDs defined in a locale file.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	flattenYAML("", data, keys)
	return keys, nil
}

// flattenYAML flattens nested maps into dot-separated IDs. A map holding
// only plural categories is a single message.
func flattenYAML(prefix string, node any, keys map[string]struct{}) {
	m, ok := node.(map[string]any)
	if !ok || (prefix != "" && isPluralMap(m)) {
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
		return
	}
	for k, val := range m {
		next := k
		if prefix != "" {
			next = prefix + "." + k
		}
		flattenYAML(next, val, keys)
	}
}

func isPluralMap(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !pluralForms[k] {
			return false
		}
	}
	return true
}
