// Package i18n loads localized text from TOML files named after their locale.
package i18n

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
)

type genericResources[S ~string, T any] map[S]T

func (r genericResources[S, T]) Get(locale S) (T, bool) {
	resource, ok := r[locale]
	return resource, ok
}

// GetOrGeneric falls back from a regional locale ("en-GB") to its
// language ("en"), then to any locale sharing the language ("en-US").
func (r genericResources[S, T]) GetOrGeneric(locale S) (T, bool) {
	if resource, ok := r[locale]; ok {
		return resource, true
	}

	language, _, _ := strings.Cut(string(locale), "-")
	if resource, ok := r[S(language)]; ok {
		return resource, true
	}
	for candidate, resource := range r {
		if l, _, _ := strings.Cut(string(candidate), "-"); l == language {
			return resource, true
		}
	}

	var zero T
	return zero, false
}

func load[S ~string, T any, U ~map[S]T](fsys fs.FS, directory string, resources U) error {
	entries, err := fs.ReadDir(fsys, directory)
	if err != nil {
		return fmt.Errorf("failed to read text resources directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			// Skip directories
			continue
		}

		if !strings.HasSuffix(entry.Name(), ".toml") {
			// Skip non-TOML files
			continue
		}

		locale := strings.TrimSuffix(entry.Name(), ".toml")
		filePath := path.Join(directory, entry.Name())

		data, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return fmt.Errorf("failed to open text resource file %s: %w", filePath, err)
		}

		var resource T
		metadata, err := toml.Decode(string(data), &resource)
		if err != nil {
			return fmt.Errorf("failed to decode text resource file %s: %w", filePath, err)
		}

		if len(metadata.Undecoded()) > 0 {
			slog.Warn("text resource file contains undecoded fields", "file", filePath, "fields", metadata.Undecoded())
			return fmt.Errorf("text resource file %s contains undecoded fields: %v", filePath, metadata.Undecoded())
		}

		resources[S(locale)] = resource
		slog.Debug("Loaded text resource", "locale", locale, "file", filePath)
	}

	return nil
}
