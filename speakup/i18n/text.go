package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
)

//go:embed locales/*.toml
var embedded embed.FS

type Locale string

// PageText holds the labels of a generated learning page.
type PageText struct {
	Lang        string `toml:"lang"`         // format: "en"
	TitleSuffix string `toml:"title_suffix"` // format: "English Speaking Practice"
	Keywords    string `toml:"keywords"`     // format: "Key Vocabulary"
	Source      string `toml:"source"`       // format: "Chinese"
	Target      string `toml:"target"`       // format: "English"
	Audio       string `toml:"audio"`        // format: "Audio"
	NoAudio     string `toml:"no_audio"`     // format: "No audio"
	Back        string `toml:"back"`         // format: "← Back"
}

type TextResources struct {
	genericResources[Locale, PageText]
	fallbackLocale Locale
}

// LoadTextResources loads the locales bundled with the binary.
func LoadTextResources(fallbackLocale string) (*TextResources, error) {
	return LoadTextResourcesFS(embedded, "locales", fallbackLocale)
}

func LoadTextResourcesFS(fsys fs.FS, directory string, fallbackLocale string) (*TextResources, error) {
	resources := &TextResources{
		genericResources: make(genericResources[Locale, PageText]),
		fallbackLocale:   Locale(fallbackLocale),
	}

	if err := load(fsys, directory, resources.genericResources); err != nil {
		return nil, err
	}

	for locale, resource := range resources.genericResources {
		if errs := validateResource(resource, string(locale)); len(errs) > 0 {
			return nil, fmt.Errorf("incomplete text resource %s: %w", locale, errors.Join(errs...))
		}
	}

	// validate that the fallback locale is present
	if _, ok := resources.genericResources[resources.fallbackLocale]; !ok {
		return nil, fmt.Errorf("fallback locale %s not found in text resources", fallbackLocale)
	}

	return resources, nil
}

// Lookup returns the text for locale, or the fallback locale's text.
func (trs *TextResources) Lookup(locale string) PageText {
	if resource, ok := trs.GetOrGeneric(Locale(locale)); ok {
		return resource
	}
	return trs.GetFallback()
}

func (trs *TextResources) GetFallback() PageText {
	resource, ok := trs.genericResources[trs.fallbackLocale]
	if !ok {
		// it won't happen because we validated it in LoadTextResources
		// but we panic here to make sure we catch it during development
		panic(fmt.Sprintf("fallback locale %s not found in text resources", trs.fallbackLocale))
	}
	return resource
}
