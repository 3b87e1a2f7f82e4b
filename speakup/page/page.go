// Package page renders learning pages and stores them as static HTML files.
package page

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/makeitchaccha/speakup/speakup/dialogue"
	"github.com/makeitchaccha/speakup/speakup/i18n"
)

//go:embed templates/*.tmpl
var templates embed.FS

const maxAttempts = 1000

type Page struct {
	Topic    string
	Dialogue []dialogue.Line
	Keywords []dialogue.Keyword
}

type Saved struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Path     string `json:"-"`
}

type Store interface {
	Save(ctx context.Context, p Page) (Saved, error)
}

var _ Store = (*Writer)(nil)

// Writer renders pages into dir. A page never overwrites another one: a
// topic that already has a file gets a numbered name instead.
type Writer struct {
	dir       string
	urlPrefix string
	text      i18n.PageText
	tmpl      *template.Template
}

func NewWriter(dir, urlPrefix string, text i18n.PageText) (*Writer, error) {
	tmpl, err := template.ParseFS(templates, "templates/learn.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create generated directory: %w", err)
	}

	return &Writer{
		dir:       dir,
		urlPrefix: urlPrefix,
		text:      text,
		tmpl:      tmpl,
	}, nil
}

func (w *Writer) Render(out io.Writer, p Page) error {
	return w.tmpl.ExecuteTemplate(out, "learn.html.tmpl", struct {
		Page
		Text i18n.PageText
	}{Page: p, Text: w.text})
}

func (w *Writer) Save(ctx context.Context, p Page) (Saved, error) {
	var buf bytes.Buffer
	if err := w.Render(&buf, p); err != nil {
		return Saved{}, fmt.Errorf("failed to render page: %w", err)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Saved{}, err
		}

		name := Filename(p.Topic, attempt)
		filePath := filepath.Join(w.dir, name)
		f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return Saved{}, fmt.Errorf("failed to create page file: %w", err)
		}

		_, err = f.Write(buf.Bytes())
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(filePath)
			return Saved{}, fmt.Errorf("failed to write page file: %w", err)
		}

		slog.Info("Saved page", slog.String("topic", p.Topic), slog.String("file", name), slog.Int("bytes", buf.Len()))
		return Saved{
			Filename: name,
			URL:      path.Join(w.urlPrefix, name),
			Path:     filePath,
		}, nil
	}

	return Saved{}, fmt.Errorf("failed to find a free file name for topic %q", p.Topic)
}
