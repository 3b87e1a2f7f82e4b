// Package history lists and deletes the pages stored in the generated directory.
package history

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/makeitchaccha/speakup/speakup/page"
)

var (
	ErrNotFound        = errors.New("history entry not found")
	ErrInvalidArgument = errors.New("invalid history file name")
)

type Entry struct {
	Filename  string    `json:"filename"`
	Topic     string    `json:"topic"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size"`
}

type Store struct {
	dir       string
	urlPrefix string
}

func NewStore(dir, urlPrefix string) *Store {
	return &Store{
		dir:       dir,
		urlPrefix: urlPrefix,
	}
}

// List returns the stored pages, newest first. A missing directory is an empty history.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read generated directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		topic, ok := page.TopicFromFilename(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// removed between ReadDir and Info
			slog.Debug("skipping history entry", slog.String("file", de.Name()), slog.Any("err", err))
			continue
		}
		entries = append(entries, Entry{
			Filename:  de.Name(),
			Topic:     topic,
			URL:       path.Join(s.urlPrefix, de.Name()),
			CreatedAt: info.ModTime(),
			SizeBytes: info.Size(),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].Filename < entries[j].Filename
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// Delete removes one stored page. The name must resolve to a file directly
// inside the generated directory, after following symlinks.
func (s *Store) Delete(filename string) error {
	target, err := s.resolve(filename)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s: %w", filename, err)
	}
	slog.Info("Deleted page", slog.String("file", filename))
	return nil
}

func (s *Store) resolve(filename string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidArgument)
	}
	if filepath.IsAbs(filename) {
		return "", fmt.Errorf("%w: %s", ErrInvalidArgument, filename)
	}

	root, err := filepath.Abs(s.dir)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	target, err := filepath.Abs(filepath.Join(root, filename))
	if err != nil {
		return "", err
	}
	if !within(root, target) {
		return "", fmt.Errorf("%w: %s", ErrInvalidArgument, filename)
	}

	info, err := os.Lstat(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrInvalidArgument, filename)
	}

	// a link leaving the directory is an escape attempt
	if info.Mode()&os.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(target)
		if err != nil || !within(root, resolved) {
			return "", fmt.Errorf("%w: %s", ErrInvalidArgument, filename)
		}
	}
	return target, nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
