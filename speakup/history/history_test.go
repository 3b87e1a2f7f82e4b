package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string, modTime time.Time) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(p, modTime, modTime))
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	writeFile(t, dir, "learn_at_the_airport.html", "<html>airport</html>", base)
	writeFile(t, dir, "learn_ordering_at_a_restaurant.html", "<html>restaurant</html>", base.Add(2*time.Hour))
	writeFile(t, dir, "learn_ordering_at_a_restaurant.2.html", "<html>restaurant 2</html>", base.Add(time.Hour))
	writeFile(t, dir, "notes.txt", "not a page", base.Add(3*time.Hour))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "learn_dir.html"), 0o755))

	entries, err := NewStore(dir, "/generated").List()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "learn_ordering_at_a_restaurant.html", entries[0].Filename)
	assert.Equal(t, "ordering at a restaurant", entries[0].Topic)
	assert.Equal(t, "/generated/learn_ordering_at_a_restaurant.html", entries[0].URL)
	assert.Equal(t, int64(len("<html>restaurant</html>")), entries[0].SizeBytes)
	assert.True(t, entries[0].CreatedAt.Equal(base.Add(2*time.Hour)))

	assert.Equal(t, "learn_ordering_at_a_restaurant.2.html", entries[1].Filename)
	assert.Equal(t, "ordering at a restaurant", entries[1].Topic)
	assert.Equal(t, "learn_at_the_airport.html", entries[2].Filename)
}

func TestListMissingDirectory(t *testing.T) {
	entries, err := NewStore(filepath.Join(t.TempDir(), "missing"), "/generated").List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "learn_topic.html", "x", time.Now())
	store := NewStore(dir, "/generated")

	require.NoError(t, store.Delete("learn_topic.html"))
	_, err := os.Stat(filepath.Join(dir, "learn_topic.html"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.ErrorIs(t, store.Delete("learn_topic.html"), ErrNotFound)
}

func TestDeleteRejectsEscapes(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "generated")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeFile(t, parent, "secret.html", "secret", time.Now())
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(parent, "secret.html"), filepath.Join(dir, "learn_link.html")))

	store := NewStore(dir, "/generated")

	testcases := []struct {
		name     string
		filename string
	}{
		{name: "parent traversal", filename: "../../etc/passwd"},
		{name: "sibling file", filename: "../secret.html"},
		{name: "absolute path", filename: filepath.Join(parent, "secret.html")},
		{name: "empty", filename: ""},
		{name: "directory itself", filename: "."},
		{name: "subdirectory", filename: "sub"},
		{name: "symlink out of directory", filename: "learn_link.html"},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Delete(tc.filename)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	_, err := os.Stat(filepath.Join(parent, "secret.html"))
	assert.NoError(t, err, "the file outside the directory must survive")
}
