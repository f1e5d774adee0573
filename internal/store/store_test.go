package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

func TestDir_WriteReadJSON(t *testing.T) {
	d, err := Open(filepath.Join(t.TempDir(), "clean"))
	require.NoError(t, err)

	in := doc{Title: "Economía <hoy>", Text: "dólar & tasas"}
	require.NoError(t, d.WriteJSON("a.json", in))
	assert.True(t, d.Exists("a.json"))

	raw, err := d.ReadFile("a.json")
	require.NoError(t, err)
	// UTF-8 and markup are written as-is.
	assert.Contains(t, string(raw), "Economía <hoy>")
	assert.Contains(t, string(raw), "dólar & tasas")

	var out doc
	require.NoError(t, d.ReadJSON("a.json", &out))
	assert.Equal(t, in, out)

	// No temp files left behind.
	entries, err := os.ReadDir(d.Path())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDir_ReadMissing(t *testing.T) {
	d := At(filepath.Join(t.TempDir(), "nope"))

	var out doc
	err := d.ReadJSON("x.json", &out)
	assert.True(t, errors.Is(err, ErrNotFound))

	names, err := d.List("", ".json")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDir_ReadMalformed(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(d.File("bad.json"), []byte("{not json"), 0644))

	var out doc
	err = d.ReadJSON("bad.json", &out)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestDir_List(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"rss_b.json", "rss_a.json", "cc_a.json", "notes.txt"} {
		require.NoError(t, d.WriteFile(name, []byte("{}")))
	}
	require.NoError(t, os.Mkdir(d.File("sub.json"), 0755))

	names, err := d.List("", ".json")
	require.NoError(t, err)
	assert.Equal(t, []string{"cc_a.json", "rss_a.json", "rss_b.json"}, names)

	names, err = d.List("rss_", ".json")
	require.NoError(t, err)
	assert.Equal(t, []string{"rss_a.json", "rss_b.json"}, names)
}

func TestDir_PruneOlderThan(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)

	for _, name := range []string{"correlations_1.json", "correlations_latest.json", "correlations_2.json"} {
		require.NoError(t, d.WriteFile(name, []byte("{}")))
	}
	require.NoError(t, os.Chtimes(d.File("correlations_1.json"), old, old))
	require.NoError(t, os.Chtimes(d.File("correlations_latest.json"), old, old))

	deleted, err := d.PruneOlderThan(time.Now().Add(-24*time.Hour), func(name string) bool {
		return strings.HasSuffix(name, "_latest.json")
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"correlations_1.json"}, deleted)
	assert.True(t, d.Exists("correlations_latest.json"))
	assert.True(t, d.Exists("correlations_2.json"))
}

func TestDir_RemoveMissing(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, d.Remove("ghost.json"))
}
