// Package store reads and writes the JSON documents that stages exchange through directories.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Dir is a flat directory of JSON documents keyed by file name.
type Dir struct {
	path string
}

// Open returns a Dir rooted at path, creating it when missing.
func Open(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	return &Dir{path: path}, nil
}

// At returns a Dir without touching the filesystem. Reads against a missing
// directory report ErrNotFound.
func At(path string) *Dir {
	return &Dir{path: path}
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// File returns the full path of a document.
func (d *Dir) File(name string) string {
	return filepath.Join(d.path, name)
}

// Exists reports whether a document is present.
func (d *Dir) Exists(name string) bool {
	_, err := os.Stat(d.File(name))

	return err == nil
}

// List returns the sorted names of regular files matching prefix and suffix.
func (d *Dir) List(prefix, suffix string) ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", d.path, err)
	}

	var names []string

	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}

		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix) {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names, nil
}

// ReadFile returns the raw bytes of a document.
func (d *Dir) ReadFile(name string) ([]byte, error) {
	data, err := os.ReadFile(d.File(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}

		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	return data, nil
}

// ReadJSON decodes a document into v.
func (d *Dir) ReadJSON(name string, v any) error {
	data, err := d.ReadFile(name)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}

	return nil
}

// WriteJSON encodes v as indented UTF-8 JSON and replaces the document atomically.
func (d *Dir) WriteJSON(name string, v any) error {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	return d.WriteFile(name, buf.Bytes())
}

// WriteFile writes data to a temp file in the same directory and renames it into place.
func (d *Dir) WriteFile(name string, data []byte) error {
	if err := os.MkdirAll(d.path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", d.path, err)
	}

	tmp, err := os.CreateTemp(d.path, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("failed to close %s: %w", name, err)
	}

	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("failed to chmod %s: %w", name, err)
	}

	if err := os.Rename(tmpName, d.File(name)); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("failed to rename %s: %w", name, err)
	}

	return nil
}

// Remove deletes a document. A missing document is not an error.
func (d *Dir) Remove(name string) error {
	if err := os.Remove(d.File(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}

	return nil
}

// PruneOlderThan deletes regular files whose mtime is before cutoff and for which
// keep returns false. It returns the deleted names.
func (d *Dir) PruneOlderThan(cutoff time.Time, keep func(name string) bool) ([]string, error) {
	names, err := d.List("", "")
	if err != nil {
		return nil, err
	}

	var deleted []string

	for _, name := range names {
		if keep != nil && keep(name) {
			continue
		}

		info, err := os.Stat(d.File(name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return deleted, fmt.Errorf("failed to stat %s: %w", name, err)
		}

		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := d.Remove(name); err != nil {
			return deleted, err
		}

		deleted = append(deleted, name)
	}

	return deleted, nil
}
