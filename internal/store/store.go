// Package store keeps saved documents as markup files in a directory.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Ext is the extension of every stored document.
const Ext = ".html"

var (
	// ErrNotFound is returned for names with no stored document.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidName is returned for names that sanitize to nothing.
	ErrInvalidName = errors.New("invalid document name")
)

// Entry describes one stored document.
type Entry struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// FileStore saves documents under Dir as <name>.html.
type FileStore struct {
	Dir string
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

// Sanitize reduces name to a safe base file name without extension.
func Sanitize(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, Ext)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ". ")
	if out == "" || out == "_" {
		return ""
	}
	return out
}

func (s *FileStore) path(name string) (string, error) {
	clean := Sanitize(name)
	if clean == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.Dir, clean+Ext), nil
}

// Save writes r under name, replacing any previous document. The write
// goes through a temporary file so readers never see a partial document.
func (s *FileStore) Save(name string, r io.Reader) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.Dir, ".pagedit-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	return nil
}

// Load opens the document stored under name. The caller closes it.
func (s *FileStore) Load(name string) (io.ReadCloser, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, Sanitize(name))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return f, nil
}

// Delete removes the document stored under name.
func (s *FileStore) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, Sanitize(name))
	}
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// List returns the stored documents sorted by name.
func (s *FileStore) List() ([]Entry, error) {
	items, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read store directory: %w", err)
	}
	var out []Entry
	for _, it := range items {
		if it.IsDir() || !strings.HasSuffix(it.Name(), Ext) || strings.HasPrefix(it.Name(), ".") {
			continue
		}
		info, err := it.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Name:     strings.TrimSuffix(it.Name(), Ext),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
