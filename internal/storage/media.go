// Package storage keeps listing images on the local filesystem and serves
// them under a public URL prefix.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrNotImage = errors.New("unsupported image type")

var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageExt sniffs data and returns the file extension for a supported image.
func ImageExt(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if ext, ok := allowed[m.String()]; ok {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotImage, mt.String())
}

type MediaStore struct {
	Dir     string
	BaseURL string
}

func NewMediaStore(dir, baseURL string) *MediaStore {
	return &MediaStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (m *MediaStore) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("bad storage key %q", key)
	}
	return filepath.Join(m.Dir, clean), nil
}

// Put writes data under key and returns its public URL.
func (m *MediaStore) Put(key string, data []byte) (string, error) {
	full, err := m.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return m.URL(key), nil
}

// Delete removes key; a missing object is not an error.
func (m *MediaStore) Delete(key string) error {
	full, err := m.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (m *MediaStore) URL(key string) string {
	return m.BaseURL + "/" + path.Clean(key)
}
