package faceimage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Store keeps face crops as JPEG files in one directory.
type Store struct {
	dir     string
	quality int
}

// NewStore creates the directory if needed.
func NewStore(dir string, quality int) (*Store, error) {
	if dir == "" {
		return nil, errors.New("face storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create face directory: %w", err)
	}
	return &Store{dir: dir, quality: quality}, nil
}

// FileName returns the file name used for an external key. Keys with unsafe
// characters get a hash suffix so that distinct keys never share a file.
func FileName(externalKey string) string {
	safe := unsafeFileChars.ReplaceAllString(externalKey, "_")
	if safe != externalKey {
		sum := sha256.Sum256([]byte(externalKey))
		safe += "_" + hex.EncodeToString(sum[:4])
	}
	return "face_" + safe + ".jpg"
}

// Save writes img for externalKey and returns the file path.
func (s *Store) Save(externalKey string, img image.Image) (string, error) {
	path := filepath.Join(s.dir, FileName(externalKey))
	if err := imaging.Save(img, path, imaging.JPEGQuality(s.quality)); err != nil {
		return "", fmt.Errorf("save face image: %w", err)
	}
	return path, nil
}

// Delete removes a stored image. A missing file is not an error.
func (s *Store) Delete(path string) error {
	if path == "" {
		return nil
	}
	if err := s.contains(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete face image: %w", err)
	}
	return nil
}

// Read returns the bytes of a stored image.
func (s *Store) Read(path string) ([]byte, error) {
	if err := s.contains(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read face image: %w", err)
	}
	return data, nil
}

// contains rejects paths outside the storage directory.
func (s *Store) contains(path string) error {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path %q is outside face storage", path)
	}
	return nil
}
