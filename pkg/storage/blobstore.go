package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore persists content-addressed blobs on disk. The locator returned by
// Put is derived from the content hash, so storing the same bytes twice is a
// no-op and always yields the same locator.
type BlobStore struct {
	baseDir string
}

// NewBlobStore ensures the base directory exists and returns a handle.
func NewBlobStore(baseDir string) (*BlobStore, error) {
	if baseDir == "" {
		baseDir = "./blobs"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &BlobStore{baseDir: baseDir}, nil
}

// Hash returns the hex-encoded SHA-256 digest of the content.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put writes the blob and returns its content-address locator.
func (s *BlobStore) Put(data []byte) (string, error) {
	hash := Hash(data)
	locator := Locator(hash)
	path := s.resolve(locator)
	if _, err := os.Stat(path); err == nil {
		return locator, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare blob directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return locator, nil
}

// Get reads the blob identified by the locator.
func (s *BlobStore) Get(locator string) ([]byte, error) {
	data, err := os.ReadFile(s.resolve(locator))
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", locator, err)
	}
	return data, nil
}

// Exists reports whether the locator resolves to a stored blob.
func (s *BlobStore) Exists(locator string) bool {
	_, err := os.Stat(s.resolve(locator))
	return err == nil
}

// Locator builds the canonical locator for a content hash.
func Locator(hash string) string {
	if len(hash) < 4 {
		return "sha256/" + hash
	}
	return fmt.Sprintf("sha256/%s/%s/%s", hash[:2], hash[2:4], hash)
}

func (s *BlobStore) resolve(locator string) string {
	clean := filepath.Clean(strings.TrimPrefix(locator, "/"))
	return filepath.Join(s.baseDir, clean)
}
