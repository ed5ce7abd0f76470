package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// PlaceholderImageURL is attached to listings created without an image. It is
// an external reference and is never deleted from disk.
const PlaceholderImageURL = "https://placehold.co/600x400?text=Food+Donation"

// BlobStore is the contract with the file storage collaborator: accept a
// file and return a retrievable reference, accept a reference for deletion.
type BlobStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (ref string, err error)
	Remove(ref string) error
}

// LocalStore stores uploads on the local filesystem under a base directory.
// References have the form "uploads/<uuid><ext>".
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates the upload directory if needed and returns a store
// rooted there.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Save writes the reader's contents to a new file named by a fresh UUID,
// keeping the original extension.
func (s *LocalStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(s.baseDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return "uploads/" + name, nil
}

// Remove deletes the file behind a local reference. Placeholder and external
// references are left untouched.
func (s *LocalStore) Remove(ref string) error {
	if !IsLocalRef(ref) {
		return nil
	}
	name := filepath.Base(ref)
	if err := os.Remove(filepath.Join(s.baseDir, name)); err != nil {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}

// IsLocalRef reports whether ref points at a file in local storage rather
// than an external URL (the placeholder included).
func IsLocalRef(ref string) bool {
	return ref != "" &&
		!strings.HasPrefix(ref, "http://") &&
		!strings.HasPrefix(ref, "https://")
}
