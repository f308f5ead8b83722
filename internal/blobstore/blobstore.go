// Package blobstore stores raw uploaded file bytes on disk.
//
// Each blob is addressed by an opaque ref of the form "<ksid>-<name>" where
// the ksid carries the creation time plus random bits and name is the
// sanitized original filename. The ksid prefix makes refs unique even for
// concurrent uploads of the same filename.
package blobstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/maruel/ksid"
)

var (
	// ErrInvalidRef is returned for refs that could not have been produced
	// by this store, including anything resembling a path traversal.
	ErrInvalidRef = errors.New("invalid blob ref")
	// ErrNotFound is returned when opening a blob that does not exist.
	ErrNotFound = errors.New("blob not found")
)

// Store manages blobs in a single directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the blob and returns its ref and the number of bytes stored.
//
// Data is streamed to a temp file and renamed into place so a failed write
// never leaves a partial blob under a valid ref.
func (s *Store) Save(originalName string, r io.Reader) (string, int64, error) {
	ref := ksid.NewID().String() + "-" + sanitizeName(originalName)
	if err := validateRef(ref); err != nil {
		return "", 0, err
	}

	f, err := os.CreateTemp(s.dir, "*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()
	size, err := io.Copy(f, r)
	if err2 := f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, fmt.Errorf("failed to write blob: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, ref)); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, fmt.Errorf("failed to finalize blob: %w", err)
	}
	return ref, size, nil
}

// Open returns a reader for the blob with the given ref.
func (s *Store) Open(ref string) (io.ReadCloser, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// Remove deletes the blob with the given ref.
//
// Returns nil if the blob is already absent: cleanup of a half-deleted
// record must not fail on the second attempt.
func (s *Store) Remove(ref string) error {
	if err := validateRef(ref); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, ref)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Usage returns the total size in bytes of all stored blobs.
func (s *Store) Usage() (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read blob directory: %w", err)
	}
	var total int64
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// validateRef rejects refs that are empty or escape the store directory.
func validateRef(ref string) error {
	if ref == "" || ref == "." || ref == ".." {
		return ErrInvalidRef
	}
	if strings.ContainsAny(ref, `/\`) || strings.ContainsRune(ref, 0) {
		return ErrInvalidRef
	}
	return nil
}

// sanitizeName reduces a caller-supplied filename to a safe single path
// element. The original name is preserved separately as attachment metadata;
// this only affects the on-disk ref.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		out = "file"
	}
	const maxNameLen = 120
	if len(out) > maxNameLen {
		out = out[len(out)-maxNameLen:]
	}
	return out
}
