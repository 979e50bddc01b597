// Package media provides local storage for note attachments with
// SHA-256 content addressing. Notes reference attachments through
// file:// URIs; the basename of the stored file doubles as the opaque
// media id used by the cloud service.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/quillnote/backend/internal/errors"
)

// Store handles attachment storage under a base directory.
type Store struct {
	baseDir string
}

// NewStore creates a Store, ensuring the base directory exists.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Put stores attachment bytes and returns the file:// media ref.
// Identical content deduplicates to the same ref.
func (s *Store) Put(data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperrors.New(apperrors.ErrMediaInvalid, "empty media payload")
	}

	sum := sha256.Sum256(data)
	id := hex.EncodeToString(sum[:])

	// Content-addressed path: baseDir/XX/XXXX...
	dirPath := filepath.Join(s.baseDir, id[:2])
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create media shard directory: %w", err)
	}

	path := filepath.Join(dirPath, id)
	if _, err := os.Stat(path); err == nil {
		return "file://" + path, nil
	}

	tmp, err := os.CreateTemp(s.baseDir, "media-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write media: %w", err)
	}
	tmp.Close()

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move media into place: %w", err)
	}

	return "file://" + path, nil
}

// Get reads attachment bytes by media ref.
func (s *Store) Get(mediaRef string) ([]byte, error) {
	path, err := s.pathOf(mediaRef)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, apperrors.New(apperrors.ErrMediaNotFound, fmt.Sprintf("media %q not found", mediaRef))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read media: %w", err)
	}
	return data, nil
}

// GetByID reads attachment bytes by media id.
func (s *Store) GetByID(id string) ([]byte, error) {
	if len(id) != 64 {
		return nil, apperrors.New(apperrors.ErrMediaInvalid, fmt.Sprintf("malformed media id %q", id))
	}

	data, err := os.ReadFile(filepath.Join(s.baseDir, id[:2], id))
	if os.IsNotExist(err) {
		return nil, apperrors.New(apperrors.ErrMediaNotFound, fmt.Sprintf("media %q not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read media: %w", err)
	}
	return data, nil
}

// ExistsID reports whether a media id resolves to a stored attachment.
func (s *Store) ExistsID(id string) bool {
	if len(id) != 64 {
		return false
	}
	_, err := os.Stat(filepath.Join(s.baseDir, id[:2], id))
	return err == nil
}

// Exists reports whether a media ref resolves to a stored attachment.
func (s *Store) Exists(mediaRef string) bool {
	path, err := s.pathOf(mediaRef)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// IDOf extracts the opaque media id (the content hash) from a media ref.
func IDOf(mediaRef string) (string, error) {
	path := strings.TrimPrefix(mediaRef, "file://")
	id := filepath.Base(path)
	if len(id) != 64 {
		return "", apperrors.New(apperrors.ErrMediaInvalid, fmt.Sprintf("malformed media ref %q", mediaRef))
	}
	return id, nil
}

// pathOf resolves a media ref to its path inside the base directory.
func (s *Store) pathOf(mediaRef string) (string, error) {
	if !strings.HasPrefix(mediaRef, "file://") {
		return "", apperrors.New(apperrors.ErrMediaInvalid, fmt.Sprintf("unsupported media ref %q", mediaRef))
	}
	return strings.TrimPrefix(mediaRef, "file://"), nil
}
