package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfviewer/internal/document"
)

// FSStore keeps each document as one JSON blob under a root directory,
// optionally encrypted at rest.
type FSStore struct {
	root   string
	cipher *BlobCipher // nil means plaintext
}

// NewFSStore creates the root directory if needed. Pass a nil cipher to store
// blobs unencrypted.
func NewFSStore(root string, cipher *BlobCipher) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &FSStore{root: root, cipher: cipher}, nil
}

func (s *FSStore) path(id DocumentID) string {
	return filepath.Join(s.root, string(id)+".json")
}

// Save writes the blob to a temp file and renames it into place, so readers
// never observe a partially written record.
func (s *FSStore) Save(ctx context.Context, id DocumentID, doc *document.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if s.cipher != nil {
		if data, err = s.cipher.Seal(data); err != nil {
			return fmt.Errorf("encrypt document: %w", err)
		}
	}

	tmp, err := os.CreateTemp(s.root, "doc-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(id)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename into place: %w", err)
	}
	log.Debug().Str("id", string(id)).Int("bytes", len(data)).Msg("document saved")
	return nil
}

func (s *FSStore) Load(ctx context.Context, id DocumentID) (*document.Document, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read document: %w", err)
	}
	if s.cipher != nil && IsEncrypted(data) {
		if data, err = s.cipher.Open(data); err != nil {
			return nil, fmt.Errorf("decrypt document: %w", err)
		}
	}
	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warn().Err(err).Str("id", string(id)).Msg("stored document is corrupt")
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (s *FSStore) Delete(ctx context.Context, id DocumentID) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
