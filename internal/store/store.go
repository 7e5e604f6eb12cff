package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/local/pdfviewer/internal/document"
)

// ErrNotFound is returned when no document exists under the requested id.
var ErrNotFound = errors.New("document not found")

// DocumentID identifies a stored document. IDs are content-derived, so
// re-uploading identical bytes lands on the same record.
type DocumentID string

// DeriveID computes the id for the file at path: a truncated SHA-256 of the
// file contents. Two uploads collide only when their bytes are identical.
func DeriveID(path string) (DocumentID, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return DocumentID(hex.EncodeToString(h.Sum(nil))[:16]), nil
}

// Store persists extracted documents keyed by id. Save overwrites any
// existing record under the same id. Load returns ErrNotFound for unknown
// ids; Delete of an unknown id is a no-op.
type Store interface {
	Save(ctx context.Context, id DocumentID, doc *document.Document) error
	Load(ctx context.Context, id DocumentID) (*document.Document, error)
	Delete(ctx context.Context, id DocumentID) error
}
