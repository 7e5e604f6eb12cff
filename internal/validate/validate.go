package validate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyFilename = errors.New("no file selected")
	ErrNotPDF        = errors.New("file is not a PDF")
)

// Filename checks the client-supplied name: it must be non-empty and carry
// a .pdf extension.
func Filename(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyFilename
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return ErrNotPDF
	}
	return nil
}

// File checks the uploaded bytes on disk: magic-byte MIME detection first,
// then pdfcpu's structural validation. Catching a renamed or truncated file
// here keeps garbage out of the extraction chain.
func File(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("detect file type: %w", err)
	}
	if !mtype.Is("application/pdf") {
		log.Debug().Str("mime", mtype.String()).Str("file", path).Msg("upload rejected by mime check")
		return ErrNotPDF
	}
	if err := api.ValidateFile(path, nil); err != nil {
		return fmt.Errorf("pdf structure invalid: %w", err)
	}
	return nil
}
