package extract

import (
	"fmt"
	"strings"

	"github.com/local/pdfviewer/internal/document"
)

// BackendError records a whole-document failure of one backend.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ChainError is returned when every backend in a mode's fallback chain has
// failed. It carries the failure of each attempted backend so the caller can
// report all causes, not just the last one.
type ChainError struct {
	Mode     document.Mode
	Failures []*BackendError
}

func (e *ChainError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("no backends available for %s extraction", e.Mode)
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("%s extraction failed, all backends exhausted: %s",
		e.Mode, strings.Join(parts, "; "))
}
