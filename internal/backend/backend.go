package backend

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfviewer/internal/document"
)

// Options tunes an extraction run. AssetDir is set per run by the caller so
// page renders and embedded images land under one document-scoped directory.
type Options struct {
	AssetDir string

	// Rasterization.
	BaseDPI       int // normal render resolution
	LowDPI        int // used once page count exceeds LargeDocPages
	LargeDocPages int
	BatchSize     int // pages rendered per batch, bounds peak memory
	JPEGQuality   int

	// OnPage, when set, is called after each page (or batch of pages) has
	// been produced, with the number of pages done and the total.
	OnPage func(done, total int)
}

// DefaultOptions returns the option set used when the caller does not care.
func DefaultOptions() Options {
	return Options{
		BaseDPI:       150,
		LowDPI:        96,
		LargeDocPages: 200,
		BatchSize:     64,
		JPEGQuality:   85,
	}
}

func (o Options) reportPages(done, total int) {
	if o.OnPage != nil {
		o.OnPage(done, total)
	}
}

// Adapter wraps one PDF-processing backend behind a uniform extraction
// interface. Extract is total over valid PDF paths: per-page problems are
// recorded as degraded page content, and only whole-document failures
// (unreadable file, backend unavailable) return an error.
type Adapter interface {
	Name() string
	Mode() document.Mode
	Available() bool
	Extract(ctx context.Context, path string, opts Options) (*document.Document, error)
}

// Probe enumerates the adapters whose underlying backends are present,
// in fallback priority order per mode.
func Probe() []Adapter {
	candidates := []Adapter{
		NewTabulaAdapter(),
		NewFitzAdapter(),
		NewFitzRasterAdapter(),
		NewMutoolAdapter(),
	}
	var available []Adapter
	for _, a := range candidates {
		if !a.Available() {
			log.Warn().Str("backend", a.Name()).Msg("backend unavailable, skipping")
			continue
		}
		log.Debug().Str("backend", a.Name()).Str("mode", string(a.Mode())).Msg("backend registered")
		available = append(available, a)
	}
	return available
}

// ForMode filters adapters to those serving the given mode, preserving order.
func ForMode(adapters []Adapter, mode document.Mode) []Adapter {
	var out []Adapter
	for _, a := range adapters {
		if a.Mode() == mode {
			out = append(out, a)
		}
	}
	return out
}
