package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfviewer/internal/backend"
	"github.com/local/pdfviewer/internal/document"
	"github.com/local/pdfviewer/internal/metrics"
)

// Service runs the extraction pipeline: it picks the fallback chain for the
// requested mode, tries each backend in order, and normalizes the winning
// result (blank filtering, contiguous page numbers).
type Service struct {
	adapters []backend.Adapter
	opts     backend.Options
}

// NewService builds a Service over the given adapters, which must already be
// filtered to available ones (see backend.Probe). Options apply to every run;
// per-run fields (AssetDir, OnPage) are overridden per call.
func NewService(adapters []backend.Adapter, opts backend.Options) *Service {
	return &Service{adapters: adapters, opts: opts}
}

// Backends returns the names of the registered adapters, in fallback order.
func (s *Service) Backends() []string {
	names := make([]string, 0, len(s.adapters))
	for _, a := range s.adapters {
		names = append(names, a.Name())
	}
	return names
}

// ExtractDocument extracts path in the given mode, writing page assets under
// assetDir and reporting progress to tracker. On success every page of the
// returned document is non-blank (structured mode) and numbered contiguously
// from 1. If every backend in the chain fails the error is a *ChainError
// carrying each backend's failure.
func (s *Service) ExtractDocument(ctx context.Context, path string, mode document.Mode, assetDir string, tracker Tracker) (*document.Document, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown extraction mode %q", mode)
	}
	if tracker == nil {
		tracker = NopTracker
	}

	chain := backend.ForMode(s.adapters, mode)
	if len(chain) == 0 {
		return nil, &ChainError{Mode: mode}
	}

	opts := s.opts
	opts.AssetDir = assetDir
	opts.OnPage = func(done, total int) {
		if total <= 0 {
			return
		}
		tracker.Update(Snapshot{
			Status:  StatusProcessing,
			Percent: done * 100 / total,
			Message: fmt.Sprintf("Extracting page %d of %d", done, total),
		})
	}

	start := time.Now()
	var failures []*BackendError
	for i, a := range chain {
		tracker.Update(Snapshot{
			Status:  StatusProcessing,
			Percent: 0,
			Message: "Extracting document content",
			Details: a.Name(),
		})

		doc, err := a.Extract(ctx, path, opts)
		if err != nil {
			failures = append(failures, &BackendError{Backend: a.Name(), Err: err})
			metrics.RecordExtraction(string(mode), a.Name(), "error")
			if i+1 < len(chain) {
				metrics.RecordFallback(a.Name(), chain[i+1].Name())
				log.Warn().Err(err).
					Str("backend", a.Name()).
					Str("next", chain[i+1].Name()).
					Msg("backend failed, falling back")
			} else {
				log.Error().Err(err).Str("backend", a.Name()).Msg("last backend in chain failed")
			}
			continue
		}

		if mode == document.ModeStructured {
			if dropped := dropBlankPages(doc); dropped > 0 {
				metrics.AddBlankPagesDropped(dropped)
				log.Info().Int("dropped", dropped).Int("kept", doc.TotalPages).Msg("blank pages filtered")
			}
		}

		metrics.RecordExtraction(string(mode), a.Name(), "success")
		metrics.AddPagesExtracted(doc.TotalPages)
		metrics.ObserveExtractionDuration(string(mode), time.Since(start).Seconds())
		log.Info().
			Str("backend", a.Name()).
			Str("mode", string(mode)).
			Int("pages", doc.TotalPages).
			Dur("took", time.Since(start)).
			Msg("extraction complete")
		return doc, nil
	}

	return nil, &ChainError{Mode: mode, Failures: failures}
}

// ExtractWithFallback runs the structured chain first and, if every
// structured backend fails, falls back to rasterizing the document. The
// returned error aggregates both chains' failures when nothing works.
func (s *Service) ExtractWithFallback(ctx context.Context, path, assetDir string, tracker Tracker) (*document.Document, error) {
	doc, structErr := s.ExtractDocument(ctx, path, document.ModeStructured, assetDir, tracker)
	if structErr == nil {
		return doc, nil
	}
	log.Warn().Err(structErr).Msg("structured extraction failed, rasterizing instead")

	doc, rasterErr := s.ExtractDocument(ctx, path, document.ModeRasterized, assetDir, tracker)
	if rasterErr == nil {
		return doc, nil
	}
	return nil, fmt.Errorf("%w; rasterized fallback also failed: %v", structErr, rasterErr)
}
