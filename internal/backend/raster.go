package backend

import (
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfviewer/internal/document"
)

// FitzRasterAdapter renders every page to a JPEG under the asset directory.
// Pages are rendered in batches so a large document never holds more than one
// batch of bitmaps in memory, and resolution drops for very long documents.
type FitzRasterAdapter struct{}

func NewFitzRasterAdapter() *FitzRasterAdapter { return &FitzRasterAdapter{} }

func (a *FitzRasterAdapter) Name() string        { return "fitzraster" }
func (a *FitzRasterAdapter) Mode() document.Mode { return document.ModeRasterized }

func (a *FitzRasterAdapter) Available() bool { return true }

// dpiFor picks the render resolution for a document of the given length.
func dpiFor(totalPages int, opts Options) int {
	if totalPages > opts.LargeDocPages {
		return opts.LowDPI
	}
	return opts.BaseDPI
}

func (a *FitzRasterAdapter) Extract(ctx context.Context, path string, opts Options) (*document.Document, error) {
	if opts.AssetDir == "" {
		return nil, fmt.Errorf("rasterization requires an asset directory")
	}
	if err := os.MkdirAll(opts.AssetDir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	dpi := dpiFor(total, opts)
	log.Debug().Int("pages", total).Int("dpi", dpi).Msg("rasterizing document")

	out := &document.Document{
		Mode:       document.ModeRasterized,
		TotalPages: total,
		Pages:      make([]document.Page, 0, total),
		Metadata:   map[string]string{},
	}
	for k, v := range doc.Metadata() {
		if v != "" {
			out.Metadata[k] = v
		}
	}
	out.Title = out.Metadata["title"]

	batch := opts.BatchSize
	if batch <= 0 {
		batch = 1
	}
	for start := 0; start < total; start += batch {
		end := start + batch
		if end > total {
			end = total
		}
		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			page, err := renderPage(doc, i, dpi, opts)
			if err != nil {
				// A page that will not render leaves a hole in the
				// viewer, so the whole document fails over to the
				// next backend.
				return nil, fmt.Errorf("render page %d: %w", i+1, err)
			}
			out.Pages = append(out.Pages, *page)
		}
		opts.reportPages(end, total)
	}
	return out, nil
}

func renderPage(doc *fitz.Document, index, dpi int, opts Options) (*document.Page, error) {
	img, err := doc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("page_%d.jpg", index+1)

	f, err := os.Create(filepath.Join(opts.AssetDir, name))
	if err != nil {
		return nil, err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: opts.JPEGQuality}); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &document.Page{
		Number:    index + 1,
		ImagePath: name,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
	}, nil
}
