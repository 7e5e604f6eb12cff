package backend

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	_ "image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfviewer/internal/document"
)

// MutoolAdapter rasterizes via the mutool CLI. It only participates when the
// binary is on PATH, covering hosts where the embedded MuPDF bindings fail on
// a particular file but the standalone tool copes.
type MutoolAdapter struct{}

func NewMutoolAdapter() *MutoolAdapter { return &MutoolAdapter{} }

func (a *MutoolAdapter) Name() string        { return "mutool" }
func (a *MutoolAdapter) Mode() document.Mode { return document.ModeRasterized }

func (a *MutoolAdapter) Available() bool {
	_, err := exec.LookPath("mutool")
	return err == nil
}

func (a *MutoolAdapter) Extract(ctx context.Context, path string, opts Options) (*document.Document, error) {
	if opts.AssetDir == "" {
		return nil, fmt.Errorf("rasterization requires an asset directory")
	}
	if err := os.MkdirAll(opts.AssetDir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}

	total, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}
	if total == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	dpi := dpiFor(total, opts)

	out := &document.Document{
		Mode:       document.ModeRasterized,
		TotalPages: total,
		Pages:      make([]document.Page, 0, total),
	}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = 1
	}
	pattern := filepath.Join(opts.AssetDir, "page_%d.png")
	for start := 1; start <= total; start += batch {
		end := start + batch - 1
		if end > total {
			end = total
		}
		cmd := exec.CommandContext(ctx, "mutool", "draw",
			"-F", "png",
			"-r", strconv.Itoa(dpi),
			"-o", pattern,
			path,
			fmt.Sprintf("%d-%d", start, end))
		if output, err := cmd.CombinedOutput(); err != nil {
			return nil, fmt.Errorf("mutool draw pages %d-%d: %w: %s", start, end, err, output)
		}
		for n := start; n <= end; n++ {
			name := fmt.Sprintf("page_%d.png", n)
			w, h, err := pngDimensions(filepath.Join(opts.AssetDir, name))
			if err != nil {
				return nil, fmt.Errorf("rendered page %d unreadable: %w", n, err)
			}
			out.Pages = append(out.Pages, document.Page{
				Number:    n,
				ImagePath: name,
				Width:     w,
				Height:    h,
			})
		}
		opts.reportPages(end, total)
	}
	log.Debug().Int("pages", total).Int("dpi", dpi).Msg("mutool rasterization complete")
	return out, nil
}

func pngDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
