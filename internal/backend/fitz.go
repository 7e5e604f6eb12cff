package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/local/pdfviewer/internal/document"
)

// FitzAdapter is the structured fallback backend, built on MuPDF via go-fitz.
// It has no glyph-level geometry, so pages come back coarse: one text block
// per paragraph, no tables, no embedded images. It handles damaged files that
// the pure-Go parser refuses.
type FitzAdapter struct{}

func NewFitzAdapter() *FitzAdapter { return &FitzAdapter{} }

func (a *FitzAdapter) Name() string        { return "fitz" }
func (a *FitzAdapter) Mode() document.Mode { return document.ModeStructured }

func (a *FitzAdapter) Available() bool { return true }

func (a *FitzAdapter) Extract(ctx context.Context, path string, opts Options) (*document.Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	out := &document.Document{
		Mode:       document.ModeStructured,
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

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := document.Page{Number: i + 1}

		text, err := doc.Text(i)
		if err != nil {
			page.Text = fmt.Sprintf("[Text extraction failed for page %d]", i+1)
			out.Pages = append(out.Pages, page)
			opts.reportPages(i+1, total)
			continue
		}
		page.Text = text

		if bound, err := doc.Bound(i); err == nil {
			page.BBox = document.BBox{
				X1: float64(bound.Dx()),
				Y1: float64(bound.Dy()),
			}
		}

		// Paragraph-level blocks keep reading order through the element
		// list even without positions.
		for _, para := range strings.Split(text, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			page.Blocks = append(page.Blocks, document.TextBlock{Text: para, BBox: page.BBox})
		}
		for bi := range page.Blocks {
			page.Elements = append(page.Elements, document.LayoutElement{
				Kind:     document.ElementText,
				Position: float64(bi),
				Text:     &page.Blocks[bi],
			})
		}

		out.Pages = append(out.Pages, page)
		opts.reportPages(i+1, total)
	}
	return out, nil
}
