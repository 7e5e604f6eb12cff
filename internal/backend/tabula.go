package backend

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/graphicsstate"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/pages"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"

	"github.com/local/pdfviewer/internal/document"
)

const (
	// Fragments whose font sizes differ by more than this belong to
	// different text blocks.
	fontSizeTolerance = 2.0
	// Vertical gap in points above which consecutive fragments are split
	// into separate blocks.
	blockGapThreshold = 10.0
)

// TabulaAdapter is the primary structured backend. It parses the PDF with the
// pure-Go tabula reader, giving glyph-level fragments with positions and font
// sizes, vector lines for table detection, and embedded image export.
type TabulaAdapter struct{}

func NewTabulaAdapter() *TabulaAdapter { return &TabulaAdapter{} }

func (a *TabulaAdapter) Name() string        { return "tabula" }
func (a *TabulaAdapter) Mode() document.Mode { return document.ModeStructured }

// Available always reports true: tabula is linked in, not an external tool.
func (a *TabulaAdapter) Available() bool { return true }

func (a *TabulaAdapter) Extract(ctx context.Context, path string, opts Options) (*document.Document, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer r.Close()

	total, err := r.PageCount()
	if err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}
	if total == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	if opts.AssetDir != "" {
		if err := os.MkdirAll(opts.AssetDir, 0o755); err != nil {
			return nil, fmt.Errorf("create asset dir: %w", err)
		}
	}

	doc := &document.Document{
		Mode:       document.ModeStructured,
		TotalPages: total,
		Pages:      make([]document.Page, 0, total),
		Metadata:   map[string]string{},
	}
	a.readInfo(r, doc)

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := a.extractPage(r, i, opts)
		if err != nil {
			// Per-page failures degrade to a placeholder, they never
			// abort the document.
			log.Warn().Err(err).Int("page", i+1).Msg("page extraction degraded")
			page = &document.Page{
				Number: i + 1,
				Text:   fmt.Sprintf("[Text extraction failed for page %d]", i+1),
			}
		}
		page.Number = i + 1
		doc.Pages = append(doc.Pages, *page)
		opts.reportPages(i+1, total)
	}
	return doc, nil
}

func (a *TabulaAdapter) readInfo(r *reader.Reader, doc *document.Document) {
	info, err := r.GetInfo()
	if err != nil || info == nil {
		return
	}
	for _, key := range []string{"Title", "Author", "Subject", "Creator", "Producer"} {
		if obj := info.Get(key); obj != nil {
			if s, ok := obj.(core.String); ok && string(s) != "" {
				doc.Metadata[strings.ToLower(key)] = string(s)
			}
		}
	}
	doc.Title = doc.Metadata["title"]
}

func (a *TabulaAdapter) extractPage(r *reader.Reader, index int, opts Options) (*document.Page, error) {
	pg, err := r.GetPage(index)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	pageW, err := pg.Width()
	if err != nil {
		return nil, fmt.Errorf("page width: %w", err)
	}
	pageH, err := pg.Height()
	if err != nil {
		return nil, fmt.Errorf("page height: %w", err)
	}

	frags, err := r.ExtractTextFragments(pg)
	if err != nil {
		return nil, fmt.Errorf("text fragments: %w", err)
	}
	sortFragments(frags, pageH)

	lines := extractLines(pg)
	docTables := detectTables(index+1, pageW, pageH, frags, lines)

	page := &document.Page{
		Number: index + 1,
		Text:   joinFragments(frags),
		BBox:   document.BBox{X1: pageW, Y1: pageH},
		Tables: docTables,
	}

	page.Blocks = buildBlocks(frags, docTables, pageH)
	for bi := range page.Blocks {
		b := &page.Blocks[bi]
		page.Elements = append(page.Elements, document.LayoutElement{
			Kind:     document.ElementText,
			Position: pageH - b.BBox.Y1,
			Text:     b,
		})
	}
	for ti := range page.Tables {
		t := &page.Tables[ti]
		page.Elements = append(page.Elements, document.LayoutElement{
			Kind:     document.ElementTable,
			Position: pageH - t.BBox.Y1,
			Table:    t,
		})
	}

	page.Images = exportImages(r, pg, index+1, opts)
	for ii := range page.Images {
		img := &page.Images[ii]
		// Embedded XObjects carry intrinsic dimensions, not placement, so
		// images sort after positioned content.
		page.Elements = append(page.Elements, document.LayoutElement{
			Kind:     document.ElementImage,
			Position: pageH,
			Image:    img,
		})
	}

	page.SortElements()
	return page, nil
}

// sortFragments orders fragments top-to-bottom, left-to-right.
func sortFragments(frags []text.TextFragment, pageH float64) {
	sort.SliceStable(frags, func(i, j int) bool {
		ti := pageH - (frags[i].Y + frags[i].Height)
		tj := pageH - (frags[j].Y + frags[j].Height)
		if math.Abs(ti-tj) > 2 {
			return ti < tj
		}
		return frags[i].X < frags[j].X
	})
}

func joinFragments(frags []text.TextFragment) string {
	var sb strings.Builder
	var prevY float64
	for i, f := range frags {
		if i > 0 {
			if math.Abs(f.Y-prevY) > 2 {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(f.Text)
		prevY = f.Y
	}
	return sb.String()
}

// buildBlocks groups fragments into text blocks: a block breaks when the font
// size shifts beyond the tolerance or the vertical gap to the previous
// fragment exceeds the threshold. Fragments already claimed by a detected
// table are skipped so table content is not duplicated as prose.
func buildBlocks(frags []text.TextFragment, docTables []document.Table, pageH float64) []document.TextBlock {
	var blocks []document.TextBlock
	var cur *document.TextBlock
	var prevBottom float64 // top-origin offset of the previous fragment's bottom edge
	var prevY float64

	for _, f := range frags {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		fb := document.BBox{X0: f.X, Y0: f.Y, X1: f.X + f.Width, Y1: f.Y + f.Height}
		if insideTable(fb, docTables) {
			continue
		}
		top := pageH - (f.Y + f.Height)
		bottom := pageH - f.Y

		if cur != nil &&
			(math.Abs(f.FontSize-cur.FontSize) > fontSizeTolerance || top-prevBottom > blockGapThreshold) {
			blocks = append(blocks, *cur)
			cur = nil
		}
		if cur == nil {
			cur = &document.TextBlock{Text: f.Text, BBox: fb, FontSize: f.FontSize}
		} else {
			if math.Abs(f.Y-prevY) > 2 {
				cur.Text += "\n" + f.Text
			} else {
				cur.Text += " " + f.Text
			}
			cur.BBox = cur.BBox.Union(fb)
		}
		prevBottom = bottom
		prevY = f.Y
	}
	if cur != nil {
		blocks = append(blocks, *cur)
	}
	return blocks
}

func insideTable(fb document.BBox, docTables []document.Table) bool {
	cx := (fb.X0 + fb.X1) / 2
	cy := (fb.Y0 + fb.Y1) / 2
	for _, t := range docTables {
		if cx >= t.BBox.X0 && cx <= t.BBox.X1 && cy >= t.BBox.Y0 && cy <= t.BBox.Y1 {
			return true
		}
	}
	return false
}

// extractLines decodes the page content streams and pulls out vector lines
// and stroked rectangles, which drive grid-based table detection.
func extractLines(pg *pages.Page) []model.Line {
	contents, err := pg.Contents()
	if err != nil {
		return nil
	}
	ge := graphicsstate.NewGraphicsExtractor()
	for _, obj := range contents {
		stream, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		data, err := stream.Decode()
		if err != nil {
			continue
		}
		if err := ge.ExtractFromBytes(data); err != nil {
			continue
		}
	}
	lines := ge.ToModelLines()
	return append(lines, ge.ToModelRectangles()...)
}

func detectTables(number int, pageW, pageH float64, frags []text.TextFragment, lines []model.Line) []document.Table {
	mp := &model.Page{
		Number:   number,
		Width:    pageW,
		Height:   pageH,
		RawText:  make([]model.TextFragment, 0, len(frags)),
		RawLines: lines,
	}
	for _, f := range frags {
		mp.RawText = append(mp.RawText, model.TextFragment{
			Text:     f.Text,
			BBox:     model.BBox{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height},
			FontSize: f.FontSize,
			FontName: f.FontName,
		})
	}

	det := tables.NewGeometricDetector()
	found, err := det.Detect(mp)
	if err != nil {
		return nil
	}
	if len(found) == 0 && len(lines) > 0 {
		// Second pass: ruled tables with irregular whitespace respond
		// better to line-only detection.
		cfg := tables.DefaultConfig()
		cfg.UseLines = true
		cfg.UseWhitespace = false
		if det.Configure(cfg) == nil {
			found, err = det.Detect(mp)
			if err != nil {
				return nil
			}
		}
	}

	out := make([]document.Table, 0, len(found))
	for i, t := range found {
		rows := make([][]string, 0, len(t.Rows))
		for _, row := range t.Rows {
			cells := make([]string, 0, len(row))
			for _, c := range row {
				cells = append(cells, c.Text)
			}
			rows = append(rows, cells)
		}
		out = append(out, document.Table{
			Rows:  rows,
			Index: i,
			BBox: document.BBox{
				X0: t.BBox.X,
				Y0: t.BBox.Y,
				X1: t.BBox.X + t.BBox.Width,
				Y1: t.BBox.Y + t.BBox.Height,
			},
		})
	}
	return out
}

// exportImages writes each embedded page image to the asset directory as PNG.
// Individual image failures are logged and skipped, never fatal.
func exportImages(r *reader.Reader, pg *pages.Page, number int, opts Options) []document.ImageRef {
	if opts.AssetDir == "" {
		return nil
	}
	imgs, err := r.ExtractPageImages(pg)
	if err != nil {
		log.Warn().Err(err).Int("page", number).Msg("image extraction failed")
		return nil
	}
	var refs []document.ImageRef
	for i, img := range imgs {
		data, err := img.ToPNG()
		if err != nil {
			log.Warn().Err(err).Int("page", number).Str("image", img.Name).Msg("png encode failed, skipping image")
			continue
		}
		name := fmt.Sprintf("page_%d_img_%d.png", number, i+1)
		if err := os.WriteFile(filepath.Join(opts.AssetDir, name), data, 0o644); err != nil {
			log.Warn().Err(err).Str("file", name).Msg("image write failed, skipping image")
			continue
		}
		refs = append(refs, document.ImageRef{
			Path:   name,
			Index:  i,
			Width:  img.Width,
			Height: img.Height,
			BBox:   document.BBox{X1: float64(img.Width), Y1: float64(img.Height)},
		})
	}
	return refs
}
