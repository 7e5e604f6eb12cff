package extract

import (
	"strings"

	"github.com/local/pdfviewer/internal/document"
)

// blankTextThreshold is the minimum trimmed text length below which a page
// with no layout content counts as blank.
const blankTextThreshold = 20

// IsBlank reports whether a structured page carries nothing worth showing:
// no layout elements, blocks, images or tables, and essentially no text.
func IsBlank(p *document.Page) bool {
	if len(p.Elements) > 0 || len(p.Blocks) > 0 || len(p.Images) > 0 || len(p.Tables) > 0 {
		return false
	}
	return len(strings.TrimSpace(p.Text)) < blankTextThreshold
}

// dropBlankPages removes blank pages and renumbers the survivors so page
// numbers stay contiguous from 1. Returns the number of pages dropped.
func dropBlankPages(doc *document.Document) int {
	kept := doc.Pages[:0]
	for i := range doc.Pages {
		if IsBlank(&doc.Pages[i]) {
			continue
		}
		kept = append(kept, doc.Pages[i])
	}
	dropped := len(doc.Pages) - len(kept)
	doc.Pages = kept
	doc.Renumber()
	return dropped
}
