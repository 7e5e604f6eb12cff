package search

import (
	"strings"

	"github.com/local/pdfviewer/internal/document"
)

// contextRadius is how many characters of surrounding text each match
// carries on either side.
const contextRadius = 50

// Match is one occurrence of the query within a page's text. Context is a
// window of the original text around the occurrence; HighlightStart and
// HighlightEnd delimit the occurrence within Context.
type Match struct {
	Position       int    `json:"position"`
	Context        string `json:"context"`
	HighlightStart int    `json:"highlight_start"`
	HighlightEnd   int    `json:"highlight_end"`
}

// PageResult holds all matches on one page. Pages without matches are never
// reported.
type PageResult struct {
	PageNumber int     `json:"page_number"`
	Matches    []Match `json:"matches"`
}

// Document scans every page of doc for query, case-insensitively, and
// returns results in page order. Overlapping occurrences are all reported:
// the scan advances one character past each match start. An empty query
// matches nothing.
func Document(doc *document.Document, query string) []PageResult {
	if query == "" || doc == nil {
		return nil
	}
	var results []PageResult
	for i := range doc.Pages {
		p := &doc.Pages[i]
		matches := Page(p.Text, query)
		if len(matches) == 0 {
			continue
		}
		results = append(results, PageResult{PageNumber: p.Number, Matches: matches})
	}
	return results
}

// Page finds all occurrences of query in text, case-insensitively.
func Page(text, query string) []Match {
	if query == "" {
		return nil
	}
	lowerText := strings.ToLower(text)
	lowerQuery := strings.ToLower(query)

	var matches []Match
	start := 0
	for {
		pos := strings.Index(lowerText[start:], lowerQuery)
		if pos < 0 {
			break
		}
		pos += start

		ctxStart := pos - contextRadius
		if ctxStart < 0 {
			ctxStart = 0
		}
		ctxEnd := pos + len(query) + contextRadius
		if ctxEnd > len(text) {
			ctxEnd = len(text)
		}
		matches = append(matches, Match{
			Position:       pos,
			Context:        text[ctxStart:ctxEnd],
			HighlightStart: pos - ctxStart,
			HighlightEnd:   pos - ctxStart + len(query),
		})
		start = pos + 1
	}
	return matches
}
