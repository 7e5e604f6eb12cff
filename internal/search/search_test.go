package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdfviewer/internal/document"
)

func TestPageBasicMatch(t *testing.T) {
	matches := Page("the cat sat on the mat", "cat")
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, 4, m.Position)
	// Text is shorter than the context radius, so the window is the whole
	// string and the highlight sits at the match's original offset.
	assert.Equal(t, "the cat sat on the mat", m.Context)
	assert.Equal(t, 4, m.HighlightStart)
	assert.Equal(t, 7, m.HighlightEnd)
	assert.Equal(t, "cat", m.Context[m.HighlightStart:m.HighlightEnd])
}

func TestPageCaseInsensitive(t *testing.T) {
	matches := Page("The CAT sat", "cat")
	require.Len(t, matches, 1)
	// Context preserves the original casing.
	assert.Equal(t, "CAT", matches[0].Context[matches[0].HighlightStart:matches[0].HighlightEnd])
}

func TestPageOverlappingMatches(t *testing.T) {
	matches := Page("aaaa", "aa")
	require.Len(t, matches, 3)
	assert.Equal(t, 0, matches[0].Position)
	assert.Equal(t, 1, matches[1].Position)
	assert.Equal(t, 2, matches[2].Position)
}

func TestPageContextWindowClamped(t *testing.T) {
	pad := strings.Repeat("x", 200)
	text := pad + "needle" + pad
	matches := Page(text, "needle")
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, 200, m.Position)
	assert.Len(t, m.Context, 50+len("needle")+50)
	assert.Equal(t, 50, m.HighlightStart)
	assert.Equal(t, "needle", m.Context[m.HighlightStart:m.HighlightEnd])

	// Match at the very start clamps the leading window.
	matches = Page("needle"+pad, "needle")
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Position)
	assert.Equal(t, 0, matches[0].HighlightStart)
	assert.Len(t, matches[0].Context, len("needle")+50)
}

func TestPageNoMatch(t *testing.T) {
	assert.Empty(t, Page("nothing to see here", "zebra"))
	assert.Empty(t, Page("nothing to see here", ""))
	assert.Empty(t, Page("", "zebra"))
}

func TestDocumentPageOrderAndOmission(t *testing.T) {
	doc := &document.Document{
		Mode:       document.ModeStructured,
		TotalPages: 3,
		Pages: []document.Page{
			{Number: 1, Text: "alpha beta gamma"},
			{Number: 2, Text: "nothing relevant"},
			{Number: 3, Text: "beta again and beta once more"},
		},
	}
	results := Document(doc, "beta")
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].PageNumber)
	assert.Len(t, results[0].Matches, 1)
	assert.Equal(t, 3, results[1].PageNumber)
	assert.Len(t, results[1].Matches, 2)
}

func TestDocumentNilAndEmpty(t *testing.T) {
	assert.Nil(t, Document(nil, "q"))
	assert.Nil(t, Document(&document.Document{}, ""))
}
