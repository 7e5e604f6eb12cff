package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdfviewer/internal/backend"
	"github.com/local/pdfviewer/internal/document"
)

type fakeAdapter struct {
	name string
	mode document.Mode
	doc  *document.Document
	err  error

	calls int
}

func (f *fakeAdapter) Name() string        { return f.name }
func (f *fakeAdapter) Mode() document.Mode { return f.mode }
func (f *fakeAdapter) Available() bool     { return true }

func (f *fakeAdapter) Extract(ctx context.Context, path string, opts backend.Options) (*document.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	// Copy so blank filtering does not mutate the fixture.
	doc := *f.doc
	doc.Pages = append([]document.Page(nil), f.doc.Pages...)
	return &doc, nil
}

func structuredDoc(texts ...string) *document.Document {
	doc := &document.Document{Mode: document.ModeStructured, TotalPages: len(texts)}
	for i, txt := range texts {
		doc.Pages = append(doc.Pages, document.Page{Number: i + 1, Text: txt})
	}
	return doc
}

func TestExtractDocumentFirstBackendWins(t *testing.T) {
	a := &fakeAdapter{name: "a", mode: document.ModeStructured, doc: structuredDoc("plenty of content on this page")}
	b := &fakeAdapter{name: "b", mode: document.ModeStructured, doc: structuredDoc("should never be used by anyone")}
	svc := NewService([]backend.Adapter{a, b}, backend.DefaultOptions())

	doc, err := svc.ExtractDocument(context.Background(), "in.pdf", document.ModeStructured, t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.TotalPages)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 0, b.calls)
}

func TestExtractDocumentFallsBack(t *testing.T) {
	a := &fakeAdapter{name: "a", mode: document.ModeStructured, err: errors.New("parse failure")}
	b := &fakeAdapter{name: "b", mode: document.ModeStructured, doc: structuredDoc("fallback content for this page")}
	svc := NewService([]backend.Adapter{a, b}, backend.DefaultOptions())

	doc, err := svc.ExtractDocument(context.Background(), "in.pdf", document.ModeStructured, t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, "fallback content for this page", doc.Pages[0].Text)
}

func TestExtractDocumentChainErrorCarriesAllCauses(t *testing.T) {
	a := &fakeAdapter{name: "a", mode: document.ModeStructured, err: errors.New("bad xref")}
	b := &fakeAdapter{name: "b", mode: document.ModeStructured, err: errors.New("mupdf crashed")}
	svc := NewService([]backend.Adapter{a, b}, backend.DefaultOptions())

	_, err := svc.ExtractDocument(context.Background(), "in.pdf", document.ModeStructured, t.TempDir(), nil)
	require.Error(t, err)

	var chainErr *ChainError
	require.ErrorAs(t, err, &chainErr)
	require.Len(t, chainErr.Failures, 2)
	assert.Equal(t, "a", chainErr.Failures[0].Backend)
	assert.Equal(t, "b", chainErr.Failures[1].Backend)
	assert.Contains(t, err.Error(), "bad xref")
	assert.Contains(t, err.Error(), "mupdf crashed")
}

func TestExtractDocumentFiltersBlanks(t *testing.T) {
	a := &fakeAdapter{name: "a", mode: document.ModeStructured, doc: structuredDoc(
		"first page with plenty of content",
		"",
		"third page with plenty of content",
	)}
	svc := NewService([]backend.Adapter{a}, backend.DefaultOptions())

	doc, err := svc.ExtractDocument(context.Background(), "in.pdf", document.ModeStructured, t.TempDir(), nil)
	require.NoError(t, err)
	require.Equal(t, 2, doc.TotalPages)
	assert.Equal(t, 1, doc.Pages[0].Number)
	assert.Equal(t, 2, doc.Pages[1].Number)
	assert.Equal(t, "third page with plenty of content", doc.Pages[1].Text)
}

func TestExtractDocumentModeFiltering(t *testing.T) {
	structured := &fakeAdapter{name: "s", mode: document.ModeStructured, err: errors.New("nope")}
	raster := &fakeAdapter{name: "r", mode: document.ModeRasterized, doc: &document.Document{
		Mode:       document.ModeRasterized,
		TotalPages: 1,
		Pages:      []document.Page{{Number: 1, ImagePath: "page_1.jpg"}},
	}}
	svc := NewService([]backend.Adapter{structured, raster}, backend.DefaultOptions())

	doc, err := svc.ExtractDocument(context.Background(), "in.pdf", document.ModeRasterized, t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, document.ModeRasterized, doc.Mode)
	assert.Equal(t, 0, structured.calls)
}

func TestExtractDocumentNoBackendsForMode(t *testing.T) {
	raster := &fakeAdapter{name: "r", mode: document.ModeRasterized, doc: &document.Document{
		Mode: document.ModeRasterized, TotalPages: 1, Pages: []document.Page{{Number: 1}},
	}}
	svc := NewService([]backend.Adapter{raster}, backend.DefaultOptions())

	_, err := svc.ExtractDocument(context.Background(), "in.pdf", document.ModeStructured, t.TempDir(), nil)
	require.Error(t, err)

	var chainErr *ChainError
	require.ErrorAs(t, err, &chainErr)
	assert.Empty(t, chainErr.Failures)
	assert.Equal(t, "no backends available for structured extraction", err.Error())
	assert.Equal(t, 0, raster.calls)
}

func TestExtractDocumentUnknownMode(t *testing.T) {
	svc := NewService(nil, backend.DefaultOptions())
	_, err := svc.ExtractDocument(context.Background(), "in.pdf", document.Mode("hybrid"), t.TempDir(), nil)
	assert.Error(t, err)
}

func TestExtractWithFallbackRasterizes(t *testing.T) {
	structured := &fakeAdapter{name: "s", mode: document.ModeStructured, err: errors.New("unparsable")}
	raster := &fakeAdapter{name: "r", mode: document.ModeRasterized, doc: &document.Document{
		Mode:       document.ModeRasterized,
		TotalPages: 1,
		Pages:      []document.Page{{Number: 1, ImagePath: "page_1.jpg"}},
	}}
	svc := NewService([]backend.Adapter{structured, raster}, backend.DefaultOptions())

	doc, err := svc.ExtractWithFallback(context.Background(), "in.pdf", t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, document.ModeRasterized, doc.Mode)
	assert.Equal(t, 1, structured.calls)
	assert.Equal(t, 1, raster.calls)
}

func TestExtractWithFallbackBothFail(t *testing.T) {
	structured := &fakeAdapter{name: "s", mode: document.ModeStructured, err: errors.New("bad file")}
	raster := &fakeAdapter{name: "r", mode: document.ModeRasterized, err: errors.New("render failed")}
	svc := NewService([]backend.Adapter{structured, raster}, backend.DefaultOptions())

	_, err := svc.ExtractWithFallback(context.Background(), "in.pdf", t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad file")
	assert.Contains(t, err.Error(), "render failed")
}

func TestTrackerReceivesSnapshots(t *testing.T) {
	a := &fakeAdapter{name: "a", mode: document.ModeStructured, doc: structuredDoc("plenty of content on this page")}
	svc := NewService([]backend.Adapter{a}, backend.DefaultOptions())

	var snaps []Snapshot
	tracker := TrackerFunc(func(s Snapshot) { snaps = append(snaps, s) })

	_, err := svc.ExtractDocument(context.Background(), "in.pdf", document.ModeStructured, t.TempDir(), tracker)
	require.NoError(t, err)
	require.NotEmpty(t, snaps)
	assert.Equal(t, StatusProcessing, snaps[0].Status)
}
