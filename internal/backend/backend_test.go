package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdfviewer/internal/document"
)

func TestDpiFor(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 150, dpiFor(1, opts))
	assert.Equal(t, 150, dpiFor(200, opts))
	assert.Equal(t, 96, dpiFor(201, opts))
	assert.Equal(t, 96, dpiFor(5000, opts))
}

func TestForMode(t *testing.T) {
	adapters := []Adapter{
		NewTabulaAdapter(),
		NewFitzAdapter(),
		NewFitzRasterAdapter(),
		NewMutoolAdapter(),
	}

	structured := ForMode(adapters, document.ModeStructured)
	require.Len(t, structured, 2)
	assert.Equal(t, "tabula", structured[0].Name())
	assert.Equal(t, "fitz", structured[1].Name())

	raster := ForMode(adapters, document.ModeRasterized)
	require.Len(t, raster, 2)
	assert.Equal(t, "fitzraster", raster[0].Name())
	assert.Equal(t, "mutool", raster[1].Name())
}

func TestReportPagesNilSafe(t *testing.T) {
	var opts Options
	assert.NotPanics(t, func() { opts.reportPages(1, 10) })

	var got [2]int
	opts.OnPage = func(done, total int) { got = [2]int{done, total} }
	opts.reportPages(3, 10)
	assert.Equal(t, [2]int{3, 10}, got)
}
