package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBBoxUnion(t *testing.T) {
	a := BBox{X0: 10, Y0: 10, X1: 20, Y1: 20}
	b := BBox{X0: 5, Y0: 15, X1: 25, Y1: 18}
	got := a.Union(b)
	assert.Equal(t, BBox{X0: 5, Y0: 10, X1: 25, Y1: 20}, got)

	// Union with the zero box adopts the other box instead of stretching
	// to the origin.
	assert.Equal(t, a, BBox{}.Union(a))
}

func TestSortElements(t *testing.T) {
	p := Page{Elements: []LayoutElement{
		{Kind: ElementTable, Position: 300},
		{Kind: ElementText, Position: 50},
		{Kind: ElementText, Position: 50.5},
		{Kind: ElementImage, Position: 792},
	}}
	p.SortElements()

	positions := make([]float64, 0, len(p.Elements))
	for _, el := range p.Elements {
		positions = append(positions, el.Position)
	}
	assert.Equal(t, []float64{50, 50.5, 300, 792}, positions)
}

func TestRenumber(t *testing.T) {
	d := Document{
		TotalPages: 5,
		Pages:      []Page{{Number: 1}, {Number: 3}, {Number: 5}},
	}
	d.Renumber()
	assert.Equal(t, 3, d.TotalPages)
	for i, p := range d.Pages {
		assert.Equal(t, i+1, p.Number)
	}
}

func TestPageLookup(t *testing.T) {
	d := Document{Pages: []Page{{Number: 1}, {Number: 2}}}
	require.NotNil(t, d.Page(2))
	assert.Equal(t, 2, d.Page(2).Number)
	assert.Nil(t, d.Page(0))
	assert.Nil(t, d.Page(3))
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	structured := Document{
		Mode:       ModeStructured,
		Title:      "Report",
		TotalPages: 1,
		Metadata:   map[string]string{"author": "someone"},
		Pages: []Page{{
			Number: 1,
			Text:   "hello world",
			Blocks: []TextBlock{{Text: "hello world", FontSize: 12, BBox: BBox{X0: 72, Y0: 700, X1: 200, Y1: 712}}},
			Tables: []Table{{Rows: [][]string{{"a", "b"}, {"c", "d"}}, Index: 0}},
			Elements: []LayoutElement{
				{Kind: ElementText, Position: 80, Text: &TextBlock{Text: "hello world"}},
			},
			BBox: BBox{X1: 612, Y1: 792},
		}},
	}
	data, err := json.Marshal(&structured)
	require.NoError(t, err)

	var got Document
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, structured, got)

	rasterized := Document{
		Mode:       ModeRasterized,
		TotalPages: 1,
		Pages:      []Page{{Number: 1, ImagePath: "page_1.jpg", Width: 1275, Height: 1650}},
	}
	data, err = json.Marshal(&rasterized)
	require.NoError(t, err)

	got = Document{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, rasterized, got)

	// Rasterized pages must not leak structured fields into the payload.
	assert.NotContains(t, string(data), "blocks")
	assert.Contains(t, string(data), "image_path")
}

func TestModeValid(t *testing.T) {
	assert.True(t, ModeStructured.Valid())
	assert.True(t, ModeRasterized.Valid())
	assert.False(t, Mode("").Valid())
	assert.False(t, Mode("hybrid").Valid())
}
