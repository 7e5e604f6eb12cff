package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsawler/tabula/text"

	"github.com/local/pdfviewer/internal/document"
)

// frag builds a fragment whose top edge sits at the given offset from the
// top of a pageH-high page.
func frag(t string, x, top, w, h, fontSize, pageH float64) text.TextFragment {
	return text.TextFragment{
		Text:     t,
		X:        x,
		Y:        pageH - top - h,
		Width:    w,
		Height:   h,
		FontSize: fontSize,
	}
}

func TestBuildBlocksGroupsBySizeAndGap(t *testing.T) {
	const pageH = 792.0
	frags := []text.TextFragment{
		frag("Heading", 72, 50, 200, 18, 18, pageH),
		// Font drops from 18 to 11: new block even though it is close.
		frag("Body starts here", 72, 72, 300, 11, 11, pageH),
		// Same size, 4 units below the previous bottom: same block.
		frag("and continues", 72, 87, 280, 11, 11, pageH),
		// Same size but a 40-unit gap: new block.
		frag("Footer", 72, 138, 100, 11, 11, pageH),
	}

	blocks := buildBlocks(frags, nil, pageH)
	require.Len(t, blocks, 3)
	assert.Equal(t, "Heading", blocks[0].Text)
	assert.Equal(t, 18.0, blocks[0].FontSize)
	assert.Equal(t, "Body starts here\nand continues", blocks[1].Text)
	assert.Equal(t, "Footer", blocks[2].Text)

	// The merged block's box spans both fragments.
	assert.InDelta(t, 72, blocks[1].BBox.X0, 0.01)
	assert.InDelta(t, 372, blocks[1].BBox.X1, 0.01)
}

func TestBuildBlocksFontTolerance(t *testing.T) {
	const pageH = 792.0
	frags := []text.TextFragment{
		frag("eleven point", 72, 50, 100, 11, 11, pageH),
		// Within the two point tolerance: stays in the block.
		frag("twelve point", 180, 50, 100, 12, 12, pageH),
		// 2.5 points away: splits.
		frag("fourteen point", 290, 50, 100, 14.5, 14.5, pageH),
	}
	blocks := buildBlocks(frags, nil, pageH)
	require.Len(t, blocks, 2)
	assert.Equal(t, "eleven point twelve point", blocks[0].Text)
	assert.Equal(t, "fourteen point", blocks[1].Text)
}

func TestBuildBlocksSkipsTableFragments(t *testing.T) {
	const pageH = 792.0
	tables := []document.Table{{
		BBox: document.BBox{X0: 50, Y0: 500, X1: 400, Y1: 600},
	}}
	frags := []text.TextFragment{
		frag("outside the table with content", 72, 50, 200, 11, 11, pageH),
		// Center lands inside the table box.
		{Text: "cell value", X: 100, Y: 540, Width: 60, Height: 12, FontSize: 11},
	}
	blocks := buildBlocks(frags, tables, pageH)
	require.Len(t, blocks, 1)
	assert.Equal(t, "outside the table with content", blocks[0].Text)
}

func TestBuildBlocksIgnoresWhitespaceFragments(t *testing.T) {
	const pageH = 792.0
	frags := []text.TextFragment{
		frag("  ", 72, 50, 10, 11, 11, pageH),
		frag("real content", 90, 50, 100, 11, 11, pageH),
	}
	blocks := buildBlocks(frags, nil, pageH)
	require.Len(t, blocks, 1)
	assert.Equal(t, "real content", blocks[0].Text)
}

func TestSortFragmentsReadingOrder(t *testing.T) {
	const pageH = 792.0
	frags := []text.TextFragment{
		frag("right", 300, 100, 50, 11, 11, pageH),
		frag("below", 72, 130, 50, 11, 11, pageH),
		frag("left", 72, 100, 50, 11, 11, pageH),
	}
	sortFragments(frags, pageH)
	assert.Equal(t, "left", frags[0].Text)
	assert.Equal(t, "right", frags[1].Text)
	assert.Equal(t, "below", frags[2].Text)
}

func TestJoinFragmentsLineBreaks(t *testing.T) {
	frags := []text.TextFragment{
		{Text: "one", Y: 700},
		{Text: "two", Y: 700},
		{Text: "three", Y: 680},
	}
	assert.Equal(t, "one two\nthree", joinFragments(frags))
}

func TestInsideTable(t *testing.T) {
	tables := []document.Table{{BBox: document.BBox{X0: 0, Y0: 0, X1: 100, Y1: 100}}}
	assert.True(t, insideTable(document.BBox{X0: 40, Y0: 40, X1: 60, Y1: 60}, tables))
	assert.False(t, insideTable(document.BBox{X0: 140, Y0: 40, X1: 160, Y1: 60}, tables))
	assert.False(t, insideTable(document.BBox{X0: 40, Y0: 40, X1: 60, Y1: 60}, nil))
}
