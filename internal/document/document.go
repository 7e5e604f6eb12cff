package document

import "sort"

// Mode selects the shape of every page in a Document. It is chosen once per
// extraction run, never per page.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeRasterized Mode = "rasterized"
)

// Valid reports whether m is a known extraction mode.
func (m Mode) Valid() bool {
	return m == ModeStructured || m == ModeRasterized
}

// BBox is a rectangle in PDF points, origin bottom-left.
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Union returns the smallest box containing both b and other.
func (b BBox) Union(other BBox) BBox {
	if b == (BBox{}) {
		return other
	}
	if other.X0 < b.X0 {
		b.X0 = other.X0
	}
	if other.Y0 < b.Y0 {
		b.Y0 = other.Y0
	}
	if other.X1 > b.X1 {
		b.X1 = other.X1
	}
	if other.Y1 > b.Y1 {
		b.Y1 = other.Y1
	}
	return b
}

// TextBlock is a run of text whose glyphs share a font size (within tolerance)
// and sit close enough vertically to read as one unit.
type TextBlock struct {
	Text     string  `json:"text"`
	BBox     BBox    `json:"bbox"`
	FontSize float64 `json:"font_size"`
}

// Table is a row-major grid of cell strings.
type Table struct {
	Rows  [][]string `json:"rows"`
	BBox  BBox       `json:"bbox"`
	Index int        `json:"index"`
}

// ImageRef points at an image file written to the asset directory.
type ImageRef struct {
	Path   string `json:"path"`
	BBox   BBox   `json:"bbox"`
	Index  int    `json:"index"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ElementKind discriminates LayoutElement payloads.
type ElementKind string

const (
	ElementText  ElementKind = "text"
	ElementTable ElementKind = "table"
	ElementImage ElementKind = "image"
)

// LayoutElement carries exactly one payload, selected by Kind, plus the
// vertical offset from the top of the page used to reconstruct reading order.
type LayoutElement struct {
	Kind     ElementKind `json:"kind"`
	Position float64     `json:"position"`
	Text     *TextBlock  `json:"text,omitempty"`
	Table    *Table      `json:"table,omitempty"`
	Image    *ImageRef   `json:"image,omitempty"`
}

// Page is one page of a Document. Which fields are populated depends on the
// Document's Mode: structured pages carry Blocks/Tables/Images/Elements and
// BBox, rasterized pages carry ImagePath/Width/Height. Text is populated in
// structured mode and usually empty in rasterized mode.
type Page struct {
	Number int    `json:"page_number"`
	Text   string `json:"text"`

	// Structured mode.
	Blocks   []TextBlock     `json:"blocks,omitempty"`
	Tables   []Table         `json:"tables,omitempty"`
	Images   []ImageRef      `json:"images,omitempty"`
	Elements []LayoutElement `json:"elements,omitempty"`
	BBox     BBox            `json:"bbox,omitempty"`

	// Rasterized mode.
	ImagePath string `json:"image_path,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// SortElements orders the element list top-to-bottom, keeping insertion order
// for elements at the same offset.
func (p *Page) SortElements() {
	sort.SliceStable(p.Elements, func(i, j int) bool {
		return p.Elements[i].Position < p.Elements[j].Position
	})
}

// Document is the normalized result of extracting one PDF.
// Invariant: TotalPages == len(Pages) and page numbers are contiguous from 1.
type Document struct {
	Mode       Mode              `json:"mode"`
	Title      string            `json:"title"`
	TotalPages int               `json:"total_page_count"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Pages      []Page            `json:"pages"`
}

// Page returns the page with the given 1-based number, or nil.
func (d *Document) Page(number int) *Page {
	if number < 1 || number > len(d.Pages) {
		return nil
	}
	return &d.Pages[number-1]
}

// Renumber rewrites page numbers to be contiguous from 1 and refreshes
// TotalPages. Called after pages have been dropped.
func (d *Document) Renumber() {
	for i := range d.Pages {
		d.Pages[i].Number = i + 1
	}
	d.TotalPages = len(d.Pages)
}
