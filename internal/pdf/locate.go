package pdf

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/mcp-doc-signer/internal/placeholder"
)

// Rect is an axis-aligned box in PDF user space, origin at the bottom-left
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns the horizontal extent of the box
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent of the box
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Match is one marker literal located on a page
type Match struct {
	Page     int                `json:"page"`
	Family   placeholder.Family `json:"family"`
	Literal  string             `json:"literal"`
	Rect     Rect               `json:"rect"`
	Baseline float64            `json:"baseline"`
	FontSize float64            `json:"font_size"`
	// Removed is set once the marker text was taken out of the page content
	Removed  bool               `json:"-"`
}

// Scan is the result of locating markers in a document
type Scan struct {
	Pages   int     `json:"pages"`
	Matches []Match `json:"matches"`
}

// Has reports whether any page holds a marker of the family
func (s Scan) Has(f placeholder.Family) bool {
	for _, m := range s.Matches {
		if m.Family == f {
			return true
		}
	}
	return false
}

// OnPage returns the matches of one page in document order
func (s Scan) OnPage(page int) []Match {
	var out []Match
	for _, m := range s.Matches {
		if m.Page == page {
			out = append(out, m)
		}
	}
	return out
}

// PagesWith returns the sorted page numbers holding a marker of the family
func (s Scan) PagesWith(f placeholder.Family) []int {
	var pages []int
	for _, m := range s.Matches {
		if m.Family == f && (len(pages) == 0 || pages[len(pages)-1] != m.Page) {
			pages = append(pages, m.Page)
		}
	}
	return pages
}

const (
	defaultFontSize = 12.0
	// glyph width estimate, in em, for fonts without a width table
	estimatedAdvance = 0.5
	descentRatio     = 0.25
)

// FindMarkers locates every marker literal of set in the PDF at path
func FindMarkers(path string, set placeholder.Set) (scan Scan, err error) {
	defer func() {
		if r := recover(); r != nil {
			scan, err = Scan{}, fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return Scan{}, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	scan.Pages = r.NumPage()
	for i := 1; i <= scan.Pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, l := range groupLines(layoutGlyphs(p.Content().Text)) {
			for _, occ := range set.FindEvery(l.text) {
				scan.Matches = append(scan.Matches, l.match(i, occ))
			}
		}
	}
	return scan, nil
}

// glyph is one decoded text unit with its estimated horizontal extent
type glyph struct {
	s    string
	x, y float64
	w    float64
	size float64
}

// layoutGlyphs assigns an x position and width to every text unit. Units
// emitted by a font without widths share the x of their string start, so
// consecutive ones are advanced by the estimated width instead.
func layoutGlyphs(texts []pdf.Text) []glyph {
	out := make([]glyph, 0, len(texts))
	var prev pdf.Text
	cursor := 0.0

	for i, t := range texts {
		size := t.FontSize
		if size <= 0 {
			size = defaultFontSize
		}

		w := t.W
		if w <= 0 {
			w = float64(utf8.RuneCountInString(t.S)) * estimatedAdvance * size
		}

		x := t.X
		if i > 0 && t.W <= 0 && prev.W <= 0 && almostEqual(t.X, prev.X) && almostEqual(t.Y, prev.Y) {
			x = cursor
		}

		out = append(out, glyph{s: t.S, x: x, y: t.Y, w: w, size: size})
		prev = t
		cursor = x + w
	}
	return out
}

// line is a run of glyphs on one baseline
type line struct {
	text    string
	glyphs  []glyph
	offsets []int
}

func groupLines(glyphs []glyph) []line {
	var lines []line
	var cur *line

	for _, g := range glyphs {
		if cur != nil {
			last := cur.glyphs[len(cur.glyphs)-1]
			if math.Abs(g.y-last.y) > last.size/2 || g.x < last.x-last.size {
				lines = append(lines, *cur)
				cur = nil
			}
		}
		if cur == nil {
			cur = &line{}
		}
		cur.offsets = append(cur.offsets, len(cur.text))
		cur.glyphs = append(cur.glyphs, g)
		cur.text += g.s
	}
	if cur != nil {
		lines = append(lines, *cur)
	}
	return lines
}

// match converts a byte range of the line text into a page match
func (l line) match(page int, occ placeholder.Occurrence) Match {
	first, last := -1, -1
	for i, off := range l.offsets {
		if off+len(l.glyphs[i].s) <= occ.Start {
			continue
		}
		if off >= occ.End {
			break
		}
		if first < 0 {
			first = i
		}
		last = i
	}

	g0, g1 := l.glyphs[first], l.glyphs[last]
	size := g0.size
	return Match{
		Page:    page,
		Family:  occ.Family,
		Literal: occ.Literal,
		Rect: Rect{
			X0: g0.x,
			Y0: g0.y - descentRatio*size,
			X1: g1.x + g1.w,
			Y1: g0.y + size,
		},
		Baseline: g0.y,
		FontSize: size,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}
