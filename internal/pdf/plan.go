package pdf

import (
	"sort"

	"github.com/a3tai/mcp-doc-signer/internal/placeholder"
	"github.com/a3tai/mcp-doc-signer/internal/records"
)

// PageSize is the media box size of one page in points
type PageSize struct {
	Width  float64
	Height float64
}

// PlacementKind says what a placement draws
type PlacementKind int

const (
	// PlaceMask paints an opaque white patch over a marker
	PlaceMask PlacementKind = iota
	// PlaceImage draws the signature image fitted into Rect
	PlaceImage
	// PlaceText writes Text with its baseline at Rect.Y0
	PlaceText
)

// String returns the placement kind name
func (k PlacementKind) String() string {
	switch k {
	case PlaceMask:
		return "mask"
	case PlaceImage:
		return "image"
	case PlaceText:
		return "text"
	default:
		return "unknown"
	}
}

// Placement is one drawing operation on one page
type Placement struct {
	Page     int
	Kind     PlacementKind
	Rect     Rect
	Text     string
	FontSize float64
	Fallback bool
}

// Plan is every placement needed to sign one document, masks of a page before
// anything drawn on top of them
type Plan struct {
	Placements []Placement
}

// ForPage returns the placements of one page in drawing order
func (p Plan) ForPage(page int) []Placement {
	var out []Placement
	for _, pl := range p.Placements {
		if pl.Page == page {
			out = append(out, pl)
		}
	}
	return out
}

// Pages returns the pages touched by the plan in ascending order
func (p Plan) Pages() []int {
	seen := make(map[int]bool)
	var pages []int
	for _, pl := range p.Placements {
		if !seen[pl.Page] {
			seen[pl.Page] = true
			pages = append(pages, pl.Page)
		}
	}
	sort.Ints(pages)
	return pages
}

// HasFallback reports whether any placement is a fallback
func (p Plan) HasFallback() bool {
	for _, pl := range p.Placements {
		if pl.Fallback {
			return true
		}
	}
	return false
}

// PlanOptions sizes the drawn content
type PlanOptions struct {
	SignatureWidth  float64
	SignatureHeight float64
	FontSize        float64
}

const (
	maskPadding        = 1.0
	fallbackRightInset = 200.0
	fallbackBottom     = 40.0
	fallbackLabelled   = 70.0
	labelGap           = 4.0

	NameLabel = "Nombre: "
	IDLabel   = "DNI: "
)

// BuildPlan turns located markers into placements. Every marker is replaced
// in place, and masked when its text is still in the page content. When the document has no signature marker at all the
// image goes near the bottom-right margin of the last page, with labelled
// name and ID lines below it for the families that have no marker either.
func BuildPlan(scan Scan, pages []PageSize, rec records.SignerRecord, opts PlanOptions) Plan {
	var masks, draws []Placement

	for _, m := range scan.Matches {
		if !m.Removed {
			masks = append(masks, Placement{Page: m.Page, Kind: PlaceMask, Rect: pad(m.Rect, maskPadding)})
		}

		switch m.Family {
		case placeholder.FamilySignature:
			draws = append(draws, Placement{
				Page: m.Page,
				Kind: PlaceImage,
				Rect: Rect{
					X0: m.Rect.X0,
					Y0: m.Rect.Y1 - opts.SignatureHeight,
					X1: m.Rect.X0 + opts.SignatureWidth,
					Y1: m.Rect.Y1,
				},
			})
		case placeholder.FamilyName:
			draws = append(draws, textAt(m.Page, m.Rect.X0, m.Baseline, rec.FullName, opts.FontSize, false))
		case placeholder.FamilyID:
			draws = append(draws, textAt(m.Page, m.Rect.X0, m.Baseline, rec.NationalID, opts.FontSize, false))
		}
	}

	if !scan.Has(placeholder.FamilySignature) {
		draws = append(draws, fallback(scan, pages, rec, opts)...)
	}

	return Plan{Placements: order(masks, draws)}
}

// fallback places the image on the last page, plus labelled lines for the
// families without any marker
func fallback(scan Scan, pages []PageSize, rec records.SignerRecord, opts PlanOptions) []Placement {
	last := len(pages)
	if scan.Pages > 0 && scan.Pages < last {
		last = scan.Pages
	}
	if last == 0 {
		return nil
	}
	size := pages[last-1]

	var labels []string
	if !scan.Has(placeholder.FamilyName) {
		labels = append(labels, NameLabel+rec.FullName)
	}
	if !scan.Has(placeholder.FamilyID) {
		labels = append(labels, IDLabel+rec.NationalID)
	}

	x := size.Width - fallbackRightInset
	y := fallbackBottom
	if len(labels) > 0 {
		y = fallbackLabelled
	}

	out := []Placement{{
		Page:     last,
		Kind:     PlaceImage,
		Rect:     Rect{X0: x, Y0: y, X1: x + opts.SignatureWidth, Y1: y + opts.SignatureHeight},
		Fallback: true,
	}}

	baseline := y
	for _, label := range labels {
		baseline -= opts.FontSize + labelGap
		out = append(out, textAt(last, x, baseline, label, opts.FontSize, true))
	}
	return out
}

func textAt(page int, x, baseline float64, text string, size float64, fallback bool) Placement {
	return Placement{
		Page:     page,
		Kind:     PlaceText,
		Rect:     Rect{X0: x, Y0: baseline, X1: x, Y1: baseline + size},
		Text:     text,
		FontSize: size,
		Fallback: fallback,
	}
}

// order groups placements by page, masks first
func order(masks, draws []Placement) []Placement {
	all := append(masks, draws...)
	out := make([]Placement, 0, len(all))
	for _, page := range (Plan{Placements: all}).Pages() {
		for _, pl := range all {
			if pl.Page == page && pl.Kind == PlaceMask {
				out = append(out, pl)
			}
		}
		for _, pl := range all {
			if pl.Page == page && pl.Kind != PlaceMask {
				out = append(out, pl)
			}
		}
	}
	return out
}

func pad(r Rect, d float64) Rect {
	return Rect{X0: r.X0 - d, Y0: r.Y0 - d, X1: r.X1 + d, Y1: r.Y1 + d}
}
