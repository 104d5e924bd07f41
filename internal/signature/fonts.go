package signature

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/opentype"
)

// FontSource tells which face rendered a synthesized signature
type FontSource int

const (
	// FontNone: the signature was supplied, nothing was rendered
	FontNone FontSource = iota
	// FontFile: first loadable candidate from the configured font paths
	FontFile
	// FontBuiltinItalic: the embedded Go Italic outline font
	FontBuiltinItalic
	// FontBitmap: the fixed 7x13 bitmap face
	FontBitmap
)

// String returns a short name for the font source
func (s FontSource) String() string {
	switch s {
	case FontFile:
		return "file"
	case FontBuiltinItalic:
		return "builtin-italic"
	case FontBitmap:
		return "bitmap"
	default:
		return "none"
	}
}

// typeface is a parsed outline font, or nil for the bitmap fallback
type typeface struct {
	source FontSource
	path   string
	font   *opentype.Font
}

// loadTypeface returns the first candidate that parses, then Go Italic, then the bitmap face
func loadTypeface(candidates []string) typeface {
	for _, p := range candidates {
		f, err := parseFontFile(p)
		if err != nil {
			continue
		}
		return typeface{source: FontFile, path: p, font: f}
	}

	if f, err := opentype.Parse(goitalic.TTF); err == nil {
		return typeface{source: FontBuiltinItalic, font: f}
	}
	return typeface{source: FontBitmap}
}

func parseFontFile(path string) (*opentype.Font, error) {
	if path == "" {
		return nil, fmt.Errorf("empty font path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".ttc") {
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, err
		}
		if coll.NumFonts() == 0 {
			return nil, fmt.Errorf("font collection %s is empty", path)
		}
		return coll.Font(0)
	}
	return opentype.Parse(data)
}

// face returns a drawing face at the given size. Bitmap faces ignore size.
func (t typeface) face(size float64) (font.Face, error) {
	if t.font == nil {
		return basicfont.Face7x13, nil
	}
	return opentype.NewFace(t.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// scalable reports whether the face can be resized to fit
func (t typeface) scalable() bool {
	return t.font != nil
}
