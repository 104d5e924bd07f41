package signature

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/a3tai/mcp-doc-signer/internal/naming"
)

const (
	minFontSize = 8.0
	fitPadding  = 8
)

// render draws name centered on a transparent width x height canvas
func render(tf typeface, name string, width, height int, size float64) (*image.RGBA, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.Transparent, image.Point{}, draw.Src)

	face, err := fitFace(tf, name, width-fitPadding, size)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	bounds, _ := font.BoundString(face, name)
	textW := (bounds.Max.X - bounds.Min.X).Ceil()
	textH := (bounds.Max.Y - bounds.Min.Y).Ceil()

	// bounds are relative to the dot, so subtract the min corner to center the ink box
	x := (width-textW)/2 - bounds.Min.X.Floor()
	y := (height-textH)/2 - bounds.Min.Y.Floor()

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(name)
	return canvas, nil
}

// fitFace steps the size down until name fits maxWidth or the minimum size is reached
func fitFace(tf typeface, name string, maxWidth int, size float64) (font.Face, error) {
	for {
		face, err := tf.face(size)
		if err != nil {
			return nil, err
		}
		if !tf.scalable() || size <= minFontSize || font.MeasureString(face, name).Ceil() <= maxWidth {
			return face, nil
		}
		face.Close()
		size -= 2
		if size < minFontSize {
			size = minFontSize
		}
	}
}

// writePNG saves img as temp_signature_<name>_*.png inside dir
func writePNG(dir, name string, img image.Image) (string, error) {
	f, err := os.CreateTemp(dir, "temp_signature_"+naming.Sanitize(name)+"_*.png")
	if err != nil {
		return "", err
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
