package pdf

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // signature assets may be JPEG
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const stampFont = "Helvetica"

// stamper converts plan placements into pdfcpu stamps
type stamper struct {
	workDir   string
	sigPath   string
	sigWidth  float64
	sigHeight float64
	patches   map[[2]int]string
}

func newStamper(workDir, sigPath string) (*stamper, error) {
	w, h, err := imageSize(sigPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read signature image: %w", err)
	}
	return &stamper{
		workDir:   workDir,
		sigPath:   sigPath,
		sigWidth:  float64(w),
		sigHeight: float64(h),
		patches:   make(map[[2]int]string),
	}, nil
}

// stamps builds the per-page stamp lists in plan order
func (s *stamper) stamps(plan Plan) (map[int][]*model.Watermark, error) {
	out := make(map[int][]*model.Watermark)
	for _, pl := range plan.Placements {
		var (
			wm  *model.Watermark
			err error
		)
		switch pl.Kind {
		case PlaceMask:
			wm, err = s.mask(pl.Rect)
		case PlaceImage:
			wm, err = s.image(pl.Rect)
		case PlaceText:
			wm, err = textStamp(pl.Text, pl.FontSize, pl.Rect.X0, pl.Rect.Y0)
		default:
			err = fmt.Errorf("unknown placement kind %d", pl.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("page %d %s: %w", pl.Page, pl.Kind, err)
		}
		out[pl.Page] = append(out[pl.Page], wm)
	}
	return out, nil
}

// image fits the signature into r keeping its aspect ratio, anchored top-left
func (s *stamper) image(r Rect) (*model.Watermark, error) {
	scale := math.Min(r.Width()/s.sigWidth, r.Height()/s.sigHeight)
	return imageStamp(s.sigPath, scale, r.X0, r.Y1-s.sigHeight*scale)
}

// mask covers r with a white patch
func (s *stamper) mask(r Rect) (*model.Watermark, error) {
	w := int(math.Ceil(r.Width()))
	h := int(math.Ceil(r.Height()))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("empty mask area")
	}

	key := [2]int{w, h}
	path, ok := s.patches[key]
	if !ok {
		var err error
		if path, err = writePatch(s.workDir, w, h); err != nil {
			return nil, err
		}
		s.patches[key] = path
	}
	return imageStamp(path, 1, r.X0, r.Y0)
}

func imageStamp(path string, scale, x, y float64) (*model.Watermark, error) {
	desc := fmt.Sprintf("scale:%.4f abs, pos:bl, rot:0, op:1", scale)
	wm, err := pdfcpu.ParseImageWatermarkDetails(path, desc, true, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to parse image stamp: %w", err)
	}
	wm.Dx = x
	wm.Dy = y
	return wm, nil
}

// textStamp writes text with its baseline at y
func textStamp(text string, size, x, y float64) (*model.Watermark, error) {
	desc := fmt.Sprintf("font:%s, points:%d, fillcolor:#000000, scale:1 abs, pos:bl, rot:0, op:1",
		stampFont, int(math.Round(size)))
	wm, err := pdfcpu.ParseTextWatermarkDetails(text, desc, true, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text stamp: %w", err)
	}
	wm.Dx = x
	wm.Dy = y - descentRatio*size
	return wm, nil
}

// writePatch saves an opaque white w x h PNG in dir
func writePatch(dir string, w, h int) (string, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	path := filepath.Join(dir, fmt.Sprintf("mask_%dx%d.png", w, h))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return 0, 0, fmt.Errorf("image has no area")
	}
	return cfg.Width, cfg.Height, nil
}
