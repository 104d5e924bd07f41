// Package signature produces the image placed for a signer: the supplied
// asset when it exists, otherwise a rendering of the signer's name.
package signature

import (
	"os"
	"sync"

	"github.com/a3tai/mcp-doc-signer/internal/errors"
	"github.com/a3tai/mcp-doc-signer/internal/logging"
	"github.com/a3tai/mcp-doc-signer/internal/records"
)

// Signature is a resolved image path. Temporary images belong to the caller,
// who must call Cleanup once the merge that used them is done.
type Signature struct {
	Path      string
	Temporary bool
	Font      FontSource
	FontPath  string
}

// Cleanup removes a temporary image. Supplied images are never touched and
// repeated calls are no-ops.
func (s *Signature) Cleanup() error {
	if s == nil || !s.Temporary || s.Path == "" {
		return nil
	}
	err := os.Remove(s.Path)
	s.Temporary = false
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Options control signature synthesis
type Options struct {
	Width     int
	Height    int
	FontSize  float64
	FontPaths []string
	TempDir   string
}

// Resolver turns signer records into signature images
type Resolver struct {
	opts Options
	log  *logging.Logger

	once sync.Once
	tf   typeface
}

// NewResolver creates a resolver. A nil logger discards messages.
func NewResolver(opts Options, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.Width <= 0 {
		opts.Width = 150
	}
	if opts.Height <= 0 {
		opts.Height = 60
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 24
	}
	return &Resolver{opts: opts, log: logger}
}

// Resolve returns the record's own signature image when it exists on disk,
// and otherwise synthesizes one from the full name.
func (r *Resolver) Resolve(rec records.SignerRecord) (*Signature, error) {
	if rec.HasSignatureImage() {
		info, err := os.Stat(rec.SignatureImagePath)
		if err == nil && info.Mode().IsRegular() {
			return &Signature{Path: rec.SignatureImagePath}, nil
		}
		r.log.Warnf("signature image not found for %s: %s, generating one", rec.FullName, rec.SignatureImagePath)
	}
	return r.Synthesize(rec.FullName)
}

// Synthesize renders name onto a transparent canvas and writes it to TempDir
func (r *Resolver) Synthesize(name string) (*Signature, error) {
	r.once.Do(func() {
		r.tf = loadTypeface(r.opts.FontPaths)
		if r.tf.source != FontFile {
			r.log.Warnf("no signature font candidate could be loaded, using %s font", r.tf.source)
		}
	})

	img, err := render(r.tf, name, r.opts.Width, r.opts.Height, r.opts.FontSize)
	if err != nil {
		return nil, errors.Wrap(errors.KindSignatureResolution, "render signature", err).
			WithMessage("cannot render signature for " + name)
	}

	path, err := writePNG(r.opts.TempDir, name, img)
	if err != nil {
		return nil, errors.Wrap(errors.KindSignatureResolution, "write signature", err).
			WithPath(r.opts.TempDir)
	}

	r.log.Infof("Signature generated for: %s", name)
	return &Signature{Path: path, Temporary: true, Font: r.tf.source, FontPath: r.tf.path}, nil
}
