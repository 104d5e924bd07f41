// Package pdf locates markers in PDF templates and stamps signatures, names
// and IDs over them.
package pdf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/a3tai/mcp-doc-signer/internal/errors"
	"github.com/a3tai/mcp-doc-signer/internal/logging"
	"github.com/a3tai/mcp-doc-signer/internal/placeholder"
	"github.com/a3tai/mcp-doc-signer/internal/records"
	"github.com/a3tai/mcp-doc-signer/internal/signature"
)

// Options configures the PDF merger
type Options struct {
	SignatureWidth  float64
	SignatureHeight float64
	FontSize        float64
	MaxFileSize     int64
	Placeholders    placeholder.Set
}

// Merger stamps signatures, names and IDs into PDF templates
type Merger struct {
	validator *Validator
	opts      Options
	log       *logging.Logger
}

// NewMerger creates a PDF merger. A nil logger discards messages.
func NewMerger(opts Options, logger *logging.Logger) *Merger {
	if logger == nil {
		logger = logging.Discard()
	}
	api.DisableConfigDir()
	return &Merger{
		validator: NewValidator(opts.MaxFileSize),
		opts:      opts,
		log:       logger,
	}
}

// Scan locates the markers of the configured set in a template
func (m *Merger) Scan(templatePath string) (Scan, error) {
	return FindMarkers(templatePath, m.opts.Placeholders)
}

// Plan computes the placements for one record without writing anything
func (m *Merger) Plan(templatePath string, rec records.SignerRecord) (Plan, error) {
	scan, err := m.Scan(templatePath)
	if err != nil {
		return Plan{}, err
	}
	pages, err := PageSizes(templatePath)
	if err != nil {
		return Plan{}, err
	}
	return BuildPlan(scan, pages, rec, m.planOptions()), nil
}

// Merge writes a signed copy of templatePath to outputPath. Marker text is
// removed from the page content first; markers that cannot be rewritten are
// covered with a white patch. The template is never modified and every
// intermediate file is removed before returning.
func (m *Merger) Merge(templatePath, outputPath string, rec records.SignerRecord, sig *signature.Signature) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.KindMerge, "merge pdf", "panic: %v", r).WithPath(templatePath)
		}
	}()

	if sig == nil || sig.Path == "" {
		return errors.New(errors.KindSignatureResolution, "merge pdf", "no signature image").WithPath(templatePath)
	}
	if samePath(templatePath, outputPath) {
		return errors.New(errors.KindMerge, "merge pdf", "output would overwrite the template").WithPath(outputPath)
	}
	if err := m.validator.ValidateTemplate(templatePath); err != nil {
		return errors.Wrap(errors.KindMerge, "validate template", err).WithPath(templatePath)
	}

	scan, err := m.Scan(templatePath)
	if err != nil {
		return errors.Wrap(errors.KindMerge, "locate markers", err).WithPath(templatePath)
	}
	pages, err := PageSizes(templatePath)
	if err != nil {
		return errors.Wrap(errors.KindMerge, "locate markers", err).WithPath(templatePath)
	}

	work, err := os.MkdirTemp(filepath.Dir(outputPath), ".signing-*")
	if err != nil {
		return errors.Wrap(errors.KindMerge, "merge pdf", err).WithPath(outputPath)
	}
	defer os.RemoveAll(work)

	source := templatePath
	if len(scan.Matches) > 0 {
		scrubbed := filepath.Join(work, "scrubbed.pdf")
		r, err := scrubFile(templatePath, scrubbed, scan.literalsByPage())
		switch {
		case err != nil:
			m.log.Warnf("cannot remove marker text from %s, masking it instead: %v", filepath.Base(templatePath), err)
		case r.total() > 0:
			scan = markRemoved(scan, r)
			source = scrubbed
		}
	}

	plan := BuildPlan(scan, pages, rec, m.planOptions())
	if plan.HasFallback() {
		m.log.Debugf("no signature marker in %s, using fallback placement", filepath.Base(templatePath))
	}

	st, err := newStamper(work, sig.Path)
	if err != nil {
		return errors.Wrap(errors.KindMerge, "merge pdf", err).WithPath(sig.Path)
	}
	stamps, err := st.stamps(plan)
	if err != nil {
		return errors.Wrap(errors.KindMerge, "merge pdf", err).WithPath(templatePath)
	}

	tmp := filepath.Join(work, "signed.pdf")
	if err := api.AddWatermarksSliceMapFile(source, tmp, stamps, relaxedConfig()); err != nil {
		return errors.Wrap(errors.KindMerge, "stamp pdf", err).WithPath(templatePath)
	}
	if err := api.ValidateFile(tmp, relaxedConfig()); err != nil {
		return errors.Wrap(errors.KindMerge, "validate output", err).WithPath(outputPath)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		return errors.Wrap(errors.KindMerge, "write output", err).WithPath(outputPath)
	}

	m.log.Infof("PDF signed successfully: %s", outputPath)
	return nil
}

func (m *Merger) planOptions() PlanOptions {
	return PlanOptions{
		SignatureWidth:  m.opts.SignatureWidth,
		SignatureHeight: m.opts.SignatureHeight,
		FontSize:        m.opts.FontSize,
	}
}

// PageSizes returns the media box size of every page
func PageSizes(path string) ([]PageSize, error) {
	dims, err := api.PageDimsFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	out := make([]PageSize, len(dims))
	for i, d := range dims {
		out[i] = PageSize{Width: d.Width, Height: d.Height}
	}
	return out, nil
}

func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
