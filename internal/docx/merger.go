// Package docx merges signatures, names and IDs into WordprocessingML templates.
package docx

import (
	"fmt"
	"path/filepath"

	"github.com/beevik/etree"

	"github.com/a3tai/mcp-doc-signer/internal/errors"
	"github.com/a3tai/mcp-doc-signer/internal/filecheck"
	"github.com/a3tai/mcp-doc-signer/internal/logging"
	"github.com/a3tai/mcp-doc-signer/internal/placeholder"
	"github.com/a3tai/mcp-doc-signer/internal/records"
	"github.com/a3tai/mcp-doc-signer/internal/signature"
)

const (
	NameLabel = "Nombre: "
	IDLabel   = "DNI: "
)

// Options configures the DOCX merger
type Options struct {
	SignatureWidthInches float64
	MaxFileSize          int64
	Placeholders         placeholder.Set
}

// Merger fills DOCX templates
type Merger struct {
	opts Options
	log  *logging.Logger
}

// NewMerger creates a DOCX merger. A nil logger discards messages.
func NewMerger(opts Options, logger *logging.Logger) *Merger {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.SignatureWidthInches <= 0 {
		opts.SignatureWidthInches = 2.0
	}
	return &Merger{opts: opts, log: logger}
}

// Merge writes a filled copy of templatePath to outputPath. The template is
// never modified.
func (m *Merger) Merge(templatePath, outputPath string, rec records.SignerRecord, sig *signature.Signature) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.KindMerge, "merge docx", "panic: %v", r).WithPath(templatePath)
		}
	}()

	if sig == nil || sig.Path == "" {
		return errors.New(errors.KindSignatureResolution, "merge docx", "no signature image").WithPath(templatePath)
	}
	if samePath(templatePath, outputPath) {
		return errors.New(errors.KindMerge, "merge docx", "output would overwrite the template").WithPath(outputPath)
	}
	if err := m.ValidateTemplate(templatePath); err != nil {
		return errors.Wrap(errors.KindMerge, "validate template", err).WithPath(templatePath)
	}

	p, err := openPackage(templatePath)
	if err != nil {
		return errors.Wrap(errors.KindMerge, "open docx", err).WithPath(templatePath)
	}

	doc := etree.NewDocument()
	data, _ := p.get(documentPart)
	if err := doc.ReadFromBytes(data); err != nil {
		return errors.Wrap(errors.KindMerge, "parse document", err).WithPath(templatePath)
	}

	e := &editor{pkg: p, doc: doc, sigPath: sig.Path, width: m.opts.SignatureWidthInches}
	found, err := e.fill(m.opts.Placeholders, rec)
	if err != nil {
		return errors.Wrap(errors.KindMerge, "fill markers", err).WithPath(templatePath)
	}
	if !found {
		m.log.Debugf("no markers in %s, appending signature block", filepath.Base(templatePath))
		if err := e.appendBlock(rec); err != nil {
			return errors.Wrap(errors.KindMerge, "append signature block", err).WithPath(templatePath)
		}
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return errors.Wrap(errors.KindMerge, "serialize document", err).WithPath(templatePath)
	}
	p.set(documentPart, out)

	if err := p.writeFile(outputPath, filepath.Dir(outputPath)); err != nil {
		return errors.Wrap(errors.KindMerge, "write output", err).WithPath(outputPath)
	}

	m.log.Infof("DOCX signed successfully: %s", outputPath)
	return nil
}

// ValidateTemplate checks that path is a non-empty .docx file under the size limit
func (m *Merger) ValidateTemplate(path string) error {
	return Rule(m.opts.MaxFileSize).Stat(path)
}

// Rule is the file check applied to DOCX templates
func Rule(maxFileSize int64) filecheck.Rule {
	return filecheck.Rule{Ext: ".docx", Kind: "DOCX", MaxSize: maxFileSize}
}

// editor applies one record to one parsed document
type editor struct {
	pkg     *pkg
	doc     *etree.Document
	sigPath string
	width   float64
	pic     *picture
}

// fill walks every paragraph and reports whether any marker was found
func (e *editor) fill(set placeholder.Set, rec records.SignerRecord) (bool, error) {
	found := false
	for _, p := range paragraphs(e.doc) {
		text := p.Text()
		if !set.ContainsAny(text) {
			continue
		}
		found = true

		if set.Contains(text, placeholder.FamilySignature) {
			run, err := e.pictureRun()
			if err != nil {
				return found, err
			}
			p.clear()
			p.alignLeft()
			p.el.AddChild(run)
			continue
		}

		p.replace(set, placeholder.FamilyName, rec.FullName)
		p.replace(set, placeholder.FamilyID, rec.NationalID)
	}
	return found, nil
}

// appendBlock adds a blank line, the picture, then the name and ID lines
func (e *editor) appendBlock(rec records.SignerRecord) error {
	run, err := e.pictureRun()
	if err != nil {
		return err
	}
	picPara := newTextParagraph("")
	picPara.AddChild(run)

	if !appendToBody(e.doc,
		newTextParagraph(""),
		picPara,
		newTextParagraph(NameLabel+rec.FullName),
		newTextParagraph(IDLabel+rec.NationalID),
	) {
		return fmt.Errorf("document has no body")
	}
	return nil
}

// pictureRun registers the image on first use and returns a new drawing run
func (e *editor) pictureRun() (*etree.Element, error) {
	if e.pic == nil {
		pic, err := e.pkg.addImage(e.sigPath, e.width)
		if err != nil {
			return nil, err
		}
		e.pic = pic
	}
	return e.pic.run(nextDocPrID(e.doc))
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
