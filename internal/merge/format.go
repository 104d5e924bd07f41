package merge

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-doc-signer/internal/records"
	"github.com/a3tai/mcp-doc-signer/internal/signature"
)

// Format is the closed set of template formats
type Format int

const (
	FormatUnsupported Format = iota
	FormatPDF
	FormatDOCX
)

// String returns the format name
func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatDOCX:
		return "docx"
	default:
		return "unsupported"
	}
}

// DetectFormat maps a file extension onto a Format, case-insensitively
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	default:
		return FormatUnsupported
	}
}

// TemplateDocument is a template file and its detected format
type TemplateDocument struct {
	Path   string `json:"path"`
	Format Format `json:"-"`
}

// NewTemplateDocument detects the format of path
func NewTemplateDocument(path string) TemplateDocument {
	return TemplateDocument{Path: path, Format: DetectFormat(path)}
}

// Name returns the file name of the template
func (d TemplateDocument) Name() string {
	return filepath.Base(d.Path)
}

// String describes a template for logs
func (d TemplateDocument) String() string {
	return fmt.Sprintf("%s (%s)", d.Path, d.Format)
}

// Strategy merges one record into one template of a given format
type Strategy interface {
	Merge(templatePath, outputPath string, rec records.SignerRecord, sig *signature.Signature) error
}

// SignatureSource resolves the signature image of a record
type SignatureSource interface {
	Resolve(rec records.SignerRecord) (*signature.Signature, error)
}

var _ SignatureSource = (*signature.Resolver)(nil)
