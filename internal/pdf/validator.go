package pdf

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/mcp-doc-signer/internal/filecheck"
)

// Validator checks PDF templates before they are merged
type Validator struct {
	rule filecheck.Rule
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		rule: filecheck.Rule{Ext: ".pdf", Kind: "PDF", MaxSize: maxFileSize},
	}
}

// ValidateTemplate checks that path is a readable, non-empty PDF under the size limit
func (v *Validator) ValidateTemplate(filePath string) error {
	if err := v.rule.Stat(filePath); err != nil {
		return err
	}

	f, _, err := pdf.Open(filePath)
	if err != nil {
		return fmt.Errorf("invalid PDF file: %w", err)
	}
	defer f.Close()

	return nil
}

// ValidateFileInfo performs basic validation on file info without opening the PDF
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	return v.rule.Info(filePath, fileInfo)
}
