package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a3tai/mcp-doc-signer/internal/docx"
	"github.com/a3tai/mcp-doc-signer/internal/pdf"
)

// FindTemplates walks dir for PDF and DOCX templates. Hidden directories,
// office lock files and files the size checks reject are skipped.
func FindTemplates(dir string, maxFileSize int64) ([]TemplateDocument, error) {
	if dir == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", dir)
	}

	absDirectory, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}

	pdfCheck := pdf.NewValidator(maxFileSize)
	docxCheck := docx.Rule(maxFileSize)
	var found []TemplateDocument

	err = filepath.Walk(absDirectory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Continue walking even if we encounter an error with a specific file
			return nil //nolint:nilerr // Intentionally continue on file errors
		}

		name := info.Name()
		if info.IsDir() {
			if path != absDirectory && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			return nil
		}

		doc := NewTemplateDocument(path)
		switch doc.Format {
		case FormatPDF:
			if pdfCheck.ValidateFileInfo(path, info) != nil {
				return nil
			}
		case FormatDOCX:
			if docxCheck.Info(path, info) != nil {
				return nil
			}
		default:
			return nil
		}

		found = append(found, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search directory: %w", err)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}

// CollectTemplates combines explicitly listed files with the templates found
// in dir, dropping duplicates. Listed files keep their position and are kept
// even when their format is unsupported, so the run reports them as skipped.
func CollectTemplates(paths []string, dir string, maxFileSize int64) ([]TemplateDocument, error) {
	seen := make(map[string]bool)
	var out []TemplateDocument

	add := func(doc TemplateDocument) {
		key := doc.Path
		if abs, err := filepath.Abs(doc.Path); err == nil {
			key = abs
		}
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, doc)
	}

	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		add(NewTemplateDocument(p))
	}

	if dir != "" {
		found, err := FindTemplates(dir, maxFileSize)
		if err != nil {
			return nil, err
		}
		for _, doc := range found {
			add(doc)
		}
	}
	return out, nil
}
