package filecheck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRule_Stat(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, 0o644))
		return path
	}
	pdf := write("contrato.pdf", []byte("%PDF-1.4"))
	upper := write("ACUERDO.DOCX", []byte("PK"))
	empty := write("vacio.pdf", nil)
	text := write("notas.txt", []byte("hola"))

	pdfRule := Rule{Ext: ".pdf", Kind: "PDF", MaxSize: 100}
	docxRule := Rule{Ext: ".docx", Kind: "DOCX"}

	tests := []struct {
		name    string
		rule    Rule
		path    string
		wantErr string
	}{
		{"valid", pdfRule, pdf, ""},
		{"extension is case insensitive", docxRule, upper, ""},
		{"no size limit", Rule{Ext: ".pdf", Kind: "PDF"}, pdf, ""},
		{"empty path", pdfRule, "", "path cannot be empty"},
		{"missing", pdfRule, filepath.Join(dir, "missing.pdf"), "file does not exist"},
		{"directory", pdfRule, dir, "path is a directory"},
		{"wrong extension", pdfRule, text, "file is not a PDF"},
		{"wrong kind", docxRule, pdf, "file is not a DOCX"},
		{"empty file", pdfRule, empty, "file is empty"},
		{"too large", Rule{Ext: ".pdf", Kind: "PDF", MaxSize: 2}, pdf, "file too large: 8 bytes (max: 2 bytes)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Stat(tt.path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRule_Info(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)

	assert.NoError(t, Rule{Ext: ".pdf", Kind: "PDF", MaxSize: 100}.Info(path, info))
	assert.Error(t, Rule{Ext: ".pdf", Kind: "PDF", MaxSize: 2}.Info(path, info))
	assert.Error(t, Rule{Ext: ".docx", Kind: "DOCX"}.Info(path, info))
}
