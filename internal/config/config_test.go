package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validBatch() *Config {
	cfg := DefaultConfig()
	cfg.Table = "firmantes.xlsx"
	cfg.Documents = []string{"contrato.pdf"}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ModeBatch, cfg.Mode)
	assert.Equal(t, 150, cfg.SignatureWidth)
	assert.Equal(t, 60, cfg.SignatureHeight)
	assert.Equal(t, 12.0, cfg.FontSize)
	assert.Equal(t, 24.0, cfg.SignatureFontSize)
	assert.Equal(t, 2.0, cfg.DocxSignatureWidth)
	assert.Equal(t, DefaultFontPaths, cfg.FontPaths)
	assert.Equal(t, "document_signer.log", cfg.LogFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.MaxFileSize)
	assert.Equal(t, "Documentos_Firmados", filepath.Base(cfg.OutputDir))
	assert.NotEmpty(t, cfg.WorkDir)
	assert.Empty(t, cfg.HistoryDB)

	cfg.FontPaths[0] = "changed"
	assert.Equal(t, "fonts/signature_font.ttf", DefaultFontPaths[0])
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid batch", func(*Config) {}, ""},
		{"valid batch with docs dir", func(c *Config) { c.Documents = nil; c.DocumentDir = "/plantillas" }, ""},
		{"valid stdio without table", func(c *Config) { c.Mode = ModeStdio; c.Table = ""; c.Documents = nil }, ""},
		{"bad mode", func(c *Config) { c.Mode = "server" }, "mode must be"},
		{"missing table", func(c *Config) { c.Table = "" }, "signer table is required"},
		{"missing templates", func(c *Config) { c.Documents = nil }, "at least one template"},
		{"stdio without workdir", func(c *Config) { c.Mode = ModeStdio; c.WorkDir = "" }, "working directory"},
		{"empty output", func(c *Config) { c.OutputDir = "" }, "output directory"},
		{"zero width", func(c *Config) { c.SignatureWidth = 0 }, "signature size"},
		{"negative height", func(c *Config) { c.SignatureHeight = -1 }, "signature size"},
		{"zero font size", func(c *Config) { c.FontSize = 0 }, "font sizes"},
		{"zero docx width", func(c *Config) { c.DocxSignatureWidth = 0 }, "DOCX signature width"},
		{"zero max size", func(c *Config) { c.MaxFileSize = 0 }, "maximum file size"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBatch()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateDoesNotCreateOutputDir(t *testing.T) {
	cfg := validBatch()
	cfg.OutputDir = filepath.Join(t.TempDir(), "not", "yet")

	assert.NoError(t, cfg.Validate())
	_, err := os.Stat(cfg.OutputDir)
	assert.True(t, os.IsNotExist(err))
}

func TestConfig_Modes(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.IsBatchMode())
	assert.False(t, cfg.IsStdioMode())

	cfg.Mode = ModeStdio
	assert.True(t, cfg.IsStdioMode())
	assert.False(t, cfg.IsBatchMode())

	assert.False(t, cfg.IsDebug())
	cfg.LogLevel = "debug"
	assert.True(t, cfg.IsDebug())
}

func TestConfig_String(t *testing.T) {
	s := validBatch().String()
	assert.Contains(t, s, "Mode: batch")
	assert.Contains(t, s, "Table: firmantes.xlsx")
	assert.Contains(t, s, "Signature: 150x60")
}
