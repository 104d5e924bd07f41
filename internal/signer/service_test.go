package signer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-doc-signer/internal/config"
	"github.com/a3tai/mcp-doc-signer/internal/errors"
	"github.com/a3tai/mcp-doc-signer/internal/merge"
	"github.com/a3tai/mcp-doc-signer/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "Documentos_Firmados")
	cfg.TempDir = t.TempDir()
	cfg.FontPaths = nil
	cfg.LogFile = ""
	return cfg
}

func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "firmantes.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewService(t *testing.T) {
	_, err := NewService(nil, nil)
	assert.Error(t, err)

	s, err := NewService(testConfig(t), nil)
	require.NoError(t, err)
	defer s.Close()
	assert.False(t, s.HistoryEnabled())
	assert.Contains(t, s.Placeholders().Signature, "<<firma>>")
}

func TestNewService_PlaceholderFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.PlaceholderFile = filepath.Join(t.TempDir(), "markers.yaml")
	require.NoError(t, os.WriteFile(cfg.PlaceholderFile, []byte("signature: [\"{{SIGN}}\"]\n"), 0o644))

	s, err := NewService(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"{{SIGN}}"}, s.Placeholders().Signature)

	require.NoError(t, os.WriteFile(cfg.PlaceholderFile, []byte("unknown: [x]\n"), 0o644))
	_, err = NewService(cfg, nil)
	assert.Error(t, err)
}

func TestService_ValidateTable(t *testing.T) {
	s, err := NewService(testConfig(t), nil)
	require.NoError(t, err)

	ok, msg := s.ValidateTable(writeTable(t, "nombre,dni\nAna,111\n"))
	assert.True(t, ok)
	assert.Contains(t, msg, "1 records")

	ok, msg = s.ValidateTable(writeTable(t, "nombre\nAna\n"))
	assert.False(t, ok)
	assert.Contains(t, msg, "national_id")
}

func TestService_SignRejectsInvalidTable(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewService(cfg, nil)
	require.NoError(t, err)

	tpl := filepath.Join(t.TempDir(), "contrato.pdf")
	require.NoError(t, testutil.WritePDF(tpl, [][]string{{"<<firma>>"}}))

	rep, err := s.Sign(context.Background(), Request{
		Table:     writeTable(t, "nombre\nAna\n"),
		Documents: []string{tpl},
	}, nil)
	assert.Nil(t, rep)
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	_, statErr := os.Stat(cfg.OutputDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestService_SignWithoutTemplates(t *testing.T) {
	s, err := NewService(testConfig(t), nil)
	require.NoError(t, err)

	_, err = s.Sign(context.Background(), Request{
		Table:     writeTable(t, "nombre,dni\nAna,111\n"),
		Directory: t.TempDir(),
	}, nil)
	assert.True(t, errors.IsKind(err, errors.KindValidation))
}

func TestService_SignRecordsHistory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping signing run in short mode")
	}

	cfg := testConfig(t)
	cfg.HistoryDB = filepath.Join(t.TempDir(), "history.db")
	s, err := NewService(cfg, nil)
	require.NoError(t, err)
	defer s.Close()
	require.True(t, s.HistoryEnabled())

	tplDir := t.TempDir()
	require.NoError(t, testutil.WritePDF(filepath.Join(tplDir, "contrato.pdf"),
		[][]string{{"Contrato", "<<firma>>", "<<nombre>>", "<<dni>>"}}))

	out := filepath.Join(t.TempDir(), "salida")
	var events int
	rep, err := s.Sign(context.Background(), Request{
		Table:     writeTable(t, "nombre,dni\nAna,111\nLuis,222\n"),
		Directory: tplDir,
		OutputDir: out,
	}, func(merge.Progress) { events++ })
	require.NoError(t, err)
	assert.Equal(t, 2, events)
	assert.Equal(t, 2, rep.Processed)
	assert.FileExists(t, filepath.Join(out, "contrato_Ana.pdf"))
	assert.FileExists(t, filepath.Join(out, "contrato_Luis.pdf"))

	runs, err := s.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, rep.RunID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Processed)
}

func TestService_HistoryDisabled(t *testing.T) {
	s, err := NewService(testConfig(t), nil)
	require.NoError(t, err)

	_, err = s.History(context.Background(), 5)
	assert.Error(t, err)
	assert.NoError(t, s.Close())
}
