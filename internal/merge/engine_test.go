package merge

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/a3tai/mcp-doc-signer/internal/errors"
	"github.com/a3tai/mcp-doc-signer/internal/logging"
	"github.com/a3tai/mcp-doc-signer/internal/records"
	"github.com/a3tai/mcp-doc-signer/internal/report"
	"github.com/a3tai/mcp-doc-signer/internal/signature"
)

// fakeSignatures hands out temporary files and remembers them
type fakeSignatures struct {
	dir   string
	fail  map[string]bool
	mu    sync.Mutex
	given []string
}

func (f *fakeSignatures) Resolve(rec records.SignerRecord) (*signature.Signature, error) {
	if f.fail[rec.FullName] {
		return nil, errors.New(errors.KindSignatureResolution, "render signature", "no font")
	}
	file, err := os.CreateTemp(f.dir, "temp_signature_*.png")
	if err != nil {
		return nil, err
	}
	file.Close()

	f.mu.Lock()
	f.given = append(f.given, file.Name())
	f.mu.Unlock()
	return &signature.Signature{Path: file.Name(), Temporary: true}, nil
}

// fakeStrategy writes a marker file, or fails/panics for selected signers
type fakeStrategy struct {
	fail  map[string]bool
	panic map[string]bool
	calls []string
}

func (f *fakeStrategy) Merge(templatePath, outputPath string, rec records.SignerRecord, sig *signature.Signature) error {
	f.calls = append(f.calls, filepath.Base(outputPath))
	if f.panic[rec.FullName] {
		panic("boom")
	}
	if f.fail[rec.FullName] {
		return errors.New(errors.KindMerge, "merge", "template is broken").WithPath(templatePath)
	}
	if _, err := os.Stat(sig.Path); err != nil {
		return fmt.Errorf("signature missing during merge: %w", err)
	}
	return os.WriteFile(outputPath, []byte(rec.FullName), 0o644)
}

type fakeRecorder struct {
	got *report.RunReport
	err error
}

func (f *fakeRecorder) Record(_ context.Context, r *report.RunReport) error {
	f.got = r
	return f.err
}

var (
	ana  = records.NewSignerRecord("Ana", "111", "", "", "")
	luis = records.NewSignerRecord("Luis", "222", "", "", "")
)

type harness struct {
	sigs   *fakeSignatures
	pdf    *fakeStrategy
	docx   *fakeStrategy
	engine *Engine
	out    string
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		sigs: &fakeSignatures{dir: t.TempDir(), fail: map[string]bool{}},
		pdf:  &fakeStrategy{fail: map[string]bool{}, panic: map[string]bool{}},
		docx: &fakeStrategy{fail: map[string]bool{}, panic: map[string]bool{}},
		out:  filepath.Join(t.TempDir(), "firmados"),
	}
	clock := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	opts = append([]Option{WithClock(func() time.Time { return clock })}, opts...)
	h.engine = NewEngine(h.sigs, map[Format]Strategy{FormatPDF: h.pdf, FormatDOCX: h.docx}, opts...)
	return h
}

func (h *harness) assertSignaturesRemoved(t *testing.T) {
	t.Helper()
	for _, p := range h.sigs.given {
		assert.NoFileExists(t, p)
	}
}

func docs(paths ...string) []TemplateDocument {
	out := make([]TemplateDocument, len(paths))
	for i, p := range paths {
		out[i] = NewTemplateDocument(p)
	}
	return out
}

func TestEngine_Run_Scenario(t *testing.T) {
	h := newHarness(t)
	var events []Progress

	rep, err := h.engine.Run(context.Background(), docs("/tpl/contrato.pdf"), []records.SignerRecord{ana, luis},
		h.out, func(p Progress) { events = append(events, p) })
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Processed)
	assert.Equal(t, 0, rep.Failed)
	assert.Equal(t, []string{"contrato_Ana.pdf", "contrato_Luis.pdf"}, h.pdf.calls)
	assert.FileExists(t, filepath.Join(h.out, "contrato_Ana.pdf"))
	assert.FileExists(t, filepath.Join(h.out, "contrato_Luis.pdf"))
	assert.Equal(t, filepath.Join(h.out, "contrato_Ana.pdf"), rep.Results[0].OutputFile)
	assert.Equal(t, "contrato.pdf", rep.Results[0].Document)
	assert.Equal(t, "111", rep.Results[0].SignerID)

	require.Len(t, events, 2)
	assert.Equal(t, Progress{Index: 1, Total: 2, Percent: 50, Document: "contrato.pdf", Signer: "Ana", Status: PairSuccess}, events[0])
	assert.Equal(t, "Processing contrato.pdf - Luis", events[1].Message())
	assert.Equal(t, 100.0, events[1].Percent)

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, filepath.Join(h.out, "reporte_firmas_20240203_040506.xlsx"), rep.ReportPath)
	h.assertSignaturesRemoved(t)
}

func TestEngine_Run_Counts(t *testing.T) {
	h := newHarness(t)
	h.pdf.fail["Luis"] = true
	h.docx.panic["Ana"] = true
	h.sigs.fail["Eva"] = true
	eva := records.NewSignerRecord("Eva", "333", "", "", "")

	documents := docs("/tpl/a.pdf", "/tpl/notes.txt", "/tpl/b.DOCX")
	recs := []records.SignerRecord{ana, luis, eva}
	var events []Progress

	rep, err := h.engine.Run(context.Background(), documents, recs, h.out, func(p Progress) { events = append(events, p) })
	require.NoError(t, err)

	n, m := len(documents), len(recs)
	assert.Equal(t, 3, rep.Skipped)
	assert.Equal(t, n*m-rep.Skipped, rep.Processed+rep.Failed)
	assert.Len(t, rep.Results, rep.Processed+rep.Failed)
	assert.Equal(t, 2, rep.Processed)
	assert.Equal(t, 4, rep.Failed)

	require.Len(t, events, n*m)
	for i, e := range events {
		assert.Equal(t, i+1, e.Index)
		assert.Equal(t, n*m, e.Total)
	}
	assert.Equal(t, PairSkipped, events[3].Status)
	assert.Equal(t, "notes.txt", events[3].Document)

	byKey := map[string]report.MergeResult{}
	for _, r := range rep.Results {
		byKey[r.Document+"/"+r.SignerName] = r
	}
	assert.Contains(t, byKey["a.pdf/Luis"].Error, "template is broken")
	assert.Contains(t, byKey["b.DOCX/Ana"].Error, "panic: boom")
	assert.Contains(t, byKey["a.pdf/Eva"].Error, "SIGNATURE_RESOLUTION")
	assert.Empty(t, byKey["a.pdf/Eva"].OutputFile)
	assert.Equal(t, report.StatusSuccess, byKey["b.DOCX/Luis"].Status)
	assert.Equal(t, filepath.Join(h.out, "b_Luis.DOCX"), byKey["b.DOCX/Luis"].OutputFile)

	// strategy never sees a signer whose signature could not be resolved
	assert.NotContains(t, h.pdf.calls, "a_Eva.pdf")
	h.assertSignaturesRemoved(t)

	f, err := excelize.OpenFile(rep.ReportPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	assert.Len(t, rows, 1+rep.Processed+rep.Failed)
}

func TestEngine_Run_DuplicateNames(t *testing.T) {
	h := newHarness(t)
	other := records.NewSignerRecord("Ana", "999", "", "", "")

	rep, err := h.engine.Run(context.Background(), docs("/tpl/contrato.pdf"), []records.SignerRecord{ana, other, ana}, h.out, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"contrato_Ana.pdf", "contrato_Ana_2.pdf", "contrato_Ana_3.pdf"}, h.pdf.calls)
	assert.Equal(t, 3, rep.Processed)
}

func TestEngine_Run_SanitizedNames(t *testing.T) {
	h := newHarness(t)
	jose := records.NewSignerRecord("José", "1", "Núñez", "", "")

	_, err := h.engine.Run(context.Background(), docs("/tpl/acta final.pdf"), []records.SignerRecord{jose}, h.out, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"acta final_Jose_Nunez.pdf"}, h.pdf.calls)
}

func TestEngine_Run_OutputDirError(t *testing.T) {
	h := newHarness(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	rep, err := h.engine.Run(context.Background(), docs("/tpl/a.pdf"), []records.SignerRecord{ana}, filepath.Join(blocker, "out"), nil)
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.Equal(t, errors.KindEnvironment, errors.KindOf(err))
	assert.Empty(t, h.pdf.calls)
}

func TestEngine_Run_NoResultsNoReport(t *testing.T) {
	h := newHarness(t)

	rep, err := h.engine.Run(context.Background(), docs("/tpl/a.odt"), []records.SignerRecord{ana}, h.out, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Skipped)
	assert.Empty(t, rep.ReportPath)

	entries, err := os.ReadDir(h.out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEngine_Run_Recorder(t *testing.T) {
	rec := &fakeRecorder{err: stderrors.New("disk full")}
	h := newHarness(t, WithRecorder(rec), WithoutReport())

	rep, err := h.engine.Run(context.Background(), docs("/tpl/a.pdf"), []records.SignerRecord{ana}, h.out, nil)
	require.NoError(t, err)
	assert.Same(t, rep, rec.got)
	assert.Empty(t, rep.ReportPath)
}

func TestEngine_Run_Cancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := h.engine.Run(ctx, docs("/tpl/a.pdf"), []records.SignerRecord{ana, luis}, h.out, nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, rep)
	assert.Empty(t, rep.Results)
	assert.Empty(t, h.pdf.calls)
}

func TestEngine_Run_CancelledBetweenPairs(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rep, err := h.engine.Run(ctx, docs("/tpl/a.pdf"), []records.SignerRecord{ana, luis}, h.out,
		func(Progress) { cancel() })
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, rep)
	require.Len(t, rep.Results, 1, "the pair in progress finishes")
	assert.Equal(t, "Ana", rep.Results[0].SignerName)
	assert.NotEmpty(t, rep.ReportPath)
	h.assertSignaturesRemoved(t)
}

func TestEngine_Run_UnsupportedWarnedOncePerDocument(t *testing.T) {
	var buf bytes.Buffer
	h := newHarness(t, WithLogger(logging.New(&buf, logging.LevelWarn)))
	eva := records.NewSignerRecord("Eva", "333", "", "", "")

	rep, err := h.engine.Run(context.Background(), docs("/tpl/notes.txt", "/tpl/a.pdf"),
		[]records.SignerRecord{ana, luis, eva}, h.out, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Skipped)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Unsupported format: /tpl/notes.txt")))
}

func TestUniqueName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "a_Ana.pdf", uniqueName(used, "a_Ana.pdf"))
	assert.Equal(t, "a_Ana_2.pdf", uniqueName(used, "a_Ana.pdf"))
	assert.Equal(t, "a_Ana_3.pdf", uniqueName(used, "A_ANA.pdf"))
	assert.Equal(t, "a_Luis.pdf", uniqueName(used, "a_Luis.pdf"))
}
