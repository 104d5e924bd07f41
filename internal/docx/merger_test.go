package docx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-doc-signer/internal/errors"
	"github.com/a3tai/mcp-doc-signer/internal/placeholder"
	"github.com/a3tai/mcp-doc-signer/internal/records"
	"github.com/a3tai/mcp-doc-signer/internal/signature"
	"github.com/a3tai/mcp-doc-signer/internal/testutil"
)

func newTestMerger() *Merger {
	return NewMerger(Options{
		SignatureWidthInches: 2.0,
		MaxFileSize:          10 * 1024 * 1024,
		Placeholders:         placeholder.Default(),
	}, nil)
}

func writeTemplate(t *testing.T, paragraphs ...testutil.Paragraph) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "acuerdo.docx")
	require.NoError(t, testutil.WriteDOCX(path, paragraphs))
	return path
}

func testSignature(t *testing.T) *signature.Signature {
	t.Helper()
	path := filepath.Join(t.TempDir(), "firma.png")
	require.NoError(t, testutil.WritePNG(path, 150, 60))
	return &signature.Signature{Path: path}
}

func mergeTemplate(t *testing.T, template string, rec records.SignerRecord) string {
	t.Helper()
	output := filepath.Join(t.TempDir(), "out.docx")
	require.NoError(t, newTestMerger().Merge(template, output, rec, testSignature(t)))
	return output
}

func zipPart(t *testing.T, path, name string) string {
	t.Helper()
	s, err := testutil.ReadZipEntry(path, name)
	require.NoError(t, err)
	return s
}

func TestMerger_Markers(t *testing.T) {
	template := writeTemplate(t,
		testutil.P("Acuerdo de confidencialidad"),
		testutil.P("<<firma>>"),
		testutil.P("Nombre: <<nombre>>"),
		testutil.Paragraph{{Text: "DNI: <<"}, {Text: "dni>>", Bold: true}, {Text: " (España)"}},
	)
	original, err := os.ReadFile(template)
	require.NoError(t, err)

	rec := records.NewSignerRecord("Ana", "111", "García", "", "")
	output := mergeTemplate(t, template, rec)

	doc := zipPart(t, output, "word/document.xml")
	assert.Contains(t, doc, "Acuerdo de confidencialidad")
	assert.Contains(t, doc, "Nombre: Ana García")
	assert.Contains(t, doc, "DNI: 111")
	assert.Contains(t, doc, " (España)")
	assert.NotContains(t, doc, "&lt;&lt;")
	assert.NotContains(t, doc, "&gt;&gt;")
	assert.Contains(t, doc, `r:embed="rId2"`)
	assert.Contains(t, doc, `<wp:docPr id="1"`)
	assert.Contains(t, doc, `<w:jc w:val="left"/>`)
	assert.Contains(t, doc, `cx="1828800" cy="731520"`)

	rels := zipPart(t, output, "word/_rels/document.xml.rels")
	assert.Contains(t, rels, `Target="media/signature1.png"`)
	assert.Contains(t, rels, `Id="rId2"`)

	types := zipPart(t, output, "[Content_Types].xml")
	assert.Contains(t, types, `Extension="png"`)
	assert.Contains(t, types, `ContentType="image/png"`)

	entries, err := testutil.ZipEntries(output)
	require.NoError(t, err)
	assert.Contains(t, entries, "word/media/signature1.png")
	assert.Contains(t, entries, "word/styles.xml")

	after, err := os.ReadFile(template)
	require.NoError(t, err)
	assert.Equal(t, original, after)
}

func TestMerger_NoMarkersAppendsBlock(t *testing.T) {
	template := writeTemplate(t, testutil.P("Texto sin marcas"))

	output := mergeTemplate(t, template, records.NewSignerRecord("Luis", "222", "", "Pérez", ""))

	doc := zipPart(t, output, "word/document.xml")
	name := strings.Index(doc, "Nombre: Luis Pérez")
	id := strings.Index(doc, "DNI: 222")
	drawing := strings.Index(doc, "<w:drawing>")
	sect := strings.Index(doc, "<w:sectPr>")

	require.True(t, name > 0 && id > 0 && drawing > 0 && sect > 0, doc)
	assert.Less(t, strings.Index(doc, "Texto sin marcas"), drawing)
	assert.Less(t, drawing, name)
	assert.Less(t, name, id)
	assert.Less(t, id, sect)
}

func TestMerger_MultipleSignatureMarkers(t *testing.T) {
	template := writeTemplate(t, testutil.P("[FIRMA]"), testutil.P("otro"), testutil.P("<<signature>>"))

	output := mergeTemplate(t, template, records.NewSignerRecord("Ana", "1", "", "", ""))

	doc := zipPart(t, output, "word/document.xml")
	assert.Equal(t, 2, strings.Count(doc, "<w:drawing>"))
	assert.Contains(t, doc, `<wp:docPr id="1"`)
	assert.Contains(t, doc, `<wp:docPr id="2"`)

	entries, err := testutil.ZipEntries(output)
	require.NoError(t, err)
	media := 0
	for _, e := range entries {
		if strings.HasPrefix(e, "word/media/") {
			media++
		}
	}
	assert.Equal(t, 1, media)
}

func TestMerger_KeepsRunFormatting(t *testing.T) {
	template := writeTemplate(t, testutil.Paragraph{{Text: "Nombre: "}, {Text: "<<nombre>>", Bold: true}})

	output := mergeTemplate(t, template, records.NewSignerRecord("Ana", "1", "", "", ""))

	doc := zipPart(t, output, "word/document.xml")
	assert.Contains(t, doc, `<w:b/></w:rPr><w:t xml:space="preserve">Ana</w:t>`)
}

func TestMerger_Errors(t *testing.T) {
	rec := records.NewSignerRecord("Ana", "1", "", "", "")

	t.Run("overwrite template", func(t *testing.T) {
		template := writeTemplate(t, testutil.P("<<firma>>"))
		err := newTestMerger().Merge(template, template, rec, testSignature(t))
		require.Error(t, err)
		assert.Equal(t, errors.KindMerge, errors.KindOf(err))
	})

	t.Run("not a zip", func(t *testing.T) {
		template := filepath.Join(t.TempDir(), "broken.docx")
		require.NoError(t, os.WriteFile(template, []byte("plain text"), 0o644))
		outDir := t.TempDir()

		err := newTestMerger().Merge(template, filepath.Join(outDir, "out.docx"), rec, testSignature(t))
		require.Error(t, err)
		assert.Equal(t, errors.KindMerge, errors.KindOf(err))
		entries, _ := os.ReadDir(outDir)
		assert.Empty(t, entries)
	})

	t.Run("wrong extension", func(t *testing.T) {
		template := filepath.Join(t.TempDir(), "doc.txt")
		require.NoError(t, os.WriteFile(template, []byte("x"), 0o644))
		err := newTestMerger().Merge(template, filepath.Join(t.TempDir(), "out.docx"), rec, testSignature(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a DOCX")
	})

	t.Run("empty file", func(t *testing.T) {
		template := filepath.Join(t.TempDir(), "vacio.docx")
		require.NoError(t, os.WriteFile(template, nil, 0o644))
		err := newTestMerger().Merge(template, filepath.Join(t.TempDir(), "out.docx"), rec, testSignature(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file is empty")
	})

	t.Run("bad signature image", func(t *testing.T) {
		template := writeTemplate(t, testutil.P("<<firma>>"))
		bad := filepath.Join(t.TempDir(), "sig.png")
		require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o644))

		err := newTestMerger().Merge(template, filepath.Join(t.TempDir(), "out.docx"), rec, &signature.Signature{Path: bad})
		require.Error(t, err)
		assert.Equal(t, errors.KindMerge, errors.KindOf(err))
	})

	t.Run("missing signature", func(t *testing.T) {
		template := writeTemplate(t, testutil.P("<<firma>>"))
		err := newTestMerger().Merge(template, filepath.Join(t.TempDir(), "out.docx"), rec, nil)
		assert.Equal(t, errors.KindSignatureResolution, errors.KindOf(err))
	})
}
