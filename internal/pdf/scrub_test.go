package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-doc-signer/internal/placeholder"
)

func TestScrubContent(t *testing.T) {
	lits := []string{"<<firma>>", "<<nombre>>", "[FIRMA]"}

	tests := []struct {
		name   string
		in     string
		want   string
		counts map[string]int
	}{
		{
			name:   "whole string",
			in:     "BT /F1 12 Tf 72 720 Td (<<firma>>) Tj ET",
			want:   "BT /F1 12 Tf 72 720 Td [-4500] TJ ET",
			counts: map[string]int{"<<firma>>": 1},
		},
		{
			name:   "label kept",
			in:     "BT (Nombre: <<nombre>>) Tj ET",
			want:   "BT [(Nombre: ) -5000] TJ ET",
			counts: map[string]int{"<<nombre>>": 1},
		},
		{
			name:   "text after marker keeps its place",
			in:     "BT ([FIRMA] del cliente) Tj ET",
			want:   "BT [-3500 ( del cliente)] TJ ET",
			counts: map[string]int{"[FIRMA]": 1},
		},
		{
			name:   "inside TJ array",
			in:     "BT [(Firma:) -250(<<firma>>)] TJ ET",
			want:   "BT [(Firma:) -250 -4500 ] TJ ET",
			counts: map[string]int{"<<firma>>": 1},
		},
		{
			name:   "quote operator",
			in:     "BT (<<firma>>) ' ET",
			want:   "BT T* [-4500] TJ ET",
			counts: map[string]int{"<<firma>>": 1},
		},
		{
			name:   "two markers in one string",
			in:     "BT (<<firma>> <<nombre>>) Tj ET",
			want:   "BT [-4500 ( ) -5000] TJ ET",
			counts: map[string]int{"<<firma>>": 1, "<<nombre>>": 1},
		},
		{
			name:   "escaped parentheses survive",
			in:     `BT (\(a\) <<firma>>) Tj ET`,
			want:   `BT [(\(a\) ) -4500] TJ ET`,
			counts: map[string]int{"<<firma>>": 1},
		},
		{
			name: "double quote operator left alone",
			in:   `BT 0 0 (<<firma>>) " ET`,
		},
		{
			name: "hex string left alone",
			in:   "BT <3C3C6669726D613E3E> Tj ET",
		},
		{
			name: "no marker",
			in:   "BT (Contrato) Tj ET",
		},
		{
			name: "marker in comment",
			in:   "% (<<firma>>) Tj\nBT (x) Tj ET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, counts := scrubContent([]byte(tt.in), lits)
			if tt.counts == nil {
				assert.Nil(t, counts)
				assert.Equal(t, tt.in, string(out))
				return
			}
			assert.Equal(t, tt.want, string(out))
			assert.Equal(t, tt.counts, counts)
		})
	}
}

func TestDecodeLiteral(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		end  int
		ok   bool
	}{
		{name: "plain", in: "(abc) Tj", want: "abc", end: 5, ok: true},
		{name: "nested", in: "(a(b)c)", want: "a(b)c", end: 7, ok: true},
		{name: "escapes", in: `(a\nb\050\\)`, want: "a\nb(\\", end: 12, ok: true},
		{name: "line continuation", in: "(a\\\nb)", want: "ab", end: 6, ok: true},
		{name: "unterminated", in: "(abc", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, end, ok := decodeLiteral([]byte(tt.in), 0)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.want, string(got))
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestMarkRemoved(t *testing.T) {
	scan := Scan{Pages: 1, Matches: []Match{
		{Page: 1, Literal: "<<firma>>"},
		{Page: 1, Literal: "<<firma>>"},
		{Page: 1, Literal: "<<dni>>"},
	}}

	got := markRemoved(scan, removed{1: {"<<firma>>": 1, "<<dni>>": 1}})

	assert.True(t, got.Matches[0].Removed)
	assert.False(t, got.Matches[1].Removed, "only as many matches as were removed")
	assert.True(t, got.Matches[2].Removed)
	assert.False(t, scan.Matches[0].Removed, "input scan is not modified")
}

func TestScrubFile(t *testing.T) {
	template := writeTemplate(t,
		[]string{"Contrato", "<<firma>>", "Nombre: <<nombre>>"},
		[]string{"Anexo"},
	)
	scan, err := FindMarkers(template, placeholder.Default())
	require.NoError(t, err)
	require.Len(t, scan.Matches, 2)

	out := filepath.Join(t.TempDir(), "scrubbed.pdf")
	r, err := scrubFile(template, out, scan.literalsByPage())
	require.NoError(t, err)
	assert.Equal(t, removed{1: {"<<firma>>": 1, "<<nombre>>": 1}}, r)

	after, err := FindMarkers(out, placeholder.Default())
	require.NoError(t, err)
	assert.Empty(t, after.Matches)

	text := decodedStreams(t, out)
	assert.Contains(t, text, "(Contrato)")
	assert.Contains(t, text, "(Nombre: )")
	assert.NotContains(t, text, "<<firma>>")

	t.Run("nothing to remove writes nothing", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "scrubbed.pdf")
		r, err := scrubFile(template, out, map[int][]string{2: {"<<firma>>"}})
		require.NoError(t, err)
		assert.Zero(t, r.total())
		_, err = os.Stat(out)
		assert.True(t, os.IsNotExist(err))
	})
}
