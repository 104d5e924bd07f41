package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinName(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"Ana", "", ""}, "Ana"},
		{[]string{"Ana", "García", "López"}, "Ana García López"},
		{[]string{"Ana", "", "López"}, "Ana López"},
		{[]string{"  Ana  Maria ", " García"}, "Ana Maria García"},
		{[]string{"", ""}, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, JoinName(tt.parts...))
	}
}

func TestNewSignerRecord(t *testing.T) {
	r := NewSignerRecord(" Ana ", " 111.0 ", "García", "", " sig.png ")
	assert.Equal(t, "Ana", r.FirstName)
	assert.Equal(t, "111", r.NationalID)
	assert.Equal(t, "Ana García", r.FullName)
	assert.Equal(t, "sig.png", r.SignatureImagePath)
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "111", normalizeID("111.0"))
	assert.Equal(t, "111", normalizeID("111.000"))
	assert.Equal(t, "111.5", normalizeID("111.5"))
	assert.Equal(t, "12345678Z", normalizeID("12345678Z"))
	assert.Equal(t, "X.0", normalizeID("X.0"))
	assert.Equal(t, "", normalizeID("  "))
}

func TestCanonicalColumn(t *testing.T) {
	assert.Equal(t, ColumnFirstName, canonicalColumn("Nombre"))
	assert.Equal(t, ColumnNationalID, canonicalColumn(" DNI "))
	assert.Equal(t, ColumnSurname1, canonicalColumn("Primer Apellido"))
	assert.Equal(t, ColumnSignatureImagePath, canonicalColumn("firma_imagen"))
	assert.Equal(t, "telefono", canonicalColumn("Teléfono"))
}
