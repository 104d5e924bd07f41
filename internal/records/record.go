package records

import (
	"strings"
)

// Canonical column names
const (
	ColumnFirstName          = "first_name"
	ColumnNationalID         = "national_id"
	ColumnSurname1           = "surname1"
	ColumnSurname2           = "surname2"
	ColumnSignatureImagePath = "signature_image_path"
)

// RequiredColumns must be present and non-blank on every row
var RequiredColumns = []string{ColumnFirstName, ColumnNationalID}

// OptionalColumns are read when present
var OptionalColumns = []string{ColumnSurname1, ColumnSurname2, ColumnSignatureImagePath}

// columnSynonyms maps folded header spellings onto canonical names
var columnSynonyms = map[string]string{
	"first_name": ColumnFirstName,
	"firstname":  ColumnFirstName,
	"nombre":     ColumnFirstName,
	"name":       ColumnFirstName,

	"national_id": ColumnNationalID,
	"dni":         ColumnNationalID,
	"nif":         ColumnNationalID,
	"id":          ColumnNationalID,
	"documento":   ColumnNationalID,

	"surname1":        ColumnSurname1,
	"apellido1":       ColumnSurname1,
	"primer_apellido": ColumnSurname1,
	"last_name":       ColumnSurname1,

	"surname2":         ColumnSurname2,
	"apellido2":        ColumnSurname2,
	"segundo_apellido": ColumnSurname2,

	"signature_image_path": ColumnSignatureImagePath,
	"firma_imagen":         ColumnSignatureImagePath,
	"firma":                ColumnSignatureImagePath,
	"signature":            ColumnSignatureImagePath,
}

// SignerRecord is one row of the signer table. It is built once by Load and
// only read afterwards.
type SignerRecord struct {
	FirstName          string `json:"first_name"`
	NationalID         string `json:"national_id"`
	Surname1           string `json:"surname1,omitempty"`
	Surname2           string `json:"surname2,omitempty"`
	SignatureImagePath string `json:"signature_image_path,omitempty"`
	FullName           string `json:"full_name"`
}

// NewSignerRecord trims every field and derives FullName
func NewSignerRecord(firstName, nationalID, surname1, surname2, signaturePath string) SignerRecord {
	r := SignerRecord{
		FirstName:          strings.TrimSpace(firstName),
		NationalID:         normalizeID(nationalID),
		Surname1:           strings.TrimSpace(surname1),
		Surname2:           strings.TrimSpace(surname2),
		SignatureImagePath: strings.TrimSpace(signaturePath),
	}
	r.FullName = JoinName(r.FirstName, r.Surname1, r.Surname2)
	return r
}

// HasSignatureImage reports whether the row names an external signature asset
func (r SignerRecord) HasSignatureImage() bool {
	return r.SignatureImagePath != ""
}

// JoinName joins the non-blank parts with single spaces
func JoinName(parts ...string) string {
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			fields = append(fields, p)
		}
	}
	return strings.Join(fields, " ")
}

// normalizeID trims the value and drops a ".0" tail that spreadsheets add to integral numbers
func normalizeID(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, '.'); i > 0 && isDigits(v[:i]) && strings.Trim(v[i+1:], "0") == "" {
		return v[:i]
	}
	return v
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
