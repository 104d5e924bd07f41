// Package records loads signer rows from a spreadsheet or CSV file.
package records

import (
	"fmt"
	"strings"

	"github.com/a3tai/mcp-doc-signer/internal/errors"
)

// Validate checks that the table is readable, has every required column and
// no row with a blank required value. It never returns an error: read failures
// are reported through ok=false and the message.
func Validate(path string) (ok bool, message string) {
	defer func() {
		if r := recover(); r != nil {
			ok, message = false, fmt.Sprintf("error reading table: %v", r)
		}
	}()

	t, err := readTable(path)
	if err != nil {
		return false, fmt.Sprintf("error reading table: %v", err)
	}

	if err := checkTable(t); err != nil {
		return false, err.Message
	}
	return true, fmt.Sprintf("valid table with %d records", len(t.rows))
}

// Load reads every non-blank row as a SignerRecord. Unreadable files yield a
// DataSource error, structurally invalid tables a Validation error; no partial
// result is returned in either case.
func Load(path string) ([]SignerRecord, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, errors.Wrap(errors.KindDataSource, "load", err).WithPath(path)
	}

	if verr := checkTable(t); verr != nil {
		return nil, verr.WithPath(path)
	}

	out := make([]SignerRecord, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, NewSignerRecord(
			t.cell(row, ColumnFirstName),
			t.cell(row, ColumnNationalID),
			t.cell(row, ColumnSurname1),
			t.cell(row, ColumnSurname2),
			t.cell(row, ColumnSignatureImagePath),
		))
	}
	return out, nil
}

func checkTable(t *table) *errors.Error {
	if missing := t.missingColumns(RequiredColumns); len(missing) > 0 {
		return errors.Newf(errors.KindValidation, "validate",
			"missing required columns: %s", strings.Join(missing, ", "))
	}
	if n := t.incompleteRows(RequiredColumns); n > 0 {
		return errors.Newf(errors.KindValidation, "validate",
			"%d rows with missing values in required columns", n)
	}
	return nil
}
