package records

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-doc-signer/internal/naming"
	"github.com/xuri/excelize/v2"
)

// table is the raw header + rows view of a tabular file
type table struct {
	headers []string
	rows    [][]string
}

// readTable reads the first sheet of a workbook or a delimited text file
func readTable(path string) (*table, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return readWorkbook(path)
	case ".csv", ".txt":
		return readDelimited(path)
	default:
		return nil, fmt.Errorf("unsupported table format: %s", filepath.Ext(path))
	}
}

func readWorkbook(path string) (*table, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return newTable(rows)
}

func readDelimited(path string) (*table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return newTable(rows)
}

// sniffDelimiter picks ';' when the header line has more semicolons than commas
func sniffDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() {
		return ','
	}
	line := sc.Text()
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

func newTable(rows [][]string) (*table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("table is empty")
	}

	t := &table{headers: make([]string, len(rows[0]))}
	for i, h := range rows[0] {
		t.headers[i] = canonicalColumn(h)
	}

	for _, row := range rows[1:] {
		if isRowEmpty(row) {
			continue
		}
		if len(row) < len(t.headers) {
			row = append(row, make([]string, len(t.headers)-len(row))...)
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// canonicalColumn folds a header cell and maps known synonyms to canonical names
func canonicalColumn(h string) string {
	key := strings.ToLower(strings.Join(strings.Fields(naming.Fold(h)), "_"))
	if canonical, ok := columnSynonyms[key]; ok {
		return canonical
	}
	return key
}

// index returns the position of the first column with the given canonical name
func (t *table) index(column string) int {
	for i, h := range t.headers {
		if h == column {
			return i
		}
	}
	return -1
}

// cell returns the trimmed value of column in row, "" when the column is absent
func (t *table) cell(row []string, column string) string {
	i := t.index(column)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) missingColumns(columns []string) []string {
	var missing []string
	for _, c := range columns {
		if t.index(c) < 0 {
			missing = append(missing, c)
		}
	}
	return missing
}

func (t *table) incompleteRows(columns []string) int {
	n := 0
	for _, row := range t.rows {
		for _, c := range columns {
			if t.cell(row, c) == "" {
				n++
				break
			}
		}
	}
	return n
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
