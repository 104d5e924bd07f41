package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

// Headers are the column titles of the results sheet
var Headers = []interface{}{"document", "person", "id", "output_file", "status", "timestamp", "error"}

// WriteXLSX writes one row per result to the Results sheet and the run
// counters to the Summary sheet
func WriteXLSX(path string, r *RunReport) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), resultsSheet)

	if err := writeRow(f, resultsSheet, 1, Headers); err != nil {
		return err
	}
	for i, res := range r.Results {
		row := []interface{}{
			res.Document,
			res.SignerName,
			res.SignerID,
			res.OutputFile,
			string(res.Status),
			res.Timestamp.Format(time.RFC3339),
			res.Error,
		}
		if err := writeRow(f, resultsSheet, i+2, row); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(resultsSheet, "A1", "G1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(resultsSheet, "A", "G", 24); err != nil {
		return err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"run_id", r.RunID},
		{"started_at", r.StartedAt.Format(time.RFC3339)},
		{"finished_at", r.FinishedAt.Format(time.RFC3339)},
		{"processed", r.Processed},
		{"failed", r.Failed},
		{"skipped", r.Skipped},
	}
	for i, row := range summary {
		if err := writeRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
