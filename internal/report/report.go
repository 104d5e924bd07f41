// Package report holds the outcome of a signing run and writes it as a workbook.
package report

import (
	"fmt"
	"time"
)

// Status is the outcome of one document x signer pair
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// MergeResult records one attempted pair
type MergeResult struct {
	Document   string    `json:"document"`
	SignerName string    `json:"person"`
	SignerID   string    `json:"id"`
	OutputFile string    `json:"output_file,omitempty"`
	Status     Status    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	Error      string    `json:"error,omitempty"`
}

// Succeeded reports whether the pair produced an output document
func (r MergeResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// RunReport summarizes one batch run. It is built once by New.
type RunReport struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Processed  int           `json:"processed"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Results    []MergeResult `json:"results"`
	ReportPath string        `json:"report_path,omitempty"`
}

// New builds a report, counting successes and failures from results
func New(runID string, started, finished time.Time, skipped int, results []MergeResult) *RunReport {
	r := &RunReport{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: finished,
		Skipped:    skipped,
		Results:    results,
	}
	for _, res := range results {
		if res.Succeeded() {
			r.Processed++
		} else {
			r.Failed++
		}
	}
	return r
}

// Attempted is the number of pairs that reached a merge strategy
func (r *RunReport) Attempted() int {
	return r.Processed + r.Failed
}

// Duration returns how long the run took
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary returns the one-line outcome shown to the user
func (r *RunReport) Summary() string {
	return fmt.Sprintf("Processed: %d, Failed: %d", r.Processed, r.Failed)
}

// FileName returns the report file name for a run finished at t
func FileName(t time.Time) string {
	return "reporte_firmas_" + t.Format("20060102_150405") + ".xlsx"
}
