package merge

import "fmt"

// PairStatus is the outcome of one document x signer pair
type PairStatus string

const (
	PairSuccess PairStatus = "success"
	PairError   PairStatus = "error"
	PairSkipped PairStatus = "skipped"
)

// Progress is emitted after every pair, skipped ones included
type Progress struct {
	Index    int        `json:"index"`
	Total    int        `json:"total"`
	Percent  float64    `json:"percent"`
	Document string     `json:"document"`
	Signer   string     `json:"signer"`
	Status   PairStatus `json:"status"`
}

// Message is the human readable description of the pair
func (p Progress) Message() string {
	return fmt.Sprintf("Processing %s - %s", p.Document, p.Signer)
}

// ProgressFunc consumes progress events. It is called synchronously.
type ProgressFunc func(Progress)

func newProgress(index, total int, document, signer string, status PairStatus) Progress {
	pct := 100.0
	if total > 0 {
		pct = float64(index) / float64(total) * 100
	}
	return Progress{
		Index:    index,
		Total:    total,
		Percent:  pct,
		Document: document,
		Signer:   signer,
		Status:   status,
	}
}
