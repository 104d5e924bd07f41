// Package merge runs every template against every signer record.
package merge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/a3tai/mcp-doc-signer/internal/errors"
	"github.com/a3tai/mcp-doc-signer/internal/logging"
	"github.com/a3tai/mcp-doc-signer/internal/naming"
	"github.com/a3tai/mcp-doc-signer/internal/records"
	"github.com/a3tai/mcp-doc-signer/internal/report"
)

// DefaultDirPerm is used when creating the output directory
const DefaultDirPerm = 0o750

// Recorder persists a finished run
type Recorder interface {
	Record(ctx context.Context, r *report.RunReport) error
}

// Engine is the batch orchestrator
type Engine struct {
	signatures SignatureSource
	strategies map[Format]Strategy
	recorder   Recorder
	log        *logging.Logger
	now        func() time.Time
	newID      func() string
	noReport   bool
}

// Option configures an Engine
type Option func(*Engine)

// WithRecorder stores every finished run
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithoutReport disables the workbook written at the end of a run
func WithoutReport() Option {
	return func(e *Engine) { e.noReport = true }
}

// NewEngine creates an engine using one strategy per supported format
func NewEngine(signatures SignatureSource, strategies map[Format]Strategy, opts ...Option) *Engine {
	e := &Engine{
		signatures: signatures,
		strategies: strategies,
		log:        logging.Discard(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run merges every record into every document, documents outermost. Pair
// failures are recorded in the report and never abort the run. The only
// errors returned are an output directory that cannot be created and a
// cancelled context, in which case the report covers the pairs done so far.
func (e *Engine) Run(ctx context.Context, documents []TemplateDocument, recs []records.SignerRecord,
	outputDir string, progress ProgressFunc) (*report.RunReport, error) {
	if err := os.MkdirAll(outputDir, DefaultDirPerm); err != nil {
		return nil, errors.Wrap(errors.KindEnvironment, "create output directory", err).WithPath(outputDir)
	}

	runID := e.newID()
	started := e.now()
	total := len(documents) * len(recs)
	e.log.Infof("Run %s started: %d documents, %d signers", runID, len(documents), len(recs))

	var (
		results []report.MergeResult
		skipped int
		index   int
		runErr  error
	)
	used := make(map[string]bool)

loop:
	for _, doc := range documents {
		strategy, ok := e.strategies[doc.Format]
		if !ok && len(recs) > 0 {
			e.log.Warnf("Unsupported format: %s", doc.Path)
		}
		for _, rec := range recs {
			if err := ctx.Err(); err != nil {
				e.log.Warnf("Run %s cancelled after %d of %d pairs", runID, index, total)
				runErr = err
				break loop
			}
			index++

			if !ok {
				skipped++
				e.emit(progress, newProgress(index, total, doc.Name(), rec.FullName, PairSkipped))
				continue
			}

			out := filepath.Join(outputDir, uniqueName(used, outputName(doc.Path, rec.FullName)))
			res := e.mergePair(strategy, doc, rec, out)
			results = append(results, res)

			status := PairSuccess
			if !res.Succeeded() {
				status = PairError
			}
			e.emit(progress, newProgress(index, total, doc.Name(), rec.FullName, status))
		}
	}

	rep := report.New(runID, started, e.now(), skipped, results)
	if len(results) > 0 && !e.noReport {
		path := filepath.Join(outputDir, report.FileName(rep.FinishedAt))
		if err := report.WriteXLSX(path, rep); err != nil {
			e.log.Errorf("Error generating report: %v", err)
		} else {
			rep.ReportPath = path
			e.log.Infof("Report generated: %s", path)
		}
	}
	if e.recorder != nil {
		if err := e.recorder.Record(context.WithoutCancel(ctx), rep); err != nil {
			e.log.Errorf("Error recording run %s: %v", runID, err)
		}
	}

	e.log.Infof("Run %s finished. %s", runID, rep.Summary())
	return rep, runErr
}

// mergePair resolves the signature, runs the strategy and always releases
// the signature, whatever the strategy does
func (e *Engine) mergePair(strategy Strategy, doc TemplateDocument, rec records.SignerRecord, out string) (res report.MergeResult) {
	res = report.MergeResult{
		Document:   doc.Name(),
		SignerName: rec.FullName,
		SignerID:   rec.NationalID,
		Timestamp:  e.now(),
	}
	fail := func(err error) report.MergeResult {
		res.Status = report.StatusError
		res.OutputFile = ""
		res.Error = err.Error()
		e.log.Errorf("Error signing %s for %s: %v", doc.Name(), rec.FullName, err)
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			res = fail(errors.Newf(errors.KindMerge, "merge", "panic: %v", r).WithPath(doc.Path))
		}
	}()

	sig, err := e.signatures.Resolve(rec)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err := sig.Cleanup(); err != nil {
			e.log.Warnf("Could not remove temporary signature %s: %v", sig.Path, err)
		}
	}()

	if err := strategy.Merge(doc.Path, out, rec, sig); err != nil {
		return fail(err)
	}

	res.Status = report.StatusSuccess
	res.OutputFile = out
	return res
}

func (e *Engine) emit(progress ProgressFunc, p Progress) {
	e.log.Debugf("[%5.1f%%] %s", p.Percent, p.Message())
	if progress != nil {
		progress(p)
	}
}

// outputName is {stem}_{sanitized full name}{ext}
func outputName(templatePath, fullName string) string {
	base := filepath.Base(templatePath)
	ext := filepath.Ext(base)
	return naming.OutputFilename(strings.TrimSuffix(base, ext), fullName, ext)
}

// uniqueName appends _2, _3, ... to names already produced in this run
func uniqueName(used map[string]bool, name string) string {
	key := strings.ToLower(name)
	if !used[key] {
		used[key] = true
		return name
	}
	for n := 2; ; n++ {
		candidate := naming.WithSuffix(name, n)
		if key := strings.ToLower(candidate); !used[key] {
			used[key] = true
			return candidate
		}
	}
}
