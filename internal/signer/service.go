// Package signer wires configuration into a ready-to-run signing service
// shared by the command line and the MCP server.
package signer

import (
	"context"
	"fmt"

	"github.com/a3tai/mcp-doc-signer/internal/config"
	"github.com/a3tai/mcp-doc-signer/internal/docx"
	"github.com/a3tai/mcp-doc-signer/internal/errors"
	"github.com/a3tai/mcp-doc-signer/internal/history"
	"github.com/a3tai/mcp-doc-signer/internal/logging"
	"github.com/a3tai/mcp-doc-signer/internal/merge"
	"github.com/a3tai/mcp-doc-signer/internal/pdf"
	"github.com/a3tai/mcp-doc-signer/internal/placeholder"
	"github.com/a3tai/mcp-doc-signer/internal/records"
	"github.com/a3tai/mcp-doc-signer/internal/report"
	"github.com/a3tai/mcp-doc-signer/internal/signature"
)

// Request describes one signing run
type Request struct {
	Table     string
	Documents []string
	Directory string
	OutputDir string // empty uses the configured output directory
}

// Service orchestrates table loading, template discovery and the merge engine
type Service struct {
	cfg          *config.Config
	log          *logging.Logger
	placeholders placeholder.Set
	engine       *merge.Engine
	history      *history.Store
}

// NewService builds the resolver, both strategies and the engine from cfg.
// When cfg.HistoryDB is set every run is also recorded there.
func NewService(cfg *config.Config, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	set := placeholder.Default()
	if cfg.PlaceholderFile != "" {
		loaded, err := placeholder.LoadFile(cfg.PlaceholderFile)
		if err != nil {
			return nil, err
		}
		set = loaded
	}

	resolver := signature.NewResolver(signature.Options{
		Width:     cfg.SignatureWidth,
		Height:    cfg.SignatureHeight,
		FontSize:  cfg.SignatureFontSize,
		FontPaths: cfg.FontPaths,
		TempDir:   cfg.TempDir,
	}, logger)

	strategies := map[merge.Format]merge.Strategy{
		merge.FormatPDF: pdf.NewMerger(pdf.Options{
			SignatureWidth:  float64(cfg.SignatureWidth),
			SignatureHeight: float64(cfg.SignatureHeight),
			FontSize:        cfg.FontSize,
			MaxFileSize:     cfg.MaxFileSize,
			Placeholders:    set,
		}, logger),
		merge.FormatDOCX: docx.NewMerger(docx.Options{
			SignatureWidthInches: cfg.DocxSignatureWidth,
			MaxFileSize:          cfg.MaxFileSize,
			Placeholders:         set,
		}, logger),
	}

	s := &Service{cfg: cfg, log: logger, placeholders: set}

	opts := []merge.Option{merge.WithLogger(logger)}
	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		s.history = store
		opts = append(opts, merge.WithRecorder(store))
	}

	s.engine = merge.NewEngine(resolver, strategies, opts...)
	return s, nil
}

// Close releases the history database, if any
func (s *Service) Close() error {
	if s.history == nil {
		return nil
	}
	return s.history.Close()
}

// Placeholders returns the marker set in use
func (s *Service) Placeholders() placeholder.Set {
	return s.placeholders
}

// ValidateTable reports whether the signer table can be used for a run
func (s *Service) ValidateTable(path string) (bool, string) {
	ok, msg := records.Validate(path)
	if ok {
		s.log.Infof("Table %s: %s", path, msg)
	} else {
		s.log.Warnf("Table %s rejected: %s", path, msg)
	}
	return ok, msg
}

// Templates lists the templates named in paths plus those found in dir
func (s *Service) Templates(paths []string, dir string) ([]merge.TemplateDocument, error) {
	docs, err := merge.CollectTemplates(paths, dir, s.cfg.MaxFileSize)
	if err != nil {
		return nil, errors.Wrap(errors.KindDataSource, "list templates", err).WithPath(dir)
	}
	return docs, nil
}

// Sign validates and loads the table, collects the templates and runs the
// engine. A table that fails validation is returned as a Validation error
// without touching any template.
func (s *Service) Sign(ctx context.Context, req Request, progress merge.ProgressFunc) (*report.RunReport, error) {
	if ok, msg := s.ValidateTable(req.Table); !ok {
		return nil, errors.New(errors.KindValidation, "validate", msg).WithPath(req.Table)
	}

	recs, err := records.Load(req.Table)
	if err != nil {
		return nil, err
	}

	docs, err := s.Templates(req.Documents, req.Directory)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.New(errors.KindValidation, "sign", "no templates to sign")
	}

	out := req.OutputDir
	if out == "" {
		out = s.cfg.OutputDir
	}

	s.log.Infof("Signing %d templates for %d signers into %s", len(docs), len(recs), out)
	return s.engine.Run(ctx, docs, recs, out, progress)
}

// History returns the most recent recorded runs, newest first
func (s *Service) History(ctx context.Context, limit int) ([]history.Run, error) {
	if s.history == nil {
		return nil, fmt.Errorf("run history is disabled (set --history)")
	}
	return s.history.Runs(ctx, limit)
}

// HistoryEnabled reports whether runs are being recorded
func (s *Service) HistoryEnabled() bool {
	return s.history != nil
}
