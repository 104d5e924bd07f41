package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-doc-signer/internal/config"
	"github.com/a3tai/mcp-doc-signer/internal/descriptions"
	"github.com/a3tai/mcp-doc-signer/internal/logging"
	"github.com/a3tai/mcp-doc-signer/internal/merge"
	"github.com/a3tai/mcp-doc-signer/internal/report"
	"github.com/a3tai/mcp-doc-signer/internal/security"
	"github.com/a3tai/mcp-doc-signer/internal/signer"
)

const defaultHistoryLimit = 10

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *signer.Service
	guard     *security.PathGuard
	log       *logging.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance. Tool paths are confined to the
// configured working and output directories.
func NewServer(cfg *config.Config, service *signer.Service, logger *logging.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	guard, err := security.NewPathGuard(cfg.WorkDir, cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create path guard: %w", err)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		service:   service,
		guard:     guard,
		log:       logger,
		mcpServer: mcpServer,
	}
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolValidateTable,
		mcp.WithDescription(descriptions.ValidateTableDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Signer table (.xlsx or .csv), absolute or relative to the working directory"),
		),
	), s.handleValidateTable)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolListTemplates,
		mcp.WithDescription(descriptions.ListTemplatesDescription),
		mcp.WithString("directory",
			mcp.Description("Directory to scan (uses the working directory if empty)"),
		),
	), s.handleListTemplates)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolSignDocuments,
		mcp.WithDescription(descriptions.SignDocumentsDescription),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Signer table (.xlsx or .csv)"),
		),
		mcp.WithArray("documents",
			mcp.Description("Template files to sign"),
			mcp.Items(map[string]interface{}{"type": "string"}),
		),
		mcp.WithString("directory",
			mcp.Description("Directory whose templates are all signed"),
		),
		mcp.WithString("output_dir",
			mcp.Description("Where signed documents and the report go (uses the configured output directory if empty)"),
		),
	), s.handleSignDocuments)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolRunHistory,
		mcp.WithDescription(descriptions.RunHistoryDescription),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of runs to return (default 10)"),
		),
	), s.handleRunHistory)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolServerInfo,
		mcp.WithDescription(descriptions.ServerInfoDescription),
	), s.handleServerInfo)
}

func (s *Server) handleValidateTable(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resolved, err := s.guard.Resolve(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("security validation failed: %v", err)), nil
	}

	ok, msg := s.service.ValidateTable(resolved)
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf("Table validation failed for %s: %s", resolved, msg)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Table %s is valid: %s", resolved, msg)), nil
}

func (s *Server) handleListTemplates(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	directory := stringArg(request, "directory")
	if directory == "" {
		directory = s.defaultDocumentDir()
	}
	resolved, err := s.guard.Resolve(directory)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("security validation failed: %v", err)), nil
	}

	docs, err := s.service.Templates(nil, resolved)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No templates found in directory: %s", resolved)), nil
	}
	return mcp.NewToolResultText(formatTemplates(resolved, docs)), nil
}

func (s *Server) handleSignDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := signer.Request{}
	if req.Table, err = s.guard.Resolve(table); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("security validation failed: %v", err)), nil
	}

	for _, doc := range stringsArg(request, "documents") {
		resolved, err := s.guard.Resolve(doc)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("security validation failed: %v", err)), nil
		}
		req.Documents = append(req.Documents, resolved)
	}

	directory := stringArg(request, "directory")
	if directory == "" && len(req.Documents) == 0 {
		directory = s.defaultDocumentDir()
	}
	if directory != "" {
		if req.Directory, err = s.guard.Resolve(directory); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("security validation failed: %v", err)), nil
		}
	}

	if out := stringArg(request, "output_dir"); out != "" {
		if req.OutputDir, err = s.guard.Resolve(out); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("security validation failed: %v", err)), nil
		}
	}

	rep, err := s.service.Sign(ctx, req, func(p merge.Progress) {
		s.log.Debugf("[%5.1f%%] %s (%s)", p.Percent, p.Message(), p.Status)
	})
	if rep == nil && err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := formatRunReport(rep)
	if err != nil {
		text += fmt.Sprintf("\nRun interrupted: %v\n", err)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleRunHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := defaultHistoryLimit
	if v, ok := request.GetArguments()["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	runs, err := s.service.History(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("No signing runs recorded yet"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Last %d signing run(s):\n", len(runs))
	for i, r := range runs {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, r.ID)
		fmt.Fprintf(&b, "   Started: %s\n", r.StartedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "   Finished: %s\n", r.FinishedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "   Processed: %d, Failed: %d, Skipped: %d\n", r.Processed, r.Failed, r.Skipped)
		if r.ReportPath != "" {
			fmt.Fprintf(&b, "   Report: %s\n", r.ReportPath)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	set := s.service.Placeholders()

	var b strings.Builder
	fmt.Fprintf(&b, "%s v%s\n", s.config.ServerName, s.config.Version)
	fmt.Fprintf(&b, "Working directory: %s\n", s.config.WorkDir)
	fmt.Fprintf(&b, "Output directory: %s\n", s.config.OutputDir)
	fmt.Fprintf(&b, "Max template size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	fmt.Fprintf(&b, "Signature box: %dx%d, DOCX width %.1f in\n",
		s.config.SignatureWidth, s.config.SignatureHeight, s.config.DocxSignatureWidth)
	fmt.Fprintf(&b, "Run history: %t\n", s.service.HistoryEnabled())

	b.WriteString("\nMarkers:\n")
	fmt.Fprintf(&b, "  signature: %s\n", strings.Join(set.Signature, ", "))
	fmt.Fprintf(&b, "  name: %s\n", strings.Join(set.Name, ", "))
	fmt.Fprintf(&b, "  id: %s\n", strings.Join(set.ID, ", "))

	b.WriteString("\nTools:\n")
	for _, name := range descriptions.GetAllToolNames() {
		fmt.Fprintf(&b, "  • %s\n", name)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) defaultDocumentDir() string {
	if s.config.DocumentDir != "" {
		return s.config.DocumentDir
	}
	return s.config.WorkDir
}

func stringArg(request mcp.CallToolRequest, name string) string {
	if v, ok := request.GetArguments()[name].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// stringsArg accepts either a JSON array of strings or a comma separated string
func stringsArg(request mcp.CallToolRequest, name string) []string {
	var out []string
	switch v := request.GetArguments()[name].(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

func formatTemplates(dir string, docs []merge.TemplateDocument) string {
	text := fmt.Sprintf("Found %d template(s) in directory: %s\n\n", len(docs), dir)
	for i, doc := range docs {
		rel := doc.Path
		if r, err := filepath.Rel(dir, doc.Path); err == nil {
			rel = r
		}
		text += fmt.Sprintf("%d. %s (%s)\n", i+1, rel, doc.Format)
	}
	return text
}

func formatRunReport(rep *report.RunReport) string {
	text := fmt.Sprintf("Signing run %s finished in %s\n", rep.RunID, rep.Duration().Round(time.Millisecond))
	text += rep.Summary() + "\n"
	if rep.Skipped > 0 {
		text += fmt.Sprintf("Skipped (unsupported format): %d\n", rep.Skipped)
	}
	if rep.ReportPath != "" {
		text += fmt.Sprintf("Report: %s\n", rep.ReportPath)
	}

	var signed, failed []report.MergeResult
	for _, r := range rep.Results {
		if r.Succeeded() {
			signed = append(signed, r)
		} else {
			failed = append(failed, r)
		}
	}

	if len(signed) > 0 {
		text += "\nSigned documents:\n"
		for _, r := range signed {
			text += fmt.Sprintf("  • %s\n", r.OutputFile)
		}
	}
	if len(failed) > 0 {
		text += "\nFailures:\n"
		for _, r := range failed {
			text += fmt.Sprintf("  • %s / %s: %s\n", r.Document, r.SignerName, r.Error)
		}
	}
	return text
}

// Run serves MCP over stdio until the client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.runStdioMode(ctx)
}

func (s *Server) runStdioMode(_ context.Context) error {
	s.log.Infof("Starting %s in stdio mode", s.config.ServerName)
	s.log.Debugf("Working directory: %s", s.config.WorkDir)

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
