package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/mcp-doc-signer/internal/config"
	"github.com/a3tai/mcp-doc-signer/internal/logging"
	"github.com/a3tai/mcp-doc-signer/internal/mcp"
	"github.com/a3tai/mcp-doc-signer/internal/merge"
	"github.com/a3tai/mcp-doc-signer/internal/signer"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging opens the log file and mirrors it to stderr. Stdout stays
// free for progress lines in batch mode and for the protocol in stdio mode.
func setupLogging(cfg *config.Config) (*logging.Logger, io.Closer, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if cfg.LogFile == "" {
		return logging.New(os.Stderr, level), io.NopCloser(nil), nil
	}
	return logging.OpenFile(cfg.LogFile, level, os.Stderr)
}

// runBatch signs every template for every signer once and returns the exit code
func runBatch(ctx context.Context, cfg *config.Config, svc *signer.Service, out io.Writer) int {
	if ok, msg := svc.ValidateTable(cfg.Table); !ok {
		fmt.Fprintf(out, "Error: %s\n", msg)
		return 1
	}

	rep, err := svc.Sign(ctx, signer.Request{
		Table:     cfg.Table,
		Documents: cfg.Documents,
		Directory: cfg.DocumentDir,
		OutputDir: cfg.OutputDir,
	}, func(p merge.Progress) {
		fmt.Fprintf(out, "[%5.1f%%] %s\n", p.Percent, p.Message())
	})
	if rep == nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(out, "Process completed. %s\n", rep.Summary())
	if rep.Skipped > 0 {
		fmt.Fprintf(out, "Skipped (unsupported format): %d\n", rep.Skipped)
	}
	if rep.ReportPath != "" {
		fmt.Fprintf(out, "Report: %s\n", rep.ReportPath)
	}
	if err != nil {
		fmt.Fprintf(out, "Run interrupted: %v\n", err)
		return 1
	}
	return 0
}

// runStdioMode handles stdio mode execution
func runStdioMode(ctx context.Context, cfg *config.Config, svc *signer.Service, logger *logging.Logger) int {
	server, err := mcp.NewServer(cfg, svc, logger)
	if err != nil {
		logger.Errorf("Failed to create MCP server: %v", err)
		return 1
	}
	if err := server.Run(ctx); err != nil {
		logger.Errorf("Server error: %v", err)
		return 1
	}
	return 0
}

func main() {
	cfg, err := config.LoadFromFlags()
	if stderrors.Is(err, config.ErrVersionRequested) {
		printVersion()
		return
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger, closer, err := setupLogging(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	logger.Debugf("Starting with configuration: %s", cfg.String())

	svc, err := signer.NewService(cfg, logger)
	if err != nil {
		logger.Errorf("Failed to initialise: %v", err)
		closer.Close()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	var code int
	if cfg.IsStdioMode() {
		code = runStdioMode(ctx, cfg, svc, logger)
	} else {
		code = runBatch(ctx, cfg, svc, os.Stdout)
	}

	stop()
	if err := svc.Close(); err != nil {
		logger.Warnf("Failed to close run history: %v", err)
	}
	closer.Close()
	os.Exit(code)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP Doc Signer\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
