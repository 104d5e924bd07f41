package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeBatch = "batch"
	ModeStdio = "stdio"

	// Default values
	DefaultLogLevel           = "info"
	DefaultLogFile            = "document_signer.log"
	DefaultMaxFileSize        = 100 * 1024 * 1024 // 100MB
	DefaultSignatureWidth     = 150
	DefaultSignatureHeight    = 60
	DefaultFontSize           = 12
	DefaultSignatureFontSize  = 24
	DefaultDocxSignatureWidth = 2.0

	EnvPrefix = "DOC_SIGNER"
)

// ErrVersionRequested is returned by LoadFromFlags when --version was passed
var ErrVersionRequested = errors.New("version requested")

// DefaultFontPaths are tried in order when synthesizing a signature
var DefaultFontPaths = []string{
	"fonts/signature_font.ttf",
	"C:/Windows/Fonts/segoeui.ttf",
	"/System/Library/Fonts/Helvetica.ttc",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

// Config holds all configuration for a signing run or the MCP server
type Config struct {
	Mode string // "batch" or "stdio"

	// Inputs
	Table       string
	Documents   []string
	DocumentDir string
	WorkDir     string // root for paths received over MCP
	OutputDir   string

	// Layout
	SignatureWidth     int
	SignatureHeight    int
	FontSize           float64
	SignatureFontSize  float64
	DocxSignatureWidth float64
	FontPaths          []string
	PlaceholderFile    string
	TempDir            string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	LogFile     string
	HistoryDB   string
	MaxFileSize int64
}

// DefaultConfig returns a configuration with the stock layout values
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:               ModeBatch,
		WorkDir:            currentDir,
		OutputDir:          DefaultOutputDir(),
		SignatureWidth:     DefaultSignatureWidth,
		SignatureHeight:    DefaultSignatureHeight,
		FontSize:           DefaultFontSize,
		SignatureFontSize:  DefaultSignatureFontSize,
		DocxSignatureWidth: DefaultDocxSignatureWidth,
		FontPaths:          append([]string(nil), DefaultFontPaths...),
		Version:            "1.0.0",
		ServerName:         "mcp-doc-signer",
		LogLevel:           DefaultLogLevel,
		LogFile:            DefaultLogFile,
		MaxFileSize:        DefaultMaxFileSize,
	}
}

// DefaultOutputDir is ~/Documentos/Documentos_Firmados, or a relative
// directory when the home directory is unknown
func DefaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("Documentos", "Documentos_Firmados")
	}
	return filepath.Join(home, "Documentos", "Documentos_Firmados")
}

// LoadFromFlags parses command line flags, environment and the optional
// config file, and returns a validated configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	if file := viper.GetString("config"); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", file, err)
		}
	}

	populateConfigFromViper(cfg)
	cfg.absPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment maps DOC_SIGNER_* variables onto the flag keys
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("workdir", cfg.WorkDir)
	viper.SetDefault("output", cfg.OutputDir)
	viper.SetDefault("signature-width", cfg.SignatureWidth)
	viper.SetDefault("signature-height", cfg.SignatureHeight)
	viper.SetDefault("font-size", cfg.FontSize)
	viper.SetDefault("signature-font-size", cfg.SignatureFontSize)
	viper.SetDefault("docx-signature-width", cfg.DocxSignatureWidth)
	viper.SetDefault("font", cfg.FontPaths)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("logfile", cfg.LogFile)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("config", "", "Optional YAML config file")
	pflag.String("mode", cfg.Mode, "Run mode: 'batch' signs once and exits, 'stdio' serves MCP over standard I/O")
	pflag.String("table", "", "Signer table (.xlsx or .csv)")
	pflag.StringSlice("doc", nil, "Template document to sign (repeatable)")
	pflag.String("docs-dir", "", "Directory scanned for .pdf and .docx templates")
	pflag.String("workdir", cfg.WorkDir, "Directory that MCP tool paths are confined to")
	pflag.String("output", cfg.OutputDir, "Directory for signed documents and the run report")
	pflag.Int("signature-width", cfg.SignatureWidth, "Signature box width (pixels on the canvas, points in PDF)")
	pflag.Int("signature-height", cfg.SignatureHeight, "Signature box height")
	pflag.Float64("font-size", cfg.FontSize, "Font size for name and ID text in PDF")
	pflag.Float64("signature-font-size", cfg.SignatureFontSize, "Font size for synthesized signatures")
	pflag.Float64("docx-signature-width", cfg.DocxSignatureWidth, "Signature width in DOCX documents, in inches")
	pflag.StringSlice("font", cfg.FontPaths, "Candidate font files for synthesized signatures, in order")
	pflag.String("placeholders", "", "YAML file overriding the placeholder markers")
	pflag.String("temp-dir", "", "Directory for synthesized signature images (default: OS temp dir)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.String("logfile", cfg.LogFile, "Append-only log file (empty disables file logging)")
	pflag.String("history", "", "SQLite database recording every run (empty disables)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum template file size in bytes")
}

var flagKeys = []string{
	"config", "mode", "table", "doc", "docs-dir", "workdir", "output",
	"signature-width", "signature-height", "font-size", "signature-font-size",
	"docx-signature-width", "font", "placeholders", "temp-dir",
	"loglevel", "logfile", "history", "maxfilesize",
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range flagKeys {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP Doc Signer - mail-merges signatures, names and IDs into PDF and DOCX templates\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --table=firmantes.xlsx --doc=contrato.pdf          # sign one template\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --table=firmantes.csv --docs-dir=./plantillas     # sign every template in a folder\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio --workdir=/data/firmas               # MCP server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  %s_<FLAG>  any flag, upper-cased with '-' as '_' (e.g. %s_OUTPUT, %s_SIGNATURE_WIDTH)\n",
			EnvPrefix, EnvPrefix, EnvPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Table = viper.GetString("table")
	cfg.Documents = viper.GetStringSlice("doc")
	cfg.DocumentDir = viper.GetString("docs-dir")
	cfg.WorkDir = viper.GetString("workdir")
	cfg.OutputDir = viper.GetString("output")
	cfg.SignatureWidth = viper.GetInt("signature-width")
	cfg.SignatureHeight = viper.GetInt("signature-height")
	cfg.FontSize = viper.GetFloat64("font-size")
	cfg.SignatureFontSize = viper.GetFloat64("signature-font-size")
	cfg.DocxSignatureWidth = viper.GetFloat64("docx-signature-width")
	cfg.FontPaths = viper.GetStringSlice("font")
	cfg.PlaceholderFile = viper.GetString("placeholders")
	cfg.TempDir = viper.GetString("temp-dir")
	cfg.LogLevel = strings.ToLower(viper.GetString("loglevel"))
	cfg.LogFile = viper.GetString("logfile")
	cfg.HistoryDB = viper.GetString("history")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

func (c *Config) absPaths() {
	for _, p := range []*string{&c.WorkDir, &c.OutputDir, &c.DocumentDir} {
		if *p == "" {
			continue
		}
		if abs, err := filepath.Abs(*p); err == nil {
			*p = abs
		}
	}
}

// Validate checks if the configuration is valid. It never touches the
// output directory; that is left to the run.
func (c *Config) Validate() error {
	if c.Mode != ModeBatch && c.Mode != ModeStdio {
		return errors.New("mode must be either 'batch' or 'stdio'")
	}

	if c.Mode == ModeBatch {
		if c.Table == "" {
			return errors.New("a signer table is required (--table)")
		}
		if len(c.Documents) == 0 && c.DocumentDir == "" {
			return errors.New("at least one template is required (--doc or --docs-dir)")
		}
	}

	if c.Mode == ModeStdio && c.WorkDir == "" {
		return errors.New("working directory cannot be empty in stdio mode")
	}

	if c.OutputDir == "" {
		return errors.New("output directory cannot be empty")
	}

	if c.SignatureWidth <= 0 || c.SignatureHeight <= 0 {
		return fmt.Errorf("signature size must be positive, got %dx%d", c.SignatureWidth, c.SignatureHeight)
	}
	if c.FontSize <= 0 || c.SignatureFontSize <= 0 {
		return errors.New("font sizes must be positive")
	}
	if c.DocxSignatureWidth <= 0 {
		return errors.New("DOCX signature width must be positive")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Table: %s, Documents: %v, DocumentDir: %s, OutputDir: %s, "+
		"Signature: %dx%d, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Table, c.Documents, c.DocumentDir, c.OutputDir,
		c.SignatureWidth, c.SignatureHeight, c.LogLevel, c.MaxFileSize)
}

// IsBatchMode returns true if the program signs once and exits
func (c *Config) IsBatchMode() bool {
	return c.Mode == ModeBatch
}

// IsStdioMode returns true if the program serves MCP over stdio
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
