// Package filecheck holds the stat, extension and size checks shared by every
// template format.
package filecheck

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Rule describes the files accepted for one template format
type Rule struct {
	Ext     string // lower-case extension with the dot, e.g. ".pdf"
	Kind    string // name used in messages, e.g. "PDF"
	MaxSize int64  // 0 disables the size limit
}

// Stat checks that path exists and satisfies the rule
func (r Rule) Stat(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	return r.Info(path, info)
}

// Info checks an already obtained file info without touching the file
func (r Rule) Info(path string, info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}

	if !strings.EqualFold(filepath.Ext(path), r.Ext) {
		return fmt.Errorf("file is not a %s: %s", r.Kind, path)
	}

	if info.Size() == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}

	if r.MaxSize > 0 && info.Size() > r.MaxSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), r.MaxSize)
	}

	return nil
}
