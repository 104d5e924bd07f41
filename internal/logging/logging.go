// Package logging configures the logrus logger shared by every component.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level is a log severity threshold
type Level = logrus.Level

const (
	LevelDebug = logrus.DebugLevel
	LevelInfo  = logrus.InfoLevel
	LevelWarn  = logrus.WarnLevel
	LevelError = logrus.ErrorLevel
)

// ParseLevel accepts the logrus level names; empty means info
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return LevelInfo, nil
	}
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
	return level, nil
}

const (
	appName    = "DocumentSigner"
	timeLayout = "2006-01-02 15:04:05,000"
)

// lineFormatter renders `<date time> - DocumentSigner - LEVEL - message`
type lineFormatter struct{}

func (lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s - %s - %s - %s", e.Time.Format(timeLayout), appName, levelName(e.Level), e.Message)
	for k, v := range e.Data {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelName(l Level) string {
	if l == logrus.WarnLevel {
		return "WARNING"
	}
	return strings.ToUpper(l.String())
}

// Logger wraps a logrus logger. A nil *Logger drops everything.
type Logger struct {
	l *logrus.Logger
}

// New returns a logger writing to w at the given threshold
func New(w io.Writer, level Level) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(lineFormatter{})
	return &Logger{l: l}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return New(io.Discard, logrus.PanicLevel)
}

// OpenFile opens (append) the log file and returns a logger writing to it and
// to every extra writer. The returned closer releases the file.
func OpenFile(path string, level Level, extra ...io.Writer) (*Logger, io.Closer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("cannot create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	writers := append([]io.Writer{f}, extra...)
	return New(io.MultiWriter(writers...), level), f, nil
}

// Enabled reports whether messages at level would be written
func (l *Logger) Enabled(level Level) bool {
	return l != nil && l.l.IsLevelEnabled(level)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l != nil {
		l.l.Debugf(format, args...)
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l != nil {
		l.l.Infof(format, args...)
	}
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	if l != nil {
		l.l.Warnf(format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l != nil {
		l.l.Errorf(format, args...)
	}
}
