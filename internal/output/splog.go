// Package output provides structured logging and terminal output for the engine.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Splog provides structured logging and output
type Splog struct {
	writer  io.Writer
	debug   io.Writer
	verbose bool
}

// NewSplog creates a new splog instance writing to stdout
func NewSplog() *Splog {
	return &Splog{writer: os.Stdout}
}

// NewSplogWithWriter creates a splog instance writing to the given writer.
// Used by tests to capture output.
func NewSplogWithWriter(w io.Writer) *Splog {
	return &Splog{writer: w}
}

// SetVerbose enables debug output on the main writer
func (s *Splog) SetVerbose(verbose bool) {
	s.verbose = verbose
}

// EnableDebugFile mirrors debug messages into a rotating log file.
func (s *Splog) EnableDebugFile(path string) {
	s.debug = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
	}
}

// IsTTY returns true when stdout is attached to a terminal
func IsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Info writes an info message
func (s *Splog) Info(format string, args ...interface{}) {
	fmt.Fprintf(s.writer, format+"\n", args...)
}

// Warn writes a warning message
func (s *Splog) Warn(format string, args ...interface{}) {
	fmt.Fprintln(s.writer, ColorWarn("⚠ "+fmt.Sprintf(format, args...)))
}

// Error writes an error message
func (s *Splog) Error(format string, args ...interface{}) {
	fmt.Fprintln(s.writer, ColorFail("✗ "+fmt.Sprintf(format, args...)))
}

// Debug writes a debug message, shown only in verbose mode and always
// mirrored to the debug file when one is configured.
func (s *Splog) Debug(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if s.verbose {
		fmt.Fprintf(s.writer, ColorDim("debug: %s")+"\n", msg)
	}
	if s.debug != nil {
		fmt.Fprintf(s.debug, "debug: %s\n", msg)
	}
}

// Tip writes a tip message
func (s *Splog) Tip(format string, args ...interface{}) {
	fmt.Fprintf(s.writer, "💡 "+format+"\n", args...)
}

// Newline writes a newline
func (s *Splog) Newline() {
	fmt.Fprintln(s.writer)
}
