// Package cliui renders the scanner's terminal status stream: a
// keyword-prefixed line per event, red for errors, honoring NO_COLOR and
// TERM=dumb the way the rest of the ecosystem does.
package cliui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Stream writes status lines to an underlying writer, colorized unless the
// environment asks for plain text.
type Stream struct {
	out       io.Writer
	plainText bool
}

// NewStream returns a Stream writing to stdout, auto-detecting NO_COLOR/TERM=dumb.
func NewStream() *Stream {
	return NewStreamTo(os.Stdout)
}

// NewStreamTo returns a Stream writing to an explicit writer.
func NewStreamTo(w io.Writer) *Stream {
	plain := os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb"
	return &Stream{out: w, plainText: plain}
}

func (s *Stream) colorize(c *color.Color, format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if s.plainText {
		return msg
	}
	return c.Sprint(msg)
}

// Info prints a neutral status line: "[keyword] message".
func (s *Stream) Info(keyword, format string, args ...interface{}) {
	kw := s.colorize(color.New(color.FgCyan, color.Bold), "[%s]", keyword)
	fmt.Fprintf(s.out, "%s %s\n", kw, fmt.Sprintf(format, args...))
}

// Success prints a positive status line in green.
func (s *Stream) Success(keyword, format string, args ...interface{}) {
	kw := s.colorize(color.New(color.FgGreen, color.Bold), "[%s]", keyword)
	fmt.Fprintf(s.out, "%s %s\n", kw, fmt.Sprintf(format, args...))
}

// Error prints a red "Error" line, per spec: errors are visually distinct
// from ordinary status.
func (s *Stream) Error(format string, args ...interface{}) {
	prefix := s.colorize(color.New(color.FgRed, color.Bold), "Error:")
	fmt.Fprintf(s.out, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}

// Warn prints a yellow warning line.
func (s *Stream) Warn(format string, args ...interface{}) {
	prefix := s.colorize(color.New(color.FgYellow, color.Bold), "Warning:")
	fmt.Fprintf(s.out, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}
