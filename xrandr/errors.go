package xrandr

import (
	"fmt"
	"strings"
)

// ParseError is returned when the output of xrandr does not look like
// expected. Line holds the offending raw text.
type ParseError struct {
	Msg  string
	Line string
}

func (e *ParseError) Error() string {
	if e.Line == "" {
		return "xrandr parse error: " + e.Msg
	}
	return fmt.Sprintf("xrandr parse error: %s: %q", e.Msg, e.Line)
}

func parseErrorf(line string, format string, args ...interface{}) *ParseError {
	return &ParseError{Msg: fmt.Sprintf(format, args...), Line: line}
}

// FileSyntaxError is returned for malformed xrandr command lines, including
// arguments that nothing knows how to handle.
type FileSyntaxError struct {
	Msg string
}

func (e *FileSyntaxError) Error() string {
	return "syntax error: " + e.Msg
}

func FileSyntaxErrorf(format string, args ...interface{}) *FileSyntaxError {
	return &FileSyntaxError{Msg: fmt.Sprintf(format, args...)}
}

// InadequateConfiguration is returned for a well formed transition that can
// not be applied to the server as it is.
type InadequateConfiguration struct {
	// Output is the name of the output the problem is about, if any.
	Output string
	// Conflicting names the two options that exclude each other, if that is
	// the problem.
	Conflicting []string
	Msg         string
}

func (e *InadequateConfiguration) Error() string {
	var b strings.Builder
	b.WriteString("inadequate configuration")
	if e.Output != "" {
		b.WriteString(" for output ")
		b.WriteString(e.Output)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if len(e.Conflicting) != 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Conflicting, " vs. "))
	}
	return b.String()
}

// VersionError is returned when xrandr or the server it talks to has a
// version that is not supported.
type VersionError struct {
	Version Version
	Msg     string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s (server %q, program %q)", e.Msg, e.Version.Server, e.Version.Program)
}

// FlagError is returned when a string does not name a value of an
// enumeration like Rotation or Reflection.
type FlagError struct {
	Kind  string
	Value string
}

func (e *FlagError) Error() string {
	return fmt.Sprintf("no such %s: %q", e.Kind, e.Value)
}
