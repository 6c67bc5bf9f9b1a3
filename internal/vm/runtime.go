package vm

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"
)

// Runtime provides the interface between the VM and the outside world.
type Runtime interface {
	// Stdout receives everything the program prints.
	Stdout() io.Writer

	// Argv returns program arguments (excluding program name).
	Argv() []string

	// ReadLine returns the next input line without its terminator;
	// ok is false at end of input.
	ReadLine() (line string, ok bool)

	// Exit signals the VM to halt with the given exit code.
	Exit(code int)

	// ExitCode returns the exit code set by Exit, or -1 if not set.
	ExitCode() int

	// Exited returns true if Exit was called.
	Exited() bool
}

// lineReader splits an input stream into lines, accepting a final line
// without a trailing newline.
type lineReader struct {
	sc *bufio.Scanner
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	return &lineReader{sc: sc}
}

func (lr *lineReader) next() (string, bool) {
	if !lr.sc.Scan() {
		return "", false
	}
	return strings.TrimSuffix(lr.sc.Text(), "\r"), true
}

// DefaultRuntime implements Runtime using OS facilities.
type DefaultRuntime struct {
	out      io.Writer
	in       *lineReader
	argv     []string // program arguments (after --)
	exitCode int
	exited   bool
}

// NewDefaultRuntime creates a runtime bound to the process streams.
func NewDefaultRuntime(argv []string) *DefaultRuntime {
	return NewStreamRuntime(os.Stdout, os.Stdin, argv)
}

// NewStreamRuntime creates a runtime over arbitrary streams.
func NewStreamRuntime(out io.Writer, in io.Reader, argv []string) *DefaultRuntime {
	if in == nil {
		in = strings.NewReader("")
	}
	return &DefaultRuntime{out: out, in: newLineReader(in), argv: argv, exitCode: -1}
}

func (r *DefaultRuntime) Stdout() io.Writer {
	return r.out
}

func (r *DefaultRuntime) Argv() []string {
	return r.argv
}

func (r *DefaultRuntime) ReadLine() (string, bool) {
	return r.in.next()
}

func (r *DefaultRuntime) Exit(code int) {
	r.exitCode = code
	r.exited = true
}

func (r *DefaultRuntime) ExitCode() int {
	return r.exitCode
}

func (r *DefaultRuntime) Exited() bool {
	return r.exited
}

// TestRuntime implements Runtime with controlled inputs for testing.
type TestRuntime struct {
	Out      bytes.Buffer
	argv     []string
	in       *lineReader
	exitCode int
	exited   bool
}

// NewTestRuntime creates a test runtime with controlled inputs.
func NewTestRuntime(argv []string, stdin string) *TestRuntime {
	return &TestRuntime{
		argv:     argv,
		in:       newLineReader(strings.NewReader(stdin)),
		exitCode: -1,
	}
}

func (r *TestRuntime) Stdout() io.Writer {
	return &r.Out
}

func (r *TestRuntime) Argv() []string {
	return r.argv
}

func (r *TestRuntime) ReadLine() (string, bool) {
	return r.in.next()
}

func (r *TestRuntime) Exit(code int) {
	r.exitCode = code
	r.exited = true
}

func (r *TestRuntime) ExitCode() int {
	return r.exitCode
}

func (r *TestRuntime) Exited() bool {
	return r.exited
}
