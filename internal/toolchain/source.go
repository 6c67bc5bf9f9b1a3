package toolchain

import (
	"context"
	"fmt"
	"io"
	"os"

	"aves/internal/bytecode"
	"aves/internal/ir"
	"aves/internal/observ"
	"aves/internal/textir"
	"aves/internal/trace"
)

// Source is one program input. Path is used for format detection and
// diagnostics only; Data is authoritative.
type Source struct {
	Path   string
	Data   []byte
	Format Format
}

// StdinPath names standard input on the command line.
const StdinPath = "-"

// ReadSource reads path ("-" for stdin) into a Source.
func ReadSource(path string, format Format) (Source, error) {
	var (
		data []byte
		err  error
	)
	if path == StdinPath {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return Source{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Source{Path: path, Data: data, Format: format}, nil
}

// Resolved returns the concrete format of s.
func (s Source) Resolved() Format {
	if s.Format != FormatAuto {
		return s.Format
	}
	return DetectFormat(s.Path, s.Data)
}

// Load decodes or parses s. Errors are the codecs' own types
// (*bytecode.FormatError, *textir.ParseError, *textir.UnresolvedLabelError).
func (s Source) Load(ctx context.Context) (*ir.Program, error) {
	format := s.Resolved()
	phase := "decode"
	if format == FormatText {
		phase = "parse"
	}
	ctx, span := trace.Start(ctx, trace.ScopePhase, phase)
	end := timerFrom(ctx).Track(phase)

	var (
		p   *ir.Program
		err error
	)
	switch format {
	case FormatBytecode:
		p, err = bytecode.Decode(s.Data)
	case FormatText:
		p, err = textir.Parse(s.displayName(), s.Data)
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	note := fmt.Sprintf("%d bytes", len(s.Data))
	end(note)
	span.WithExtra("bytes", fmt.Sprint(len(s.Data))).End(errDetail(err))
	return p, err
}

func (s Source) displayName() string {
	if s.Path == "" || s.Path == StdinPath {
		return "<stdin>"
	}
	return s.Path
}

func errDetail(err error) string {
	if err != nil {
		return "error"
	}
	return ""
}

type timerKey struct{}

// WithTimer makes phases run under ctx record into t.
func WithTimer(ctx context.Context, t *observ.Timer) context.Context {
	return context.WithValue(ctx, timerKey{}, t)
}

func timerFrom(ctx context.Context) *observ.Timer {
	t, _ := ctx.Value(timerKey{}).(*observ.Timer)
	return t
}
