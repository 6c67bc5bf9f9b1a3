package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"aves/internal/bytecode"
	"aves/internal/source"
	"aves/internal/textir"
	"aves/internal/toolchain"
	"aves/internal/vm"
)

// printError renders err for a human. src, when known, supplies the
// snippet under text IR errors and the byte window under bytecode errors.
func printError(w io.Writer, err error, src *toolchain.Source) {
	var (
		parseErr *textir.ParseError
		labelErr *textir.UnresolvedLabelError
		fmtErr   *bytecode.FormatError
		vmErr    *vm.VMError
	)
	switch {
	case errors.As(err, &vmErr):
		header, rest, _ := strings.Cut(vmErr.Format(), "\n")
		fmt.Fprintf(w, "%s %s\n", errorLabel.Sprint("error:"), header)
		if rest != "" {
			fmt.Fprint(w, indentLines(rest, "  "))
		}
	case errors.As(err, &parseErr):
		fmt.Fprintf(w, "%s %s\n", errorLabel.Sprint("error:"), err)
		printSnippet(w, src, parseErr.Offset)
	case errors.As(err, &labelErr):
		fmt.Fprintf(w, "%s %s\n", errorLabel.Sprint("error:"), err)
		printSnippet(w, src, labelErr.Offset)
	case errors.As(err, &fmtErr):
		fmt.Fprintf(w, "%s %s\n", errorLabel.Sprint("error:"), err)
		if src != nil {
			fmt.Fprintf(w, "%s %s\n", noteLabel.Sprint("  bytes:"), hexWindow(src.Data, fmtErr.Offset))
		}
	default:
		fmt.Fprintf(w, "%s %v\n", errorLabel.Sprint("error:"), err)
	}
}

func printSnippet(w io.Writer, src *toolchain.Source, off uint32) {
	if src == nil {
		return
	}
	f := source.Virtual(src.Path, src.Data)
	if snippet := f.Snippet(off); snippet != "" {
		fmt.Fprintln(w, snippet)
	}
}

// hexWindow shows up to 8 bytes on each side of off, marking off with [].
func hexWindow(data []byte, off int) string {
	if off >= len(data) {
		return fmt.Sprintf("<end of input after %d bytes>", len(data))
	}
	start := max(0, off-8)
	end := min(len(data), off+9)
	var sb strings.Builder
	fmt.Fprintf(&sb, "@%d:", start)
	for i := start; i < end; i++ {
		if i == off {
			fmt.Fprintf(&sb, " [%02x]", data[i])
		} else {
			fmt.Fprintf(&sb, " %02x", data[i])
		}
	}
	return sb.String()
}

func indentLines(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var sb strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		sb.WriteString(prefix)
		sb.WriteString(line)
	}
	return sb.String()
}
