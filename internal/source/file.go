// Package source holds text inputs together with a line index used to turn
// byte offsets into line:column positions for diagnostics.
package source

import (
	"crypto/sha256"
	"fmt"
	"os"

	"fortio.org/safecast"
)

// File is a normalized text input.
type File struct {
	Path    string
	Content []byte
	LineIdx []uint32 // offsets of every '\n'
	Hash    [32]byte
	Flags   Flags
}

// New builds a File from already-normalized bytes.
func New(path string, content []byte, flags Flags) *File {
	if _, err := safecast.Conv[uint32](len(content)); err != nil {
		panic(fmt.Errorf("source %s too large: %w", path, err))
	}
	return &File{
		Path:    normalizePath(path),
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	}
}

// Virtual wraps in-memory text (stdin, tests) after normalizing BOM and CRLF.
func Virtual(name string, content []byte) *File {
	content, flags := normalize(content)
	return New(name, content, flags|FileVirtual)
}

// Load reads a file from disk, normalizes CRLF/BOM and indexes its lines.
func Load(path string) (*File, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content, flags := normalize(content)
	return New(path, content, flags), nil
}

func normalize(content []byte) ([]byte, Flags) {
	content, hadBOM := removeBOM(content)
	content, hadCRLF := normalizeCRLF(content)
	var flags Flags
	if hadBOM {
		flags |= FileHadBOM
	}
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	return content, flags
}

// Len returns the content length as a byte offset.
func (f *File) Len() uint32 {
	return uint32(len(f.Content)) // bounded in New
}

// Position converts a byte offset into a line and column.
func (f *File) Position(off uint32) LineCol {
	return toLineCol(f.LineIdx, off)
}

// Resolve converts a span into line and column positions.
func (f *File) Resolve(span Span) (start, end LineCol) {
	return toLineCol(f.LineIdx, span.Start), toLineCol(f.LineIdx, span.End)
}

// Line returns the text of line lineNum (1-based) without its newline.
// Если строка не существует, возвращает пустую строку.
func (f *File) Line(lineNum uint32) string {
	if lineNum == 0 {
		return ""
	}
	lenLineIdx, err := safecast.Conv[uint32](len(f.LineIdx))
	if err != nil {
		panic(fmt.Errorf("line index length overflow: %w", err))
	}
	lenContent := f.Len()

	var start, end uint32
	switch {
	case lineNum == 1:
		start = 0
	case lineNum-2 < lenLineIdx:
		start = f.LineIdx[lineNum-2] + 1
	default:
		return ""
	}
	if lineNum-1 < lenLineIdx {
		end = f.LineIdx[lineNum-1]
	} else {
		end = lenContent
	}
	if start >= lenContent {
		return ""
	}
	return string(f.Content[start:min(end, lenContent)])
}

// Snippet renders the line containing off with a caret under the column,
// ready to follow a diagnostic header.
func (f *File) Snippet(off uint32) string {
	pos := f.Position(off)
	line := f.Line(pos.Line)
	if line == "" {
		return ""
	}
	gutter := fmt.Sprintf("%4d | ", pos.Line)
	pad := make([]byte, 0, len(gutter)+int(pos.Col))
	for i := 0; i < len(gutter)-2; i++ {
		pad = append(pad, ' ')
	}
	pad = append(pad, '|', ' ')
	for i := uint32(1); i < pos.Col && int(i) <= len(line); i++ {
		if line[i-1] == '\t' {
			pad = append(pad, '\t')
		} else {
			pad = append(pad, ' ')
		}
	}
	return gutter + line + "\n" + string(pad) + "^"
}
