package toolchain

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"aves/internal/bytecode"
)

// Format names a program representation.
type Format uint8

const (
	FormatAuto Format = iota
	FormatBytecode
	FormatText
)

// File extensions of the two representations.
const (
	BytecodeExt = ".avb"
	TextExt     = ".avt"
)

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatBytecode:
		return "bytecode"
	case FormatText:
		return "text"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// ParseFormat converts a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "bytecode", "binary", "avb":
		return FormatBytecode, nil
	case "text", "avt":
		return FormatText, nil
	default:
		return FormatAuto, fmt.Errorf("unknown format %q (expected: auto|bytecode|text)", s)
	}
}

// DetectFormat resolves FormatAuto for a file: the extension wins, then the
// bytecode magic, and anything else is treated as text.
func DetectFormat(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case BytecodeExt:
		return FormatBytecode
	case TextExt:
		return FormatText
	}
	if bytes.HasPrefix(data, []byte(bytecode.Magic)) {
		return FormatBytecode
	}
	return FormatText
}
