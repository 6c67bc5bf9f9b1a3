// Package bytecode implements the binary Aves IR format.
//
// Layout (all integers little-endian, fixed width):
//
//	header : magic "AVES" | version u16 | reserved u16 (zero)
//	section: id u8 | size u32 | payload[size]      ids 1 (consts) then 2 (decls)
//	consts : count u32 | literal*
//	decls  : count u32 | (kind u8 | name str | global-or-func)*
//	global : literal
//	func   : arity u32 | locals u32 | ninstr u32 | instr*
//	instr  : opcode u8 | operands fixed by the opcode's shape
//	literal: tag u8 | payload
//	str    : len u32 | bytes
//
// Decoding fails closed: any deviation yields a *FormatError and no program.
package bytecode

import "fmt"

// Magic opens every bytecode file.
const Magic = "AVES"

// Version is the only format version this package reads and writes.
const Version uint16 = 1

const headerSize = len(Magic) + 2 + 2

type sectionID uint8

const (
	sectionConsts sectionID = 1
	sectionDecls  sectionID = 2
)

func (s sectionID) String() string {
	switch s {
	case sectionConsts:
		return "consts"
	case sectionDecls:
		return "decls"
	default:
		return fmt.Sprintf("section(%d)", uint8(s))
	}
}

// FormatError describes malformed, truncated or unsupported bytecode.
type FormatError struct {
	Offset   int    // byte offset of the offending field
	Expected string // what the decoder was looking for
	Found    string // what it found instead
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("bytecode: offset %d: expected %s, found %s", e.Offset, e.Expected, e.Found)
}

func formatErr(off int, expected, found string, args ...any) *FormatError {
	return &FormatError{Offset: off, Expected: expected, Found: fmt.Sprintf(found, args...)}
}
