package textir

import "fmt"

// Pos is a human-readable location in a text IR file.
type Pos struct {
	File string
	Line uint32 // 1-based
	Col  uint32 // 1-based, in bytes
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// ParseError reports malformed text IR. Offset is the byte offset of the
// offending token, kept for snippet rendering.
type ParseError struct {
	Pos      Pos
	Offset   uint32
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: expected %s, found %s", e.Pos, e.Expected, e.Found)
}

// UnresolvedLabelError reports a jump whose target is not defined anywhere in
// the enclosing function. It is raised when the function body closes.
type UnresolvedLabelError struct {
	Func   string
	Label  string
	Pos    Pos
	Offset uint32
}

func (e *UnresolvedLabelError) Error() string {
	return fmt.Sprintf("%s: unresolved label %q in func %s", e.Pos, e.Label, e.Func)
}
