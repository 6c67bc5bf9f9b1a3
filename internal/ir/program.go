package ir

import "fmt"

// DeclKind tags a declaration. Values are part of the bytecode format.
type DeclKind uint8

const (
	DeclGlobal DeclKind = 1
	DeclFunc   DeclKind = 2
)

func (k DeclKind) String() string {
	switch k {
	case DeclGlobal:
		return "global"
	case DeclFunc:
		return "func"
	default:
		return fmt.Sprintf("DeclKind(%d)", k)
	}
}

// EntryName is the function where execution starts.
const EntryName = "main"

// Decl is a top-level declaration: *Func or *Global.
type Decl interface {
	DeclName() string
	DeclKind() DeclKind
	isDecl()
}

// Func is a callable unit. Its name doubles as its entry label; execution
// starts at Code[0].
type Func struct {
	Name   string
	Arity  uint32
	Locals uint32 // slot count, arguments occupy slots [0, Arity)
	Code   []Instr
}

func (f *Func) DeclName() string   { return f.Name }
func (f *Func) DeclKind() DeclKind { return DeclFunc }
func (*Func) isDecl()              {}

// Labels maps each label defined in f to the index of its OpLabel instruction.
// Later duplicates are ignored; Validate reports them.
func (f *Func) Labels() map[string]int {
	out := make(map[string]int)
	for i, in := range f.Code {
		if in.Op != OpLabel {
			continue
		}
		if _, seen := out[in.Label]; !seen {
			out[in.Label] = i
		}
	}
	return out
}

// Global is a program-level variable with an initial value.
type Global struct {
	Name string
	Init Literal
}

func (g *Global) DeclName() string   { return g.Name }
func (g *Global) DeclKind() DeclKind { return DeclGlobal }
func (*Global) isDecl()              {}

// Program is an ordered sequence of declarations plus the constant pool.
type Program struct {
	Consts []Literal
	Decls  []Decl
}

// Lookup returns the index of the declaration named name.
func (p *Program) Lookup(name string) (int, bool) {
	for i, d := range p.Decls {
		if d.DeclName() == name {
			return i, true
		}
	}
	return 0, false
}

// FuncAt returns the function at declaration index i, or nil.
func (p *Program) FuncAt(i uint32) *Func {
	if int64(i) >= int64(len(p.Decls)) {
		return nil
	}
	f, _ := p.Decls[i].(*Func)
	return f
}

// GlobalAt returns the global at declaration index i, or nil.
func (p *Program) GlobalAt(i uint32) *Global {
	if int64(i) >= int64(len(p.Decls)) {
		return nil
	}
	g, _ := p.Decls[i].(*Global)
	return g
}

// Entry returns the entry function and its declaration index.
func (p *Program) Entry() (*Func, int, bool) {
	idx, ok := p.Lookup(EntryName)
	if !ok {
		return nil, 0, false
	}
	f, ok := p.Decls[idx].(*Func)
	return f, idx, ok
}

// Equal reports structural equality.
func (p *Program) Equal(o *Program) bool {
	if p == nil || o == nil {
		return p == o
	}
	if len(p.Consts) != len(o.Consts) || len(p.Decls) != len(o.Decls) {
		return false
	}
	for i := range p.Consts {
		if !p.Consts[i].Equal(o.Consts[i]) {
			return false
		}
	}
	for i := range p.Decls {
		if !declEqual(p.Decls[i], o.Decls[i]) {
			return false
		}
	}
	return true
}

func declEqual(a, b Decl) bool {
	switch x := a.(type) {
	case *Func:
		y, ok := b.(*Func)
		if !ok || x.Name != y.Name || x.Arity != y.Arity || x.Locals != y.Locals || len(x.Code) != len(y.Code) {
			return false
		}
		for i := range x.Code {
			if x.Code[i] != y.Code[i] {
				return false
			}
		}
		return true
	case *Global:
		y, ok := b.(*Global)
		return ok && x.Name == y.Name && x.Init.Equal(y.Init)
	default:
		return false
	}
}
