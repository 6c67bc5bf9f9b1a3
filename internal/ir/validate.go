package ir

import "fmt"

// ValidationError reports the first violated program invariant.
type ValidationError struct {
	Decl  string // declaration name, empty for program-level problems
	Instr int    // instruction index within Decl, -1 when not instruction-specific
	Msg   string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Decl == "":
		return "invalid program: " + e.Msg
	case e.Instr < 0:
		return fmt.Sprintf("invalid program: %s: %s", e.Decl, e.Msg)
	default:
		return fmt.Sprintf("invalid program: %s+%d: %s", e.Decl, e.Instr, e.Msg)
	}
}

// Validate checks the invariants every codec relies on: unique non-empty
// declaration names, in-range operand indices, matching declaration kinds,
// unique labels and resolvable jump targets.
func (p *Program) Validate() error {
	for i, lit := range p.Consts {
		if !lit.Kind.Pooled() {
			return &ValidationError{Instr: -1, Msg: fmt.Sprintf("const #%d: %s literal cannot be pooled", i, lit.Kind)}
		}
	}
	seen := make(map[string]struct{}, len(p.Decls))
	for _, d := range p.Decls {
		if d == nil {
			return &ValidationError{Instr: -1, Msg: "nil declaration"}
		}
		name := d.DeclName()
		if name == "" {
			return &ValidationError{Instr: -1, Msg: "empty declaration name"}
		}
		if _, dup := seen[name]; dup {
			return &ValidationError{Decl: name, Instr: -1, Msg: "duplicate declaration name"}
		}
		seen[name] = struct{}{}
	}
	for _, d := range p.Decls {
		switch d := d.(type) {
		case *Global:
			if !d.Init.Kind.Valid() {
				return &ValidationError{Decl: d.Name, Instr: -1, Msg: fmt.Sprintf("bad initializer kind %d", d.Init.Kind)}
			}
		case *Func:
			if err := p.validateFunc(d); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Program) validateFunc(f *Func) error {
	if f.Locals < f.Arity {
		return &ValidationError{Decl: f.Name, Instr: -1, Msg: fmt.Sprintf("locals %d < arity %d", f.Locals, f.Arity)}
	}
	labels := make(map[string]struct{})
	for i, in := range f.Code {
		if in.Op != OpLabel {
			continue
		}
		if in.Label == "" {
			return &ValidationError{Decl: f.Name, Instr: i, Msg: "empty label name"}
		}
		if _, dup := labels[in.Label]; dup {
			return &ValidationError{Decl: f.Name, Instr: i, Msg: fmt.Sprintf("duplicate label %q", in.Label)}
		}
		labels[in.Label] = struct{}{}
	}
	for i, in := range f.Code {
		if msg := p.checkOperand(f, in, labels); msg != "" {
			return &ValidationError{Decl: f.Name, Instr: i, Msg: msg}
		}
	}
	return nil
}

// checkOperand returns a description of what is wrong with in, or "".
func (p *Program) checkOperand(f *Func, in Instr, labels map[string]struct{}) string {
	if !in.Op.Valid() {
		return fmt.Sprintf("unknown opcode 0x%02x", uint8(in.Op))
	}
	switch in.Op.Shape() {
	case ShapeConst:
		if int64(in.Index) >= int64(len(p.Consts)) {
			return fmt.Sprintf("const #%d out of range (pool size %d)", in.Index, len(p.Consts))
		}
	case ShapeSlot:
		if in.Index >= f.Locals {
			return fmt.Sprintf("slot %d out of range (locals %d)", in.Index, f.Locals)
		}
	case ShapeDecl:
		if p.GlobalAt(in.Index) == nil {
			return fmt.Sprintf("%s: declaration @%d is not a global", in.Op, in.Index)
		}
	case ShapeCall:
		if p.FuncAt(in.Index) == nil {
			return fmt.Sprintf("call: declaration @%d is not a function", in.Index)
		}
	case ShapeLabel:
		if in.Op == OpLabel {
			return ""
		}
		if _, ok := labels[in.Label]; !ok {
			return fmt.Sprintf("%s: undefined label %q", in.Op, in.Label)
		}
	case ShapeIntrinsic:
		if !in.Intrinsic.Valid() {
			return fmt.Sprintf("unknown intrinsic %d", uint32(in.Intrinsic))
		}
	}
	return ""
}
