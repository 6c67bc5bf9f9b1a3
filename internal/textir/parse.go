// Package textir implements the human-editable text form of Aves IR.
//
// The grammar is newline-insensitive; ';' starts a comment that runs to the
// end of the line. Mnemonics and keywords ignore case, names do not.
//
//	unit   : (const | global | func)*
//	const  : "const" "#" N "=" literal        entries must be dense and in order
//	global : "global" name "=" literal
//	func   : "func" name "(" arity ")" ["locals" N] "{" (name ":" | instr)* "}"
//	literal: "unit" | "i64" int | "f64" float | "bool" ("true"|"false")
//	       | "str" string | "bytes" x"hex"
//	name   : identifier | Go-quoted string
//
// Declarations and labels may be referenced before they are defined.
package textir

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"aves/internal/ir"
	"aves/internal/source"
)

// Parse reads a text IR program. name is used in diagnostics only.
func Parse(name string, src []byte) (*ir.Program, error) {
	return ParseFile(source.Virtual(name, src))
}

// ParseFile reads a text IR program from an already loaded file.
func ParseFile(f *source.File) (*ir.Program, error) {
	p := &parser{
		file:  f,
		lx:    newLexer(f),
		prog:  &ir.Program{},
		names: make(map[string]int),
	}
	if err := p.unit(); err != nil {
		return nil, err
	}
	if err := p.resolve(); err != nil {
		return nil, err
	}
	return p.prog, nil
}

type constRef struct {
	tok   token
	index uint32
}

// declRef is a by-name operand patched once every declaration is known.
type declRef struct {
	tok  token
	name string
	want ir.DeclKind
	fn   *ir.Func
	at   int
}

type jumpRef struct {
	tok   token
	label string
}

type parser struct {
	file      *source.File
	lx        *lexer
	prog      *ir.Program
	names     map[string]int
	constRefs []constRef
	declRefs  []declRef
}

func (p *parser) pos(off uint32) Pos {
	lc := p.file.Position(off)
	return Pos{File: p.file.Path, Line: lc.Line, Col: lc.Col}
}

func (p *parser) errorf(tok token, expected string) *ParseError {
	return &ParseError{Pos: p.pos(tok.Span.Start), Offset: tok.Span.Start, Expected: expected, Found: tok.describe()}
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.lx.next()
	if tok.Kind != kind {
		return tok, p.errorf(tok, kind.String())
	}
	return tok, nil
}

func isKeyword(tok token, kw string) bool {
	return tok.Kind == tokIdent && strings.EqualFold(tok.Text, kw)
}

func (p *parser) unit() error {
	for {
		tok := p.lx.next()
		var err error
		switch {
		case tok.Kind == tokEOF:
			return nil
		case isKeyword(tok, "const"):
			err = p.constDecl()
		case isKeyword(tok, "global"):
			err = p.globalDecl()
		case isKeyword(tok, "func"):
			err = p.funcDecl()
		default:
			err = p.errorf(tok, "'const', 'global' or 'func'")
		}
		if err != nil {
			return err
		}
	}
}

func (p *parser) constDecl() error {
	if _, err := p.expect(tokHash); err != nil {
		return err
	}
	idxTok := p.lx.next()
	want := len(p.prog.Consts)
	idx, err := p.parseUint32(idxTok, "constant index")
	if err != nil {
		return err
	}
	if int64(idx) != int64(want) {
		return p.errorf(idxTok, fmt.Sprintf("constant index %d", want))
	}
	if _, err := p.expect(tokAssign); err != nil {
		return err
	}
	kindTok := p.lx.peek()
	lit, err := p.literal()
	if err != nil {
		return err
	}
	if !lit.Kind.Pooled() {
		return p.errorf(kindTok, "pooled literal kind (f64, str, bytes)")
	}
	p.prog.Consts = append(p.prog.Consts, lit)
	return nil
}

func (p *parser) globalDecl() error {
	name, err := p.declName()
	if err != nil {
		return err
	}
	if _, err := p.expect(tokAssign); err != nil {
		return err
	}
	lit, err := p.literal()
	if err != nil {
		return err
	}
	p.prog.Decls = append(p.prog.Decls, &ir.Global{Name: name, Init: lit})
	return nil
}

// declName reads a declaration name and registers it.
func (p *parser) declName() (string, error) {
	tok := p.lx.next()
	name, ok := nameOf(tok)
	if !ok {
		return "", p.errorf(tok, "declaration name")
	}
	if _, dup := p.names[name]; dup {
		return "", &ParseError{
			Pos: p.pos(tok.Span.Start), Offset: tok.Span.Start,
			Expected: "unique declaration name", Found: fmt.Sprintf("duplicate %q", name),
		}
	}
	p.names[name] = len(p.prog.Decls)
	return name, nil
}

func nameOf(tok token) (string, bool) {
	switch tok.Kind {
	case tokIdent:
		return tok.Text, true
	case tokString:
		return tok.Str, tok.Str != ""
	default:
		return "", false
	}
}

func (p *parser) funcDecl() error {
	name, err := p.declName()
	if err != nil {
		return err
	}
	fn := &ir.Func{Name: name}
	if _, err := p.expect(tokLParen); err != nil {
		return err
	}
	if fn.Arity, err = p.parseUint32(p.lx.next(), "arity"); err != nil {
		return err
	}
	if _, err := p.expect(tokRParen); err != nil {
		return err
	}
	fn.Locals = fn.Arity
	if isKeyword(p.lx.peek(), "locals") {
		p.lx.next()
		tok := p.lx.next()
		if fn.Locals, err = p.parseUint32(tok, "local slot count"); err != nil {
			return err
		}
		if fn.Locals < fn.Arity {
			return p.errorf(tok, fmt.Sprintf("local slot count >= arity %d", fn.Arity))
		}
	}
	if _, err := p.expect(tokLBrace); err != nil {
		return err
	}
	// функция доступна по имени до разбора тела, чтобы работала рекурсия
	p.prog.Decls = append(p.prog.Decls, fn)
	return p.body(fn)
}

func (p *parser) body(fn *ir.Func) error {
	labels := make(map[string]struct{})
	var jumps []jumpRef
	for {
		tok := p.lx.next()
		switch tok.Kind {
		case tokRBrace:
			return p.closeFunc(fn, labels, jumps)
		case tokEOF:
			return p.errorf(tok, "instruction, label or '}'")
		case tokIdent, tokString:
			if p.lx.peek().Kind == tokColon {
				p.lx.next()
				if err := p.defineLabel(fn, labels, tok); err != nil {
					return err
				}
				continue
			}
		}
		if tok.Kind != tokIdent {
			return p.errorf(tok, "instruction, label or '}'")
		}
		op, ok := ir.LookupOpcode(tok.Text)
		if !ok {
			return p.errorf(tok, "instruction mnemonic")
		}
		if op == ir.OpLabel {
			nameTok := p.lx.next()
			if err := p.defineLabel(fn, labels, nameTok); err != nil {
				return err
			}
			continue
		}
		in, jump, err := p.operands(fn, op)
		if err != nil {
			return err
		}
		if op.IsJump() {
			jumps = append(jumps, jump)
		}
		fn.Code = append(fn.Code, in)
	}
}

func (p *parser) defineLabel(fn *ir.Func, labels map[string]struct{}, tok token) error {
	name, ok := nameOf(tok)
	if !ok {
		return p.errorf(tok, "label name")
	}
	if _, dup := labels[name]; dup {
		return &ParseError{
			Pos: p.pos(tok.Span.Start), Offset: tok.Span.Start,
			Expected: "unique label", Found: fmt.Sprintf("duplicate label %q", name),
		}
	}
	labels[name] = struct{}{}
	fn.Code = append(fn.Code, ir.Label(name))
	return nil
}

// closeFunc checks jump targets once the whole body is known.
func (p *parser) closeFunc(fn *ir.Func, labels map[string]struct{}, jumps []jumpRef) error {
	for _, j := range jumps {
		if _, ok := labels[j.label]; !ok {
			return &UnresolvedLabelError{Func: fn.Name, Label: j.label, Pos: p.pos(j.tok.Span.Start), Offset: j.tok.Span.Start}
		}
	}
	return nil
}

func (p *parser) operands(fn *ir.Func, op ir.Opcode) (ir.Instr, jumpRef, error) {
	in := ir.Instr{Op: op}
	var jump jumpRef
	var err error
	switch op.Shape() {
	case ir.ShapeNone:
	case ir.ShapeInt:
		in.Int, err = p.parseInt(p.lx.next())
	case ir.ShapeConst:
		if _, err = p.expect(tokHash); err != nil {
			break
		}
		tok := p.lx.next()
		if in.Index, err = p.parseUint32(tok, "constant index"); err == nil {
			p.constRefs = append(p.constRefs, constRef{tok: tok, index: in.Index})
		}
	case ir.ShapeSlot:
		tok := p.lx.next()
		if in.Index, err = p.parseUint32(tok, "slot index"); err == nil && in.Index >= fn.Locals {
			err = p.errorf(tok, fmt.Sprintf("slot index < %d", fn.Locals))
		}
	case ir.ShapeLabel:
		tok := p.lx.next()
		name, ok := nameOf(tok)
		if !ok {
			err = p.errorf(tok, "label name")
			break
		}
		in.Label = name
		jump = jumpRef{tok: tok, label: name}
	case ir.ShapeDecl, ir.ShapeCall:
		tok := p.lx.next()
		name, ok := nameOf(tok)
		if !ok {
			err = p.errorf(tok, "declaration name")
			break
		}
		want := ir.DeclGlobal
		if op.Shape() == ir.ShapeCall {
			want = ir.DeclFunc
			if in.Argc, err = p.parseUint32(p.lx.next(), "argument count"); err != nil {
				break
			}
		}
		p.declRefs = append(p.declRefs, declRef{tok: tok, name: name, want: want, fn: fn, at: len(fn.Code)})
	case ir.ShapeIntrinsic:
		tok := p.lx.next()
		id, ok := ir.Intrinsic(0), false
		if tok.Kind == tokIdent {
			id, ok = ir.LookupIntrinsic(tok.Text)
		}
		if !ok {
			err = p.errorf(tok, "intrinsic name")
			break
		}
		in.Intrinsic = id
	}
	return in, jump, err
}

// resolve patches by-name operands and checks constant references.
func (p *parser) resolve() error {
	for _, ref := range p.constRefs {
		if int64(ref.index) >= int64(len(p.prog.Consts)) {
			return p.errorf(ref.tok, fmt.Sprintf("constant index < %d", len(p.prog.Consts)))
		}
	}
	for _, ref := range p.declRefs {
		idx, ok := p.names[ref.name]
		if !ok {
			return &ParseError{
				Pos: p.pos(ref.tok.Span.Start), Offset: ref.tok.Span.Start,
				Expected: "declared " + ref.want.String(), Found: fmt.Sprintf("undefined name %q", ref.name),
			}
		}
		d := p.prog.Decls[idx]
		if d.DeclKind() != ref.want {
			return &ParseError{
				Pos: p.pos(ref.tok.Span.Start), Offset: ref.tok.Span.Start,
				Expected: ref.want.String(), Found: fmt.Sprintf("%s %q", d.DeclKind(), ref.name),
			}
		}
		ref.fn.Code[ref.at].Index = uint32(idx)
	}
	return nil
}

func (p *parser) literal() (ir.Literal, error) {
	kindTok := p.lx.next()
	if kindTok.Kind != tokIdent {
		return ir.Literal{}, p.errorf(kindTok, "literal kind (unit, i64, f64, bool, str, bytes)")
	}
	switch strings.ToLower(kindTok.Text) {
	case "unit":
		return ir.UnitLit(), nil
	case "i64":
		v, err := p.parseInt(p.lx.next())
		return ir.IntLit(v), err
	case "f64":
		v, err := p.parseFloat()
		return ir.FloatLit(v), err
	case "bool":
		tok := p.lx.next()
		switch {
		case isKeyword(tok, "true"):
			return ir.BoolLit(true), nil
		case isKeyword(tok, "false"):
			return ir.BoolLit(false), nil
		}
		return ir.Literal{}, p.errorf(tok, "'true' or 'false'")
	case "str":
		tok, err := p.expect(tokString)
		return ir.StrLit(tok.Str), err
	case "bytes":
		tok, err := p.expect(tokBytes)
		return ir.BytesLit([]byte(tok.Str)), err
	}
	return ir.Literal{}, p.errorf(kindTok, "literal kind (unit, i64, f64, bool, str, bytes)")
}

func (p *parser) parseInt(tok token) (int64, error) {
	if tok.Kind != tokNumber {
		return 0, p.errorf(tok, "integer")
	}
	v, err := strconv.ParseInt(tok.Text, 0, 64)
	if err != nil {
		return 0, p.errorf(tok, "64-bit integer")
	}
	return v, nil
}

func (p *parser) parseUint32(tok token, what string) (uint32, error) {
	if tok.Kind != tokNumber {
		return 0, p.errorf(tok, what)
	}
	v, err := strconv.ParseUint(tok.Text, 0, 32)
	if err != nil {
		return 0, p.errorf(tok, what+" (unsigned 32-bit)")
	}
	return uint32(v), nil
}

func (p *parser) parseFloat() (float64, error) {
	tok := p.lx.next()
	if isKeyword(tok, "nan") {
		if p.lx.peek().Kind != tokLParen {
			return math.NaN(), nil
		}
		p.lx.next()
		bitsTok := p.lx.next()
		if bitsTok.Kind != tokNumber {
			return 0, p.errorf(bitsTok, "NaN bit pattern")
		}
		bits, err := strconv.ParseUint(bitsTok.Text, 0, 64)
		if err != nil || !math.IsNaN(math.Float64frombits(bits)) {
			return 0, p.errorf(bitsTok, "NaN bit pattern")
		}
		if _, err := p.expect(tokRParen); err != nil {
			return 0, err
		}
		return math.Float64frombits(bits), nil
	}
	if tok.Kind != tokNumber {
		return 0, p.errorf(tok, "float")
	}
	v, err := strconv.ParseFloat(tok.Text, 64)
	if err != nil {
		return 0, p.errorf(tok, "64-bit float")
	}
	return v, nil
}
