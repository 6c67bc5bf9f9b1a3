package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"

	"fortio.org/safecast"

	"aves/internal/ir"
)

// reader walks the input and reports every failure with an absolute offset.
type reader struct {
	data  []byte
	off   int
	limit int // exclusive end of the current section
}

func (r *reader) need(n int, what string) error {
	if n < 0 || r.off+n > r.limit {
		if r.limit < len(r.data) {
			return formatErr(r.off, what, "end of section (%d bytes left, need %d)", r.limit-r.off, n)
		}
		return formatErr(r.off, what, "truncated input (%d bytes left, need %d)", r.limit-r.off, n)
	}
	return nil
}

func (r *reader) u8(what string) (uint8, error) {
	if err := r.need(1, what); err != nil {
		return 0, err
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

func (r *reader) u16(what string) (uint16, error) {
	if err := r.need(2, what); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

func (r *reader) u32(what string) (uint32, error) {
	if err := r.need(4, what); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) u64(what string) (uint64, error) {
	if err := r.need(8, what); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v, nil
}

func (r *reader) blob(what string) ([]byte, error) {
	start := r.off
	n, err := r.u32(what + " length")
	if err != nil {
		return nil, err
	}
	size, err := safecast.Conv[int](n)
	if err != nil {
		return nil, formatErr(start, what+" length", "%d (overflow)", n)
	}
	if err := r.need(size, what); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, r.data[r.off:r.off+size])
	r.off += size
	return out, nil
}

func (r *reader) str(what string) (string, error) {
	b, err := r.blob(what)
	return string(b), err
}

// count reads an element count and caps the preallocation by the bytes left,
// since every element occupies at least minSize bytes.
func (r *reader) count(what string, minSize int) (int, int, error) {
	n, err := r.u32(what)
	if err != nil {
		return 0, 0, err
	}
	c, err := safecast.Conv[int](n)
	if err != nil {
		return 0, 0, formatErr(r.off-4, what, "%d (overflow)", n)
	}
	return c, min(c, (r.limit-r.off)/minSize), nil
}

// pendingRef is a declaration reference checked once every declaration is known.
type pendingRef struct {
	off   int
	index uint32
	want  ir.DeclKind
	op    ir.Opcode
}

type decoder struct {
	r       reader
	prog    *ir.Program
	pending []pendingRef
}

// Decode parses bytecode into a program. It never returns a partial program.
func Decode(data []byte) (*ir.Program, error) {
	d := &decoder{
		r:    reader{data: data, limit: len(data)},
		prog: &ir.Program{},
	}
	if err := d.header(); err != nil {
		return nil, err
	}
	if err := d.section(sectionConsts, d.consts); err != nil {
		return nil, err
	}
	if err := d.section(sectionDecls, d.decls); err != nil {
		return nil, err
	}
	if d.r.off != len(data) {
		return nil, formatErr(d.r.off, "end of input", "%d trailing bytes", len(data)-d.r.off)
	}
	return d.prog, nil
}

func (d *decoder) header() error {
	if err := d.r.need(len(Magic), "magic "+fmt.Sprintf("%q", Magic)); err != nil {
		return err
	}
	magic := string(d.r.data[:len(Magic)])
	if magic != Magic {
		return formatErr(0, fmt.Sprintf("magic %q", Magic), "%q", magic)
	}
	d.r.off += len(Magic)
	verOff := d.r.off
	ver, err := d.r.u16("format version")
	if err != nil {
		return err
	}
	if ver != Version {
		return formatErr(verOff, fmt.Sprintf("format version %d", Version), "unsupported version %d", ver)
	}
	resOff := d.r.off
	reserved, err := d.r.u16("reserved header field")
	if err != nil {
		return err
	}
	if reserved != 0 {
		return formatErr(resOff, "reserved header field 0", "%d", reserved)
	}
	return nil
}

// section decodes one size-prefixed section and insists that body consumes
// exactly the declared number of bytes.
func (d *decoder) section(id sectionID, body func() error) error {
	idOff := d.r.off
	got, err := d.r.u8(fmt.Sprintf("section id %d (%s)", id, id))
	if err != nil {
		return err
	}
	if sectionID(got) != id {
		return formatErr(idOff, fmt.Sprintf("section id %d (%s)", id, id), "section id %d", got)
	}
	sizeOff := d.r.off
	size32, err := d.r.u32(id.String() + " section size")
	if err != nil {
		return err
	}
	size, err := safecast.Conv[int](size32)
	if err != nil || d.r.off+size > len(d.r.data) {
		return formatErr(sizeOff, fmt.Sprintf("%s section of %d bytes", id, size32),
			"truncated input (%d bytes left)", len(d.r.data)-d.r.off)
	}
	start := d.r.off
	d.r.limit = start + size
	if err := body(); err != nil {
		return err
	}
	if d.r.off != d.r.limit {
		return formatErr(d.r.off, fmt.Sprintf("end of %s section (declared size %d)", id, size),
			"%d unconsumed bytes", d.r.limit-d.r.off)
	}
	d.r.limit = len(d.r.data)
	return nil
}

func (d *decoder) consts() error {
	n, capHint, err := d.r.count("constant count", 1)
	if err != nil {
		return err
	}
	d.prog.Consts = make([]ir.Literal, 0, capHint)
	for i := 0; i < n; i++ {
		off := d.r.off
		lit, err := d.literal()
		if err != nil {
			return err
		}
		if !lit.Kind.Pooled() {
			return formatErr(off, "pooled literal (f64, str, bytes)", "%s literal in const #%d", lit.Kind, i)
		}
		d.prog.Consts = append(d.prog.Consts, lit)
	}
	return nil
}

func (d *decoder) literal() (ir.Literal, error) {
	tagOff := d.r.off
	tag, err := d.r.u8("literal tag")
	if err != nil {
		return ir.Literal{}, err
	}
	kind := ir.LiteralKind(tag)
	switch kind {
	case ir.LitUnit:
		return ir.UnitLit(), nil
	case ir.LitInt:
		v, err := d.r.u64("i64 literal")
		return ir.IntLit(int64(v)), err
	case ir.LitFloat:
		v, err := d.r.u64("f64 literal")
		return ir.FloatLit(math.Float64frombits(v)), err
	case ir.LitBool:
		off := d.r.off
		v, err := d.r.u8("bool literal")
		if err != nil {
			return ir.Literal{}, err
		}
		if v > 1 {
			return ir.Literal{}, formatErr(off, "bool literal 0 or 1", "%d", v)
		}
		return ir.BoolLit(v == 1), nil
	case ir.LitStr:
		s, err := d.r.str("str literal")
		return ir.StrLit(s), err
	case ir.LitBytes:
		b, err := d.r.blob("bytes literal")
		return ir.BytesLit(b), err
	default:
		return ir.Literal{}, formatErr(tagOff, "literal tag", "unknown tag %d", tag)
	}
}

func (d *decoder) decls() error {
	n, capHint, err := d.r.count("declaration count", 5)
	if err != nil {
		return err
	}
	d.prog.Decls = make([]ir.Decl, 0, capHint)
	names := make(map[string]struct{}, capHint)
	for i := 0; i < n; i++ {
		kindOff := d.r.off
		kind, err := d.r.u8("declaration kind")
		if err != nil {
			return err
		}
		nameOff := d.r.off
		name, err := d.r.str("declaration name")
		if err != nil {
			return err
		}
		if name == "" {
			return formatErr(nameOff, "declaration name", "empty name")
		}
		if _, dup := names[name]; dup {
			return formatErr(nameOff, "unique declaration name", "duplicate %q", name)
		}
		names[name] = struct{}{}

		switch ir.DeclKind(kind) {
		case ir.DeclGlobal:
			init, err := d.literal()
			if err != nil {
				return err
			}
			d.prog.Decls = append(d.prog.Decls, &ir.Global{Name: name, Init: init})
		case ir.DeclFunc:
			fn, err := d.function(name)
			if err != nil {
				return err
			}
			d.prog.Decls = append(d.prog.Decls, fn)
		default:
			return formatErr(kindOff, "declaration kind (1=global, 2=func)", "%d", kind)
		}
	}
	return d.resolveRefs()
}

func (d *decoder) function(name string) (*ir.Func, error) {
	fn := &ir.Func{Name: name}
	var err error
	if fn.Arity, err = d.r.u32("arity"); err != nil {
		return nil, err
	}
	localsOff := d.r.off
	if fn.Locals, err = d.r.u32("local slot count"); err != nil {
		return nil, err
	}
	if fn.Locals < fn.Arity {
		return nil, formatErr(localsOff, fmt.Sprintf("local slot count >= arity %d", fn.Arity), "%d", fn.Locals)
	}
	n, capHint, err := d.r.count("instruction count", 1)
	if err != nil {
		return nil, err
	}
	fn.Code = make([]ir.Instr, 0, capHint)
	offsets := make([]int, 0, capHint)
	for i := 0; i < n; i++ {
		offsets = append(offsets, d.r.off)
		in, err := d.instr(fn)
		if err != nil {
			return nil, err
		}
		fn.Code = append(fn.Code, in)
	}
	return fn, checkLabels(fn, offsets)
}

func (d *decoder) instr(fn *ir.Func) (ir.Instr, error) {
	opOff := d.r.off
	b, err := d.r.u8("opcode")
	if err != nil {
		return ir.Instr{}, err
	}
	op := ir.Opcode(b)
	if !op.Valid() {
		return ir.Instr{}, formatErr(opOff, "opcode", "unknown opcode 0x%02x", b)
	}
	in := ir.Instr{Op: op}
	operandOff := d.r.off
	switch op.Shape() {
	case ir.ShapeNone:
	case ir.ShapeInt:
		v, err := d.r.u64(op.String() + " operand")
		if err != nil {
			return ir.Instr{}, err
		}
		in.Int = int64(v)
	case ir.ShapeConst:
		if in.Index, err = d.r.u32("const index"); err != nil {
			return ir.Instr{}, err
		}
		if int64(in.Index) >= int64(len(d.prog.Consts)) {
			return ir.Instr{}, formatErr(operandOff, fmt.Sprintf("const index < %d", len(d.prog.Consts)), "%d", in.Index)
		}
	case ir.ShapeSlot:
		if in.Index, err = d.r.u32("slot index"); err != nil {
			return ir.Instr{}, err
		}
		if in.Index >= fn.Locals {
			return ir.Instr{}, formatErr(operandOff, fmt.Sprintf("slot index < %d", fn.Locals), "%d", in.Index)
		}
	case ir.ShapeLabel:
		if in.Label, err = d.r.str("label"); err != nil {
			return ir.Instr{}, err
		}
		if in.Label == "" {
			return ir.Instr{}, formatErr(operandOff, "label name", "empty label")
		}
	case ir.ShapeDecl:
		if in.Index, err = d.r.u32("declaration index"); err != nil {
			return ir.Instr{}, err
		}
		d.pending = append(d.pending, pendingRef{off: operandOff, index: in.Index, want: ir.DeclGlobal, op: op})
	case ir.ShapeCall:
		if in.Index, err = d.r.u32("callee index"); err != nil {
			return ir.Instr{}, err
		}
		if in.Argc, err = d.r.u32("argument count"); err != nil {
			return ir.Instr{}, err
		}
		d.pending = append(d.pending, pendingRef{off: operandOff, index: in.Index, want: ir.DeclFunc, op: op})
	case ir.ShapeIntrinsic:
		v, err := d.r.u32("intrinsic id")
		if err != nil {
			return ir.Instr{}, err
		}
		in.Intrinsic = ir.Intrinsic(v)
		if !in.Intrinsic.Valid() {
			return ir.Instr{}, formatErr(operandOff, "intrinsic id", "unknown intrinsic %d", v)
		}
	}
	return in, nil
}

func checkLabels(fn *ir.Func, offsets []int) error {
	defined := make(map[string]struct{})
	for i, in := range fn.Code {
		if in.Op != ir.OpLabel {
			continue
		}
		if _, dup := defined[in.Label]; dup {
			return formatErr(offsets[i], "unique label", "duplicate label %q in %s", in.Label, fn.Name)
		}
		defined[in.Label] = struct{}{}
	}
	for i, in := range fn.Code {
		if !in.Op.IsJump() {
			continue
		}
		if _, ok := defined[in.Label]; !ok {
			return formatErr(offsets[i], "label defined in "+fn.Name, "undefined label %q", in.Label)
		}
	}
	return nil
}

func (d *decoder) resolveRefs() error {
	for _, ref := range d.pending {
		if int64(ref.index) >= int64(len(d.prog.Decls)) {
			return formatErr(ref.off, fmt.Sprintf("declaration index < %d", len(d.prog.Decls)), "%d", ref.index)
		}
		got := d.prog.Decls[ref.index].DeclKind()
		if got != ref.want {
			return formatErr(ref.off, fmt.Sprintf("%s operand referring to a %s", ref.op, ref.want),
				"%s %q", got, d.prog.Decls[ref.index].DeclName())
		}
	}
	return nil
}
