package textir

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"aves/internal/bytecode"
	"aves/internal/ir"
)

func sumProgram() *ir.Program {
	return &ir.Program{Decls: []ir.Decl{
		&ir.Func{Name: "main", Code: []ir.Instr{
			ir.Iconst(2), ir.Iconst(3), ir.Op(ir.OpAdd),
			ir.Intr(ir.IntrinsicPrintInt), ir.Op(ir.OpUnit), ir.Op(ir.OpRet),
		}},
	}}
}

func richProgram() *ir.Program {
	return &ir.Program{
		Consts: []ir.Literal{
			ir.StrLit("tab\there \"quoted\" \x00\xff ünï"),
			ir.FloatLit(math.Float64frombits(0x7ff8000000000123)),
			ir.FloatLit(math.Copysign(0, -1)),
			ir.FloatLit(math.Inf(-1)),
			ir.FloatLit(5e-324),
			ir.FloatLit(0.1),
			ir.BytesLit([]byte{0xde, 0xad, 0x00}),
			ir.BytesLit(nil),
		},
		Decls: []ir.Decl{
			&ir.Global{Name: "counter", Init: ir.IntLit(math.MinInt64)},
			&ir.Global{Name: "weird name", Init: ir.BoolLit(false)},
			&ir.Global{Name: "pi", Init: ir.FloatLit(math.Pi)},
			&ir.Global{Name: "greeting", Init: ir.StrLit("")},
			&ir.Func{Name: "bump", Arity: 1, Locals: 2, Code: []ir.Instr{
				ir.Load(0), ir.Gload(0), ir.Op(ir.OpAdd), ir.Store(1),
				ir.Load(1), ir.Gstore(0), ir.Load(1), ir.Op(ir.OpRet),
			}},
			&ir.Func{Name: "main", Code: []ir.Instr{
				ir.Jmp("tail end"),
				ir.Label("ret"),
				ir.Iconst(1), ir.Call(4, 1), ir.Iconst(0), ir.Op(ir.OpLt), ir.Jt("ret"),
				ir.Const(0), ir.Intr(ir.IntrinsicPrintln),
				ir.Gload(1), ir.Jf("tail end"),
				ir.Label("tail end"),
				ir.Call(6, 0),
				ir.Op(ir.OpUnit), ir.Op(ir.OpRet),
			}},
			&ir.Func{Name: "later", Code: []ir.Instr{ir.Op(ir.OpUnit), ir.Op(ir.OpRet)}},
		},
	}
}

func TestPrintCanonical(t *testing.T) {
	want := `; aves text ir v1

func main(0) locals 0 {
    iconst 2
    iconst 3
    add
    intrinsic print_int
    unit
    ret
}
`
	if got := string(Print(sumProgram())); got != want {
		t.Fatalf("Print mismatch\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	for name, p := range map[string]*ir.Program{
		"sum":   sumProgram(),
		"rich":  richProgram(),
		"empty": {},
	} {
		t.Run(name, func(t *testing.T) {
			text := Print(p)
			got, err := Parse(name+".avt", text)
			if err != nil {
				t.Fatalf("Parse: %v\n%s", err, text)
			}
			if !got.Equal(p) {
				t.Fatalf("parse(print(P)) differs from P\n%s", text)
			}
			if again := Print(got); !bytes.Equal(again, text) {
				t.Fatalf("printing is not idempotent\n%s\n---\n%s", text, again)
			}
			want, err := bytecode.Encode(p)
			if err != nil {
				t.Fatalf("Encode(P): %v", err)
			}
			have, err := bytecode.Encode(got)
			if err != nil {
				t.Fatalf("Encode(parse(print(P))): %v", err)
			}
			if !bytes.Equal(want, have) {
				t.Fatal("bytecode of the reparsed program differs")
			}
		})
	}
}

func TestParseLenientInput(t *testing.T) {
	src := `
; comments and blank lines are ignored
CONST #0 = F64 1e+06
Global flags = i64 0b1010_1010
func main(0) locals 2 { ICONST 0x10 Store 1 jmp done
  nop ; trailing comment
done: LOAD 1 const #0 pop Intrinsic PRINT_INT unit ret }
`
	p, err := Parse("lenient.avt", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Consts[0].Float != 1e6 {
		t.Errorf("const #0 = %v", p.Consts[0])
	}
	if g := p.GlobalAt(0); g == nil || g.Init.Int != 0xaa {
		t.Errorf("flags = %+v", g)
	}
	main := p.FuncAt(1)
	if main == nil {
		t.Fatal("main not parsed as a function")
	}
	wantCode := []ir.Instr{
		ir.Iconst(16), ir.Store(1), ir.Jmp("done"), ir.Op(ir.OpNop),
		ir.Label("done"), ir.Load(1), ir.Const(0), ir.Op(ir.OpPop),
		ir.Intr(ir.IntrinsicPrintInt), ir.Op(ir.OpUnit), ir.Op(ir.OpRet),
	}
	if len(main.Code) != len(wantCode) {
		t.Fatalf("got %d instructions, want %d", len(main.Code), len(wantCode))
	}
	for i := range wantCode {
		if main.Code[i] != wantCode[i] {
			t.Errorf("instr %d = %v, want %v", i, main.Code[i], wantCode[i])
		}
	}
}

func TestUnresolvedLabel(t *testing.T) {
	src := "func main(0) {\n  jmp L2\n  unit\n  ret\n}\n"
	_, err := Parse("l2.avt", []byte(src))
	var uerr *UnresolvedLabelError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *UnresolvedLabelError, got %T: %v", err, err)
	}
	if uerr.Label != "L2" || uerr.Func != "main" {
		t.Fatalf("error names %q in %q", uerr.Label, uerr.Func)
	}
	if uerr.Pos.Line != 2 || uerr.Pos.Col != 7 {
		t.Fatalf("position = %v", uerr.Pos)
	}
	if !strings.Contains(err.Error(), `"L2"`) {
		t.Fatalf("message %q does not name the label", err)
	}
}

func TestUnresolvedLabelReportedWhenUnitCloses(t *testing.T) {
	// the dangling jump must surface before the syntax error in the next unit
	src := "func main(0) {\n  jmp nowhere\n}\nfunc broken("
	_, err := Parse("order.avt", []byte(src))
	var uerr *UnresolvedLabelError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *UnresolvedLabelError, got %T: %v", err, err)
	}
}

func TestForwardReferences(t *testing.T) {
	src := `
func main(0) {
    jmp skip
    call helper 0
skip:
    gload state
    ret
}
func helper(0) { unit ret }
global state = unit
`
	p, err := Parse("forward.avt", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	main := p.FuncAt(0)
	if main.Code[1] != ir.Call(1, 0) || main.Code[3] != ir.Gload(2) {
		t.Fatalf("references resolved to %v and %v", main.Code[1], main.Code[3])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		line     uint32
		col      uint32
		expected string
		found    string
	}{
		{"missing operand", "func main(0) {\n    iconst\n}\n", 3, 1, "integer", "'}'"},
		{"unknown mnemonic", "func main(0) {\n    frob 1\n}", 2, 5, "instruction mnemonic", `identifier "frob"`},
		{"const out of order", `const #1 = str "a"`, 1, 8, "constant index 0", `number "1"`},
		{"int overflow", "global g = i64 99999999999999999999", 1, 16, "64-bit integer", ""},
		{"slot past locals", "func main(0) {\n  load 0\n}", 2, 8, "slot index < 0", ""},
		{"undefined callee", "func main(0) {\n  call nope 0\n}", 2, 8, "declared func", `undefined name "nope"`},
		{"call a global", "global g = unit\nfunc main(0) {\n  call g 0\n}", 3, 8, "func", `global "g"`},
		{"const ref past pool", "func main(0) {\n  const #0\n}", 2, 10, "constant index < 0", ""},
		{"unterminated body", "func main(0) {\n  iconst 1", 2, 11, "instruction, label or '}'", "end of input"},
		{"unterminated string", "global s = str \"abc", 1, 16, "string", "invalid token"},
		{"duplicate label", "func main(0) {\na:\na:\n}", 3, 1, "unique label", `duplicate label "a"`},
		{"duplicate decl", "global a = unit\nglobal a = unit", 2, 8, "unique declaration name", `duplicate "a"`},
		{"junk at top level", "junk", 1, 1, "'const', 'global' or 'func'", `identifier "junk"`},
		{"int in pool", "const #0 = i64 1", 1, 12, "pooled literal kind", ""},
		{"locals below arity", "func f(2) locals 1 {}", 1, 18, "local slot count >= arity 2", ""},
		{"bad intrinsic", "func main(0) {\n  intrinsic launch\n}", 2, 13, "intrinsic name", ""},
		{"bad hex bytes", `global b = bytes x"zz"`, 1, 18, "bytes literal", "invalid token"},
		{"bad nan payload", "global f = f64 nan(0x1)", 1, 20, "NaN bit pattern", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.avt", []byte(tt.src))
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T: %v", err, err)
			}
			if perr.Pos.Line != tt.line || perr.Pos.Col != tt.col {
				t.Errorf("position = %d:%d, want %d:%d (%v)", perr.Pos.Line, perr.Pos.Col, tt.line, tt.col, perr)
			}
			if !strings.Contains(perr.Expected, tt.expected) {
				t.Errorf("expected = %q, want it to mention %q", perr.Expected, tt.expected)
			}
			if !strings.Contains(perr.Found, tt.found) {
				t.Errorf("found = %q, want it to mention %q", perr.Found, tt.found)
			}
			if perr.Pos.File != "bad.avt" {
				t.Errorf("file = %q", perr.Pos.File)
			}
		})
	}
}

func TestFormatFloatRoundTrips(t *testing.T) {
	for _, bits := range []uint64{
		0, 1 << 63, 1, 0x7fefffffffffffff, 0x7ff0000000000000, 0xfff0000000000000,
		0x7ff8000000000000, 0xfff8000000000001, 0x3fb999999999999a,
	} {
		f := math.Float64frombits(bits)
		src := "global f = f64 " + FormatFloat(f)
		p, err := Parse("float.avt", []byte(src))
		if err != nil {
			t.Fatalf("%s: %v", src, err)
		}
		if got := math.Float64bits(p.GlobalAt(0).Init.Float); got != bits {
			t.Errorf("%s: bits %#016x, want %#016x", src, got, bits)
		}
	}
}
