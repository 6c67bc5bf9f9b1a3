package bytecode

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"aves/internal/ir"
)

func richProgram() *ir.Program {
	return &ir.Program{
		Consts: []ir.Literal{
			ir.StrLit("héllo\n"),
			ir.FloatLit(math.Float64frombits(0x7ff8000000000123)),
			ir.FloatLit(math.Copysign(0, -1)),
			ir.BytesLit([]byte{0, 1, 0xfe}),
		},
		Decls: []ir.Decl{
			&ir.Global{Name: "counter", Init: ir.IntLit(-7)},
			&ir.Global{Name: "flag", Init: ir.BoolLit(true)},
			&ir.Global{Name: "nothing", Init: ir.UnitLit()},
			&ir.Func{Name: "bump", Arity: 1, Locals: 2, Code: []ir.Instr{
				ir.Load(0), ir.Gload(0), ir.Op(ir.OpAdd), ir.Store(1),
				ir.Load(1), ir.Gstore(0), ir.Load(1), ir.Op(ir.OpRet),
			}},
			&ir.Func{Name: "main", Code: []ir.Instr{
				ir.Label("loop"),
				ir.Iconst(math.MinInt64), ir.Op(ir.OpPop),
				ir.Iconst(1), ir.Call(3, 1), ir.Iconst(0), ir.Op(ir.OpLt), ir.Jt("loop"),
				ir.Const(0), ir.Intr(ir.IntrinsicPrintln),
				ir.Jmp("end"),
				ir.Op(ir.OpNop),
				ir.Label("end"),
				ir.Op(ir.OpUnit), ir.Op(ir.OpRet),
			}},
		},
	}
}

func sumProgram() *ir.Program {
	return &ir.Program{Decls: []ir.Decl{
		&ir.Func{Name: "main", Code: []ir.Instr{
			ir.Iconst(2), ir.Iconst(3), ir.Op(ir.OpAdd),
			ir.Intr(ir.IntrinsicPrintInt), ir.Op(ir.OpUnit), ir.Op(ir.OpRet),
		}},
	}}
}

// rawEncode serializes p without validating it, so tests can hand the
// decoder programs that Encode would refuse.
func rawEncode(t *testing.T, p *ir.Program) []byte {
	t.Helper()
	buf := []byte(Magic)
	buf = append(buf, byte(Version), 0, 0, 0)
	consts, err := encodeConsts(p.Consts)
	if err != nil {
		t.Fatal(err)
	}
	if buf, err = appendSection(buf, sectionConsts, consts); err != nil {
		t.Fatal(err)
	}
	decls, err := encodeDecls(p.Decls)
	if err != nil {
		t.Fatal(err)
	}
	if buf, err = appendSection(buf, sectionDecls, decls); err != nil {
		t.Fatal(err)
	}
	return buf
}

func mustEncode(t *testing.T, p *ir.Program) []byte {
	t.Helper()
	data, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

func expectFormatError(t *testing.T, data []byte) *FormatError {
	t.Helper()
	prog, err := Decode(data)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if prog != nil {
		t.Fatal("decode returned a partial program alongside an error")
	}
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected *FormatError, got %T: %v", err, err)
	}
	return ferr
}

func TestRoundTrip(t *testing.T) {
	for name, p := range map[string]*ir.Program{
		"sum":   sumProgram(),
		"rich":  richProgram(),
		"empty": {},
	} {
		t.Run(name, func(t *testing.T) {
			data := mustEncode(t, p)
			got, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !got.Equal(p) {
				t.Fatalf("decoded program differs from the original")
			}
			again := mustEncode(t, got)
			if !bytes.Equal(again, data) {
				t.Fatalf("re-encoding is not byte-identical")
			}
		})
	}
}

func TestEncodeLayout(t *testing.T) {
	data := mustEncode(t, &ir.Program{})
	want := []byte{
		'A', 'V', 'E', 'S', 1, 0, 0, 0,
		1, 4, 0, 0, 0, 0, 0, 0, 0,
		2, 4, 0, 0, 0, 0, 0, 0, 0,
	}
	if !bytes.Equal(data, want) {
		t.Fatalf("empty program encodes as % x, want % x", data, want)
	}
}

func TestEncodeRejectsInvalid(t *testing.T) {
	p := &ir.Program{Decls: []ir.Decl{&ir.Func{Name: "f", Code: []ir.Instr{ir.Jmp("nowhere")}}}}
	if _, err := Encode(p); err == nil {
		t.Fatal("Encode accepted a jump to an undefined label")
	}
}

func TestDecodeTruncated(t *testing.T) {
	data := mustEncode(t, richProgram())
	for n := 0; n < len(data); n++ {
		ferr := expectFormatError(t, data[:n])
		if ferr.Offset > n {
			t.Fatalf("prefix %d: offset %d points past the input", n, ferr.Offset)
		}
	}
}

func TestDecodeHeader(t *testing.T) {
	good := mustEncode(t, sumProgram())
	tests := []struct {
		name   string
		patch  func([]byte)
		offset int
		found  string
	}{
		{"bad magic", func(b []byte) { b[3] = 'Z' }, 0, `"AVEZ"`},
		{"future version", func(b []byte) { b[4] = 2 }, 4, "unsupported version 2"},
		{"reserved set", func(b []byte) { b[6] = 1 }, 6, "1"},
		{"wrong first section", func(b []byte) { b[8] = 2 }, 8, "section id 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := bytes.Clone(good)
			tt.patch(data)
			ferr := expectFormatError(t, data)
			if ferr.Offset != tt.offset {
				t.Fatalf("offset = %d, want %d (%v)", ferr.Offset, tt.offset, ferr)
			}
			if !strings.Contains(ferr.Found, tt.found) {
				t.Fatalf("found = %q, want it to mention %q", ferr.Found, tt.found)
			}
		})
	}
}

func TestDecodeTrailingBytes(t *testing.T) {
	data := mustEncode(t, sumProgram())
	ferr := expectFormatError(t, append(data, 0))
	if ferr.Offset != len(data) {
		t.Fatalf("offset = %d, want %d", ferr.Offset, len(data))
	}
}

func TestDecodeSectionSizeMismatch(t *testing.T) {
	data := []byte{'A', 'V', 'E', 'S', 1, 0, 0, 0}
	// consts section claims 5 bytes but its payload only uses 4
	data = append(data, 1, 5, 0, 0, 0, 0, 0, 0, 0, 0xaa)
	data = append(data, 2, 4, 0, 0, 0, 0, 0, 0, 0)
	ferr := expectFormatError(t, data)
	if ferr.Offset != 17 || !strings.Contains(ferr.Found, "1 unconsumed") {
		t.Fatalf("unexpected error %v", ferr)
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	data := mustEncode(t, sumProgram())
	// header 8, consts section 9, decls id+size 5, count 4, kind 1,
	// name 4+4, arity 4, locals 4, ninstr 4
	const firstInstr = 47
	if data[firstInstr] != byte(ir.OpIconst) {
		t.Fatalf("layout changed: byte %d is 0x%02x", firstInstr, data[firstInstr])
	}
	data[firstInstr] = 0xff
	ferr := expectFormatError(t, data)
	if ferr.Offset != firstInstr || !strings.Contains(ferr.Found, "unknown opcode 0xff") {
		t.Fatalf("unexpected error %v", ferr)
	}
}

func TestDecodeRejectsInvalidPrograms(t *testing.T) {
	fn := func(name string, arity, locals uint32, code ...ir.Instr) *ir.Func {
		return &ir.Func{Name: name, Arity: arity, Locals: locals, Code: code}
	}
	tests := []struct {
		name  string
		p     *ir.Program
		found string
	}{
		{"int in pool", &ir.Program{Consts: []ir.Literal{ir.IntLit(3)}}, "i64 literal in const #0"},
		{"empty name", &ir.Program{Decls: []ir.Decl{fn("", 0, 0)}}, "empty name"},
		{"duplicate name", &ir.Program{Decls: []ir.Decl{fn("a", 0, 0), &ir.Global{Name: "a"}}}, `duplicate "a"`},
		{"locals below arity", &ir.Program{Decls: []ir.Decl{fn("f", 3, 1)}}, "1"},
		{"slot out of range", &ir.Program{Decls: []ir.Decl{fn("f", 0, 1, ir.Load(1))}}, "1"},
		{"const out of range", &ir.Program{Decls: []ir.Decl{fn("f", 0, 0, ir.Const(0))}}, "0"},
		{"decl out of range", &ir.Program{Decls: []ir.Decl{fn("f", 0, 0, ir.Gload(9))}}, "9"},
		{"call a global", &ir.Program{Decls: []ir.Decl{&ir.Global{Name: "g"}, fn("f", 0, 0, ir.Call(0, 0))}}, `global "g"`},
		{"gstore a func", &ir.Program{Decls: []ir.Decl{fn("f", 0, 0, ir.Gstore(0))}}, `func "f"`},
		{"undefined label", &ir.Program{Decls: []ir.Decl{fn("f", 0, 0, ir.Jf("L2"))}}, `undefined label "L2"`},
		{"duplicate label", &ir.Program{Decls: []ir.Decl{fn("f", 0, 0, ir.Label("x"), ir.Label("x"))}}, `duplicate label "x"`},
		{"unknown intrinsic", &ir.Program{Decls: []ir.Decl{fn("f", 0, 0, ir.Intr(77))}}, "unknown intrinsic 77"},
		{"forward call", &ir.Program{Decls: []ir.Decl{fn("f", 0, 0, ir.Call(1, 0)), fn("g", 0, 0)}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := rawEncode(t, tt.p)
			if tt.found == "" {
				if _, err := Decode(data); err != nil {
					t.Fatalf("Decode: %v", err)
				}
				return
			}
			ferr := expectFormatError(t, data)
			if !strings.Contains(ferr.Found, tt.found) {
				t.Fatalf("found = %q, want it to mention %q", ferr.Found, tt.found)
			}
			if ferr.Offset <= 0 || ferr.Offset >= len(data) {
				t.Fatalf("offset %d outside the input", ferr.Offset)
			}
		})
	}
}

func TestDecodeBadBool(t *testing.T) {
	data := rawEncode(t, &ir.Program{Decls: []ir.Decl{&ir.Global{Name: "b", Init: ir.BoolLit(true)}}})
	data[len(data)-1] = 2
	ferr := expectFormatError(t, data)
	if ferr.Offset != len(data)-1 {
		t.Fatalf("offset = %d, want %d", ferr.Offset, len(data)-1)
	}
}

func TestDecodeHugeCountDoesNotPreallocate(t *testing.T) {
	data := []byte{'A', 'V', 'E', 'S', 1, 0, 0, 0, 1, 4, 0, 0, 0, 0xff, 0xff, 0xff, 0xff}
	ferr := expectFormatError(t, data)
	if ferr.Offset != len(data) {
		t.Fatalf("offset = %d, want %d", ferr.Offset, len(data))
	}
}
