package textir

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"strconv"

	"aves/internal/ir"
)

// Header is the first line of every printed program.
const Header = "; aves text ir v1"

const indent = "    "

// Print renders p in canonical text form. Operands that do not resolve to a
// declaration are rendered as @index, which Parse rejects.
func Print(p *ir.Program) []byte {
	var buf bytes.Buffer
	_ = Fprint(&buf, p) // bytes.Buffer never fails
	return buf.Bytes()
}

// Fprint writes p in canonical text form to w.
func Fprint(w io.Writer, p *ir.Program) error {
	bw := bufio.NewWriter(w)
	pr := printer{w: bw, prog: p}
	pr.program()
	return bw.Flush()
}

type printer struct {
	w    *bufio.Writer
	prog *ir.Program
}

func (pr *printer) printf(format string, args ...any) {
	fmt.Fprintf(pr.w, format, args...)
}

func (pr *printer) program() {
	pr.printf("%s\n", Header)
	for i, lit := range pr.prog.Consts {
		pr.printf("const #%d = %s\n", i, formatLiteral(lit))
	}
	for _, d := range pr.prog.Decls {
		switch d := d.(type) {
		case *ir.Global:
			pr.printf("global %s = %s\n", formatName(d.Name), formatLiteral(d.Init))
		case *ir.Func:
			pr.function(d)
		}
	}
}

func (pr *printer) function(fn *ir.Func) {
	pr.printf("\nfunc %s(%d) locals %d {\n", formatName(fn.Name), fn.Arity, fn.Locals)
	for _, in := range fn.Code {
		if in.Op == ir.OpLabel {
			pr.printf("%s:\n", formatName(in.Label))
			continue
		}
		pr.printf("%s%s\n", indent, pr.instr(in))
	}
	pr.printf("}\n")
}

func (pr *printer) instr(in ir.Instr) string {
	switch in.Op.Shape() {
	case ir.ShapeInt:
		return in.Op.String() + " " + strconv.FormatInt(in.Int, 10)
	case ir.ShapeConst:
		return fmt.Sprintf("%s #%d", in.Op, in.Index)
	case ir.ShapeSlot:
		return fmt.Sprintf("%s %d", in.Op, in.Index)
	case ir.ShapeLabel:
		return in.Op.String() + " " + formatName(in.Label)
	case ir.ShapeDecl:
		return in.Op.String() + " " + pr.declName(in.Index)
	case ir.ShapeCall:
		return fmt.Sprintf("%s %s %d", in.Op, pr.declName(in.Index), in.Argc)
	case ir.ShapeIntrinsic:
		return in.Op.String() + " " + in.Intrinsic.String()
	default:
		return in.Op.String()
	}
}

func (pr *printer) declName(idx uint32) string {
	if int64(idx) < int64(len(pr.prog.Decls)) {
		return formatName(pr.prog.Decls[idx].DeclName())
	}
	return fmt.Sprintf("@%d", idx)
}

func formatName(s string) string {
	if isIdent(s) {
		return s
	}
	return strconv.Quote(s)
}

func formatLiteral(lit ir.Literal) string {
	switch lit.Kind {
	case ir.LitUnit:
		return "unit"
	case ir.LitInt:
		return "i64 " + strconv.FormatInt(lit.Int, 10)
	case ir.LitFloat:
		return "f64 " + FormatFloat(lit.Float)
	case ir.LitBool:
		return "bool " + strconv.FormatBool(lit.Bool)
	case ir.LitStr:
		return "str " + strconv.Quote(lit.Str)
	case ir.LitBytes:
		return `bytes x"` + hex.EncodeToString(lit.Bytes) + `"`
	default:
		return lit.Kind.String()
	}
}

// FormatFloat renders f so that parsing it yields the same bit pattern.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return fmt.Sprintf("nan(0x%016x)", math.Float64bits(f))
	case math.IsInf(f, 1):
		return "+inf"
	case math.IsInf(f, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}
