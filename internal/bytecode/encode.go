package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"

	"fortio.org/safecast"

	"aves/internal/ir"
)

// Encode serializes p. The program is validated first so that Encode never
// produces bytes Decode would reject.
func Encode(p *ir.Program) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, headerSize+64)
	buf = append(buf, Magic...)
	buf = binary.LittleEndian.AppendUint16(buf, Version)
	buf = binary.LittleEndian.AppendUint16(buf, 0)

	consts, err := encodeConsts(p.Consts)
	if err != nil {
		return nil, err
	}
	if buf, err = appendSection(buf, sectionConsts, consts); err != nil {
		return nil, err
	}
	decls, err := encodeDecls(p.Decls)
	if err != nil {
		return nil, err
	}
	return appendSection(buf, sectionDecls, decls)
}

func appendSection(buf []byte, id sectionID, payload []byte) ([]byte, error) {
	size, err := safecast.Conv[uint32](len(payload))
	if err != nil {
		return nil, fmt.Errorf("bytecode: %s section too large: %w", id, err)
	}
	buf = append(buf, byte(id))
	buf = binary.LittleEndian.AppendUint32(buf, size)
	return append(buf, payload...), nil
}

func appendCount(buf []byte, n int, what string) ([]byte, error) {
	c, err := safecast.Conv[uint32](n)
	if err != nil {
		return nil, fmt.Errorf("bytecode: too many %s: %w", what, err)
	}
	return binary.LittleEndian.AppendUint32(buf, c), nil
}

func appendBlob(buf, b []byte) ([]byte, error) {
	buf, err := appendCount(buf, len(b), "bytes in string")
	if err != nil {
		return nil, err
	}
	return append(buf, b...), nil
}

func encodeConsts(lits []ir.Literal) ([]byte, error) {
	buf, err := appendCount(nil, len(lits), "constants")
	if err != nil {
		return nil, err
	}
	for _, lit := range lits {
		if buf, err = appendLiteral(buf, lit); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendLiteral(buf []byte, lit ir.Literal) ([]byte, error) {
	buf = append(buf, byte(lit.Kind))
	switch lit.Kind {
	case ir.LitUnit:
	case ir.LitInt:
		buf = binary.LittleEndian.AppendUint64(buf, uint64(lit.Int))
	case ir.LitFloat:
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(lit.Float))
	case ir.LitBool:
		var b byte
		if lit.Bool {
			b = 1
		}
		buf = append(buf, b)
	case ir.LitStr:
		return appendBlob(buf, []byte(lit.Str))
	case ir.LitBytes:
		return appendBlob(buf, lit.Bytes)
	default:
		return nil, fmt.Errorf("bytecode: cannot encode %s literal", lit.Kind)
	}
	return buf, nil
}

func encodeDecls(decls []ir.Decl) ([]byte, error) {
	buf, err := appendCount(nil, len(decls), "declarations")
	if err != nil {
		return nil, err
	}
	for _, d := range decls {
		buf = append(buf, byte(d.DeclKind()))
		if buf, err = appendBlob(buf, []byte(d.DeclName())); err != nil {
			return nil, err
		}
		switch d := d.(type) {
		case *ir.Global:
			buf, err = appendLiteral(buf, d.Init)
		case *ir.Func:
			buf, err = appendFunc(buf, d)
		}
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendFunc(buf []byte, fn *ir.Func) ([]byte, error) {
	buf = binary.LittleEndian.AppendUint32(buf, fn.Arity)
	buf = binary.LittleEndian.AppendUint32(buf, fn.Locals)
	buf, err := appendCount(buf, len(fn.Code), "instructions")
	if err != nil {
		return nil, err
	}
	for _, in := range fn.Code {
		buf = append(buf, byte(in.Op))
		switch in.Op.Shape() {
		case ir.ShapeInt:
			buf = binary.LittleEndian.AppendUint64(buf, uint64(in.Int))
		case ir.ShapeConst, ir.ShapeSlot, ir.ShapeDecl:
			buf = binary.LittleEndian.AppendUint32(buf, in.Index)
		case ir.ShapeCall:
			buf = binary.LittleEndian.AppendUint32(buf, in.Index)
			buf = binary.LittleEndian.AppendUint32(buf, in.Argc)
		case ir.ShapeLabel:
			if buf, err = appendBlob(buf, []byte(in.Label)); err != nil {
				return nil, err
			}
		case ir.ShapeIntrinsic:
			buf = binary.LittleEndian.AppendUint32(buf, uint32(in.Intrinsic))
		}
	}
	return buf, nil
}
