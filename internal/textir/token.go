package textir

import (
	"fmt"

	"aves/internal/source"
)

type tokenKind uint8

const (
	tokInvalid tokenKind = iota
	tokEOF
	tokIdent
	tokNumber // ints, floats, +inf/-inf
	tokString
	tokBytes // x"..."
	tokLBrace
	tokRBrace
	tokLParen
	tokRParen
	tokAssign
	tokHash
	tokColon
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	case tokBytes:
		return "bytes literal"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokAssign:
		return "'='"
	case tokHash:
		return "'#'"
	case tokColon:
		return "':'"
	default:
		return "invalid token"
	}
}

type token struct {
	Kind tokenKind
	Span source.Span
	Text string // raw source text
	Str  string // decoded payload of tokString and tokBytes
}

// describe renders the token for the Found part of a diagnostic.
func (t token) describe() string {
	switch t.Kind {
	case tokEOF:
		return "end of input"
	case tokIdent, tokNumber:
		return fmt.Sprintf("%s %q", t.Kind, t.Text)
	case tokString, tokBytes:
		return t.Kind.String() + " " + t.Text
	case tokInvalid:
		return fmt.Sprintf("invalid token %q", t.Text)
	default:
		return t.Kind.String()
	}
}
