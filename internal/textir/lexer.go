package textir

import (
	"encoding/hex"
	"strconv"
	"unicode/utf8"

	"aves/internal/source"
)

type lexer struct {
	cur  cursor
	look *token // 1 элементный буфер для токена
}

func newLexer(f *source.File) *lexer {
	return &lexer{cur: cursor{file: f}}
}

// next returns the next significant token. After EOF it keeps returning EOF.
func (lx *lexer) next() token {
	if lx.look != nil {
		tok := *lx.look
		lx.look = nil
		return tok
	}
	lx.skipTrivia()
	start := lx.cur.off
	if lx.cur.eof() {
		return token{Kind: tokEOF, Span: source.Span{Start: start, End: start}}
	}

	ch := lx.cur.peek()
	switch {
	case ch == 'x' && lx.cur.peekAt(1) == '"':
		lx.cur.bump()
		return lx.scanBytes(start)
	case isIdentStart(ch):
		lx.cur.eatWhile(isIdentContinue)
		return lx.make(tokIdent, start)
	case isDec(ch):
		return lx.scanNumber(start)
	case (ch == '-' || ch == '+') && (isDec(lx.cur.peekAt(1)) || lx.cur.peekAt(1) == 'i' || lx.cur.peekAt(1) == 'I'):
		lx.cur.bump()
		return lx.scanNumber(start)
	case ch == '"':
		return lx.scanString(start)
	}

	lx.cur.bump()
	switch ch {
	case '{':
		return lx.make(tokLBrace, start)
	case '}':
		return lx.make(tokRBrace, start)
	case '(':
		return lx.make(tokLParen, start)
	case ')':
		return lx.make(tokRParen, start)
	case '=':
		return lx.make(tokAssign, start)
	case '#':
		return lx.make(tokHash, start)
	case ':':
		return lx.make(tokColon, start)
	}
	// захватываем всю руну, чтобы в диагностике не было половины символа
	lx.cur.off = start
	_, size := utf8.DecodeRune(lx.cur.file.Content[start:])
	lx.cur.off += uint32(size)
	return lx.make(tokInvalid, start)
}

func (lx *lexer) peek() token {
	t := lx.next()
	lx.look = &t
	return t
}

func (lx *lexer) make(kind tokenKind, start uint32) token {
	return token{Kind: kind, Span: source.Span{Start: start, End: lx.cur.off}, Text: lx.cur.text(start)}
}

// skipTrivia drops whitespace and ';' comments.
func (lx *lexer) skipTrivia() {
	for !lx.cur.eof() {
		switch ch := lx.cur.peek(); {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			lx.cur.bump()
		case ch == ';':
			lx.cur.eatWhile(func(b byte) bool { return b != '\n' })
		default:
			return
		}
	}
}

func (lx *lexer) scanNumber(start uint32) token {
	for !lx.cur.eof() {
		ch := lx.cur.peek()
		if isNumberContinue(ch) {
			lx.cur.bump()
			continue
		}
		// знак допустим только сразу после экспоненты
		prev := lx.cur.file.Content[lx.cur.off-1]
		if (ch == '+' || ch == '-') && (prev == 'e' || prev == 'E') {
			lx.cur.bump()
			continue
		}
		break
	}
	return lx.make(tokNumber, start)
}

// rawQuoted consumes a double-quoted Go string and returns its raw text,
// or false if the closing quote is missing.
func (lx *lexer) rawQuoted() bool {
	lx.cur.bump() // opening quote
	for !lx.cur.eof() {
		switch lx.cur.bump() {
		case '\\':
			lx.cur.bump()
		case '"':
			return true
		case '\n':
			return false
		}
	}
	return false
}

func (lx *lexer) scanString(start uint32) token {
	if !lx.rawQuoted() {
		return lx.make(tokInvalid, start)
	}
	tok := lx.make(tokString, start)
	s, err := strconv.Unquote(tok.Text)
	if err != nil {
		tok.Kind = tokInvalid
		return tok
	}
	tok.Str = s
	return tok
}

func (lx *lexer) scanBytes(start uint32) token {
	if !lx.rawQuoted() {
		return lx.make(tokInvalid, start)
	}
	tok := lx.make(tokBytes, start)
	b, err := hex.DecodeString(tok.Text[2 : len(tok.Text)-1])
	if err != nil {
		tok.Kind = tokInvalid
		return tok
	}
	tok.Str = string(b)
	return tok
}

func isIdentStart(b byte) bool {
	return b == '_' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

func isIdentContinue(b byte) bool {
	return isIdentStart(b) || isDec(b) || b == '.' || b == '$'
}

func isDec(b byte) bool {
	return '0' <= b && b <= '9'
}

func isNumberContinue(b byte) bool {
	return isDec(b) || b == '_' || b == '.' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

// isIdent reports whether s prints as a bare name.
func isIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentContinue(s[i]) {
			return false
		}
	}
	return true
}
