package textir

import "aves/internal/source"

// cursor is a byte position in a source file.
type cursor struct {
	file *source.File
	off  uint32
}

func (c *cursor) eof() bool {
	return c.off >= c.file.Len()
}

// peek читает текущий байт, если есть, иначе возвращает 0
func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.file.Content[c.off]
}

// peekAt смотрит на n байт вперед
func (c *cursor) peekAt(n uint32) byte {
	if c.off+n >= c.file.Len() {
		return 0
	}
	return c.file.Content[c.off+n]
}

// bump перемещает курсор на один байт вперед и возвращает прочитанный байт
func (c *cursor) bump() byte {
	if c.eof() {
		return 0
	}
	b := c.file.Content[c.off]
	c.off++
	return b
}

// eatWhile поглощает байты, пока pred истинно
func (c *cursor) eatWhile(pred func(byte) bool) {
	for !c.eof() && pred(c.peek()) {
		c.off++
	}
}

func (c *cursor) text(start uint32) string {
	return string(c.file.Content[start:c.off])
}
