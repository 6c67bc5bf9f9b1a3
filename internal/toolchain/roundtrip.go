package toolchain

import (
	"fmt"

	"aves/internal/bytecode"
	"aves/internal/textir"
)

// MismatchError reports that bytecode did not survive
// decode → print → parse → encode unchanged.
type MismatchError struct {
	Offset  int // first differing byte, or the shorter length
	WantLen int
	GotLen  int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("round trip mismatch at offset %d (original %d bytes, re-encoded %d bytes)", e.Offset, e.WantLen, e.GotLen)
}

// RoundTrip checks that raw bytecode is reproduced byte for byte after a
// trip through the text representation.
func RoundTrip(raw []byte) error {
	p, err := bytecode.Decode(raw)
	if err != nil {
		return err
	}
	text := textir.Print(p)
	back, err := textir.Parse("<printed>", text)
	if err != nil {
		return fmt.Errorf("re-parse printed text: %w", err)
	}
	out, err := bytecode.Encode(back)
	if err != nil {
		return fmt.Errorf("re-encode: %w", err)
	}
	if off, ok := firstDiff(raw, out); !ok {
		return &MismatchError{Offset: off, WantLen: len(raw), GotLen: len(out)}
	}
	return nil
}

func firstDiff(a, b []byte) (int, bool) {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i, false
		}
	}
	return n, len(a) == len(b)
}
