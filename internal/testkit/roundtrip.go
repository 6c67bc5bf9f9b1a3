// Package testkit holds assertions shared by codec and toolchain tests.
package testkit

import (
	"bytes"
	"fmt"

	"aves/internal/bytecode"
	"aves/internal/ir"
	"aves/internal/textir"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// MustParse parses text IR or fails the test.
func MustParse(t TB, src string) *ir.Program {
	t.Helper()
	p, err := textir.Parse("test.avt", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return p
}

// MustEncode encodes p or fails the test.
func MustEncode(t TB, p *ir.Program) []byte {
	t.Helper()
	data, err := bytecode.Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

// CheckRoundTrips verifies that p survives both representations:
// bytecode decodes to an equal program, printed text parses back to an
// equal program, and re-encoding reproduces the same bytes.
func CheckRoundTrips(p *ir.Program) error {
	data, err := bytecode.Encode(p)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	decoded, err := bytecode.Decode(data)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if !decoded.Equal(p) {
		return fmt.Errorf("decoded program differs from the original")
	}
	text := textir.Print(decoded)
	parsed, err := textir.Parse("printed.avt", text)
	if err != nil {
		return fmt.Errorf("parse printed text: %w\n%s", err, text)
	}
	if !parsed.Equal(p) {
		return fmt.Errorf("parsed program differs from the original:\n%s", text)
	}
	if again := textir.Print(parsed); !bytes.Equal(again, text) {
		return fmt.Errorf("printing is not stable:\n%s\n---\n%s", text, again)
	}
	back, err := bytecode.Encode(parsed)
	if err != nil {
		return fmt.Errorf("re-encode: %w", err)
	}
	if !bytes.Equal(back, data) {
		return fmt.Errorf("re-encoded bytecode differs (%d vs %d bytes)", len(back), len(data))
	}
	return nil
}

// AssertRoundTrips fails the test when CheckRoundTrips reports a problem.
func AssertRoundTrips(t TB, p *ir.Program) {
	t.Helper()
	if err := CheckRoundTrips(p); err != nil {
		t.Fatalf("round trip: %v", err)
	}
}
