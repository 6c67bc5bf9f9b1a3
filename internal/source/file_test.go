package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVirtualLineIdx(t *testing.T) {
	// "a\nb\n" - LineIdx должен быть [1,3]
	f := Virtual("a.avt", []byte("a\nb\n"))

	expected := []uint32{1, 3}
	if len(f.LineIdx) != len(expected) {
		t.Fatalf("Expected LineIdx length %d, got %d", len(expected), len(f.LineIdx))
	}
	for i, val := range expected {
		if f.LineIdx[i] != val {
			t.Errorf("Expected LineIdx[%d] = %d, got %d", i, val, f.LineIdx[i])
		}
	}
	if f.Flags&FileVirtual == 0 {
		t.Error("Expected FileVirtual flag to be set")
	}
}

func TestCRLFNormalization(t *testing.T) {
	f := Virtual("crlf.avt", []byte("a\r\nb\rc\r\n"))
	if got := string(f.Content); got != "a\nb\rc\n" {
		t.Fatalf("Expected lone \\r to survive, got %q", got)
	}
	if f.Flags&FileNormalizedCRLF == 0 {
		t.Error("Expected FileNormalizedCRLF flag")
	}
}

func TestBOMRemoval(t *testing.T) {
	f := Virtual("bom.avt", []byte("\xEF\xBB\xBFfunc"))
	if string(f.Content) != "func" {
		t.Fatalf("BOM not stripped: %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 {
		t.Error("Expected FileHadBOM flag")
	}
}

func TestPosition(t *testing.T) {
	f := Virtual("pos.avt", []byte("ab\ncd\n\nxyz"))
	tests := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{2, LineCol{1, 3}}, // сам '\n' принадлежит первой строке
		{3, LineCol{2, 1}},
		{6, LineCol{3, 1}},
		{9, LineCol{4, 3}},
		{10, LineCol{4, 4}}, // EOF
	}
	for _, tt := range tests {
		if got := f.Position(tt.off); got != tt.want {
			t.Errorf("Position(%d) = %+v, want %+v", tt.off, got, tt.want)
		}
	}
	start, end := f.Resolve(Span{Start: 3, End: 9})
	if start != (LineCol{2, 1}) || end != (LineCol{4, 3}) {
		t.Errorf("Resolve = %+v..%+v", start, end)
	}
}

func TestLine(t *testing.T) {
	f := Virtual("lines.avt", []byte("first\nsecond\nthird"))
	for n, want := range map[uint32]string{0: "", 1: "first", 2: "second", 3: "third", 4: ""} {
		if got := f.Line(n); got != want {
			t.Errorf("Line(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestSnippet(t *testing.T) {
	f := Virtual("snip.avt", []byte("func main(0) {\n\tjmp L2\n}\n"))
	got := f.Snippet(20) // 'L' in "L2"
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("Snippet = %q", got)
	}
	if lines[0] != "   2 | \tjmp L2" {
		t.Errorf("source line = %q", lines[0])
	}
	if lines[1] != "     | \t    ^" {
		t.Errorf("caret line = %q", lines[1])
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{Start: 4, End: 8}
	b := Span{Start: 2, End: 6}
	if got := a.Cover(b); got != (Span{Start: 2, End: 8}) {
		t.Errorf("Cover = %v", got)
	}
	if !(Span{Start: 3, End: 3}).Empty() || a.Len() != 4 {
		t.Error("Empty/Len mismatch")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.avt")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFx\r\ny"), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(f.Content) != "x\ny" {
		t.Errorf("content = %q", f.Content)
	}
	if f.Flags&(FileHadBOM|FileNormalizedCRLF) != FileHadBOM|FileNormalizedCRLF {
		t.Errorf("flags = %b", f.Flags)
	}
	if f.Flags&FileVirtual != 0 {
		t.Error("file from disk marked virtual")
	}
	if _, err := Load(filepath.Join(dir, "missing.avt")); err == nil {
		t.Error("expected error for missing file")
	}
}
