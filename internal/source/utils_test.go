package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRelativePath(t *testing.T) {
	root := t.TempDir()
	suite := filepath.Join(root, "suite")
	if err := os.MkdirAll(filepath.Join(suite, "loops"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"bytecode in base", filepath.Join(suite, "sum.avb"), "sum.avb"},
		{"expected output nested", filepath.Join(suite, "loops", "count.out"), "loops/count.out"},
		{"unclean target", filepath.Join(suite, "loops", "..", "sum.avb"), "sum.avb"},
		{"base itself", suite, "."},
		// снаружи базы остаётся абсолютный путь
		{"outside base", filepath.Join(root, "other", "x.avb"), normalizePath(filepath.Join(root, "other", "x.avb"))},
		{"sibling with base prefix", filepath.Join(root, "suite2", "y.avb"), normalizePath(filepath.Join(root, "suite2", "y.avb"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RelativePath(tt.target, suite)
			if err != nil {
				t.Fatalf("RelativePath: %v", err)
			}
			if got != tt.want {
				t.Fatalf("RelativePath(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}

func TestDisplayPathKeepsRelativeInput(t *testing.T) {
	if got := DisplayPath("progs/../progs/sum.avb"); got != "progs/sum.avb" {
		t.Fatalf("DisplayPath = %q", got)
	}
}
