package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"aves/internal/source"
	"aves/internal/toolchain"
)

// CollectFiles expands paths into the sorted, de-duplicated list of
// bytecode files they name. Directories are walked recursively; files are
// taken as given whatever their extension.
func CollectFiles(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.EqualFold(filepath.Ext(p), toolchain.BytecodeExt) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	slices.Sort(out)
	return out, nil
}

// DisplayPaths renders files relative to baseDir with forward slashes.
// Files outside baseDir keep their cleaned path.
func DisplayPaths(files []string, baseDir string) []string {
	base := strings.TrimSpace(baseDir)
	out := make([]string, len(files))
	for i, file := range files {
		path := filepath.ToSlash(filepath.Clean(file))
		if base != "" {
			if rel, err := source.RelativePath(file, base); err == nil && !filepath.IsAbs(filepath.FromSlash(rel)) && rel != "." {
				path = rel
			}
		}
		out[i] = path
	}
	return out
}

// ExpectedPath returns the companion expected-output file of an .avb file.
func ExpectedPath(file, ext string) string {
	return strings.TrimSuffix(file, filepath.Ext(file)) + ext
}
