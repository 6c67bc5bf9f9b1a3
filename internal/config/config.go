// Package config loads aves.toml, the per-project settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is looked up from the working directory towards the root.
const FileName = "aves.toml"

// Config is the decoded aves.toml. Path and Root are empty when no file
// was found and defaults are in effect.
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Verify VerifyConfig `toml:"verify"`

	Path string `toml:"-"`
	Root string `toml:"-"`
}

// EngineConfig feeds vm.Options and the step budget.
type EngineConfig struct {
	MaxCallDepth    int    `toml:"max_call_depth"`
	MaxOperandStack int    `toml:"max_operand_stack"`
	MaxHeapCells    int    `toml:"max_heap_cells"`
	MaxSteps        uint64 `toml:"max_steps"` // 0 = unlimited
}

// VerifyConfig feeds the batch verifier.
type VerifyConfig struct {
	Jobs        int    `toml:"jobs"` // 0 = GOMAXPROCS
	Cache       bool   `toml:"cache"`
	CacheDir    string `toml:"cache_dir"` // relative to Root
	ExpectedExt string `toml:"expected_ext"`
}

// Default returns the settings used without an aves.toml.
func Default() Config {
	return Config{
		Engine: EngineConfig{MaxCallDepth: 1024, MaxOperandStack: 65536, MaxHeapCells: 1 << 22},
		Verify: VerifyConfig{Cache: true, CacheDir: ".aves/cache", ExpectedExt: ".out"},
	}
}

// Find walks up from startDir looking for aves.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Discover finds and loads aves.toml above startDir, falling back to
// Default when there is none.
func Discover(startDir string) (Config, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return Default(), false, err
	}
	cfg, err := Load(path)
	return cfg, true, err
}

// Load decodes path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("engine", "max_call_depth") && cfg.Engine.MaxCallDepth <= 0 {
		return Config{}, fmt.Errorf("%s: [engine].max_call_depth must be positive", path)
	}
	if meta.IsDefined("engine", "max_operand_stack") && cfg.Engine.MaxOperandStack <= 0 {
		return Config{}, fmt.Errorf("%s: [engine].max_operand_stack must be positive", path)
	}
	if meta.IsDefined("engine", "max_heap_cells") && cfg.Engine.MaxHeapCells <= 0 {
		return Config{}, fmt.Errorf("%s: [engine].max_heap_cells must be positive", path)
	}
	if cfg.Verify.Jobs < 0 {
		return Config{}, fmt.Errorf("%s: [verify].jobs must not be negative", path)
	}
	if meta.IsDefined("verify", "expected_ext") && !strings.HasPrefix(cfg.Verify.ExpectedExt, ".") {
		return Config{}, fmt.Errorf("%s: [verify].expected_ext must start with '.'", path)
	}
	cfg.Path = path
	cfg.Root = filepath.Dir(path)
	return cfg, nil
}

// CachePath resolves the verify cache directory against Root, or against
// baseDir when no file was loaded.
func (c Config) CachePath(baseDir string) string {
	dir := c.Verify.CacheDir
	if dir == "" {
		dir = Default().Verify.CacheDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	root := c.Root
	if root == "" {
		root = baseDir
	}
	return filepath.Join(root, dir)
}
