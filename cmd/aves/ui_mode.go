package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode selects how verify reports per-file progress.
type uiMode uint8

const (
	uiAuto  uiMode = iota // progress view on a capable terminal
	uiOn                  // always the progress view
	uiPlain               // one line per file
)

var uiModeNames = map[string]uiMode{
	"":      uiAuto,
	"auto":  uiAuto,
	"on":    uiOn,
	"tui":   uiOn,
	"off":   uiPlain,
	"plain": uiPlain,
}

func readUIMode(value string) (uiMode, error) {
	mode, ok := uiModeNames[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return uiAuto, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
	return mode, nil
}

// useProgressView reports whether verify renders the live view on out.
// A dumb terminal gets plain lines even in auto mode.
func useProgressView(mode uiMode, out *os.File) bool {
	switch mode {
	case uiOn:
		return true
	case uiPlain:
		return false
	default:
		return isTerminal(out) && os.Getenv("TERM") != "dumb"
	}
}
