package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func setupColor(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(mode) {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto", "":
		color.NoColor = !isTerminal(os.Stderr) || os.Getenv("NO_COLOR") != ""
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

var (
	errorLabel = color.New(color.FgRed, color.Bold)
	noteLabel  = color.New(color.FgCyan)
	passLabel  = color.New(color.FgGreen)
	cacheLabel = color.New(color.FgBlue)
	failLabel  = color.New(color.FgRed)
	pathStyle  = color.New(color.Bold)
)
