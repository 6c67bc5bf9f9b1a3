package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"aves/internal/config"
	"aves/internal/observ"
	"aves/internal/toolchain"
)

// loadConfig finds aves.toml starting at the working directory.
func loadConfig() (config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg, _, err := config.Discover(wd)
	return cfg, err
}

// timedContext attaches a phase timer when --timings is set. The returned
// report func prints the collected phases to stderr.
func timedContext(cmd *cobra.Command) (context.Context, func()) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil || !timings {
		return ctx, func() {}
	}
	timer := observ.NewTimer()
	return toolchain.WithTimer(ctx, timer), func() {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
}

func readFormatFlag(cmd *cobra.Command) (toolchain.Format, error) {
	value, err := cmd.Flags().GetString("format")
	if err != nil {
		return toolchain.FormatAuto, fmt.Errorf("failed to get format flag: %w", err)
	}
	return toolchain.ParseFormat(value)
}

// readInput resolves the positional file argument; no argument means stdin.
func readInput(cmd *cobra.Command, args []string) (toolchain.Source, error) {
	format, err := readFormatFlag(cmd)
	if err != nil {
		return toolchain.Source{}, err
	}
	path := toolchain.StdinPath
	if len(args) > 0 {
		path = args[0]
	}
	return toolchain.ReadSource(path, format)
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// fail prints err with source context and turns it into exit status 1.
func fail(w io.Writer, err error, src *toolchain.Source) error {
	printError(w, err, src)
	return &exitCodeError{code: 1, diagnosed: true}
}
