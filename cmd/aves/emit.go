package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"aves/internal/toolchain"
)

var emitCmd = &cobra.Command{
	Use:   "emit [file|-]",
	Short: "Assemble a program into bytecode",
	Long:  "Parse text IR (or re-read bytecode) and write its canonical bytecode encoding",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEmit,
}

func init() {
	emitCmd.Flags().String("format", "auto", "input format (auto|bytecode|text)")
	emitCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
}

func runEmit(cmd *cobra.Command, args []string) error {
	src, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if (output == "" || output == "-") && cmd.OutOrStdout() == os.Stdout && isTerminal(os.Stdout) {
		return errors.New("refusing to write bytecode to a terminal; use -o")
	}
	ctx, report := timedContext(cmd)
	res, err := toolchain.Dispatch(ctx, toolchain.EmitRequest{Source: src})
	report()
	if err != nil {
		return fail(cmd.ErrOrStderr(), err, &src)
	}
	return writeOutput(cmd, output, res.(toolchain.EmitResult).Bytecode)
}
