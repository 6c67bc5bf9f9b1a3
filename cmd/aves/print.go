package main

import (
	"github.com/spf13/cobra"

	"aves/internal/toolchain"
)

var printCmd = &cobra.Command{
	Use:   "print [file|-]",
	Short: "Print a program as text IR",
	Long:  "Decode bytecode (or re-read text IR) and print its canonical text form",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPrint,
}

func init() {
	printCmd.Flags().String("format", "auto", "input format (auto|bytecode|text)")
	printCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
}

func runPrint(cmd *cobra.Command, args []string) error {
	src, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	ctx, report := timedContext(cmd)
	res, err := toolchain.Dispatch(ctx, toolchain.PrintRequest{Source: src})
	report()
	if err != nil {
		return fail(cmd.ErrOrStderr(), err, &src)
	}
	return writeOutput(cmd, output, res.(toolchain.PrintResult).Text)
}
