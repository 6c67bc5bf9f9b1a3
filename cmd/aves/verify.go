package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"aves/internal/pipeline"
	"aves/internal/vcache"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [paths...]",
	Short: "Verify a batch of bytecode files",
	Long: `Check that every .avb file under the given paths survives a round trip
through text IR, and that files with an expected-output companion print
exactly that output when run. Paths default to the current directory.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().Int("jobs", 0, "parallel workers (0 = config or GOMAXPROCS)")
	verifyCmd.Flags().Bool("no-cache", false, "ignore and do not update the verify cache")
	verifyCmd.Flags().String("ui", "auto", "per-file progress: live view or plain lines (auto|on|off)")
	verifyCmd.Flags().String("expected-ext", "", "extension of expected-output files (default from config)")
	verifyCmd.Flags().Uint64("max-steps", 0, "abort each run after N instructions (0 = unlimited)")
	verifyCmd.Flags().Int("max-depth", 0, "maximum call depth")
	verifyCmd.Flags().Int("max-operand-stack", 0, "maximum operand stack size")
	verifyCmd.Flags().Int("max-heap", 0, "maximum array cells allocated per run")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	flags := cmd.Flags()

	jobs := cfg.Verify.Jobs
	if flags.Changed("jobs") {
		if jobs, err = flags.GetInt("jobs"); err != nil {
			return err
		}
		if jobs < 0 {
			return fmt.Errorf("--jobs must not be negative, got %d", jobs)
		}
	}
	ext := cfg.Verify.ExpectedExt
	if flags.Changed("expected-ext") {
		if ext, err = flags.GetString("expected-ext"); err != nil {
			return err
		}
	}
	noCache, err := flags.GetBool("no-cache")
	if err != nil {
		return err
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	limits, err := readLimits(cmd, cfg.Engine)
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}
	req := pipeline.VerifyRequest{
		Paths:       paths,
		BaseDir:     wd,
		Jobs:        jobs,
		ExpectedExt: ext,
		Limits:      limits,
	}
	if cfg.Verify.Cache && !noCache {
		cache, err := vcache.Open(cfg.CachePath(wd))
		if err != nil {
			return err
		}
		req.Cache = cache
	}

	files, err := pipeline.CollectFiles(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no .avb files found")
	}

	ctx := cmd.Context()
	var result pipeline.VerifyResult
	if useProgressView(mode, os.Stdout) {
		result, err = runVerifyWithUI(ctx, "verify", pipeline.DisplayPaths(files, wd), req)
	} else {
		result, err = pipeline.Verify(ctx, req)
	}
	if err != nil {
		return err
	}

	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	printVerifyReport(cmd.OutOrStdout(), result, quiet)
	if timings, _ := cmd.Root().PersistentFlags().GetBool("timings"); timings {
		printStageTimings(cmd.ErrOrStderr(), result.Timings)
	}
	if result.Failed > 0 {
		return &exitCodeError{code: 1, diagnosed: true}
	}
	return nil
}

// printVerifyReport lists failures always and passes unless quiet, then a
// one-line summary.
func printVerifyReport(out io.Writer, result pipeline.VerifyResult, quiet bool) {
	for _, file := range result.Files {
		switch file.Outcome {
		case pipeline.OutcomeFailed:
			fmt.Fprintf(out, "%s %s [%s]: %v\n", failLabel.Sprint("FAIL"), pathStyle.Sprint(file.Display), file.Stage, file.Err)
		case pipeline.OutcomeCached:
			if !quiet {
				fmt.Fprintf(out, "%s %s\n", cacheLabel.Sprint("skip"), file.Display)
			}
		default:
			if !quiet {
				detail := "roundtrip"
				if file.Executed {
					detail = fmt.Sprintf("roundtrip, ran %d steps", file.Steps)
				}
				fmt.Fprintf(out, "%s %s (%s)\n", passLabel.Sprint("ok  "), file.Display, detail)
			}
		}
	}
	summary := fmt.Sprintf("%d passed, %d cached, %d failed", result.Passed, result.Cached, result.Failed)
	if result.Failed > 0 {
		fmt.Fprintln(out, failLabel.Sprint(summary))
	} else {
		fmt.Fprintln(out, passLabel.Sprint(summary))
	}
}
