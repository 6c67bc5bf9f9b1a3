package main

import (
	"fmt"
	"io"

	"aves/internal/observ"
	"aves/internal/pipeline"
)

// printStageTimings prints the summed per-stage time of a verify batch.
func printStageTimings(out io.Writer, timings pipeline.Timings) {
	if out == nil {
		return
	}
	if timings.Has(pipeline.StageRoundTrip) {
		fmt.Fprintf(out, "roundtrip %.1f ms\n", observ.Millis(timings.Duration(pipeline.StageRoundTrip)))
	}
	if timings.Has(pipeline.StageExecute) {
		fmt.Fprintf(out, "execute %.1f ms\n", observ.Millis(timings.Duration(pipeline.StageExecute)))
	}
}
