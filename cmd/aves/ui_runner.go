package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"aves/internal/pipeline"
	"aves/internal/ui"
)

type verifyOutcome struct {
	result pipeline.VerifyResult
	err    error
}

// runVerifyWithUI runs the batch in the background while a Bubble Tea
// program renders its progress events.
func runVerifyWithUI(ctx context.Context, title string, files []string, req pipeline.VerifyRequest) (pipeline.VerifyResult, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan verifyOutcome, 1)

	go func() {
		req.Progress = pipeline.ChannelSink{Ch: events}
		res, err := pipeline.Verify(ctx, req)
		outcomeCh <- verifyOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
