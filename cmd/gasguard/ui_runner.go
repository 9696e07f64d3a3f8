package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"gasguard/internal/scanner"
	"gasguard/internal/ui"
)

type batchOutcome struct {
	batch *scanner.Batch
	err   error
}

// runScanWithUI scans files under root while a progress view renders on
// stdout. Quitting the view cancels the remaining work.
func runScanWithUI(ctx context.Context, title, root string, files []string, sc *scanner.Scanner, opts scanner.DirOptions) (*scanner.Batch, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan scanner.Event, 256)
	outcomeCh := make(chan batchOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = scanner.ChannelSink{Ch: events}
		batch, err := sc.ScanPaths(ctx, root, files, optsCopy)
		outcomeCh <- batchOutcome{batch: batch, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()

	// the view may have quit early; unblock the workers
	cancel()
	for range events {
	}

	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.batch, uiErr
	}
	return outcome.batch, outcome.err
}
