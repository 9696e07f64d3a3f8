package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gasguard/internal/prof"
)

// setupProfiling starts the profilers named by the persistent flags. The
// returned cleanup reports write errors on stderr.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()

	cpuProfile, err := root.PersistentFlags().GetString("cpu-profile")
	if err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	memProfile, err := root.PersistentFlags().GetString("mem-profile")
	if err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	tracePath, err := root.PersistentFlags().GetString("runtime-trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}

	session, err := prof.Start(prof.Options{
		CPU:          cpuProfile,
		Heap:         memProfile,
		RuntimeTrace: tracePath,
	})
	if err != nil {
		return nil, err
	}
	if !session.Active() {
		return func() {}, nil
	}
	return func() {
		if err := session.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "profiling: %v\n", err)
		}
	}, nil
}
