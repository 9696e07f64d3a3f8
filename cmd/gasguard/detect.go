package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"gasguard/internal/detect"
	"gasguard/internal/scanner"
)

var detectCmd = &cobra.Command{
	Use:   "detect <file>...",
	Short: "Print the contract style detected for each file",
	Long: `Print the contract style detected for each file. Styles that scan
cannot analyze are marked "(no analyzer)".`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDetect,
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args[0])
	if err != nil {
		return err
	}
	fallback := cfg.Fallback()
	engine, err := cfg.Engine()
	if err != nil {
		return err
	}
	sc := scanner.New(engine)
	out := cmd.OutOrStdout()

	var failed bool
	for _, path := range args {
		var content []byte
		if path == "-" {
			content, err = io.ReadAll(cmd.InOrStdin())
		} else {
			// #nosec G304 -- path is provided by the user
			content, err = os.ReadFile(path)
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			failed = true
			continue
		}
		style := detect.Resolve(detect.Unknown, path, string(content), fallback)
		writeDetected(out, path, style, sc)
	}
	if failed {
		return &exitError{code: 1}
	}
	return nil
}

func writeDetected(out io.Writer, path string, style detect.Style, sc *scanner.Scanner) {
	if sc.Supports(style) {
		fmt.Fprintf(out, "%s\t%s\n", path, style)
		return
	}
	fmt.Fprintf(out, "%s\t%s\t(no analyzer)\n", path, style)
}
