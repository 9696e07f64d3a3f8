package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gasguard/internal/report"
	"gasguard/internal/source"
	"gasguard/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] [directory]",
	Short: "Re-scan contracts whenever they change",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().String("format", "short", "event output format (pretty|short|json)")
	watchCmd.Flags().Duration("debounce", 150*time.Millisecond, "how long changes settle before a re-scan")
	watchCmd.Flags().Bool("initial", true, "scan every contract once before watching")
	watchCmd.Flags().Bool("no-cache", false, "do not read or write the result cache")
}

// runWatch scans the directory once, then prints a report for every contract
// that changes until interrupted.
func runWatch(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	if info, err := os.Stat(root); err != nil {
		return err
	} else if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := report.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	switch format {
	case report.FormatPretty, report.FormatShort, report.FormatJSON:
	default:
		return fmt.Errorf("watch does not support --format %s", format)
	}

	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return fmt.Errorf("failed to get debounce flag: %w", err)
	}
	initial, err := cmd.Flags().GetBool("initial")
	if err != nil {
		return fmt.Errorf("failed to get initial flag: %w", err)
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	colorStr, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	color, err := useColor(colorStr, os.Stdout)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs := source.NewFileSet()
	sc, engine, err := newScanner(ctx, cfg, fs, noCache)
	if err != nil {
		return err
	}
	meta := reportMeta(engine)
	out := cmd.OutOrStdout()
	opts := report.PrettyOpts{Color: color, BaseDir: root}

	dirOpts := cfg.DirOptions()
	if initial {
		batch, scanErr := sc.ScanDir(ctx, root, dirOpts)
		if batch != nil {
			if err := report.Write(out, format, report.NewDocument(batch, meta), fs, opts); err != nil {
				return err
			}
		}
		if scanErr != nil {
			return scanErr
		}
	}

	w, err := watch.New(sc, watch.Config{
		Root:     root,
		Debounce: debounce,
		Include:  dirOpts.Include,
		Exclude:  dirOpts.Exclude,
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (ctrl+c to stop)\n", root)
	for ev := range w.Events() {
		if err := printWatchEvent(out, ev, format, meta, fs, opts); err != nil {
			return err
		}
	}
	return nil
}

func printWatchEvent(out io.Writer, ev watch.Event, format report.Format, meta report.Meta, fs *source.FileSet, opts report.PrettyOpts) error {
	if ev.Op == watch.OpDelete {
		_, err := fmt.Fprintf(out, "removed %s\n", ev.Path)
		return err
	}

	if format == report.FormatJSON && ev.Err == nil {
		data, err := report.ResultJSON(ev.Result)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s\n", data)
		return err
	}

	var doc *report.Document
	if ev.Err != nil {
		doc = report.FromFailure(ev.Path, ev.Err, meta)
	} else {
		doc = report.FromResult(ev.Result, meta)
	}
	if format == report.FormatJSON {
		return report.JSON(out, doc)
	}
	return report.Write(out, format, doc, fs, opts)
}
