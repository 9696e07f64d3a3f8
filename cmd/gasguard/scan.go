package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"gasguard/internal/config"
	"gasguard/internal/detect"
	"gasguard/internal/observ"
	"gasguard/internal/report"
	"gasguard/internal/scanner"
	"gasguard/internal/soroban"
	"gasguard/internal/source"
	"gasguard/internal/trace"
	"gasguard/internal/violation"
)

var scanCmd = &cobra.Command{
	Use:   "scan [flags] [file.rs|directory|-]",
	Short: "Analyze a contract file, a directory of contracts, or stdin",
	Long: `Analyze Soroban contracts and report gas and storage inefficiencies.
A directory is scanned recursively for .rs and .vy files; files that fail to
parse are reported and the scan continues. "-" reads one contract from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("format", "", "output format (pretty|json|yaml|short|sarif)")
	scanCmd.Flags().String("fail-on", "", "exit with status 2 when a finding has at least this severity (info|warning|error|never)")
	scanCmd.Flags().Bool("validate", false, "validate JSON output against the report schema before printing")
	scanCmd.Flags().Int("jobs", 0, "max parallel workers for directory scans (0=auto)")
	scanCmd.Flags().String("ui", "auto", "progress UI for directory scans (auto|on|off)")
	scanCmd.Flags().String("style", "auto", "contract style for a single file or stdin (auto|soroban|rust|vyper)")
	scanCmd.Flags().String("fallback-style", "", "style used when detection finds none")
	scanCmd.Flags().Bool("no-cache", false, "do not read or write the result cache")
	scanCmd.Flags().Bool("keep-clean", false, "list files without findings in directory reports")
	scanCmd.Flags().StringSlice("include", nil, "doublestar patterns selecting files, relative to the directory")
	scanCmd.Flags().StringSlice("exclude", nil, "doublestar patterns skipping files and directories")
	scanCmd.Flags().String("path-mode", "auto", "how paths are printed (auto|absolute|relative|basename)")
	scanCmd.Flags().Int("context", 0, "extra source lines shown above each finding")
	scanCmd.Flags().String("min-severity", "info", "drop findings below this severity from the report (info|warning|error)")
	scanCmd.Flags().Int("max-per-file", 0, "report at most this many findings per file (0=all)")
}

type scanFlags struct {
	format   report.Format
	validate bool
	ui       uiMode
	style    detect.Style
	noCache  bool
	pathMode report.PathMode
	context  int
	minSev   violation.Severity
	perFile  int
	color    bool
	quiet    bool
	timings  bool
}

// runScan executes "scan": it merges flags over gasguard.toml, scans the
// target, renders the report and maps findings to the exit status.
func runScan(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	target := "."
	if len(args) == 1 {
		target = args[0]
	}

	timer := observ.NewTimer()
	ctx := cmd.Context()
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "scan", 0).WithExtra("target", target)
	ctx = trace.WithSpan(ctx, span)
	defer span.End("")

	var cfg *config.Config
	var flags scanFlags
	err := timer.Track("config", func() error {
		var loadErr error
		cfg, loadErr = loadConfig(cmd, target)
		if loadErr != nil {
			return loadErr
		}
		flags, loadErr = readScanFlags(cmd, cfg)
		return loadErr
	})
	if err != nil {
		return err
	}

	fs := source.NewFileSet()
	sc, engine, err := newScanner(ctx, cfg, fs, flags.noCache)
	if err != nil {
		return err
	}
	meta := reportMeta(engine)
	meta.MinSeverity = flags.minSev
	meta.MaxPerFile = flags.perFile

	var doc *report.Document
	var scanErr error
	baseDir := ""
	err = timer.Track("scan", func() error {
		switch info, statErr := os.Stat(target); {
		case target == "-":
			doc, scanErr = scanStdin(ctx, cmd.InOrStdin(), sc, flags.style, meta)
		case statErr == nil && info.IsDir():
			baseDir = target
			doc, scanErr = scanDirectory(ctx, target, sc, cfg.DirOptions(), flags, meta)
		default:
			doc, scanErr = scanSingle(ctx, target, sc, flags.style, meta)
		}
		return scanErr
	})
	if doc == nil {
		return err
	}

	out := cmd.OutOrStdout()
	err = timer.Track("report", func() error {
		return renderReport(out, doc, fs, flags, baseDir)
	})
	if flags.timings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	if err != nil {
		return err
	}
	if scanErr != nil {
		// already rendered as a failure entry
		return &exitError{code: 1}
	}

	if sev, ok := cfg.FailOn(); ok && doc.AtLeast(sev) {
		span.WithExtra("fail-on", sev.String())
		return &exitError{code: 2}
	}
	return nil
}

// readScanFlags applies explicitly set flags over cfg and parses the rest.
func readScanFlags(cmd *cobra.Command, cfg *config.Config) (scanFlags, error) {
	var flags scanFlags
	f := cmd.Flags()

	formatStr, err := f.GetString("format")
	if err != nil {
		return flags, fmt.Errorf("failed to get format flag: %w", err)
	}
	if formatStr == "" {
		formatStr = cfg.Scan.Format
	}
	if flags.format, err = report.ParseFormat(formatStr); err != nil {
		return flags, err
	}

	if f.Changed("fail-on") {
		failOn, err := f.GetString("fail-on")
		if err != nil {
			return flags, fmt.Errorf("failed to get fail-on flag: %w", err)
		}
		failOn = strings.ToLower(strings.TrimSpace(failOn))
		if failOn != config.FailNever {
			if _, err := violation.ParseSeverity(failOn); err != nil {
				return flags, fmt.Errorf("invalid --fail-on value: %w", err)
			}
		}
		cfg.Scan.FailOn = failOn
	}

	if flags.validate, err = f.GetBool("validate"); err != nil {
		return flags, fmt.Errorf("failed to get validate flag: %w", err)
	}
	if flags.validate && flags.format != report.FormatJSON {
		return flags, fmt.Errorf("--validate requires --format json")
	}

	if f.Changed("jobs") {
		if cfg.Scan.Jobs, err = f.GetInt("jobs"); err != nil {
			return flags, fmt.Errorf("failed to get jobs flag: %w", err)
		}
		if cfg.Scan.Jobs < 0 {
			return flags, fmt.Errorf("--jobs must not be negative")
		}
	}

	uiStr, err := f.GetString("ui")
	if err != nil {
		return flags, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if flags.ui, err = readUIMode(uiStr); err != nil {
		return flags, err
	}

	styleStr, err := f.GetString("style")
	if err != nil {
		return flags, fmt.Errorf("failed to get style flag: %w", err)
	}
	if flags.style, err = detect.ParseStyle(styleStr); err != nil {
		return flags, err
	}

	if f.Changed("fallback-style") {
		fallback, err := f.GetString("fallback-style")
		if err != nil {
			return flags, fmt.Errorf("failed to get fallback-style flag: %w", err)
		}
		if _, err := detect.ParseStyle(fallback); err != nil {
			return flags, err
		}
		cfg.Scan.FallbackStyle = fallback
	}

	if flags.noCache, err = f.GetBool("no-cache"); err != nil {
		return flags, fmt.Errorf("failed to get no-cache flag: %w", err)
	}

	if f.Changed("keep-clean") {
		if cfg.Scan.KeepClean, err = f.GetBool("keep-clean"); err != nil {
			return flags, fmt.Errorf("failed to get keep-clean flag: %w", err)
		}
	}

	if f.Changed("include") {
		if cfg.Scan.Include, err = f.GetStringSlice("include"); err != nil {
			return flags, fmt.Errorf("failed to get include flag: %w", err)
		}
	}
	if f.Changed("exclude") {
		exclude, err := f.GetStringSlice("exclude")
		if err != nil {
			return flags, fmt.Errorf("failed to get exclude flag: %w", err)
		}
		cfg.Scan.Exclude = append(cfg.Scan.Exclude, exclude...)
	}

	pathModeStr, err := f.GetString("path-mode")
	if err != nil {
		return flags, fmt.Errorf("failed to get path-mode flag: %w", err)
	}
	if flags.pathMode, err = report.ParsePathMode(pathModeStr); err != nil {
		return flags, err
	}

	if flags.context, err = f.GetInt("context"); err != nil {
		return flags, fmt.Errorf("failed to get context flag: %w", err)
	}

	minSevStr, err := f.GetString("min-severity")
	if err != nil {
		return flags, fmt.Errorf("failed to get min-severity flag: %w", err)
	}
	if flags.minSev, err = violation.ParseSeverity(minSevStr); err != nil {
		return flags, fmt.Errorf("invalid --min-severity value: %w", err)
	}

	if flags.perFile, err = f.GetInt("max-per-file"); err != nil {
		return flags, fmt.Errorf("failed to get max-per-file flag: %w", err)
	}
	if flags.perFile < 0 {
		return flags, fmt.Errorf("--max-per-file must not be negative")
	}

	colorStr, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return flags, fmt.Errorf("failed to get color flag: %w", err)
	}
	if flags.color, err = useColor(colorStr, os.Stdout); err != nil {
		return flags, err
	}

	if flags.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return flags, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if flags.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return flags, fmt.Errorf("failed to get timings flag: %w", err)
	}

	return flags, cfg.Validate()
}

// scanSingle scans one file. A failure still yields a document so machine
// formats can report it; the error is returned alongside.
func scanSingle(ctx context.Context, path string, sc *scanner.Scanner, style detect.Style, meta report.Meta) (*report.Document, error) {
	var res *scanner.ScanResult
	var err error
	if style == detect.Unknown {
		res, err = sc.ScanFile(ctx, path)
	} else {
		// #nosec G304 -- path is provided by the user
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			err = soroban.IOError(path, readErr)
		} else {
			res, err = sc.ScanContentWithStyle(ctx, string(raw), path, style)
		}
	}
	if err != nil {
		return report.FromFailure(path, err, meta), err
	}
	return report.FromResult(res, meta), nil
}

func scanStdin(ctx context.Context, in io.Reader, sc *scanner.Scanner, style detect.Style, meta report.Meta) (*report.Document, error) {
	const label = "<stdin>"
	raw, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	res, err := sc.ScanContentWithStyle(ctx, string(raw), label, style)
	if err != nil {
		return report.FromFailure(label, err, meta), err
	}
	return report.FromResult(res, meta), nil
}

// scanDirectory scans dir with per-file failures collected in the batch.
// Only listing errors and cancellation are returned.
func scanDirectory(ctx context.Context, dir string, sc *scanner.Scanner, opts scanner.DirOptions, flags scanFlags, meta report.Meta) (*report.Document, error) {
	files, err := scanner.ListContracts(dir, opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}

	var batch *scanner.Batch
	if flags.format == report.FormatPretty && len(files) > 0 && shouldUseTUI(flags.ui) {
		title := fmt.Sprintf("scanning %s", filepath.Base(filepath.Clean(dir)))
		batch, err = runScanWithUI(ctx, title, dir, files, sc, opts)
	} else {
		batch, err = sc.ScanPaths(ctx, dir, files, opts)
	}
	if batch == nil {
		return nil, err
	}
	return report.NewDocument(batch, meta), err
}

func renderReport(out io.Writer, doc *report.Document, fs *source.FileSet, flags scanFlags, baseDir string) error {
	opts := report.PrettyOpts{
		Color:    flags.color,
		Context:  flags.context,
		PathMode: flags.pathMode,
		BaseDir:  baseDir,
		Quiet:    flags.quiet,
	}
	if !flags.validate {
		return report.Write(out, flags.format, doc, fs, opts)
	}

	var buf bytes.Buffer
	if err := report.JSON(&buf, doc); err != nil {
		return err
	}
	if err := report.ValidateJSON(buf.Bytes()); err != nil {
		return fmt.Errorf("report does not match schema: %w", err)
	}
	_, err := out.Write(buf.Bytes())
	return err
}
