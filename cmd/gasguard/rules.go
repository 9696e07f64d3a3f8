package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gasguard/internal/report"
	"gasguard/internal/violation"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rules and their configured severities",
	Args:  cobra.NoArgs,
	RunE:  runRules,
}

func init() {
	rulesCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runRules(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	colorStr, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	useColors, err := useColor(colorStr, os.Stdout)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, ".")
	if err != nil {
		return err
	}
	engine, err := cfg.Engine()
	if err != nil {
		return err
	}
	infos := ruleInfos(engine)

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case "pretty":
		return renderRulesPretty(cmd.OutOrStdout(), infos, useColors)
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}

func renderRulesPretty(out io.Writer, infos []report.RuleInfo, useColors bool) error {
	sevColor := map[violation.Severity]*color.Color{
		violation.SevError:   color.New(color.FgRed, color.Bold),
		violation.SevWarning: color.New(color.FgYellow),
		violation.SevInfo:    color.New(color.FgCyan),
	}
	dim := color.New(color.Faint)
	for _, c := range append([]*color.Color{dim}, sevColor[violation.SevError], sevColor[violation.SevWarning], sevColor[violation.SevInfo]) {
		if useColors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, info := range infos {
		sev := fmt.Sprintf("%-7s", info.Severity)
		if c, ok := sevColor[info.Severity]; ok {
			sev = c.Sprint(sev)
		}
		state := ""
		if !info.Enabled {
			state = dim.Sprint("(disabled)")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.ID, sev, info.Name, state)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, info := range infos {
		if info.Description == "" {
			continue
		}
		fmt.Fprintf(out, "\n%s\n  %s\n", info.ID, info.Description)
	}
	return nil
}
