package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"gasguard/internal/violation"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
	Properties  map[string]string `json:"properties,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID                   string            `json:"id"`
	Name                 string            `json:"name,omitempty"`
	ShortDescription     *sarifMessage     `json:"shortDescription,omitempty"`
	DefaultConfiguration sarifRuleDefaults `json:"defaultConfiguration"`
}

type sarifRuleDefaults struct {
	Level   string `json:"level"`
	Enabled bool   `json:"enabled"`
}

type sarifInvocation struct {
	Arguments           []string                `json:"arguments,omitempty"`
	ExecutionSuccessful bool                    `json:"executionSuccessful"`
	Notifications       []sarifToolNotification `json:"toolExecutionNotifications,omitempty"`
}

type sarifToolNotification struct {
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           *sarifRegion  `json:"region,omitempty"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   uint32 `json:"startLine"`
	StartColumn uint32 `json:"startColumn,omitempty"`
}

func sarifLevel(sev violation.Severity) string {
	switch sev {
	case violation.SevError:
		return "error"
	case violation.SevWarning:
		return "warning"
	default:
		return "note"
	}
}

// SARIF writes doc in SARIF 2.1.0. Failures become tool execution
// notifications of the single invocation.
func SARIF(w io.Writer, doc *Document) error {
	run := sarifRun{
		Tool:       sarifTool{Driver: sarifDriver{Name: doc.Tool, Version: doc.Version}},
		Results:    []sarifResult{},
		Properties: map[string]string{"run_id": doc.RunID},
	}
	for _, r := range doc.rules {
		rule := sarifRule{
			ID:                   r.ID,
			Name:                 r.Name,
			DefaultConfiguration: sarifRuleDefaults{Level: sarifLevel(r.Severity), Enabled: r.Enabled},
		}
		if r.Description != "" {
			rule.ShortDescription = &sarifMessage{Text: r.Description}
		}
		run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, rule)
	}

	for _, loc := range doc.Located() {
		text := loc.Description
		if loc.Suggestion != "" {
			text += " " + loc.Suggestion
		}
		run.Results = append(run.Results, sarifResult{
			RuleID:  loc.RuleID,
			Level:   sarifLevel(loc.Severity),
			Message: sarifMessage{Text: text},
			Locations: []sarifLocation{{PhysicalLocation: sarifPhysical{
				ArtifactLocation: sarifArtifact{URI: filepath.ToSlash(loc.Path)},
				Region:           &sarifRegion{StartLine: loc.Line, StartColumn: loc.Column},
			}}},
		})
	}

	inv := sarifInvocation{Arguments: doc.args, ExecutionSuccessful: len(doc.Failures) == 0}
	for _, f := range doc.Failures {
		inv.Notifications = append(inv.Notifications, sarifToolNotification{
			Level:   "error",
			Message: sarifMessage{Text: fmt.Sprintf("%s: %s", f.Kind, f.Error)},
			Locations: []sarifLocation{{PhysicalLocation: sarifPhysical{
				ArtifactLocation: sarifArtifact{URI: filepath.ToSlash(f.Path)},
			}}},
		})
	}
	run.Invocations = []sarifInvocation{inv}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sarifLog{Version: sarifVersion, Schema: sarifSchema, Runs: []sarifRun{run}}); err != nil {
		return fmt.Errorf("encode sarif report: %w", err)
	}
	return nil
}
