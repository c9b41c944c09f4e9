package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/compozy/catalog/engine/core"
	"github.com/compozy/catalog/engine/ingest"
)

const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Bold(true)
	fileStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	faintStyle = lipgloss.NewStyle().Faint(true)
)

// Report is the machine readable form of an ingestion result.
type Report struct {
	Files    int           `json:"files"`
	Seen     int           `json:"entities_seen"`
	Stored   int           `json:"entities_stored"`
	Pruned   int           `json:"entities_pruned"`
	Failures []FailureItem `json:"failures"`
}

type FailureItem struct {
	File     string `json:"file"`
	Document int    `json:"document"`
	Entity   string `json:"entity,omitempty"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
}

func newReport(result *ingest.Result) Report {
	report := Report{Failures: []FailureItem{}}
	if result == nil {
		return report
	}
	report.Files = result.FilesProcessed
	report.Seen = result.EntitiesSeen
	report.Stored = result.EntitiesStored
	report.Pruned = result.EntitiesPruned
	for _, failure := range result.Errors {
		item := FailureItem{
			File:     failure.File,
			Document: failure.Document,
			Entity:   failure.Entity,
		}
		var coreErr *core.Error
		if errors.As(failure.Err, &coreErr) {
			item.Code = coreErr.Code
			item.Message = coreErr.Message
		} else if failure.Err != nil {
			item.Message = failure.Err.Error()
		}
		report.Failures = append(report.Failures, item)
	}
	return report
}

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", OutputFormatText, "Output format (text, json)")
}

func outputFormat(cmd *cobra.Command) (string, error) {
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return "", fmt.Errorf("failed to get output flag: %w", err)
	}
	switch format {
	case OutputFormatText, OutputFormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeReport(w io.Writer, format string, report Report) error {
	if format == OutputFormatJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}
	var b strings.Builder
	for _, failure := range report.Failures {
		location := failure.File
		if failure.Document >= 0 {
			location = fmt.Sprintf("%s#%d", failure.File, failure.Document)
		}
		b.WriteString(errStyle.Render("✗ "))
		b.WriteString(fileStyle.Render(location))
		if failure.Entity != "" {
			b.WriteString(" " + faintStyle.Render(failure.Entity))
		}
		b.WriteString(": " + failure.Message + "\n")
	}
	summary := fmt.Sprintf(
		"%d files, %d entities, %d accepted, %d failed",
		report.Files, report.Seen, report.Stored, len(report.Failures),
	)
	if report.Pruned > 0 {
		summary += fmt.Sprintf(", %d pruned", report.Pruned)
	}
	if len(report.Failures) == 0 {
		b.WriteString(okStyle.Render("✓ ") + summary + "\n")
	} else {
		b.WriteString(errStyle.Render("✗ ") + summary + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
