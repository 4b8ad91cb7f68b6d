package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/datalog-viewer/backend/internal/analysis"
	"github.com/datalog-viewer/backend/internal/fieldtype"
	"github.com/datalog-viewer/backend/internal/models"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Decode a log and print a summary",
		Long: `Decode a MY_DATA.HTM or CSV file and print its headers, row counts,
device metadata, warnings and which visualisations it supports.

Examples:
  datalog inspect /media/MICROBIT/MY_DATA.HTM
  datalog inspect --no-color microbit.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, _, err := readLogFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderInspect(filepath.Base(args[0]), data, newStyles(noColor)))
			return nil
		},
	}
}

// logWarnings lists the warnings shown above a log.
func logWarnings(log *models.DataLog) []string {
	var warnings []string
	if log.IsFull {
		warnings = append(warnings, "Log is full")
	}
	if log.IsEmpty() {
		warnings = append(warnings, "Log is empty")
	}
	return warnings
}

func renderInspect(name string, data *models.LogData, s styles) string {
	log := data.Log
	var lines []string

	lines = append(lines, s.title.Render(name), "")
	lines = append(lines, s.row("Rows", fmt.Sprintf("%d", log.RowCount())))
	lines = append(lines, s.row("Columns", fmt.Sprintf("%d", len(log.Headers))))
	lines = append(lines, s.row("Segments", fmt.Sprintf("%d", len(analysis.TimeSeries(log)))))
	if data.Standalone {
		lines = append(lines, s.row("Source", "CSV"))
	} else {
		lines = append(lines, s.row("Source", "device log"))
		lines = append(lines, s.row("Data size", fmt.Sprintf("%d", data.DataSize)))
		lines = append(lines, s.row("Space remaining", fmt.Sprintf("%d", data.BytesRemaining)))
		lines = append(lines, s.row("Daplink version", fmt.Sprintf("%d", data.DaplinkVersion)))
	}
	lines = append(lines, s.row("Hash", fmt.Sprintf("%d", data.Hash)))

	if len(log.Headers) > 0 {
		lines = append(lines, "", s.title.Render("Columns"))
		types := fieldtype.GetGlobalRegistry().DetectHeaders(log.Headers)
		for i, h := range log.Headers {
			kind := s.muted.Render("-")
			if types[i] != "" {
				kind = s.good.Render(types[i])
			}
			lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, s.label.Render(fmt.Sprintf("%d", i)), h+"  ", kind))
		}
	}

	lines = append(lines, "", s.title.Render("Visualisations"))
	for _, a := range analysis.CheckAll(log) {
		if a.Available {
			lines = append(lines, s.row(a.Name, s.good.Render("available")))
		} else {
			lines = append(lines, s.row(a.Name, s.muted.Render(a.Reason)))
		}
	}

	if warnings := logWarnings(log); len(warnings) > 0 {
		lines = append(lines, "")
		for _, w := range warnings {
			lines = append(lines, s.warning.Render("! "+w))
		}
	}

	return s.box.Render(strings.Join(lines, "\n"))
}
