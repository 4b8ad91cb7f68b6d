// Package cli implements the datalog command line.
package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/datalog-viewer/backend/internal/models"
	"github.com/datalog-viewer/backend/internal/parser"
	"github.com/datalog-viewer/backend/internal/storage"
)

var (
	cfgFile string
	noColor bool
)

// NewRootCommand creates the root command
func NewRootCommand(version, buildTime string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "datalog",
		Short: "Decode and serve device data logs",
		Long: `datalog reads the MY_DATA.HTM file a micro:bit writes to its USB drive,
or a plain CSV export of it, and turns it into a table of rows.

Logs can be inspected, exported and split from the command line, watched
for updates as the device keeps logging, or served over HTTP.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: "+defaultConfigHint+")")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newServeCommand(version, buildTime))
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newSplitCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newVersionCommand(version, buildTime))

	return rootCmd
}

func newVersionCommand(version, buildTime string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			displayTime := buildTime
			if buildTime == "unknown" || buildTime == "" {
				displayTime = "local-build"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "datalog %s built on %s\n", displayVersion, displayTime)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// readLogFile reads and decodes a log file from disk.
func readLogFile(path string) (*models.LogData, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "reading %s", path)
	}

	raw := storage.DecodeText(data)
	logData, err := parser.Decode(raw)
	if err != nil {
		return nil, "", errors.Wrapf(err, "decoding %s", path)
	}
	return logData, raw, nil
}
