package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/datalog-viewer/backend/internal/models"
)

var (
	exportFormat string
	exportOutput string
)

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Convert a log to CSV, JSON or MessagePack",
		Long: `Decode a log and write it out in another format. CSV output is the
same text the viewer offers for download; JSON and MessagePack carry the
rows together with the device metadata.

Examples:
  datalog export MY_DATA.HTM > microbit.csv
  datalog export --format json -o log.json MY_DATA.HTM`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, _, err := readLogFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if exportOutput != "" {
				f, err := os.Create(exportOutput)
				if err != nil {
					return errors.Wrap(err, "creating output file")
				}
				defer f.Close()
				out = f
			}
			return writeExport(out, data, exportFormat)
		},
	}

	cmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format (csv, json, msgpack)")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func writeExport(w io.Writer, data *models.LogData, format string) error {
	var payload []byte
	var err error

	switch format {
	case "csv":
		payload = data.Log.ToBlob().Data
	case "json":
		payload, err = json.MarshalIndent(data, "", "  ")
		payload = append(payload, '\n')
	case "msgpack":
		payload, err = msgpack.Marshal(data)
	default:
		return errors.Errorf("unknown format %q", format)
	}
	if err != nil {
		return errors.Wrapf(err, "encoding %s", format)
	}

	_, err = w.Write(payload)
	return errors.Wrap(err, "writing export")
}
