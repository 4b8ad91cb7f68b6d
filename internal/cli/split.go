package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/datalog-viewer/backend/internal/models"
)

var (
	splitColumn int
	splitDir    string
)

func newSplitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split <file>",
		Short: "Split a log where its time column goes backwards",
		Long: `Each time the device is reset its clock starts again from zero. split
breaks the log into one part per run and either lists the parts or writes
each one as a CSV file.

Examples:
  datalog split MY_DATA.HTM
  datalog split --column 2 --dir parts MY_DATA.HTM`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if splitColumn < 0 {
				return errors.New("column must not be negative")
			}

			data, _, err := readLogFile(args[0])
			if err != nil {
				return err
			}

			parts := data.Log.Split(models.TimeDiscontinuity(splitColumn))
			s := newStyles(noColor)
			out := cmd.OutOrStdout()

			for i, part := range parts {
				line := s.row(fmt.Sprintf("Part %d", i+1), fmt.Sprintf("%d rows", part.RowCount()))
				if splitDir != "" {
					path, err := writePart(splitDir, args[0], i+1, part)
					if err != nil {
						return err
					}
					line += "  " + s.muted.Render(path)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&splitColumn, "column", 0, "index of the time column")
	cmd.Flags().StringVarP(&splitDir, "dir", "d", "", "write each part as CSV into this directory")

	return cmd
}

// writePart writes one part with its header row as <name>-<n>.csv
func writePart(dir, source string, n int, part *models.DataLog) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "creating output directory")
	}

	base := filepath.Base(source)
	base = base[:len(base)-len(filepath.Ext(base))]
	path := filepath.Join(dir, fmt.Sprintf("%s-%d.csv", base, n))

	rows := append([]models.DataLogRow{{IsHeading: true, Data: part.Headers}}, part.Data...)
	csv := models.NewDataLog(part.Headers, rows, false).ToCSV()
	if err := os.WriteFile(path, []byte(csv+"\n"), 0644); err != nil {
		return "", errors.Wrapf(err, "writing %s", path)
	}
	return path, nil
}
