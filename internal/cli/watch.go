package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/datalog-viewer/backend/internal/parser"
	"github.com/datalog-viewer/backend/internal/session"
	"github.com/datalog-viewer/backend/internal/watch"
)

var (
	watchApply    bool
	watchDebounce time.Duration
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Report when a log on disk gets new data",
		Long: `Follow a log file while the device keeps writing to it and report each
time its contents change into a new log. With --apply every update is
taken straight away and the new row count is printed. Press Ctrl+C to stop.

Examples:
  datalog watch /media/MICROBIT/MY_DATA.HTM
  datalog watch --apply --debounce 1s MY_DATA.HTM`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, _, err := readLogFile(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			s := newStyles(noColor)
			fmt.Fprintln(out, s.row("Watching", args[0]))
			fmt.Fprintln(out, s.row("Rows", fmt.Sprintf("%d", data.Log.RowCount())))

			detector := session.NewDetector(data, parser.Decode)
			w := watch.New(args[0], func(raw string) {
				reportChange(out, detector, raw, watchApply, s)
			})
			w.Debounce = watchDebounce

			return w.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&watchApply, "apply", false, "apply each update as soon as it is found")
	cmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet time before a changed file is read")

	return cmd
}

func reportChange(out io.Writer, detector *session.Detector, raw string, apply bool, s styles) {
	offer, err := detector.Offer(raw)
	if err != nil {
		fmt.Fprintln(out, s.warning.Render("! "+err.Error()))
		return
	}
	if !offer.Available {
		return
	}

	fmt.Fprintln(out, s.good.Render(fmt.Sprintf("Data update found (#%d)", offer.UpdateID)))
	if !apply {
		return
	}

	data, err := detector.Apply()
	if err != nil {
		fmt.Fprintln(out, s.warning.Render("! "+err.Error()))
		return
	}
	fmt.Fprintln(out, s.row("Rows", fmt.Sprintf("%d", data.Log.RowCount())))
	for _, w := range logWarnings(data.Log) {
		fmt.Fprintln(out, s.warning.Render("! "+w))
	}
}
