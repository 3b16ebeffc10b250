package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/climabus/climabus"
	"github.com/climabus/climabus/internal/timeutil"
	"github.com/climabus/climabus/pkg/bar"
	"github.com/climabus/climabus/pkg/candidate"
	"github.com/climabus/climabus/pkg/monitor"
	"github.com/climabus/climabus/pkg/report"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Run a recorded trace through the analysis engine",
	Long:  `Feed a CSV, candump or SocketCAN pcap trace through the engine as fast as it can be read and print the survey and candidate tables. Use --adapter Replay with monitor to watch a trace in real time instead.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deltas, _ := cmd.Flags().GetBool("deltas")
		chart, _ := cmd.Flags().GetString("chart")
		watch, _ := cmd.Flags().GetStringSlice("watch")
		ids, err := parseIDs(watch)
		if err != nil {
			return err
		}

		fh, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer fh.Close()
		fi, err := fh.Stat()
		if err != nil {
			return err
		}

		pb := bar.New(fi.Size(), "replay")
		var skipped int
		tr, err := climabus.OpenTrace(bar.Reader(fh, pb), args[0], func(err error) {
			skipped++
			log.Debug().Err(err).Msg("skipping trace record")
		})
		if err != nil {
			return err
		}

		started := time.Now()
		clock := timeutil.NewManualClock(started)
		out := color.Output
		eng := newEngine(monitor.NewTraceReceiver(tr, clock), ids,
			monitor.WithClock(clock),
			monitor.WithHooks(monitor.Hooks{
				OnDelta: func(u *candidate.Update) {
					if deltas {
						fmt.Fprintln(out, report.DeltaLine(u))
					}
				},
			}),
		)
		if err := eng.Run(cmd.Context()); err != nil {
			return err
		}
		pb.Finish()

		st := eng.Status()
		fmt.Fprintf(out, "\n%d frames over %s, %d records skipped\n", st.Frames, st.Uptime.Truncate(time.Millisecond), skipped)
		report.WriteSurveyTable(out, eng.History().Messages(), false)
		if err := report.WriteCandidateTable(out, eng.Tracker().Candidates()); err != nil {
			return err
		}
		saveSession(cmd.Context(), cmd, "", filepath.Base(args[0]), started, eng)
		if chart != "" {
			return writeChart(chart, filepath.Base(args[0]), eng.Tracker().Candidates())
		}
		return nil
	},
}

func writeChart(path, title string, cands []*candidate.Candidate) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	srcs := make([]report.Source, len(cands))
	for i, c := range cands {
		srcs[i] = c
	}
	if err := report.WriteActivityChart(fh, title, srcs); err != nil {
		fh.Close()
		return err
	}
	log.Info().Str("path", path).Msg("activity chart written")
	return fh.Close()
}

func init() {
	replayCmd.Flags().Bool("deltas", false, "print candidate byte changes while replaying")
	replayCmd.Flags().StringSlice("watch", nil, "restrict the candidate session to these ids")
	replayCmd.Flags().String(flagDB, "", "save the candidate session to this sqlite file")
	replayCmd.Flags().String("chart", "", "write an HTML chart of candidate byte activity")
	rootCmd.AddCommand(replayCmd)
}
