package cmd

import (
	"fmt"

	"github.com/climabus/climabus"
	"github.com/climabus/climabus/pkg/history"
	"github.com/climabus/climabus/pkg/monitor"
	"github.com/climabus/climabus/pkg/report"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var surveyCmd = &cobra.Command{
	Use:   "survey",
	Short: "Survey all traffic for temperature-like frames",
	Long:  `Track every identifier, print an analysis whenever a frame flagged as a temperature candidate changes, and print the most active identifiers every status interval`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pf := cmd.Flags()
		trace, _ := pf.GetBool("trace")
		detail, _ := pf.GetBool("detail")
		all, _ := pf.GetBool("all")

		ctx := cmd.Context()
		c, err := initCAN(ctx, cmd)
		if err != nil {
			return err
		}
		defer closeCAN(c)

		out := color.Output
		var eng *monitor.Engine
		eng = newEngine(c, nil, monitor.WithHooks(monitor.Hooks{
			OnFrame: func(f *climabus.CANFrame, m *history.Message, changed bool) {
				candidate := m != nil && m.IsCandidate()
				switch {
				case detail:
					fmt.Fprintln(out, report.DetailLine(f.Stamp, f.Identifier, f.Data))
				case trace:
					fmt.Fprintln(out, report.TraceLine(f.Identifier, f.Data, candidate))
				}
				if candidate && changed {
					for _, l := range report.AnalysisLines(m, eng.Classifier()) {
						fmt.Fprintln(out, l)
					}
				}
			},
			OnStatus: func(monitor.Status) {
				report.WriteSurveyTable(out, eng.History().Messages(), !all)
			},
		}))

		err = eng.Run(ctx)
		report.WriteSurveyTable(out, eng.History().Messages(), !all)
		return err
	},
}

func init() {
	f := surveyCmd.Flags()
	f.BoolP("trace", "t", false, "print every frame")
	f.Bool("detail", false, "print every frame with per byte temperature readings")
	f.Bool("all", false, "rank every identifier, not only temperature candidates")
	rootCmd.AddCommand(surveyCmd)
}
