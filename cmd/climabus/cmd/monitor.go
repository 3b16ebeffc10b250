package cmd

import (
	"context"

	"github.com/climabus/climabus/pkg/candidate"
	"github.com/climabus/climabus/pkg/display"
	"github.com/climabus/climabus/pkg/logger"
	"github.com/climabus/climabus/pkg/monitor"
	"github.com/climabus/climabus/pkg/report"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Dashboard of the confirmed climate signals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// the dashboard owns the terminal from here on
		log = logger.Nop()
		c, err := initCAN(ctx, cmd)
		if err != nil {
			return err
		}
		defer closeCAN(c)

		dash, err := display.New()
		if err != nil {
			return err
		}

		eng := newEngine(c, nil, monitor.WithHooks(monitor.Hooks{
			OnDisplay: dash.Show,
			OnStatus:  dash.ShowStatus,
			OnDelta: func(u *candidate.Update) {
				dash.Log(report.DeltaLine(u))
			},
		}))

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer dash.Quit()
			return eng.Run(gctx)
		})
		g.Go(func() error {
			defer cancel()
			return dash.Run()
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
