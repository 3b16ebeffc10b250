package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/climabus/climabus/pkg/candidate"
	"github.com/climabus/climabus/pkg/monitor"
	"github.com/climabus/climabus/pkg/report"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [ids...]",
	Short: "Print byte changes of candidate identifiers",
	Long:  `Track identifiers as temperature candidates and print a line whenever one of their bytes changes. Without ids every identifier is watched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		c, err := initCAN(ctx, cmd)
		if err != nil {
			return err
		}
		defer closeCAN(c)

		session := uuid.New().String()
		started := time.Now()
		log.Info().Str("session", session).Int("ids", len(ids)).Msg("candidate session started")

		out := color.Output
		eng := newEngine(c, ids, monitor.WithHooks(monitor.Hooks{
			OnDelta: func(u *candidate.Update) {
				fmt.Fprintln(out, report.DeltaLine(u))
			},
		}))
		err = eng.Run(ctx)

		fmt.Fprintf(out, "\nsession %s\n", session)
		report.WriteCandidateTable(out, eng.Tracker().Candidates())
		adapterName, _ := cmd.Flags().GetString(flagAdapter)
		saveSession(context.Background(), cmd, session, adapterName, started, eng)
		return err
	},
}

func init() {
	watchCmd.Flags().String(flagDB, "", "save the candidate session to this sqlite file")
	rootCmd.AddCommand(watchCmd)
}
