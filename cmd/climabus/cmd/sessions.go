package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/climabus/climabus/pkg/monitor"
	"github.com/climabus/climabus/pkg/store"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const flagDB = "db"

var sessionsCmd = &cobra.Command{
	Use:   "sessions [id]",
	Short: "List saved candidate sessions, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString(flagDB)
		limit, _ := cmd.Flags().GetInt("limit")
		st, err := store.Open(path)
		if err != nil {
			return err
		}
		defer st.Close()

		out := color.Output
		if len(args) == 1 {
			sess, err := st.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeSession(out, sess)
		}
		list, err := st.Sessions(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(out, "No sessions saved yet")
			return nil
		}
		for _, s := range list {
			fmt.Fprintf(out, "%s  %s  %8s  %7d frames  %s\n",
				s.ID, s.Started.Format(time.DateTime), s.Ended.Sub(s.Started).Truncate(time.Second), s.Frames, s.Source)
		}
		return nil
	},
}

func writeSession(w io.Writer, s store.Session) error {
	fmt.Fprintf(w, "session %s (%s)\n", s.ID, s.Source)
	fmt.Fprintf(w, "%s .. %s, %d frames\n", s.Started.Format(time.DateTime), s.Ended.Format(time.DateTime), s.Frames)
	if len(s.Candidates) == 0 {
		_, err := fmt.Fprintln(w, "No temperature candidates")
		return err
	}
	for _, c := range s.Candidates {
		fmt.Fprintf(w, "0x%03X | %7d | % X |", c.ID, c.TotalChanges(), c.Data)
		for _, b := range c.Bytes {
			fmt.Fprintf(w, " B%d:%d", b.Index, b.Changes)
			if b.Celsius != nil {
				fmt.Fprintf(w, " (%.1f°C)", *b.Celsius)
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// saveSession records the engine's candidate table when --db was given.
func saveSession(ctx context.Context, cmd *cobra.Command, id, source string, started time.Time, eng *monitor.Engine) {
	path, _ := cmd.Flags().GetString(flagDB)
	if path == "" {
		return
	}
	st, err := store.Open(path)
	if err != nil {
		log.Error().Err(err).Str("db", path).Msg("failed to open session store")
		return
	}
	defer st.Close()

	sess := &store.Session{
		ID:         id,
		Source:     source,
		Started:    started,
		Ended:      started.Add(eng.Status().Uptime),
		Frames:     eng.Status().Frames,
		Candidates: store.Summarize(eng.Tracker().Candidates()),
	}
	if err := st.Save(ctx, sess); err != nil {
		log.Error().Err(err).Str("db", path).Msg("failed to save session")
		return
	}
	log.Info().Str("session", sess.ID).Int("candidates", len(sess.Candidates)).Msg("session saved")
}

func init() {
	sessionsCmd.Flags().String(flagDB, "climabus.db", "session database")
	sessionsCmd.Flags().Int("limit", 50, "number of sessions to list")
	rootCmd.AddCommand(sessionsCmd)
}
