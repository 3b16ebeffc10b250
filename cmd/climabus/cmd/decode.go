package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/climabus/climabus"
	"github.com/climabus/climabus/pkg/classify"
	"github.com/climabus/climabus/pkg/climate"
	"github.com/climabus/climabus/pkg/decode"
	"github.com/climabus/climabus/pkg/display"
	"github.com/climabus/climabus/pkg/report"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:     "decode <ID#HEX>...",
	Short:   "Decode frames given on the command line",
	Example: "  climabus decode 3D3#37323730 3C4#0000000000005000",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := color.Output
		for _, arg := range args {
			f, ok, err := climabus.ParseTraceLine(arg)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			writeDecode(out, f, classify.Default(), cfg.Signals)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

// writeDecode runs f through the classifier, every byte hypothesis, the
// adjacent byte combinations and the confirmed signal map.
func writeDecode(w io.Writer, f *climabus.CANFrame, cl *classify.Classifier, signals climate.SignalMap) {
	fmt.Fprintln(w, report.TraceLine(f.Identifier, f.Data, cl.IsTemperatureCandidate(f.Identifier, f.Data)))
	for i, b := range f.Data {
		var hyp []string
		for _, s := range decode.Hypotheses(b) {
			hyp = append(hyp, s.String())
		}
		line := fmt.Sprintf("  B%d 0x%02X %q: %s", i, b, decode.Printable(b), strings.Join(hyp, " "))
		if names := cl.Names(cl.Match(b)); names != "" {
			line += " | windows: " + names
		}
		fmt.Fprintln(w, line)
	}
	for i := 0; i+1 < len(f.Data); i++ {
		pv := decode.Pair(f.Data[i], f.Data[i+1])
		line := fmt.Sprintf("  B%d+B%d: be=%d le=%d sum=%d ascii=%q", i, i+1, pv.BigEndian, pv.LittleEndian, pv.Sum, pv.ASCII)
		if pv.Digits {
			line += " setpoint=" + decode.SetpointSetting(pv.Position).String()
		}
		fmt.Fprintln(w, line)
	}

	st := climate.NewState(signals, 0)
	if !st.Confirmed(f.Identifier) {
		return
	}
	changed := st.Apply(f.Identifier, f.Data)
	fmt.Fprintf(w, "  confirmed signals (%s):\n", changed)
	for _, l := range display.ClimateLines(st.Snapshot()) {
		fmt.Fprintln(w, "   "+l)
	}
}
