package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/climabus/climabus/pkg/calibrate"
	"github.com/climabus/climabus/pkg/decode"
	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate <id> <byte> <byte>",
	Short: "Fit a formula between a byte pair and a thermometer",
	Long:  `Combine two bytes of an identifier and prompt for the real temperature every time the combined value changes. When enough points are collected a linear fit is printed.`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pf := cmd.Flags()
		points, _ := pf.GetInt("points")
		order, _ := pf.GetString("order")
		plotPath, _ := pf.GetString("plot")

		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		hi, err := parseOffset(args[1])
		if err != nil {
			return err
		}
		lo, err := parseOffset(args[2])
		if err != nil {
			return err
		}
		combine, err := pairCombiner(order)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		c, err := initCAN(ctx, cmd, id)
		if err != nil {
			return err
		}
		defer closeCAN(c)

		out := color.Output
		var sess calibrate.Session
		last := -1
		for sess.Len() < points {
			f, ok, err := c.Receive(ctx, cfg.GetReceiveBudget())
			if err != nil {
				if ctx.Err() != nil {
					break
				}
				return err
			}
			if !ok || f.Identifier != id || hi >= len(f.Data) || lo >= len(f.Data) {
				continue
			}
			raw := int(combine(decode.Pair(f.Data[hi], f.Data[lo])))
			if raw == last {
				continue
			}
			last = raw

			actual, skip, err := promptTemperature(raw)
			if err != nil {
				if errors.Is(err, promptui.ErrInterrupt) {
					break
				}
				return err
			}
			if skip {
				continue
			}
			sess.Add(float64(raw), actual)
			fmt.Fprintf(out, "point %d/%d: raw %d = %.1f°F\n", sess.Len(), points, raw, actual)
		}

		fit, err := sess.Fit()
		if err != nil {
			return err
		}
		writeFit(out, fit)
		if plotPath != "" {
			title := fmt.Sprintf("0x%03X bytes %d,%d", id, hi, lo)
			if err := calibrate.SavePlot(plotPath, title, sess.Points(), fit); err != nil {
				return err
			}
			log.Info().Str("file", plotPath).Msg("plot saved")
		}
		return nil
	},
}

func init() {
	f := calibrateCmd.Flags()
	f.Int("points", 5, "number of points to collect")
	f.String("order", "be", "how the bytes combine: be, le or sum")
	f.String("plot", "", "save a chart of the fit, format from the extension (png, svg, pdf)")
	rootCmd.AddCommand(calibrateCmd)
}

func parseOffset(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 7 {
		return 0, fmt.Errorf("byte offset must be 0..7, got %q", s)
	}
	return n, nil
}

func pairCombiner(order string) (func(decode.PairValues) uint16, error) {
	switch strings.ToLower(order) {
	case "be":
		return func(p decode.PairValues) uint16 { return p.BigEndian }, nil
	case "le":
		return func(p decode.PairValues) uint16 { return p.LittleEndian }, nil
	case "sum":
		return func(p decode.PairValues) uint16 { return p.Sum }, nil
	}
	return nil, fmt.Errorf("unknown byte order %q", order)
}

func promptTemperature(raw int) (float64, bool, error) {
	prompt := promptui.Prompt{
		Label: fmt.Sprintf("raw %d (0x%04X), actual °F (empty to skip)", raw, raw),
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return nil
			}
			_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			return err
		},
	}
	res, err := prompt.Run()
	if err != nil {
		return 0, false, err
	}
	res = strings.TrimSpace(res)
	if res == "" {
		return 0, true, nil
	}
	v, err := strconv.ParseFloat(res, 64)
	return v, false, err
}

func writeFit(w io.Writer, fit calibrate.Fit) {
	fmt.Fprintln(w, "\n--- CALIBRATION ---")
	for _, r := range fit.Residuals {
		fmt.Fprintf(w, "raw %6.0f | actual %6.1f | predicted %6.1f | error %.2f\n", r.Raw, r.Actual, r.Predicted, r.Error)
	}
	fmt.Fprintln(w, fit.String())
}
