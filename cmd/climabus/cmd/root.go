package cmd

import (
	"context"

	"github.com/climabus/climabus/internal/config"
	"github.com/climabus/climabus/pkg/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "climabus",
	Short:        "HVAC signal discovery and decoding on the CAN bus",
	Long:         `Listen to a vehicle CAN bus, flag frames that look like temperatures, track which bytes move and decode the confirmed climate signals`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		pf := cmd.Flags()
		level, _ := pf.GetString(flagLogLevel)
		format, _ := pf.GetString(flagLogFormat)
		if debug, _ := pf.GetBool(flagDebug); debug && !pf.Changed(flagLogLevel) {
			level = "debug"
		}
		log = logger.New(logger.Options{Level: level, Format: format})

		path, _ := pf.GetString(flagConfig)
		c, err := config.LoadOrDefault(path)
		if err != nil {
			return err
		}
		cfg = c
		log.Debug().Str("config", path).Msg("configuration loaded")
		return nil
	},
}

var (
	log = logger.Nop()
	cfg = config.Default()
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

const (
	flagAdapter   = "adapter"
	flagPort      = "port"
	flagBaudrate  = "baudrate"
	flagCANRate   = "canrate"
	flagDebug     = "debug"
	flagSet       = "set"
	flagConfig    = "config"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP(flagAdapter, "a", "SLCan", "what adapter to use, see the adapters command")
	pf.StringP(flagPort, "p", "*", "com-port or trace file, * = select from available")
	pf.IntP(flagBaudrate, "b", 115200, "serial baudrate")
	pf.Float64P(flagCANRate, "c", 500, "CAN bitrate in kbit/s")
	pf.BoolP(flagDebug, "d", false, "debug mode")
	pf.StringToString(flagSet, nil, "extra adapter settings, e.g. --set speed=1,interval=10ms")
	pf.String(flagConfig, "", "JSON tuning file")
	pf.String(flagLogLevel, "info", "log level (trace, debug, info, warn, error)")
	pf.String(flagLogFormat, "console", "log format (console, json)")
}
