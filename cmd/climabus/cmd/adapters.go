package cmd

import (
	"fmt"

	"github.com/climabus/climabus"
	"github.com/spf13/cobra"
)

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List available adapters and serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Adapters:")
		for _, a := range climabus.ListAdapters() {
			fmt.Fprintln(out, "  "+a.String())
		}
		ports, err := climabus.ListSerialPorts()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Serial ports:")
		if len(ports) == 0 {
			fmt.Fprintln(out, "  none found")
		}
		for _, p := range ports {
			fmt.Fprintln(out, "  "+p.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adaptersCmd)
}
