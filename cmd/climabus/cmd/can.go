package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/climabus/climabus"
	"github.com/climabus/climabus/pkg/logger"
	"github.com/climabus/climabus/pkg/monitor"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

func initCAN(ctx context.Context, cmd *cobra.Command, filters ...uint32) (*climabus.Client, error) {
	pf := cmd.Flags()
	adapterName, _ := pf.GetString(flagAdapter)
	port, _ := pf.GetString(flagPort)
	baudrate, _ := pf.GetInt(flagBaudrate)
	canrate, _ := pf.GetFloat64(flagCANRate)
	debug, _ := pf.GetBool(flagDebug)
	extra, _ := pf.GetStringToString(flagSet)

	info, err := lookupAdapter(adapterName)
	if err != nil {
		return nil, err
	}
	if info.RequiresSerialPort && (port == "" || port == "*") {
		if port, err = selectPort(); err != nil {
			return nil, err
		}
	}

	log.Info().Str("adapter", info.Name).Str("port", port).Float64("canrate", canrate).Msg("opening CAN adapter")
	return climabus.NewClient(ctx, info.Name, &climabus.AdapterConfig{
		Debug:            debug,
		Port:             port,
		PortBaudrate:     baudrate,
		CANRate:          canrate,
		CANFilter:        filters,
		AdditionalConfig: extra,
	}, climabus.WithLogger(logger.Named(log, "can")))
}

func lookupAdapter(name string) (climabus.AdapterInfo, error) {
	for _, a := range climabus.ListAdapters() {
		if a.Name == name {
			return a, nil
		}
	}
	return climabus.AdapterInfo{}, fmt.Errorf("%w %q", climabus.ErrUnknownAdapter, name)
}

func selectPort() (string, error) {
	ports, err := climabus.ListSerialPorts()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", errors.New("no serial ports found")
	}
	items := make([]string, len(ports))
	for i, p := range ports {
		items[i] = p.String()
	}
	prompt := promptui.Select{
		Label: "Select serial port",
		Items: items,
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return ports[idx].Name, nil
}

// newEngine sizes the engine from the loaded tuning. Later options win.
func newEngine(rx monitor.Receiver, watch []uint32, opts ...monitor.Option) *monitor.Engine {
	mc := monitor.FromConfig(cfg)
	mc.Watch = watch
	opts = append([]monitor.Option{monitor.WithLogger(logger.Named(log, "engine"))}, opts...)
	return monitor.New(rx, mc, opts...)
}

func closeCAN(c *climabus.Client) {
	log.Info().Stringer("stats", c.Stats()).Msg("closing CAN adapter")
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Msg("close adapter")
	}
}
