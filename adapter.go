package climabus

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Adapter is a receive-only CAN transport. The engine never transmits.
type Adapter interface {
	Name() string
	Open(context.Context) error
	Close() error
	Recv() <-chan *CANFrame
	Err() <-chan error
	Event() <-chan Event
}

type AdapterInfo struct {
	Name               string
	Description        string
	RequiresSerialPort bool
	New                func(*AdapterConfig) (Adapter, error)
}

func (a *AdapterInfo) String() string {
	return fmt.Sprintf("%s | %s, requires serial port: %v", a.Name, a.Description, a.RequiresSerialPort)
}

type AdapterConfig struct {
	Debug        bool
	Port         string
	PortBaudrate int
	CANRate      float64
	// CANFilter restricts delivered identifiers; empty passes everything.
	CANFilter        []uint32
	AdditionalConfig map[string]string
}

// Accepts reports whether id passes the configured filter.
func (cfg *AdapterConfig) Accepts(id uint32) bool {
	if len(cfg.CANFilter) == 0 {
		return true
	}
	for _, f := range cfg.CANFilter {
		if f == id {
			return true
		}
	}
	return false
}

var adapterMap = make(map[string]*AdapterInfo)

func NewAdapter(adapterName string, cfg *AdapterConfig) (Adapter, error) {
	if cfg == nil {
		cfg = &AdapterConfig{}
	}
	if adapter, found := adapterMap[adapterName]; found {
		return adapter.New(cfg)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownAdapter, adapterName)
}

func RegisterAdapter(adapter *AdapterInfo) error {
	if _, found := adapterMap[adapter.Name]; !found {
		adapterMap[adapter.Name] = adapter
		return nil
	}
	return fmt.Errorf("adapter %s already registered", adapter.Name)
}

func ListAdapterNames() []string {
	var out []string
	for name := range adapterMap {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

func ListAdapters() []AdapterInfo {
	var out []AdapterInfo
	for _, name := range ListAdapterNames() {
		out = append(out, *adapterMap[name])
	}
	return out
}

// SerialPort is one enumerated serial device.
type SerialPort struct {
	Name   string
	USB    bool
	VID    string
	PID    string
	Serial string
}

func (p SerialPort) String() string {
	if !p.USB {
		return p.Name
	}
	return fmt.Sprintf("%s (USB %s:%s serial %s)", p.Name, p.VID, p.PID, p.Serial)
}

// ListSerialPorts enumerates serial devices an SLCan adapter could open.
func ListSerialPorts() ([]SerialPort, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	out := make([]SerialPort, 0, len(ports))
	for _, p := range ports {
		out = append(out, SerialPort{
			Name:   p.Name,
			USB:    p.IsUSB,
			VID:    p.VID,
			PID:    p.PID,
			Serial: p.SerialNumber,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
