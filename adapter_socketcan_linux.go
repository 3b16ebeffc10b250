//go:build linux

package climabus

import (
	"context"
	"fmt"
	"net"
	"strings"

	"go.einride.tech/can/pkg/candevice"
	"go.einride.tech/can/pkg/socketcan"
)

func init() {
	for _, dev := range FindDevices() {
		name := "SocketCAN " + dev
		if err := RegisterAdapter(&AdapterInfo{
			Name:               name,
			Description:        "Linux SocketCAN interface " + dev,
			RequiresSerialPort: false,
			New:                NewSocketCANFromDevName(dev),
		}); err != nil {
			panic(err)
		}
	}
}

// SocketCAN reads from a Linux CAN network interface.
type SocketCAN struct {
	*BaseAdapter
	d    *candevice.Device
	conn net.Conn
	rx   *socketcan.Receiver
}

func NewSocketCANFromDevName(dev string) func(cfg *AdapterConfig) (Adapter, error) {
	return func(cfg *AdapterConfig) (Adapter, error) {
		cfg.Port = dev
		return NewSocketCAN(cfg)
	}
}

func NewSocketCAN(cfg *AdapterConfig) (Adapter, error) {
	return &SocketCAN{
		BaseAdapter: NewBaseAdapter("SocketCAN", cfg),
	}, nil
}

func (a *SocketCAN) Open(ctx context.Context) error {
	if a.cfg.CANRate > 0 {
		a.configure()
	}
	conn, err := socketcan.DialContext(ctx, "can", a.cfg.Port)
	if err != nil {
		return fmt.Errorf("socketcan dial %s: %w", a.cfg.Port, err)
	}
	a.conn = conn
	a.rx = socketcan.NewReceiver(conn)
	go a.recvManager()
	return nil
}

// configure sets the bitrate and brings the link up. Both need
// CAP_NET_ADMIN; failure is reported and the interface is used as is.
func (a *SocketCAN) configure() {
	d, err := candevice.New(a.cfg.Port)
	if err != nil {
		a.Warn(fmt.Sprintf("candevice %s: %v", a.cfg.Port, err))
		return
	}
	a.d = d
	if err := d.SetBitrate(uint32(a.cfg.CANRate * 1000)); err != nil {
		a.Warn(fmt.Sprintf("set bitrate: %v", err))
	}
	if err := d.SetUp(); err != nil {
		a.Warn(fmt.Sprintf("set up: %v", err))
	}
}

func (a *SocketCAN) Close() error {
	a.BaseAdapter.Close()
	var err error
	if a.conn != nil {
		err = a.conn.Close()
	}
	if a.d != nil {
		if derr := a.d.SetDown(); derr != nil && err == nil {
			err = derr
		}
	}
	return err
}

func (a *SocketCAN) recvManager() {
	for a.rx.Receive() {
		f := a.rx.Frame()
		if f.IsRemote {
			continue
		}
		frame := NewFrame(f.ID, f.Data[:f.Length])
		frame.Extended = f.IsExtended
		a.deliver(frame)
	}
	select {
	case <-a.closeChan:
	default:
		a.Fatal(fmt.Errorf("socketcan receive: %w", a.rx.Err()))
	}
}

// FindDevices lists network interfaces that look like CAN buses.
func FindDevices() (dev []string) {
	iFaces, _ := net.Interfaces()
	for _, i := range iFaces {
		if strings.Contains(i.Name, "can") {
			dev = append(dev, i.Name)
		}
	}
	return
}
