package feed

import (
	"fmt"
	"os"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service the feed registers under.
	ServiceType   = "_climabus._tcp"
	serviceDomain = "local."
)

// Advertise registers the feed on the local network so dashboards can find
// it without an address. Call Shutdown on the returned server when done.
func Advertise(port int, txt ...string) (*zeroconf.Server, error) {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "climabus"
	}
	txt = append([]string{"version=1", "path=/ws"}, txt...)
	server, err := zeroconf.Register(
		fmt.Sprintf("%s-climabus", hostname),
		ServiceType,
		serviceDomain,
		port,
		txt,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("register mdns service: %w", err)
	}
	return server, nil
}
