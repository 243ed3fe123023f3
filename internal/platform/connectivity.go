package platform

import (
	"context"
	"net"
	"time"
)

const probeTimeout = 3 * time.Second

// TCPConnectivityChecker probes a well-known address to decide whether the
// device is online. TVs sit on home networks where a DNS-port probe is a
// reliable reachability signal.
type TCPConnectivityChecker struct {
	// Address in host:port form. Defaults to a public DNS resolver.
	Address string
	dialer  net.Dialer
}

var _ ConnectivityChecker = (*TCPConnectivityChecker)(nil)

func NewTCPConnectivityChecker() *TCPConnectivityChecker {
	return &TCPConnectivityChecker{Address: "1.1.1.1:53"}
}

func (c *TCPConnectivityChecker) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", c.Address)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// AlwaysOnline is a ConnectivityChecker that reports online
// unconditionally. Used in tests and on wired devices.
type AlwaysOnline struct{}

func (AlwaysOnline) Online(context.Context) bool { return true }

// MainsPower is a PowerStatus for devices on mains power, where battery
// constraints never apply.
type MainsPower struct{}

func (MainsPower) BatteryLow() bool { return false }
