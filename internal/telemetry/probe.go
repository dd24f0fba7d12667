package telemetry

import (
	"context"
	"net"
	"time"
)

// Prober answers whether the network is reachable. Probe may block up to
// its own timeout and must honour ctx.
type Prober interface {
	Probe(ctx context.Context) bool
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) bool

func (f ProberFunc) Probe(ctx context.Context) bool { return f(ctx) }

// DialProbe reports reachability by opening a TCP connection. Unlike ICMP
// echo it needs no raw socket privileges.
type DialProbe struct {
	Address string        // host:port
	Timeout time.Duration // defaults to 3s
}

// Probe dials Address and closes the connection immediately.
func (d DialProbe) Probe(ctx context.Context) bool {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", d.Address)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
