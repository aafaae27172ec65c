// Package ping provides the ICMP gateway prober adapter implementation.
package ping

import (
	"context"
	"fmt"
	"time"

	"netifmgr/internal/port"

	probing "github.com/prometheus-community/pro-bing"
)

// ProberAdapter implements the GatewayProber port using pro-bing.
type ProberAdapter struct {
	count      int
	timeout    time.Duration
	privileged bool
}

// Ensure ProberAdapter implements the GatewayProber port
var _ port.GatewayProber = (*ProberAdapter)(nil)

// NewProberAdapter creates a prober sending count echo requests and waiting at most timeout.
// Unprivileged mode uses UDP ICMP sockets (net.ipv4.ping_group_range).
func NewProberAdapter(count int, timeout time.Duration, privileged bool) *ProberAdapter {
	if count < 1 {
		count = 1
	}
	return &ProberAdapter{count: count, timeout: timeout, privileged: privileged}
}

// Probe returns nil when at least one reply arrived.
func (p *ProberAdapter) Probe(ctx context.Context, ip string) error {
	pinger, err := probing.NewPinger(ip)
	if err != nil {
		return fmt.Errorf("failed to create pinger: %w", err)
	}

	pinger.Count = p.count
	pinger.Timeout = p.timeout
	pinger.SetPrivileged(p.privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		return fmt.Errorf("failed to ping %s: %w", ip, err)
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return fmt.Errorf("no reply from %s (%d packets sent)", ip, stats.PacketsSent)
	}
	return nil
}
