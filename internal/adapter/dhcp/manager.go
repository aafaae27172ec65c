package dhcp

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"netifmgr/internal/pkg/logging"
	"netifmgr/internal/port"
	"netifmgr/internal/types"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
)

const (
	defaultRenewal   = 30 * time.Second
	defaultLeaseTime = 60 * time.Second
	renewFailBackoff = 30 * time.Second
)

// Options tune lease acquisition.
type Options struct {
	LeaseTimeout time.Duration
	Retries      int
	RetryDelay   time.Duration
	// ResolvConf is rewritten with the lease's DNS servers; empty disables it.
	ResolvConf string
}

// Manager supervises one DHCP client per device. It implements the LeaseController port.
type Manager struct {
	dhcpClient port.DHCPClient
	networkMgr port.NetworkManager
	fileMgr    port.FileManager
	opts       Options

	mu      sync.Mutex
	running map[string]*keeper
}

// keeper is the renewal loop of one device.
type keeper struct {
	cancel context.CancelFunc
	done   chan struct{}
	lease  *net.IPNet
}

// Ensure Manager implements the LeaseController port
var _ port.LeaseController = (*Manager)(nil)

// NewManager creates a new DHCP supervisor.
func NewManager(dhcpClient port.DHCPClient, networkMgr port.NetworkManager, fileMgr port.FileManager, opts Options) *Manager {
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	return &Manager{
		dhcpClient: dhcpClient,
		networkMgr: networkMgr,
		fileMgr:    fileMgr,
		opts:       opts,
		running:    make(map[string]*keeper),
	}
}

// Enable obtains a lease for device, configures it and keeps renewing it in the background
// until Disable is called. Calling Enable on an active device returns the current lease.
func (m *Manager) Enable(ctx context.Context, device string) (types.AddressConfig, error) {
	logger := logging.WithComponentAndDevice("dhcp", device)

	m.mu.Lock()
	if k, ok := m.running[device]; ok && k.lease != nil {
		lease := k.lease
		m.mu.Unlock()
		cfg := types.AddressConfig{Method: types.MethodDHCP, IP: lease.IP.String(), Mask: net.IP(lease.Mask).String()}
		cfg.Gateway = m.currentGateway(device)
		return cfg, nil
	}
	m.mu.Unlock()

	ack, err := m.getDHCPLease(ctx, device, logger)
	if err != nil {
		return types.AddressConfig{}, err
	}

	leased, err := m.applyDHCPLease(device, ack, nil)
	if err != nil {
		return types.AddressConfig{}, err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	k := &keeper{cancel: cancel, done: make(chan struct{}), lease: leased}

	m.mu.Lock()
	m.running[device] = k
	m.mu.Unlock()

	go m.renew(loopCtx, device, k, ack)

	cfg := types.AddressConfig{
		Method: types.MethodDHCP,
		IP:     leased.IP.String(),
		Mask:   net.IP(leased.Mask).String(),
	}
	if routers := ack.Router(); len(routers) > 0 {
		cfg.Gateway = routers[0].String()
	}
	return cfg, nil
}

// Disable stops the client of device and returns the leased address it leaves behind.
func (m *Manager) Disable(device string) (*net.IPNet, bool) {
	m.mu.Lock()
	k, ok := m.running[device]
	delete(m.running, device)
	m.mu.Unlock()

	if !ok {
		return nil, false
	}
	k.cancel()
	<-k.done

	logging.WithComponentAndDevice("dhcp", device).Info("DHCP client stopped")
	return k.lease, k.lease != nil
}

// Active reports whether a client runs for device.
func (m *Manager) Active(device string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.running[device]
	return ok
}

// Close stops every running client.
func (m *Manager) Close() {
	m.mu.Lock()
	devices := make([]string, 0, len(m.running))
	for d := range m.running {
		devices = append(devices, d)
	}
	m.mu.Unlock()

	for _, d := range devices {
		m.Disable(d)
	}
}

// renew keeps the lease alive until ctx is cancelled.
func (m *Manager) renew(ctx context.Context, device string, k *keeper, ack *dhcpv4.DHCPv4) {
	defer close(k.done)

	logger := logging.WithComponentAndDevice("dhcp", device)

	renewal := ack.IPAddressRenewalTime(defaultRenewal)
	logger.WithField("renewal_time", renewal.String()).Info("Sleeping until renewal")
	renewalTimer := time.NewTimer(renewal)
	defer renewalTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-renewalTimer.C:
			next, err := m.getDHCPLease(ctx, device, logger)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.WithError(err).Errorf("Failed to renew DHCP lease, retrying in %s", renewFailBackoff)
				renewalTimer.Reset(renewFailBackoff)
				continue
			}

			m.mu.Lock()
			previous := k.lease
			m.mu.Unlock()

			leased, err := m.applyDHCPLease(device, next, previous)
			if err != nil {
				logger.WithError(err).Error("Failed to apply renewed DHCP lease")
			} else {
				m.mu.Lock()
				k.lease = leased
				m.mu.Unlock()
				logger.Info("Successfully renewed lease")
			}

			renewal = next.IPAddressRenewalTime(defaultRenewal)
			logger.WithField("renewal_time", renewal.String()).Info("Sleeping until renewal")
			renewalTimer.Reset(renewal)
		}
	}
}

// getDHCPLease performs the complete DHCP DISCOVER/OFFER/REQUEST/ACK sequence
func (m *Manager) getDHCPLease(ctx context.Context, device string, logger *logrus.Entry) (*dhcpv4.DHCPv4, error) {
	var lastErr error
	for attempt := 1; attempt <= m.opts.Retries; attempt++ {
		logger.WithField("attempt", fmt.Sprintf("%d/%d", attempt, m.opts.Retries)).Debug("Attempting DHCP lease")

		ack, err := m.dhcpClient.RequestLease(ctx, device, m.opts.LeaseTimeout)
		if err == nil {
			logger.WithField("ip", ack.YourIPAddr.String()).Info("Successfully obtained DHCP lease")
			return ack, nil
		}

		lastErr = err
		logger.WithError(err).WithField("attempt", attempt).Error("DHCP lease request failed")
		if attempt == m.opts.Retries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("DHCP lease request cancelled: %w", ctx.Err())
		case <-time.After(m.opts.RetryDelay):
		}
	}

	return nil, fmt.Errorf("DHCP lease request failed after %d attempts: %w", m.opts.Retries, lastErr)
}

// applyDHCPLease configures the leased address, default route and DNS servers.
// Only the previous lease address is removed; other addresses on the device are left alone.
func (m *Manager) applyDHCPLease(device string, ack *dhcpv4.DHCPv4, previous *net.IPNet) (*net.IPNet, error) {
	logger := logging.WithComponentAndDevice("dhcp", device)

	subnetMask := ack.SubnetMask()
	if subnetMask == nil {
		// Default to /24 if no subnet mask provided
		subnetMask = net.IPv4Mask(255, 255, 255, 0)
	}

	ipNet := &net.IPNet{
		IP:   ack.YourIPAddr.To4(),
		Mask: subnetMask,
	}

	logger.WithField("ip", ipNet.String()).Info("Configuring interface with leased IP")

	link, err := m.networkMgr.GetLinkByName(device)
	if err != nil {
		return nil, fmt.Errorf("failed to get netlink interface: %w", err)
	}

	existingAddrs, err := m.networkMgr.ListAddresses(link)
	if err != nil {
		return nil, fmt.Errorf("failed to list existing addresses: %w", err)
	}

	leaseTime := ack.IPAddressLeaseTime(defaultLeaseTime)
	logger.WithField("lease_time", leaseTime.String()).Debug("Lease time extracted")

	addr := &netlink.Addr{
		IPNet:       ipNet,
		ValidLft:    int(leaseTime.Seconds()),
		PreferedLft: int(leaseTime.Seconds()),
	}
	if err := m.networkMgr.ReplaceAddress(link, addr); err != nil {
		return nil, fmt.Errorf("failed to add IP address %s: %w", ipNet.String(), err)
	}
	logger.WithField("ip", ipNet.String()).Info("Successfully added IP address")

	if previous != nil && !previous.IP.Equal(ipNet.IP) {
		for _, a := range existingAddrs {
			if a.IPNet.IP.Equal(previous.IP) {
				if err := m.networkMgr.DeleteAddress(link, &a); err != nil {
					logger.WithError(err).WithField("address", a.IPNet.String()).Warn("Failed to remove previous lease address")
				} else {
					logger.WithField("address", a.IPNet.String()).Debug("Removed previous lease address")
				}
			}
		}
	}

	if routers := ack.Router(); len(routers) > 0 {
		gateway := routers[0]
		logger.WithField("gateway", gateway.String()).Info("Setting default gateway")

		if err := m.configureDefaultRoute(link, gateway); err != nil {
			return nil, fmt.Errorf("failed to set default gateway: %w", err)
		}
	}

	if dnsServers := ack.DNS(); len(dnsServers) > 0 {
		var dnsStrings []string
		for _, dns := range dnsServers {
			dnsStrings = append(dnsStrings, dns.String())
		}
		logger.WithField("dns_servers", strings.Join(dnsStrings, ", ")).Info("DNS servers received")

		if err := m.configureDNS(device, dnsServers); err != nil {
			logger.WithError(err).Warn("Failed to configure DNS")
		}
	}

	return ipNet, nil
}

// configureDefaultRoute points the default route of link at gateway.
// Default routes of other links are left alone.
func (m *Manager) configureDefaultRoute(link netlink.Link, gateway net.IP) error {
	logger := logging.WithComponentAndDevice("dhcp", link.Attrs().Name).WithField("gateway", gateway.String())

	routes, err := m.networkMgr.ListRoutes(link)
	if err != nil {
		return fmt.Errorf("failed to list routes: %w", err)
	}

	for _, route := range routes {
		if !isDefaultRoute(route) || route.LinkIndex != link.Attrs().Index {
			continue
		}
		if route.Gw != nil && route.Gw.Equal(gateway) {
			logger.Debug("Default route already exists, skipping")
			return nil
		}
		if err := m.networkMgr.DeleteRoute(&route); err != nil {
			logger.WithError(err).Warn("Failed to remove existing default route")
		} else if route.Gw != nil {
			logger.WithField("old_gateway", route.Gw.String()).Debug("Removed existing default route")
		}
	}

	route := &netlink.Route{
		LinkIndex: link.Attrs().Index,
		Gw:        gateway,
	}
	if err := m.networkMgr.AddRoute(route); err != nil {
		return fmt.Errorf("failed to add default route: %w", err)
	}

	logger.Info("Successfully added default route")
	return nil
}

// configureDNS writes the lease's DNS servers to the resolv.conf file.
func (m *Manager) configureDNS(device string, dnsServers []net.IP) error {
	if m.opts.ResolvConf == "" {
		return nil
	}
	logger := logging.WithComponentAndDevice("dhcp", device)

	newContent := "# Generated by netifmgr\n"
	for _, dns := range dnsServers {
		newContent += fmt.Sprintf("nameserver %s\n", dns.String())
	}

	if currentContent, err := m.fileMgr.ReadFile(m.opts.ResolvConf); err == nil {
		if string(currentContent) == newContent {
			logger.Debug("DNS configuration already up to date, skipping")
			return nil
		}
	}

	if err := m.fileMgr.WriteFile(m.opts.ResolvConf, []byte(newContent), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", m.opts.ResolvConf, err)
	}

	logger.WithField("path", m.opts.ResolvConf).Info("Updated resolver configuration with DNS servers")
	return nil
}

// currentGateway reads the gateway of the device's default route, "" when none.
func (m *Manager) currentGateway(device string) string {
	link, err := m.networkMgr.GetLinkByName(device)
	if err != nil {
		return ""
	}
	routes, err := m.networkMgr.ListRoutes(link)
	if err != nil {
		return ""
	}
	for _, r := range routes {
		if isDefaultRoute(r) && r.Gw != nil {
			return r.Gw.String()
		}
	}
	return ""
}

func isDefaultRoute(r netlink.Route) bool {
	return r.Dst == nil || r.Dst.String() == "0.0.0.0/0"
}
