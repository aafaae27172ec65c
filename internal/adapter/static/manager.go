package static

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"syscall"

	"netifmgr/internal/pkg/logging"
	"netifmgr/internal/port"

	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
)

// Manager changes static addressing of devices through the NetworkManager port.
// It implements the AddressConfigurator port.
type Manager struct {
	networkMgr port.NetworkManager
}

// Ensure Manager implements the AddressConfigurator port
var _ port.AddressConfigurator = (*Manager)(nil)

// NewManager creates a new static address configurator.
func NewManager(networkMgr port.NetworkManager) *Manager {
	return &Manager{networkMgr: networkMgr}
}

// ReplaceAddress brings the device up, adds next and removes previous. Addresses other
// than previous are left alone. The kernel drops secondary addresses together with the
// primary of their subnet, so a previous address in the same subnet as next is removed first.
func (m *Manager) ReplaceAddress(ctx context.Context, device string, previous, next *net.IPNet) error {
	logger := logging.WithComponentAndDevice("static", device)

	link, err := m.networkMgr.GetLinkByName(device)
	if err != nil {
		return fmt.Errorf("failed to get netlink interface: %w", err)
	}

	if link.Attrs().Flags&net.FlagUp == 0 {
		logger.Warn("Interface is down, bringing it up")
		if err := m.networkMgr.SetLinkUp(link); err != nil {
			return fmt.Errorf("failed to bring interface up: %w", err)
		}
	}

	existingAddrs, err := m.networkMgr.ListAddresses(link)
	if err != nil {
		return fmt.Errorf("failed to list existing addresses: %w", err)
	}

	var old *netlink.Addr
	if previous != nil && !sameAddress(previous, next) {
		old = findAddress(existingAddrs, previous)
	}

	if old != nil && sameSubnet(previous, next) {
		if err := m.deleteAddress(link, old, logger); err != nil {
			return err
		}
		old = nil
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if existing := findAddress(existingAddrs, next); existing != nil && finiteLifetime(existing) {
		// Replacing without lifetimes makes the kernel mark the address permanent.
		logger.WithFields(logrus.Fields{"ip": next.String(), "valid_lft": existing.ValidLft}).
			Info("IP address carries a lease lifetime, making it permanent")
		if err := m.networkMgr.ReplaceAddress(link, &netlink.Addr{IPNet: next}); err != nil {
			return fmt.Errorf("failed to make IP address %s permanent: %w", next.String(), err)
		}
	} else if existing != nil {
		logger.WithField("ip", next.String()).Info("IP address already configured, skipping")
	} else {
		logger.WithField("ip", next.String()).Info("Configuring interface with IP")
		if err := m.networkMgr.AddAddress(link, &netlink.Addr{IPNet: next}); err != nil && !isExists(err) {
			return fmt.Errorf("failed to add IP address %s: %w", next.String(), err)
		}
		logger.WithField("ip", next.String()).Info("Successfully added IP address")
	}

	if old == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.deleteAddress(link, old, logger)
}

func (m *Manager) deleteAddress(link netlink.Link, addr *netlink.Addr, logger *logrus.Entry) error {
	if err := m.networkMgr.DeleteAddress(link, addr); err != nil {
		return fmt.Errorf("failed to remove previous address %s: %w", addr.IPNet.String(), err)
	}
	logger.WithField("address", addr.IPNet.String()).Debug("Removed previous address")
	return nil
}

// RemoveAddress deletes addr from device. A missing address is not an error.
func (m *Manager) RemoveAddress(ctx context.Context, device string, addr *net.IPNet) error {
	logger := logging.WithComponentAndDevice("static", device).WithField("address", addr.String())

	link, err := m.networkMgr.GetLinkByName(device)
	if err != nil {
		return fmt.Errorf("failed to get netlink interface: %w", err)
	}

	existingAddrs, err := m.networkMgr.ListAddresses(link)
	if err != nil {
		return fmt.Errorf("failed to list existing addresses: %w", err)
	}

	found := findAddress(existingAddrs, addr)
	if found == nil {
		logger.Debug("Address not configured, nothing to remove")
		return nil
	}

	if err := m.networkMgr.DeleteAddress(link, found); err != nil {
		return fmt.Errorf("failed to remove address %s: %w", addr.String(), err)
	}
	logger.Info("Removed address")
	return nil
}

// EnsureDefaultRoute configures the default gateway for the device.
// Default routes through other devices are left alone.
func (m *Manager) EnsureDefaultRoute(ctx context.Context, device string, gateway net.IP) error {
	logger := logging.WithComponentAndDevice("static", device).WithField("gateway", gateway.String())

	link, err := m.networkMgr.GetLinkByName(device)
	if err != nil {
		return fmt.Errorf("failed to get netlink interface: %w", err)
	}

	routes, err := m.networkMgr.ListRoutes(link)
	if err != nil {
		return fmt.Errorf("failed to list routes: %w", err)
	}

	for _, route := range routes {
		if !isDefaultRoute(route) || route.LinkIndex != link.Attrs().Index {
			continue
		}
		if route.Gw != nil && route.Gw.Equal(gateway) {
			logger.Debug("Default route already configured, skipping")
			return nil
		}

		// Remove conflicting default route
		if err := m.networkMgr.DeleteRoute(&route); err != nil {
			return fmt.Errorf("failed to remove existing default route: %w", err)
		}
		if route.Gw != nil {
			logger.WithField("existing_gateway", route.Gw.String()).Debug("Removed conflicting default route")
		}
	}

	route := &netlink.Route{
		LinkIndex: link.Attrs().Index,
		Gw:        gateway,
	}
	if err := m.networkMgr.AddRoute(route); err != nil {
		// Check if the error is because the route already exists
		if isExists(err) {
			logger.Debug("Default route already exists, ignoring error")
			return nil
		}
		return fmt.Errorf("failed to add default route: %w", err)
	}

	logger.Info("Successfully configured default route")
	return nil
}

func findAddress(addrs []netlink.Addr, want *net.IPNet) *netlink.Addr {
	for i := range addrs {
		if sameAddress(addrs[i].IPNet, want) {
			return &addrs[i]
		}
	}
	return nil
}

func sameAddress(a, b *net.IPNet) bool {
	return a != nil && b != nil && a.IP.Equal(b.IP) && a.Mask.String() == b.Mask.String()
}

func sameSubnet(a, b *net.IPNet) bool {
	return a.Mask.String() == b.Mask.String() && a.Contains(b.IP)
}

func isDefaultRoute(r netlink.Route) bool {
	return r.Dst == nil || r.Dst.String() == "0.0.0.0/0"
}

func isExists(err error) bool {
	return errors.Is(err, syscall.EEXIST)
}

// finiteLifetime reports whether addr expires, as addresses installed from a lease do.
func finiteLifetime(addr *netlink.Addr) bool {
	return addr.ValidLft > 0 && uint32(addr.ValidLft) != math.MaxUint32
}
