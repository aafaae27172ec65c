// Package network provides network management adapter implementation.
package network

import (
	"context"
	"errors"
	"fmt"

	"netifmgr/internal/pkg/logging"
	"netifmgr/internal/port"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// dumpRetries bounds re-reads of a netlink dump interrupted by a concurrent change.
const dumpRetries = 3

// ManagerAdapter is an adapter that implements the NetworkManager port using vishvananda/netlink library.
type ManagerAdapter struct {
	handle *netlink.Handle
	ns     *netns.NsHandle
}

// Ensure ManagerAdapter implements the NetworkManager port
var _ port.NetworkManager = (*ManagerAdapter)(nil)

// NewManagerAdapter creates a new network manager adapter bound to the current network namespace.
func NewManagerAdapter() *ManagerAdapter {
	return &ManagerAdapter{handle: &netlink.Handle{}}
}

// NewManagerAdapterAt creates a network manager adapter bound to the given network namespace.
func NewManagerAdapterAt(ns netns.NsHandle) (*ManagerAdapter, error) {
	h, err := netlink.NewHandleAt(ns)
	if err != nil {
		return nil, fmt.Errorf("failed to open netlink handle in namespace %s: %w", ns.String(), err)
	}
	return &ManagerAdapter{handle: h, ns: &ns}, nil
}

// NewManagerAdapterForPath opens the namespace at path (e.g. /var/run/netns/lab) and binds to it.
func NewManagerAdapterForPath(path string) (*ManagerAdapter, error) {
	ns, err := netns.GetFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open network namespace %s: %w", path, err)
	}
	return NewManagerAdapterAt(ns)
}

// Close releases the netlink sockets held by a namespace-bound adapter.
func (n *ManagerAdapter) Close() {
	if n.ns != nil {
		n.handle.Close()
		n.ns.Close()
	}
}

// ListLinks returns all links in index order.
func (n *ManagerAdapter) ListLinks() ([]netlink.Link, error) {
	var links []netlink.Link
	err := retryDump(func() (err error) {
		links, err = n.handle.LinkList()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// GetLinkByName returns a network link by interface name.
func (n *ManagerAdapter) GetLinkByName(interfaceName string) (netlink.Link, error) {
	link, err := n.handle.LinkByName(interfaceName)
	if err != nil {
		return nil, fmt.Errorf("failed to get netlink interface %s: %w", interfaceName, err)
	}
	return link, nil
}

// ListAddresses returns IPv4 addresses configured on the link.
func (n *ManagerAdapter) ListAddresses(link netlink.Link) ([]netlink.Addr, error) {
	var addrs []netlink.Addr
	err := retryDump(func() (err error) {
		addrs, err = n.handle.AddrList(link, netlink.FAMILY_V4)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return addrs, nil
}

// AddAddress adds an IP address to the interface.
func (n *ManagerAdapter) AddAddress(link netlink.Link, addr *netlink.Addr) error {
	if err := n.handle.AddrAdd(link, addr); err != nil {
		return fmt.Errorf("failed to add address %s: %w", addr.IPNet.String(), err)
	}
	return nil
}

// ReplaceAddress adds addr or updates its lifetimes when it already exists.
func (n *ManagerAdapter) ReplaceAddress(link netlink.Link, addr *netlink.Addr) error {
	if err := n.handle.AddrReplace(link, addr); err != nil {
		return fmt.Errorf("failed to replace address %s: %w", addr.IPNet.String(), err)
	}
	return nil
}

// DeleteAddress removes an IP address from the interface.
func (n *ManagerAdapter) DeleteAddress(link netlink.Link, addr *netlink.Addr) error {
	if err := n.handle.AddrDel(link, addr); err != nil {
		return fmt.Errorf("failed to delete address %s: %w", addr.IPNet.String(), err)
	}
	return nil
}

// ListRoutes returns IPv4 routes of link, or of all links when link is nil.
func (n *ManagerAdapter) ListRoutes(link netlink.Link) ([]netlink.Route, error) {
	var routes []netlink.Route
	err := retryDump(func() (err error) {
		routes, err = n.handle.RouteList(link, netlink.FAMILY_V4)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	return routes, nil
}

// AddRoute adds a route.
func (n *ManagerAdapter) AddRoute(route *netlink.Route) error {
	if err := n.handle.RouteAdd(route); err != nil {
		return fmt.Errorf("failed to add route: %w", err)
	}
	return nil
}

// DeleteRoute removes a route.
func (n *ManagerAdapter) DeleteRoute(route *netlink.Route) error {
	if err := n.handle.RouteDel(route); err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}
	return nil
}

// SetLinkUp brings the interface up.
func (n *ManagerAdapter) SetLinkUp(link netlink.Link) error {
	if err := n.handle.LinkSetUp(link); err != nil {
		return fmt.Errorf("failed to set link up: %w", err)
	}
	return nil
}

// SubscribeChanges merges netlink link and address notifications into one coalescing
// signal channel. The channel is closed when ctx is done.
func (n *ManagerAdapter) SubscribeChanges(ctx context.Context) (<-chan struct{}, error) {
	logger := logging.WithComponent("netlink")

	done := make(chan struct{})
	addrUpdates := make(chan netlink.AddrUpdate)
	linkUpdates := make(chan netlink.LinkUpdate)

	addrOpts := netlink.AddrSubscribeOptions{}
	linkOpts := netlink.LinkSubscribeOptions{}
	if n.ns != nil {
		addrOpts.Namespace = n.ns
		linkOpts.Namespace = n.ns
	}

	if err := netlink.AddrSubscribeWithOptions(addrUpdates, done, addrOpts); err != nil {
		close(done)
		return nil, fmt.Errorf("failed to subscribe to address updates: %w", err)
	}
	if err := netlink.LinkSubscribeWithOptions(linkUpdates, done, linkOpts); err != nil {
		// Address notifications alone still catch configuration changes
		logger.WithError(err).Warn("Could not subscribe to link updates")
		linkUpdates = nil
	}

	out := make(chan struct{}, 1)
	notify := func() {
		select {
		case out <- struct{}{}:
		default:
		}
	}

	go func() {
		defer close(out)
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-addrUpdates:
				if !ok {
					logger.Warn("Address update channel closed")
					return
				}
				logger.WithFields(map[string]interface{}{
					"address": update.LinkAddress.String(),
					"new":     update.NewAddr,
				}).Debug("Address change")
				notify()
			case update, ok := <-linkUpdates:
				if !ok {
					linkUpdates = nil
					continue
				}
				logger.WithField("link", update.Attrs().Name).Debug("Link change")
				notify()
			}
		}
	}()

	return out, nil
}

func retryDump(fn func() error) error {
	var err error
	for attempt := 0; attempt < dumpRetries; attempt++ {
		if err = fn(); !errors.Is(err, netlink.ErrDumpInterrupted) {
			return err
		}
	}
	return err
}
