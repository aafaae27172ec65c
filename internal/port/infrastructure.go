// Package port defines the primary ports (interfaces) for the application.
// This follows the Ports and Adapters (Hexagonal Architecture) pattern.
package port

import (
	"context"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/vishvananda/netlink"
)

//go:generate mockgen -destination=../mock/mock_infrastructure.go -package=mock netifmgr/internal/port DHCPClient,NetworkManager,FileManager,LinkInspector,GatewayProber

// DHCPClient is a port for DHCP client operations.
// This interface abstracts DHCP lease acquisition and management.
type DHCPClient interface {
	// RequestLease performs DHCP DISCOVER/OFFER/REQUEST/ACK sequence
	RequestLease(ctx context.Context, interfaceName string, timeout time.Duration) (*dhcpv4.DHCPv4, error)
}

// NetworkManager is a port for network interface operations.
// This interface abstracts netlink operations for network configuration.
type NetworkManager interface {
	// ListLinks returns all links in index order
	ListLinks() ([]netlink.Link, error)

	// GetLinkByName returns a network link by interface name
	GetLinkByName(interfaceName string) (netlink.Link, error)

	// ListAddresses returns IPv4 addresses configured on the link
	ListAddresses(link netlink.Link) ([]netlink.Addr, error)

	// AddAddress adds an IP address to the interface
	AddAddress(link netlink.Link, addr *netlink.Addr) error

	// ReplaceAddress adds an IP address or refreshes its lifetimes
	ReplaceAddress(link netlink.Link, addr *netlink.Addr) error

	// DeleteAddress removes an IP address from the interface
	DeleteAddress(link netlink.Link, addr *netlink.Addr) error

	// ListRoutes returns IPv4 routes of the link, or of all links when link is nil
	ListRoutes(link netlink.Link) ([]netlink.Route, error)

	// AddRoute adds a route
	AddRoute(route *netlink.Route) error

	// DeleteRoute removes a route
	DeleteRoute(route *netlink.Route) error

	// SetLinkUp brings the interface up
	SetLinkUp(link netlink.Link) error

	// SubscribeChanges signals on every link or IPv4 address change until ctx is done
	SubscribeChanges(ctx context.Context) (<-chan struct{}, error)
}

// FileManager is a port for file system operations.
// This interface abstracts file read/write operations.
type FileManager interface {
	// ReadFile reads the contents of a file
	ReadFile(filename string) ([]byte, error)

	// WriteFile writes data to a file with specified permissions
	WriteFile(filename string, data []byte, perm int) error

	// FileExists checks if a file exists
	FileExists(filename string) bool
}

// LinkInspector reports physical link (carrier) state.
type LinkInspector interface {
	// Carrier returns true when the device has link
	Carrier(device string) (bool, error)
}

// GatewayProber checks that a gateway answers.
type GatewayProber interface {
	// Probe returns nil when ip replied within the prober's timeout
	Probe(ctx context.Context, ip string) error
}
