// Package port defines the primary ports (interfaces) for the application.
// This follows the Ports and Adapters (Hexagonal Architecture) pattern.
package port

import (
	"context"
	"net"

	"netifmgr/internal/types"
)

//go:generate mockgen -destination=../mock/mock_network.go -package=mock netifmgr/internal/port InterfaceProbe,DeviceObserver,ConfigurationApplier,LeaseController,AddressConfigurator,InterfaceService,Subscription

// InterfaceService is the command/query surface consumed by the presentation layer.
type InterfaceService interface {
	// ListInterfaces returns the current snapshot, refreshing it first when stale
	ListInterfaces(ctx context.Context) ([]types.HardwareInterface, error)

	// UpdateLogicInterface reconfigures and optionally renames a logical interface
	UpdateLogicInterface(ctx context.Context, payload types.UpdatePayload) (types.LogicInterface, error)

	// AddLogicInterface creates a logical interface on a hardware device
	AddLogicInterface(ctx context.Context, payload types.AddPayload) (types.LogicInterface, error)

	// RemoveLogicInterface deletes a logical interface by name
	RemoveLogicInterface(ctx context.Context, name string) error

	// Subscribe delivers a snapshot after every refresh or committed change
	Subscribe() Subscription
}

// Subscription is a live feed of snapshots. Close must be called when the consumer goes away.
type Subscription interface {
	Updates() <-chan []types.HardwareInterface
	Close()
}

// DeviceObserver reads back the live state of a single device.
type DeviceObserver interface {
	Observe(ctx context.Context, device string) (types.DeviceState, error)
}

// InterfaceProbe discovers hardware interfaces and refreshes the repository.
type InterfaceProbe interface {
	DeviceObserver

	// Refresh enumerates all devices and swaps the repository snapshot
	Refresh(ctx context.Context) ([]types.HardwareInterface, error)
}

// ApplyRequest asks for Desired to become live on Device. Previous is the last
// committed configuration of the logical interface, nil for a new one.
type ApplyRequest struct {
	Device   string
	Desired  types.AddressConfig
	Previous *types.AddressConfig
}

// ConfigurationApplier pushes validated configuration to the OS.
type ConfigurationApplier interface {
	// Apply runs Configure then Verify
	Apply(ctx context.Context, req ApplyRequest) (types.AddressConfig, error)

	// Configure issues the OS calls, checking ctx between steps
	Configure(ctx context.Context, req ApplyRequest) error

	// Verify waits for the observed state to match and returns the effective config
	Verify(ctx context.Context, req ApplyRequest) (types.AddressConfig, error)

	// Remove takes cfg off the device and verifies it is gone
	Remove(ctx context.Context, device string, cfg types.AddressConfig) error
}

// LeaseController runs the DHCP client of a device.
type LeaseController interface {
	// Enable acquires a lease, applies it and keeps it renewed
	Enable(ctx context.Context, device string) (types.AddressConfig, error)

	// Disable stops the client and returns the leased address still on the device, if any
	Disable(device string) (*net.IPNet, bool)

	// Active reports whether the client runs for device
	Active(device string) bool
}

// AddressConfigurator changes static addressing of a device.
type AddressConfigurator interface {
	// ReplaceAddress adds next and removes previous (nil previous only adds)
	ReplaceAddress(ctx context.Context, device string, previous, next *net.IPNet) error

	// RemoveAddress deletes addr from device; a missing address is not an error
	RemoveAddress(ctx context.Context, device string, addr *net.IPNet) error

	// EnsureDefaultRoute points the device's default route at gateway
	EnsureDefaultRoute(ctx context.Context, device string, gateway net.IP) error
}
