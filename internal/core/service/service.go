// Package service orchestrates discovery, validation, application and commit of
// network interface configuration.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"netifmgr/internal/core/applier"
	"netifmgr/internal/core/repository"
	"netifmgr/internal/metrics"
	"netifmgr/internal/pkg/logging"
	"netifmgr/internal/port"
	"netifmgr/internal/types"
)

const (
	opAdd    = "add"
	opUpdate = "update"
	opRemove = "remove"
)

// Options control refresh behaviour.
type Options struct {
	// Staleness is the snapshot age after which ListInterfaces refreshes first.
	Staleness time.Duration
	// Interval is the period of the live refresh loop; zero disables it.
	Interval time.Duration
	// Watch refreshes on netlink change notifications.
	Watch bool
}

// Service implements the InterfaceService port.
//
// Refreshes take the exclusive side of refreshMu and changes the shared side, so a refresh
// never overlaps a change. Changes on one device are serialized by a per-device lock.
type Service struct {
	repo       *repository.Repository
	probe      port.InterfaceProbe
	applier    port.ConfigurationApplier
	networkMgr port.NetworkManager
	metrics    *metrics.Registry
	opts       Options

	refreshMu sync.RWMutex
	devices   *deviceLocks

	subsMu sync.Mutex
	subs   map[*subscription]struct{}
}

// Ensure Service implements the InterfaceService port
var _ port.InterfaceService = (*Service)(nil)

// New creates a service. networkMgr is only used for change notifications in Run and
// reg may be nil.
func New(repo *repository.Repository, probe port.InterfaceProbe, applier port.ConfigurationApplier,
	networkMgr port.NetworkManager, reg *metrics.Registry, opts Options) *Service {
	return &Service{
		repo:       repo,
		probe:      probe,
		applier:    applier,
		networkMgr: networkMgr,
		metrics:    reg,
		opts:       opts,
		devices:    newDeviceLocks(),
		subs:       make(map[*subscription]struct{}),
	}
}

// ListInterfaces returns the current snapshot, refreshing it first when it is older than
// the staleness threshold.
func (s *Service) ListInterfaces(ctx context.Context) ([]types.HardwareInterface, error) {
	if err := s.refreshIfStale(ctx, s.opts.Staleness); err != nil {
		return nil, err
	}
	return s.repo.ListHardwareInterfaces(), nil
}

// Refresh re-enumerates devices and publishes the new snapshot.
func (s *Service) Refresh(ctx context.Context) ([]types.HardwareInterface, error) {
	s.refreshMu.Lock()
	hw, err := s.refreshLocked(ctx)
	s.refreshMu.Unlock()

	if err != nil {
		return nil, err
	}
	s.publish()
	return hw, nil
}

func (s *Service) refreshLocked(ctx context.Context) ([]types.HardwareInterface, error) {
	start := time.Now()
	hw, err := s.probe.Refresh(ctx)
	if s.metrics != nil {
		s.metrics.RecordRefresh(time.Since(start), err)
	}
	if err != nil {
		logging.WithComponent("service").WithError(err).Warn("Refresh failed")
	}
	return hw, err
}

// refreshIfStale refreshes when the snapshot is older than maxAge. Concurrent callers
// that queued behind a refresh reuse its result.
func (s *Service) refreshIfStale(ctx context.Context, maxAge time.Duration) error {
	stale := func() bool {
		at := s.repo.RefreshedAt()
		return at.IsZero() || time.Since(at) > maxAge
	}
	if !stale() {
		return nil
	}

	s.refreshMu.Lock()
	if !stale() {
		s.refreshMu.Unlock()
		return nil
	}
	_, err := s.refreshLocked(ctx)
	s.refreshMu.Unlock()

	if err != nil {
		return err
	}
	s.publish()
	return nil
}

// ensureSnapshot makes sure at least one refresh happened.
func (s *Service) ensureSnapshot(ctx context.Context) error {
	if !s.repo.RefreshedAt().IsZero() {
		return nil
	}
	return s.refreshIfStale(ctx, 0)
}

// UpdateLogicInterface resolves payload.OldName, validates the new configuration,
// applies it and commits it together with an optional rename. A failed apply leaves the
// repository unchanged.
func (s *Service) UpdateLogicInterface(ctx context.Context, payload types.UpdatePayload) (types.LogicInterface, error) {
	desired, err := desiredConfig(payload.Method, payload.IP, payload.Mask, payload.Gateway)
	if err != nil {
		return types.LogicInterface{}, err
	}

	newName := strings.TrimSpace(payload.NewName)
	if payload.NewName != "" && newName == "" {
		return types.LogicInterface{}, &types.Error{Kind: types.KindInvalidPayload, Op: opUpdate, Field: "newName", Value: payload.NewName}
	}

	if err := s.ensureSnapshot(ctx); err != nil {
		return types.LogicInterface{}, err
	}

	entry, err := s.repo.FindLogicInterfaceByName(payload.OldName)
	if err != nil {
		return types.LogicInterface{}, err
	}
	if err := applier.Validate(desired); err != nil {
		return types.LogicInterface{}, withDevice(err, entry.Device)
	}

	return s.update(ctx, entry.ID, desired, newName, false)
}

// update changes the entry with id. force re-applies a configuration equal to the
// committed one.
func (s *Service) update(ctx context.Context, id string, desired types.AddressConfig, newName string, force bool) (types.LogicInterface, error) {
	entry, err := s.repo.GetLogicInterface(id)
	if err != nil {
		return types.LogicInterface{}, err
	}

	var (
		req      port.ApplyRequest
		skip     bool
		result   types.LogicInterface
		previous types.AddressConfig
	)

	c := change{
		op:     opUpdate,
		device: entry.Device,
		prepare: func() error {
			// Re-read under the device lock; a queued change may have altered the entry.
			current, err := s.repo.GetLogicInterface(id)
			if err != nil {
				return err
			}
			entry = current

			if newName != "" && newName != entry.Name {
				if other, err := s.repo.FindLogicInterfaceByName(newName); err == nil && other.ID != entry.ID {
					return &types.Error{Kind: types.KindConflict, Op: opUpdate, Device: entry.Device, Field: "newName", Value: newName}
				}
			}
			if desired.Method == types.MethodDHCP && entry.Method != types.MethodDHCP {
				if err := s.checkSingleDHCP(entry.Device, entry.ID); err != nil {
					return err
				}
			}
			if desired.Method == types.MethodStatic {
				if err := s.checkAddressFree(entry.Device, entry.ID, desired); err != nil {
					return err
				}
			}

			previous = entry.Config()
			skip = !force && desired.Equal(previous)
			req = port.ApplyRequest{Device: entry.Device, Desired: desired, Previous: &previous}
			return nil
		},
		configure: func(ctx context.Context) error {
			if skip {
				return nil
			}
			return s.applier.Configure(ctx, req)
		},
		verify: func(ctx context.Context) (types.AddressConfig, error) {
			if skip {
				return previous, nil
			}
			return s.applier.Verify(ctx, req)
		},
		commit: func(effective types.AddressConfig) error {
			updated := entry.WithConfig(effective)
			if newName != "" {
				updated.Name = newName
			}
			stored, err := s.repo.UpsertLogicInterface(entry.Device, updated)
			if err != nil {
				return err
			}
			result = stored
			return nil
		},
	}

	if err := s.run(ctx, c); err != nil {
		return types.LogicInterface{}, err
	}

	logging.WithComponentAndDevice("service", result.Device).
		WithField("name", result.Name).
		WithField("config", result.Config().String()).
		Info("Logic interface updated")
	return result, nil
}

// AddLogicInterface creates a logical interface on payload.Device.
func (s *Service) AddLogicInterface(ctx context.Context, payload types.AddPayload) (types.LogicInterface, error) {
	desired, err := desiredConfig(payload.Method, payload.IP, payload.Mask, payload.Gateway)
	if err != nil {
		return types.LogicInterface{}, err
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		return types.LogicInterface{}, &types.Error{Kind: types.KindInvalidPayload, Op: opAdd, Device: payload.Device, Field: "name", Value: payload.Name}
	}
	if err := applier.Validate(desired); err != nil {
		return types.LogicInterface{}, withDevice(err, payload.Device)
	}

	if err := s.ensureSnapshot(ctx); err != nil {
		return types.LogicInterface{}, err
	}
	if _, err := s.repo.Device(payload.Device); err != nil {
		return types.LogicInterface{}, err
	}

	return s.add(ctx, payload.Device, name, desired)
}

func (s *Service) add(ctx context.Context, device, name string, desired types.AddressConfig) (types.LogicInterface, error) {
	var result types.LogicInterface
	req := port.ApplyRequest{Device: device, Desired: desired}

	c := change{
		op:     opAdd,
		device: device,
		prepare: func() error {
			if _, err := s.repo.FindLogicInterfaceByName(name); err == nil {
				return &types.Error{Kind: types.KindConflict, Op: opAdd, Device: device, Field: "name", Value: name}
			}
			if desired.Method == types.MethodDHCP {
				return s.checkSingleDHCP(device, "")
			}
			return s.checkAddressFree(device, "", desired)
		},
		configure: func(ctx context.Context) error {
			return s.applier.Configure(ctx, req)
		},
		verify: func(ctx context.Context) (types.AddressConfig, error) {
			return s.applier.Verify(ctx, req)
		},
		commit: func(effective types.AddressConfig) error {
			entry := types.LogicInterface{Name: name, Device: device}.WithConfig(effective)
			stored, err := s.repo.UpsertLogicInterface(device, entry)
			if err != nil {
				return err
			}
			result = stored
			return nil
		},
	}

	if err := s.run(ctx, c); err != nil {
		return types.LogicInterface{}, err
	}

	logging.WithComponentAndDevice("service", device).
		WithField("name", result.Name).
		WithField("config", result.Config().String()).
		Info("Logic interface added")
	return result, nil
}

// RemoveLogicInterface takes the configuration of the named entry off its device and
// deletes the entry.
func (s *Service) RemoveLogicInterface(ctx context.Context, name string) error {
	if err := s.ensureSnapshot(ctx); err != nil {
		return err
	}
	entry, err := s.repo.FindLogicInterfaceByName(name)
	if err != nil {
		return err
	}

	c := change{
		op:     opRemove,
		device: entry.Device,
		prepare: func() error {
			current, err := s.repo.GetLogicInterface(entry.ID)
			if err != nil {
				return err
			}
			entry = current
			return nil
		},
		verify: func(ctx context.Context) (types.AddressConfig, error) {
			return types.AddressConfig{}, s.applier.Remove(ctx, entry.Device, entry.Config())
		},
		commit: func(types.AddressConfig) error {
			return s.repo.RemoveLogicInterface(entry.ID)
		},
	}

	if err := s.run(ctx, c); err != nil {
		return err
	}

	logging.WithComponentAndDevice("service", entry.Device).WithField("name", name).Info("Logic interface removed")
	return nil
}

// checkSingleDHCP rejects a second DHCP entry on a device. except is the id of the entry
// being changed.
func (s *Service) checkSingleDHCP(device, except string) error {
	hw, err := s.repo.Device(device)
	if err != nil {
		return err
	}
	for _, l := range hw.LogicInterfaces {
		if l.ID != except && l.Method == types.MethodDHCP {
			return &types.Error{Kind: types.KindConflict, Op: "dhcp", Device: device, Field: "method", Value: string(types.MethodDHCP),
				Err: fmt.Errorf("DHCP already configured by %q", l.Name)}
		}
	}
	return nil
}

// checkAddressFree rejects an address another entry of the device already holds.
func (s *Service) checkAddressFree(device, except string, desired types.AddressConfig) error {
	hw, err := s.repo.Device(device)
	if err != nil {
		return err
	}
	for _, l := range hw.LogicInterfaces {
		if l.ID != except && l.IP == desired.IP {
			return &types.Error{Kind: types.KindConflict, Op: "address", Device: device, Field: "ip", Value: desired.IP,
				Err: fmt.Errorf("address held by %q", l.Name)}
		}
	}
	return nil
}

// desiredConfig builds the requested configuration. Address fields of a DHCP request are ignored.
func desiredConfig(method, ip, mask, gateway string) (types.AddressConfig, error) {
	m, err := types.ParseMethod(method)
	if err != nil {
		return types.AddressConfig{}, err
	}
	if m == types.MethodDHCP {
		return types.AddressConfig{Method: types.MethodDHCP}, nil
	}
	return types.AddressConfig{
		Method:  m,
		IP:      strings.TrimSpace(ip),
		Mask:    strings.TrimSpace(mask),
		Gateway: strings.TrimSpace(gateway),
	}, nil
}

func withDevice(err error, device string) error {
	var e *types.Error
	if errors.As(err, &e) && e.Device == "" {
		e.Device = device
	}
	return err
}
