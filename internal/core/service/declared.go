package service

import (
	"context"
	"fmt"
	"sort"

	"netifmgr/internal/core/applier"
	"netifmgr/internal/pkg/logging"
	"netifmgr/internal/types"

	"go.uber.org/multierr"
)

// DeclaredName is the name given to logical interfaces created from declared configuration.
func DeclaredName(device string) string {
	return device + "-declared"
}

// EnsureDeclared makes every device in declared carry its configuration. A device that
// already holds an equal static configuration is left alone; a DHCP declaration always
// (re)starts the client. Failures are collected and do not stop other devices.
func (s *Service) EnsureDeclared(ctx context.Context, declared map[string]types.AddressConfig) error {
	if len(declared) == 0 {
		return nil
	}
	if err := s.ensureSnapshot(ctx); err != nil {
		return err
	}

	devices := make([]string, 0, len(declared))
	for d := range declared {
		devices = append(devices, d)
	}
	sort.Strings(devices)

	var finalErr error
	for _, device := range devices {
		desired := declared[device]
		logger := logging.WithComponentAndDevice("service", device).WithField("config", desired.String())

		if err := s.ensureDevice(ctx, device, desired); err != nil {
			if errLate(err) {
				logger.WithError(err).Warn("Previous change finished late, retrying")
				err = s.ensureDevice(ctx, device, desired)
			}
			if err != nil {
				logger.WithError(err).Error("Failed to apply declared configuration")
				finalErr = multierr.Append(finalErr, fmt.Errorf("ensure %s: %w", device, err))
				continue
			}
		}
		logger.Info("Declared configuration in place")
	}
	return finalErr
}

func (s *Service) ensureDevice(ctx context.Context, device string, desired types.AddressConfig) error {
	if err := applier.Validate(desired); err != nil {
		return withDevice(err, device)
	}

	hw, err := s.repo.Device(device)
	if err != nil {
		return err
	}

	var target *types.LogicInterface
	for i, l := range hw.LogicInterfaces {
		switch {
		case desired.Method == types.MethodDHCP && l.Method == types.MethodDHCP:
			target = &hw.LogicInterfaces[i]
		case desired.Method == types.MethodStatic && l.IP == desired.IP:
			if desired.Equal(l.Config()) {
				return nil
			}
			target = &hw.LogicInterfaces[i]
		case l.Name == DeclaredName(device) && target == nil:
			target = &hw.LogicInterfaces[i]
		}
	}

	if target != nil {
		_, err := s.update(ctx, target.ID, desired, "", desired.Method == types.MethodDHCP)
		return err
	}
	_, err = s.add(ctx, device, DeclaredName(device), desired)
	return err
}
