// Package applier pushes validated address configuration to the OS and verifies it.
package applier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"netifmgr/internal/pkg/addrcodec"
	"netifmgr/internal/pkg/logging"
	"netifmgr/internal/port"
	"netifmgr/internal/types"

	"github.com/sirupsen/logrus"
)

// Step names reported in PartialApplyError.
const (
	StepDisableDHCP  = "disable-dhcp"
	StepRemoveLease  = "remove-lease"
	StepRemoveStatic = "remove-static"
	StepSetAddress   = "set-address"
	StepSetGateway   = "set-gateway"
	StepEnableDHCP   = "enable-dhcp"
)

// Options control verification.
type Options struct {
	VerifyTimeout  time.Duration
	VerifyInterval time.Duration
	// PingGateway additionally requires the gateway to answer before a static config is verified.
	PingGateway bool
}

// Applier implements the ConfigurationApplier port.
type Applier struct {
	observer  port.DeviceObserver
	leases    port.LeaseController
	addresses port.AddressConfigurator
	prober    port.GatewayProber
	opts      Options
}

// Ensure Applier implements the ConfigurationApplier port
var _ port.ConfigurationApplier = (*Applier)(nil)

// New creates an applier. prober may be nil.
func New(observer port.DeviceObserver, leases port.LeaseController, addresses port.AddressConfigurator, prober port.GatewayProber, opts Options) *Applier {
	if opts.VerifyInterval <= 0 {
		opts.VerifyInterval = 250 * time.Millisecond
	}
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = 10 * time.Second
	}
	return &Applier{
		observer:  observer,
		leases:    leases,
		addresses: addresses,
		prober:    prober,
		opts:      opts,
	}
}

// Validate checks a desired configuration without touching the OS.
func Validate(cfg types.AddressConfig) error {
	switch cfg.Method {
	case types.MethodDHCP:
		return nil
	case types.MethodStatic:
	default:
		return &types.Error{Kind: types.KindInvalidMethod, Op: "validate", Field: "method", Value: string(cfg.Method)}
	}

	if !addrcodec.IsValidIPv4(cfg.IP) {
		return &types.Error{Kind: types.KindInvalidIPv4, Op: "validate", Field: "ip", Value: cfg.IP}
	}
	if !addrcodec.IsValidIPv4(cfg.Mask) || !addrcodec.IsContiguousMask(cfg.Mask) {
		return &types.Error{Kind: types.KindInvalidMask, Op: "validate", Field: "mask", Value: cfg.Mask}
	}
	if cfg.Gateway != "" {
		if err := addrcodec.ValidateGateway(cfg.IP, cfg.Mask, cfg.Gateway); err != nil {
			var e *types.Error
			if errors.As(err, &e) {
				e.Op = "validate"
			}
			return err
		}
	}
	return nil
}

// Apply runs Configure and then Verify.
func (a *Applier) Apply(ctx context.Context, req port.ApplyRequest) (types.AddressConfig, error) {
	if err := a.Configure(ctx, req); err != nil {
		return types.AddressConfig{}, err
	}
	return a.Verify(ctx, req)
}

// Configure validates req and issues the OS calls. ctx is checked before every step.
// Nothing is rolled back when a step fails.
func (a *Applier) Configure(ctx context.Context, req port.ApplyRequest) error {
	if err := Validate(req.Desired); err != nil {
		return withDevice(err, req.Device)
	}

	r := &run{req: req, logger: logging.WithComponentAndDevice("applier", req.Device)}
	r.logger.WithField("desired", req.Desired.String()).Info("Applying configuration")

	previous := previousStatic(req.Previous)

	switch req.Desired.Method {
	case types.MethodStatic:
		next, _ := addrcodec.IPNet(req.Desired.IP, req.Desired.Mask)

		if req.Previous != nil && req.Previous.Method == types.MethodDHCP {
			var lease *net.IPNet
			if err := r.step(ctx, StepDisableDHCP, "method", string(types.MethodDHCP), func() error {
				lease, _ = a.leases.Disable(req.Device)
				return nil
			}); err != nil {
				return err
			}
			// A lease held by another client, or by a previous run, is known only from the probe.
			if lease == nil {
				lease = previousAddress(req.Previous)
			}
			if lease != nil && !sameNet(lease, next) {
				if err := r.step(ctx, StepRemoveLease, "ip", lease.IP.String(), func() error {
					return a.addresses.RemoveAddress(ctx, req.Device, lease)
				}); err != nil {
					return err
				}
			}
		}

		if err := r.step(ctx, StepSetAddress, "ip", req.Desired.IP, func() error {
			return a.addresses.ReplaceAddress(ctx, req.Device, previous, next)
		}); err != nil {
			return err
		}

		if req.Desired.Gateway != "" {
			if err := r.step(ctx, StepSetGateway, "gateway", req.Desired.Gateway, func() error {
				return a.addresses.EnsureDefaultRoute(ctx, req.Device, net.ParseIP(req.Desired.Gateway).To4())
			}); err != nil {
				return err
			}
		}

	case types.MethodDHCP:
		if previous != nil {
			if err := r.step(ctx, StepRemoveStatic, "ip", previous.IP.String(), func() error {
				return a.addresses.RemoveAddress(ctx, req.Device, previous)
			}); err != nil {
				return err
			}
		}

		if err := r.step(ctx, StepEnableDHCP, "method", string(types.MethodDHCP), func() error {
			_, err := a.leases.Enable(ctx, req.Device)
			return err
		}); err != nil {
			return err
		}
	}

	r.logger.WithField("steps", r.completed).Debug("Configuration issued")
	return nil
}

// Verify polls the device until it shows the desired configuration or the verify timeout
// passes. It returns the effective configuration, which for DHCP carries the lease values.
func (a *Applier) Verify(ctx context.Context, req port.ApplyRequest) (types.AddressConfig, error) {
	logger := logging.WithComponentAndDevice("applier", req.Device)
	previous := previousAddress(req.Previous)
	if req.Previous != nil && req.Previous.Method == types.MethodDHCP && req.Desired.Method == types.MethodDHCP {
		// a renewed lease may keep the same address
		previous = nil
	}

	check := func(state types.DeviceState) (types.AddressConfig, string) {
		if previous != nil && !previous.IP.Equal(net.ParseIP(req.Desired.IP)) &&
			state.HasAddress(previous.IP.String(), net.IP(previous.Mask).String()) {
			return types.AddressConfig{}, fmt.Sprintf("previous address %s still present", previous)
		}

		switch req.Desired.Method {
		case types.MethodDHCP:
			dyn, ok := state.Dynamic()
			if !ok {
				return types.AddressConfig{}, "no leased address"
			}
			effective := types.AddressConfig{Method: types.MethodDHCP, IP: dyn.IP, Mask: dyn.Mask}
			if state.Gateway != "" && addrcodec.ValidateGateway(dyn.IP, dyn.Mask, state.Gateway) == nil {
				effective.Gateway = state.Gateway
			}
			return effective, ""
		default:
			addr, ok := state.Address(req.Desired.IP, req.Desired.Mask)
			if !ok {
				return types.AddressConfig{}, "address not present"
			}
			if addr.Method != types.MethodStatic {
				return types.AddressConfig{}, "address still has a lease lifetime"
			}
			if req.Desired.Gateway != "" && state.Gateway != req.Desired.Gateway {
				return types.AddressConfig{}, "default route not set"
			}
			if req.Desired.Gateway != "" && a.opts.PingGateway && a.prober != nil {
				if err := a.prober.Probe(ctx, req.Desired.Gateway); err != nil {
					return types.AddressConfig{}, fmt.Sprintf("gateway unreachable: %v", err)
				}
			}
			return req.Desired, ""
		}
	}

	effective, err := a.poll(ctx, req.Device, req.Desired, check)
	if err != nil {
		return types.AddressConfig{}, err
	}
	logger.WithField("effective", effective.String()).Info("Configuration verified")
	return effective, nil
}

// Remove takes cfg off device and waits until it is gone.
func (a *Applier) Remove(ctx context.Context, device string, cfg types.AddressConfig) error {
	r := &run{req: port.ApplyRequest{Device: device, Desired: cfg, Previous: &cfg}, logger: logging.WithComponentAndDevice("applier", device)}
	r.logger.WithField("config", cfg.String()).Info("Removing configuration")

	var gone *net.IPNet
	switch cfg.Method {
	case types.MethodDHCP:
		var lease *net.IPNet
		if err := r.step(ctx, StepDisableDHCP, "method", string(types.MethodDHCP), func() error {
			lease, _ = a.leases.Disable(device)
			return nil
		}); err != nil {
			return err
		}
		if lease == nil {
			lease, _ = addrcodec.IPNet(cfg.IP, cfg.Mask)
		}
		if lease != nil {
			gone = lease
			if err := r.step(ctx, StepRemoveLease, "ip", lease.IP.String(), func() error {
				return a.addresses.RemoveAddress(ctx, device, lease)
			}); err != nil {
				return err
			}
		}
	default:
		addr, err := addrcodec.IPNet(cfg.IP, cfg.Mask)
		if err != nil {
			return withDevice(err, device)
		}
		gone = addr
		if err := r.step(ctx, StepRemoveStatic, "ip", cfg.IP, func() error {
			return a.addresses.RemoveAddress(ctx, device, addr)
		}); err != nil {
			return err
		}
	}

	if gone == nil {
		return nil
	}

	_, err := a.poll(ctx, device, types.AddressConfig{Method: cfg.Method}, func(state types.DeviceState) (types.AddressConfig, string) {
		if state.HasAddress(gone.IP.String(), net.IP(gone.Mask).String()) {
			return types.AddressConfig{}, fmt.Sprintf("address %s still present", gone)
		}
		return cfg, ""
	})
	return err
}

// poll observes device every VerifyInterval until check reports no reason.
func (a *Applier) poll(ctx context.Context, device string, desired types.AddressConfig,
	check func(types.DeviceState) (types.AddressConfig, string)) (types.AddressConfig, error) {

	verifyCtx, cancel := context.WithTimeout(ctx, a.opts.VerifyTimeout)
	defer cancel()

	ticker := time.NewTicker(a.opts.VerifyInterval)
	defer ticker.Stop()

	var (
		last   types.DeviceState
		reason = "no observation"
	)
	for {
		state, err := a.observer.Observe(verifyCtx, device)
		switch {
		case err == nil:
			last = state
			effective, why := check(state)
			if why == "" {
				return effective, nil
			}
			reason = why
		case errors.Is(err, types.ErrNotFound):
			return types.AddressConfig{}, err
		default:
			reason = err.Error()
		}

		select {
		case <-verifyCtx.Done():
			if ctx.Err() != nil {
				return types.AddressConfig{}, &types.Error{Kind: types.KindTimeout, Op: "verify", Device: device, Err: ctx.Err()}
			}
			return types.AddressConfig{}, &types.VerificationError{Device: device, Desired: desired, Observed: last, Reason: reason}
		case <-ticker.C:
		}
	}
}

// run records completed steps of one Configure or Remove call.
type run struct {
	req       port.ApplyRequest
	completed []string
	logger    *logrus.Entry
}

func (r *run) step(ctx context.Context, name, field, value string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return r.fail(name, &types.Error{Kind: types.KindTimeout, Op: name, Device: r.req.Device, Err: err})
	}

	r.logger.WithField("step", name).Debug("Running step")
	if err := fn(); err != nil {
		kind := types.KindApplyFailed
		if errors.Is(err, os.ErrPermission) {
			kind = types.KindPermissionDenied
		}
		return r.fail(name, &types.Error{Kind: kind, Op: name, Device: r.req.Device, Field: field, Value: value, Err: err})
	}
	r.completed = append(r.completed, name)
	return nil
}

func (r *run) fail(name string, err error) error {
	r.logger.WithError(err).WithField("step", name).Error("Step failed")
	if len(r.completed) == 0 {
		return err
	}
	return &types.PartialApplyError{
		Device:        r.req.Device,
		Attempted:     r.req.Desired,
		LastKnownGood: r.req.Previous,
		Completed:     append([]string(nil), r.completed...),
		FailedStep:    name,
		Err:           err,
	}
}

// previousStatic returns the address a committed static config put on the device.
func previousStatic(prev *types.AddressConfig) *net.IPNet {
	if prev == nil || prev.Method != types.MethodStatic {
		return nil
	}
	n, err := addrcodec.IPNet(prev.IP, prev.Mask)
	if err != nil {
		return nil
	}
	return n
}

// previousAddress returns the address a committed config put on the device, leased or not.
func previousAddress(prev *types.AddressConfig) *net.IPNet {
	if prev == nil || prev.IP == "" {
		return nil
	}
	n, err := addrcodec.IPNet(prev.IP, prev.Mask)
	if err != nil {
		return nil
	}
	return n
}

func sameNet(a, b *net.IPNet) bool {
	return a != nil && b != nil && a.IP.Equal(b.IP) && a.Mask.String() == b.Mask.String()
}

func withDevice(err error, device string) error {
	var e *types.Error
	if errors.As(err, &e) && e.Device == "" {
		e.Device = device
	}
	return err
}
