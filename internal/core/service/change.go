package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"netifmgr/internal/pkg/logging"
	"netifmgr/internal/types"
)

// change is one add, update or remove. prepare runs under the device lock, configure
// under the caller's context, verify and commit possibly after the caller gave up.
type change struct {
	op        string
	device    string
	prepare   func() error
	configure func(ctx context.Context) error
	verify    func(ctx context.Context) (types.AddressConfig, error)
	commit    func(effective types.AddressConfig) error
}

// run executes c. Once verification has started it is not interrupted: if ctx ends first
// the caller gets a Timeout, verification and commit continue in the background holding
// the device lock, and their outcome is reported to the next call on the device.
func (s *Service) run(ctx context.Context, c change) (err error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordApply(c.op, time.Since(start), err)
		}
	}()

	release, err := s.devices.acquire(ctx, c.device)
	if err != nil {
		return err
	}
	s.refreshMu.RLock()
	unlock := func() {
		s.refreshMu.RUnlock()
		release()
	}

	if err := s.devices.takeLate(c.device); err != nil {
		unlock()
		return err
	}

	if c.prepare != nil {
		if err := c.prepare(); err != nil {
			unlock()
			return err
		}
	}

	if c.configure != nil {
		if err := c.configure(ctx); err != nil {
			unlock()
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		unlock()
		return &types.Error{Kind: types.KindTimeout, Op: c.op, Device: c.device, Err: err}
	}

	done := make(chan error, 1)
	go func() {
		var effective types.AddressConfig
		var err error
		if c.verify != nil {
			effective, err = c.verify(context.WithoutCancel(ctx))
		}
		if err == nil {
			err = c.commit(effective)
		}
		done <- err
	}()

	select {
	case err := <-done:
		unlock()
		if err == nil {
			s.publish()
		}
		return err
	case <-ctx.Done():
		logger := logging.WithComponentAndDevice("service", c.device).WithField("op", c.op)
		logger.Warn("Caller gave up during verification, finishing in background")

		go func() {
			err := <-done
			s.devices.storeLate(c.device, c.op, err)
			if s.metrics != nil {
				s.metrics.LateResults.Inc()
			}
			unlock()
			if err == nil {
				s.publish()
			}
			logger.WithError(err).Info("Background verification finished")
		}()
		return &types.Error{Kind: types.KindTimeout, Op: c.op, Device: c.device, Err: ctx.Err()}
	}
}

// deviceLocks serializes changes per device and keeps late results.
type deviceLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
	late  map[string]error
}

func newDeviceLocks() *deviceLocks {
	return &deviceLocks{
		locks: make(map[string]chan struct{}),
		late:  make(map[string]error),
	}
}

// acquire waits for the device lock. Giving up because ctx ended is a ConcurrentModification.
func (d *deviceLocks) acquire(ctx context.Context, device string) (func(), error) {
	d.mu.Lock()
	ch, ok := d.locks[device]
	if !ok {
		ch = make(chan struct{}, 1)
		d.locks[device] = ch
	}
	d.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, &types.Error{Kind: types.KindConcurrentModification, Op: "lock", Device: device,
			Err: fmt.Errorf("another change on the device is in progress: %w", ctx.Err())}
	}
}

// storeLate records the outcome of a change whose caller timed out.
func (d *deviceLocks) storeLate(device, op string, err error) {
	var late error
	if err == nil {
		late = fmt.Errorf("%s finished after its caller timed out", op)
	} else {
		late = fmt.Errorf("%s failed after its caller timed out: %w", op, err)
	}

	d.mu.Lock()
	d.late[device] = late
	d.mu.Unlock()
}

// takeLate returns and clears a pending late result as a Timeout error.
func (d *deviceLocks) takeLate(device string) error {
	d.mu.Lock()
	late, ok := d.late[device]
	delete(d.late, device)
	d.mu.Unlock()

	if !ok {
		return nil
	}
	return &types.Error{Kind: types.KindTimeout, Op: "late result", Device: device, Err: late}
}

// errLate reports whether err is a late-result report rather than a failure of the call itself.
func errLate(err error) bool {
	var e *types.Error
	return errors.As(err, &e) && e.Kind == types.KindTimeout && e.Op == "late result"
}
