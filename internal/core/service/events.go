package service

import (
	"context"
	"sync"
	"time"

	"netifmgr/internal/pkg/logging"
	"netifmgr/internal/port"
	"netifmgr/internal/types"
)

// subscription keeps only the newest snapshot when its consumer falls behind.
type subscription struct {
	s    *Service
	ch   chan []types.HardwareInterface
	once sync.Once
}

func (sub *subscription) Updates() <-chan []types.HardwareInterface {
	return sub.ch
}

func (sub *subscription) Close() {
	sub.once.Do(func() {
		sub.s.subsMu.Lock()
		delete(sub.s.subs, sub)
		close(sub.ch)
		sub.s.subsMu.Unlock()
	})
}

// Subscribe returns a feed of snapshots published after every refresh and committed change.
func (s *Service) Subscribe() port.Subscription {
	sub := &subscription{s: s, ch: make(chan []types.HardwareInterface, 1)}
	s.subsMu.Lock()
	s.subs[sub] = struct{}{}
	s.subsMu.Unlock()
	return sub
}

func (s *Service) publish() {
	hw := s.repo.ListHardwareInterfaces()
	if s.metrics != nil {
		s.metrics.RecordSnapshot(hw)
	}

	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for sub := range s.subs {
		snapshot := make([]types.HardwareInterface, len(hw))
		for i, h := range hw {
			snapshot[i] = h.Clone()
		}
		select {
		case sub.ch <- snapshot:
		default:
			// Drop the stale snapshot the consumer has not read yet.
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- snapshot
		}
	}
}

// Run keeps the snapshot live until ctx is done: it refreshes every Interval and, with
// Watch set, whenever netlink reports a link or address change.
func (s *Service) Run(ctx context.Context) error {
	logger := logging.WithComponent("service")
	logger.WithField("interval", s.opts.Interval.String()).WithField("watch", s.opts.Watch).Info("Starting live refresh loop")

	if _, err := s.Refresh(ctx); err != nil {
		logger.WithError(err).Error("Initial refresh failed")
	}

	var tick <-chan time.Time
	if s.opts.Interval > 0 {
		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var changes <-chan struct{}
	if s.opts.Watch && s.networkMgr != nil {
		ch, err := s.networkMgr.SubscribeChanges(ctx)
		if err != nil {
			logger.WithError(err).Warn("Change notifications unavailable, relying on interval refresh")
		} else {
			changes = ch
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Live refresh loop stopped due to context cancellation")
			return ctx.Err()
		case <-tick:
			s.refreshQuietly(ctx)
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			s.refreshQuietly(ctx)
		}
	}
}

func (s *Service) refreshQuietly(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
		logging.WithComponent("service").WithError(err).Debug("Live refresh failed")
	}
}
