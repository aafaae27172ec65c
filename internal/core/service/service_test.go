//go:build unit

package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"netifmgr/internal/core/repository"
	"netifmgr/internal/metrics"
	"netifmgr/internal/mock"
	"netifmgr/internal/port"
	"netifmgr/internal/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	repo    *repository.Repository
	probe   *mock.MockInterfaceProbe
	applier *mock.MockConfigurationApplier
	network *mock.MockNetworkManager
	metrics *metrics.Registry
	svc     *Service
}

func newFixture(t *testing.T, seed bool) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		repo:    repository.New(),
		probe:   mock.NewMockInterfaceProbe(ctrl),
		applier: mock.NewMockConfigurationApplier(ctrl),
		network: mock.NewMockNetworkManager(ctrl),
		metrics: metrics.New(),
	}
	if seed {
		require.NoError(t, f.repo.ReplaceHardwareSnapshot(snapshot()))
	}
	f.svc = New(f.repo, f.probe, f.applier, f.network, f.metrics, Options{Staleness: time.Hour})
	return f
}

func snapshot() []types.HardwareInterface {
	return []types.HardwareInterface{
		{Name: "Ethernet", Device: "eth0", Mac: "00:11:22:33:44:55", IsActive: true, LogicInterfaces: []types.LogicInterface{
			{ID: "a", Name: "eth0-static", IP: "192.168.1.50", Mask: "255.255.255.0", Gateway: "192.168.1.1", Method: types.MethodDHCP},
			{ID: "b", Name: "office", IP: "10.1.0.5", Mask: "255.255.0.0", Method: types.MethodStatic},
		}},
		{Name: "Wi-Fi", Device: "wlan0", Mac: "66:77:88:99:aa:bb"},
	}
}

// echo makes Verify report the desired configuration as effective.
func echo(_ context.Context, req port.ApplyRequest) (types.AddressConfig, error) {
	return req.Desired, nil
}

func (f *fixture) entry(t *testing.T, name string) types.LogicInterface {
	t.Helper()
	l, err := f.repo.FindLogicInterfaceByName(name)
	require.NoError(t, err)
	return l
}

func TestService_UpdateLogicInterface_DHCPToStatic(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	previous := types.AddressConfig{Method: types.MethodDHCP, IP: "192.168.1.50", Mask: "255.255.255.0", Gateway: "192.168.1.1"}
	desired := types.AddressConfig{Method: types.MethodStatic, IP: "10.0.0.5", Mask: "255.255.255.0", Gateway: "10.0.0.1"}
	req := port.ApplyRequest{Device: "eth0", Desired: desired, Previous: &previous}

	gomock.InOrder(
		f.applier.EXPECT().Configure(gomock.Any(), req).Return(nil),
		f.applier.EXPECT().Verify(gomock.Any(), req).DoAndReturn(echo),
	)

	got, err := f.svc.UpdateLogicInterface(ctx, types.UpdatePayload{
		OldName: "eth0-static", NewName: "eth0-static", Method: "static",
		IP: "10.0.0.5", Mask: "255.255.255.0", Gateway: "10.0.0.1",
	})
	require.NoError(t, err)

	assert.Equal(t, "a", got.ID)
	assert.Equal(t, types.MethodStatic, got.Method)
	assert.Equal(t, "10.0.0.5", got.IP)

	stored := f.entry(t, "eth0-static")
	assert.Equal(t, desired, stored.Config())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Applies.WithLabelValues("update", "ok")))
}

func TestService_UpdateLogicInterface_FailedApplyLeavesRepository(t *testing.T) {
	tests := []struct {
		name      string
		configure error
		verify    error
		kind      types.Kind
	}{
		{
			name:      "PartialApply",
			configure: &types.PartialApplyError{Device: "eth0", FailedStep: "set-gateway", Err: &types.Error{Kind: types.KindApplyFailed}},
			kind:      types.KindPartialApplyFailure,
		},
		{
			name:   "VerificationFailed",
			verify: &types.VerificationError{Device: "eth0"},
			kind:   types.KindApplyVerificationFailed,
		},
		{
			name:      "PermissionDenied",
			configure: &types.Error{Kind: types.KindPermissionDenied, Device: "eth0"},
			kind:      types.KindPermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			before := f.repo.ListHardwareInterfaces()

			f.applier.EXPECT().Configure(gomock.Any(), gomock.Any()).Return(tt.configure)
			if tt.configure == nil {
				f.applier.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(types.AddressConfig{}, tt.verify)
			}

			_, err := f.svc.UpdateLogicInterface(context.Background(), types.UpdatePayload{
				OldName: "office", Method: "static", IP: "10.1.0.9", Mask: "255.255.0.0", Gateway: "10.1.0.1",
			})
			require.Error(t, err)
			assert.Equal(t, tt.kind, types.KindOf(err))
			assert.Equal(t, before, f.repo.ListHardwareInterfaces())
		})
	}
}

func TestService_UpdateLogicInterface_ValidationNeverApplies(t *testing.T) {
	tests := []struct {
		name    string
		payload types.UpdatePayload
		kind    types.Kind
	}{
		{"BadIP", types.UpdatePayload{OldName: "office", Method: "static", IP: "256.1.1.1", Mask: "255.255.0.0"}, types.KindInvalidIPv4},
		{"BadMask", types.UpdatePayload{OldName: "office", Method: "static", IP: "10.1.0.9", Mask: "255.0.255.0"}, types.KindInvalidMask},
		{"GatewayOutsideSubnet", types.UpdatePayload{OldName: "office", Method: "static", IP: "10.1.0.9", Mask: "255.255.0.0", Gateway: "192.168.9.1"}, types.KindInvalidGateway},
		{"BadMethod", types.UpdatePayload{OldName: "office", Method: "bootp"}, types.KindInvalidMethod},
		{"BlankNewName", types.UpdatePayload{OldName: "office", NewName: "  ", Method: "dhcp"}, types.KindInvalidPayload},
		{"UnknownName", types.UpdatePayload{OldName: "nope", Method: "dhcp"}, types.KindNotFound},
		{"NewNameTaken", types.UpdatePayload{OldName: "office", NewName: "eth0-static", Method: "static", IP: "10.1.0.5", Mask: "255.255.0.0"}, types.KindConflict},
		{"SecondDHCP", types.UpdatePayload{OldName: "office", Method: "dhcp"}, types.KindConflict},
		{"AddressTaken", types.UpdatePayload{OldName: "office", Method: "static", IP: "192.168.1.50", Mask: "255.255.255.0"}, types.KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			before := f.repo.ListHardwareInterfaces()

			_, err := f.svc.UpdateLogicInterface(context.Background(), tt.payload)
			require.Error(t, err)
			assert.Equal(t, tt.kind, types.KindOf(err))
			assert.Equal(t, before, f.repo.ListHardwareInterfaces())
		})
	}
}

func TestService_UpdateLogicInterface_RenameOnly(t *testing.T) {
	f := newFixture(t, true)

	got, err := f.svc.UpdateLogicInterface(context.Background(), types.UpdatePayload{
		OldName: "office", NewName: "lab", Method: "static", IP: "10.1.0.5", Mask: "255.255.0.0",
	})
	require.NoError(t, err)
	assert.Equal(t, "lab", got.Name)
	assert.Equal(t, "b", got.ID)

	_, err = f.repo.FindLogicInterfaceByName("office")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, "10.1.0.5", f.entry(t, "lab").IP)
}

func TestService_UpdateLogicInterface_SameDeviceSerializes(t *testing.T) {
	f := newFixture(t, true)

	var active, peak int32
	f.applier.EXPECT().Configure(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, port.ApplyRequest) error {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return nil
	}).Times(2)
	f.applier.EXPECT().Verify(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, req port.ApplyRequest) (types.AddressConfig, error) {
		atomic.AddInt32(&active, -1)
		return echo(ctx, req)
	}).Times(2)

	requests := []string{"10.1.0.6", "10.1.0.7"}
	var wg sync.WaitGroup
	errs := make([]error, len(requests))
	for i, ip := range requests {
		wg.Add(1)
		go func(i int, ip string) {
			defer wg.Done()
			_, errs[i] = f.svc.UpdateLogicInterface(context.Background(), types.UpdatePayload{
				OldName: "office", Method: "static", IP: ip, Mask: "255.255.0.0",
			})
		}(i, ip)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
	assert.Contains(t, requests, f.entry(t, "office").IP)
}

func TestService_UpdateLogicInterface_ConcurrentModification(t *testing.T) {
	f := newFixture(t, true)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.applier.EXPECT().Configure(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, port.ApplyRequest) error {
		close(entered)
		<-release
		return nil
	})
	f.applier.EXPECT().Verify(gomock.Any(), gomock.Any()).DoAndReturn(echo)

	first := make(chan error, 1)
	go func() {
		_, err := f.svc.UpdateLogicInterface(context.Background(), types.UpdatePayload{
			OldName: "office", Method: "static", IP: "10.1.0.6", Mask: "255.255.0.0",
		})
		first <- err
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.svc.UpdateLogicInterface(ctx, types.UpdatePayload{
		OldName: "office", Method: "static", IP: "10.1.0.7", Mask: "255.255.0.0",
	})
	assert.ErrorIs(t, err, types.ErrConcurrentModification)

	close(release)
	require.NoError(t, <-first)
	assert.Equal(t, "10.1.0.6", f.entry(t, "office").IP)
}

func TestService_UpdateLogicInterface_LateResult(t *testing.T) {
	f := newFixture(t, true)

	release := make(chan struct{})
	f.applier.EXPECT().Configure(gomock.Any(), gomock.Any()).Return(nil)
	f.applier.EXPECT().Verify(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, req port.ApplyRequest) (types.AddressConfig, error) {
		<-release
		return echo(ctx, req)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.svc.UpdateLogicInterface(ctx, types.UpdatePayload{
		OldName: "office", Method: "static", IP: "10.1.0.6", Mask: "255.255.0.0",
	})
	assert.ErrorIs(t, err, types.ErrTimeout)
	close(release)

	// The next call waits for the background verification and reports its outcome.
	_, err = f.svc.UpdateLogicInterface(context.Background(), types.UpdatePayload{
		OldName: "office", NewName: "lab", Method: "static", IP: "10.1.0.6", Mask: "255.255.0.0",
	})
	assert.ErrorIs(t, err, types.ErrTimeout)
	assert.True(t, errLate(err))
	assert.Equal(t, "10.1.0.6", f.entry(t, "office").IP)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LateResults))

	// The result is reported once.
	got, err := f.svc.UpdateLogicInterface(context.Background(), types.UpdatePayload{
		OldName: "office", NewName: "lab", Method: "static", IP: "10.1.0.6", Mask: "255.255.0.0",
	})
	require.NoError(t, err)
	assert.Equal(t, "lab", got.Name)
}

func TestService_AddLogicInterface(t *testing.T) {
	t.Run("Static", func(t *testing.T) {
		f := newFixture(t, true)
		desired := types.AddressConfig{Method: types.MethodStatic, IP: "172.16.0.2", Mask: "255.255.255.0", Gateway: "172.16.0.1"}
		req := port.ApplyRequest{Device: "wlan0", Desired: desired}

		f.applier.EXPECT().Configure(gomock.Any(), req).Return(nil)
		f.applier.EXPECT().Verify(gomock.Any(), req).DoAndReturn(echo)

		got, err := f.svc.AddLogicInterface(context.Background(), types.AddPayload{
			Device: "wlan0", Name: " wifi ", Method: "static", IP: "172.16.0.2", Mask: "255.255.255.0", Gateway: "172.16.0.1",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, "wifi", got.Name)
		assert.Equal(t, "wlan0", got.Device)

		hw, err := f.repo.Device("wlan0")
		require.NoError(t, err)
		require.Len(t, hw.LogicInterfaces, 1)
		assert.Equal(t, desired, hw.LogicInterfaces[0].Config())
	})

	t.Run("DHCPStoresLease", func(t *testing.T) {
		f := newFixture(t, true)
		lease := types.AddressConfig{Method: types.MethodDHCP, IP: "172.16.0.40", Mask: "255.255.255.0", Gateway: "172.16.0.1"}

		f.applier.EXPECT().Configure(gomock.Any(), gomock.Any()).Return(nil)
		f.applier.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(lease, nil)

		got, err := f.svc.AddLogicInterface(context.Background(), types.AddPayload{
			Device: "wlan0", Name: "wifi", Method: "dhcp", IP: "ignored",
		})
		require.NoError(t, err)
		assert.Equal(t, lease, got.Config())
	})

	rejected := []struct {
		name    string
		payload types.AddPayload
		kind    types.Kind
	}{
		{"MissingName", types.AddPayload{Device: "wlan0", Method: "dhcp"}, types.KindInvalidPayload},
		{"UnknownDevice", types.AddPayload{Device: "eth9", Name: "x", Method: "dhcp"}, types.KindNotFound},
		{"NameTaken", types.AddPayload{Device: "wlan0", Name: "office", Method: "dhcp"}, types.KindConflict},
		{"SecondDHCP", types.AddPayload{Device: "eth0", Name: "x", Method: "dhcp"}, types.KindConflict},
		{"AddressTaken", types.AddPayload{Device: "eth0", Name: "x", Method: "static", IP: "10.1.0.5", Mask: "255.255.0.0"}, types.KindConflict},
		{"BadMask", types.AddPayload{Device: "eth0", Name: "x", Method: "static", IP: "10.1.0.9", Mask: "255.255.0.255"}, types.KindInvalidMask},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			_, err := f.svc.AddLogicInterface(context.Background(), tt.payload)
			require.Error(t, err)
			assert.Equal(t, tt.kind, types.KindOf(err))
		})
	}
}

func TestService_RemoveLogicInterface(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, true)
		cfg := types.AddressConfig{Method: types.MethodStatic, IP: "10.1.0.5", Mask: "255.255.0.0"}
		f.applier.EXPECT().Remove(gomock.Any(), "eth0", cfg).Return(nil)

		require.NoError(t, f.svc.RemoveLogicInterface(context.Background(), "office"))

		_, err := f.repo.FindLogicInterfaceByName("office")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("FailureKeepsEntry", func(t *testing.T) {
		f := newFixture(t, true)
		f.applier.EXPECT().Remove(gomock.Any(), "eth0", gomock.Any()).
			Return(&types.Error{Kind: types.KindPermissionDenied, Device: "eth0"})

		err := f.svc.RemoveLogicInterface(context.Background(), "office")
		assert.ErrorIs(t, err, types.ErrPermissionDenied)
		f.entry(t, "office")
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newFixture(t, true)
		err := f.svc.RemoveLogicInterface(context.Background(), "nope")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestService_ListInterfaces(t *testing.T) {
	t.Run("FreshSnapshotSkipsProbe", func(t *testing.T) {
		f := newFixture(t, true)
		hw, err := f.svc.ListInterfaces(context.Background())
		require.NoError(t, err)
		assert.Len(t, hw, 2)
	})

	t.Run("RefreshesEmptySnapshot", func(t *testing.T) {
		f := newFixture(t, false)
		f.probe.EXPECT().Refresh(gomock.Any()).DoAndReturn(func(context.Context) ([]types.HardwareInterface, error) {
			if err := f.repo.ReplaceHardwareSnapshot(snapshot()); err != nil {
				return nil, err
			}
			return f.repo.ListHardwareInterfaces(), nil
		})

		hw, err := f.svc.ListInterfaces(context.Background())
		require.NoError(t, err)
		assert.Len(t, hw, 2)

		// Second call is served from the snapshot.
		_, err = f.svc.ListInterfaces(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Refreshes.WithLabelValues("ok")))
	})

	t.Run("ProbeUnavailable", func(t *testing.T) {
		f := newFixture(t, false)
		f.probe.EXPECT().Refresh(gomock.Any()).
			Return(nil, &types.Error{Kind: types.KindProbeUnavailable, Op: "list links"})

		_, err := f.svc.ListInterfaces(context.Background())
		assert.ErrorIs(t, err, types.ErrProbeUnavailable)
	})
}

func TestService_Subscribe(t *testing.T) {
	f := newFixture(t, true)
	sub := f.svc.Subscribe()

	f.probe.EXPECT().Refresh(gomock.Any()).Return(nil, nil).Times(2)
	_, err := f.svc.Refresh(context.Background())
	require.NoError(t, err)

	_, err = f.svc.UpdateLogicInterface(context.Background(), types.UpdatePayload{
		OldName: "office", NewName: "lab", Method: "static", IP: "10.1.0.5", Mask: "255.255.0.0",
	})
	require.NoError(t, err)

	// Only the newest snapshot is kept for a slow consumer.
	select {
	case hw := <-sub.Updates():
		require.Len(t, hw, 2)
		assert.Equal(t, "lab", hw[0].LogicInterfaces[1].Name)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	_, err = f.svc.Refresh(context.Background())
	require.NoError(t, err)
	select {
	case hw := <-sub.Updates():
		assert.Len(t, hw, 2)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	sub.Close()
	sub.Close()
	_, ok := <-sub.Updates()
	assert.False(t, ok)
}

func TestService_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := repository.New()
	probe := mock.NewMockInterfaceProbe(ctrl)
	network := mock.NewMockNetworkManager(ctrl)
	svc := New(repo, probe, mock.NewMockConfigurationApplier(ctrl), network, nil, Options{Watch: true})

	changes := make(chan struct{}, 1)
	network.EXPECT().SubscribeChanges(gomock.Any()).Return((<-chan struct{})(changes), nil)

	refreshed := make(chan struct{}, 4)
	probe.EXPECT().Refresh(gomock.Any()).DoAndReturn(func(context.Context) ([]types.HardwareInterface, error) {
		refreshed <- struct{}{}
		return nil, nil
	}).MinTimes(2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	<-refreshed
	changes <- struct{}{}
	<-refreshed

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestService_EnsureDeclared(t *testing.T) {
	t.Run("AddsAndSkips", func(t *testing.T) {
		f := newFixture(t, true)
		lease := types.AddressConfig{Method: types.MethodDHCP, IP: "172.16.0.40", Mask: "255.255.255.0"}

		f.applier.EXPECT().Configure(gomock.Any(), port.ApplyRequest{Device: "wlan0", Desired: types.AddressConfig{Method: types.MethodDHCP}}).Return(nil)
		f.applier.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(lease, nil)

		err := f.svc.EnsureDeclared(context.Background(), map[string]types.AddressConfig{
			// Already in place on eth0.
			"eth0":  {Method: types.MethodStatic, IP: "10.1.0.5", Mask: "255.255.0.0"},
			"wlan0": {Method: types.MethodDHCP},
		})
		require.NoError(t, err)
		assert.Equal(t, lease, f.entry(t, DeclaredName("wlan0")).Config())
	})

	t.Run("RestartsDHCP", func(t *testing.T) {
		f := newFixture(t, true)
		f.applier.EXPECT().Configure(gomock.Any(), gomock.Any()).Return(nil)
		f.applier.EXPECT().Verify(gomock.Any(), gomock.Any()).DoAndReturn(echo)

		err := f.svc.EnsureDeclared(context.Background(), map[string]types.AddressConfig{
			"eth0": {Method: types.MethodDHCP},
		})
		require.NoError(t, err)
		assert.Equal(t, "a", f.entry(t, "eth0-static").ID)
	})

	t.Run("CollectsFailures", func(t *testing.T) {
		f := newFixture(t, true)
		f.applier.EXPECT().Configure(gomock.Any(), gomock.Any()).Return(nil)
		f.applier.EXPECT().Verify(gomock.Any(), gomock.Any()).DoAndReturn(echo)

		err := f.svc.EnsureDeclared(context.Background(), map[string]types.AddressConfig{
			"eth9":  {Method: types.MethodDHCP},
			"wlan0": {Method: types.MethodStatic, IP: "172.16.0.2", Mask: "255.255.255.0"},
			"eth0":  {Method: types.MethodStatic, IP: "10.1.0.5", Mask: "255.0.255.0"},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.ErrorIs(t, err, types.ErrInvalidMask)
		assert.Contains(t, err.Error(), "ensure eth9")

		f.entry(t, DeclaredName("wlan0"))
	})
}
