//go:build integration
// +build integration

package test

import (
	"context"
	"net"
	"os"
	"runtime"
	"testing"
	"time"

	"netifmgr/internal/adapter/dhcp"
	infraDhcp "netifmgr/internal/adapter/infrastructure/dhcp"
	"netifmgr/internal/adapter/infrastructure/file"
	"netifmgr/internal/adapter/infrastructure/network"
	"netifmgr/internal/adapter/infrastructure/ping"
	"netifmgr/internal/adapter/static"
	"netifmgr/internal/core/applier"
	"netifmgr/internal/core/probe"
	"netifmgr/internal/core/repository"
	"netifmgr/internal/core/service"
	"netifmgr/internal/metrics"
	"netifmgr/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
)

const testLink = "nim0"

// scratchNamespace creates a network namespace holding one dummy link and returns a
// netlink handle inside it.
func scratchNamespace(t *testing.T) (netns.NsHandle, *netlink.Handle) {
	t.Helper()
	if os.Geteuid() != 0 {
		t.Skip("network namespace tests need root")
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origin, err := netns.Get()
	require.NoError(t, err)
	defer origin.Close()

	ns, err := netns.New()
	require.NoError(t, err)
	require.NoError(t, netns.Set(origin))
	t.Cleanup(func() { ns.Close() })

	h, err := netlink.NewHandleAt(ns)
	require.NoError(t, err)
	t.Cleanup(h.Close)

	require.NoError(t, h.LinkAdd(&netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: testLink}}))
	link, err := h.LinkByName(testLink)
	require.NoError(t, err)
	require.NoError(t, h.LinkSetUp(link))
	return ns, h
}

func newService(t *testing.T, ns netns.NsHandle) *service.Service {
	t.Helper()

	networkMgr, err := network.NewManagerAdapterAt(ns)
	require.NoError(t, err)
	t.Cleanup(networkMgr.Close)

	leases := dhcp.NewManager(infraDhcp.NewClientAdapter(), networkMgr, file.NewManagerAdapter(), dhcp.Options{
		LeaseTimeout: time.Second,
		Retries:      1,
	})
	t.Cleanup(leases.Close)

	repo := repository.New()
	prober := probe.New(networkMgr, nil, repo, probe.Options{})
	configApplier := applier.New(prober, leases, static.NewManager(networkMgr),
		ping.NewProberAdapter(1, time.Second, true), applier.Options{
			VerifyTimeout:  3 * time.Second,
			VerifyInterval: 50 * time.Millisecond,
		})
	return service.New(repo, prober, configApplier, networkMgr, metrics.New(), service.Options{Staleness: time.Minute})
}

func addresses(t *testing.T, h *netlink.Handle) []string {
	t.Helper()
	link, err := h.LinkByName(testLink)
	require.NoError(t, err)
	addrs, err := h.AddrList(link, unix.AF_INET)
	require.NoError(t, err)

	var out []string
	for _, a := range addrs {
		out = append(out, a.IPNet.String())
	}
	return out
}

func defaultGateway(t *testing.T, h *netlink.Handle) string {
	t.Helper()
	link, err := h.LinkByName(testLink)
	require.NoError(t, err)
	routes, err := h.RouteList(link, unix.AF_INET)
	require.NoError(t, err)
	for _, r := range routes {
		if r.Dst == nil || (r.Dst.IP.Equal(net.IPv4zero) && r.Dst.Mask.String() == "00000000") {
			if r.Gw != nil {
				return r.Gw.String()
			}
		}
	}
	return ""
}

func TestStaticLifecycle(t *testing.T) {
	ns, h := scratchNamespace(t)
	svc := newService(t, ns)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hw, err := svc.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, hw, 1)
	assert.Equal(t, testLink, hw[0].Device)
	assert.Empty(t, hw[0].LogicInterfaces)

	t.Run("Add", func(t *testing.T) {
		created, err := svc.AddLogicInterface(ctx, types.AddPayload{
			Device: testLink, Name: "lab", Method: "static", IP: "10.10.0.5", Mask: "255.255.255.0", Gateway: "10.10.0.1",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)

		assert.Equal(t, []string{"10.10.0.5/24"}, addresses(t, h))
		assert.Equal(t, "10.10.0.1", defaultGateway(t, h))
	})

	t.Run("UpdateReplacesAddress", func(t *testing.T) {
		updated, err := svc.UpdateLogicInterface(ctx, types.UpdatePayload{
			OldName: "lab", NewName: "lab2", Method: "static", IP: "10.10.0.6", Mask: "255.255.255.0", Gateway: "10.10.0.1",
		})
		require.NoError(t, err)
		assert.Equal(t, "lab2", updated.Name)
		assert.Equal(t, []string{"10.10.0.6/24"}, addresses(t, h))
	})

	t.Run("InvalidGatewayLeavesState", func(t *testing.T) {
		_, err := svc.UpdateLogicInterface(ctx, types.UpdatePayload{
			OldName: "lab2", Method: "static", IP: "10.10.0.7", Mask: "255.255.255.0", Gateway: "10.20.0.1",
		})
		assert.ErrorIs(t, err, types.ErrInvalidGateway)
		assert.Equal(t, []string{"10.10.0.6/24"}, addresses(t, h))

		hw, err := svc.ListInterfaces(ctx)
		require.NoError(t, err)
		require.Len(t, hw[0].LogicInterfaces, 1)
		assert.Equal(t, "10.10.0.6", hw[0].LogicInterfaces[0].IP)
	})

	t.Run("RefreshKeepsIdentity", func(t *testing.T) {
		before, err := svc.ListInterfaces(ctx)
		require.NoError(t, err)
		after, err := svc.Refresh(ctx)
		require.NoError(t, err)
		require.Len(t, after[0].LogicInterfaces, 1)
		assert.Equal(t, before[0].LogicInterfaces[0].ID, after[0].LogicInterfaces[0].ID)
		assert.Equal(t, "lab2", after[0].LogicInterfaces[0].Name)
		assert.Equal(t, types.MethodStatic, after[0].LogicInterfaces[0].Method)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, svc.RemoveLogicInterface(ctx, "lab2"))
		assert.Empty(t, addresses(t, h))

		hw, err := svc.ListInterfaces(ctx)
		require.NoError(t, err)
		assert.Empty(t, hw[0].LogicInterfaces)
	})
}

func TestExternalChangeIsObserved(t *testing.T) {
	ns, h := scratchNamespace(t)
	svc := newService(t, ns)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	link, err := h.LinkByName(testLink)
	require.NoError(t, err)
	addr, err := netlink.ParseAddr("172.31.0.9/16")
	require.NoError(t, err)
	require.NoError(t, h.AddrAdd(link, addr))

	hw, err := svc.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, hw[0].LogicInterfaces, 1)

	l := hw[0].LogicInterfaces[0]
	assert.Equal(t, "172.31.0.9", l.IP)
	assert.Equal(t, "255.255.0.0", l.Mask)
	assert.Equal(t, types.MethodStatic, l.Method)
	assert.Equal(t, testLink+"-static", l.Name)
}
