// Package probe discovers hardware interfaces and their addressing from the OS.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"

	"netifmgr/internal/core/repository"
	"netifmgr/internal/pkg/logging"
	"netifmgr/internal/port"
	"netifmgr/internal/types"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// Options select which links are reported.
type Options struct {
	IncludeLoopback bool
	// Exclude reports devices to skip; nil skips none.
	Exclude func(device string) bool
}

// Probe implements the InterfaceProbe port on top of the NetworkManager port.
type Probe struct {
	networkMgr port.NetworkManager
	inspector  port.LinkInspector
	repo       *repository.Repository
	opts       Options
}

// Ensure Probe implements the InterfaceProbe port
var _ port.InterfaceProbe = (*Probe)(nil)

// New creates a probe. inspector may be nil, in which case carrier comes from the
// netlink operational state.
func New(networkMgr port.NetworkManager, inspector port.LinkInspector, repo *repository.Repository, opts Options) *Probe {
	return &Probe{
		networkMgr: networkMgr,
		inspector:  inspector,
		repo:       repo,
		opts:       opts,
	}
}

// Refresh enumerates devices, merges them with the current model and replaces the
// repository snapshot. It fails with ProbeUnavailable only when the link list itself
// cannot be read; per-device read failures keep the device's previous entries.
func (p *Probe) Refresh(ctx context.Context) ([]types.HardwareInterface, error) {
	logger := logging.WithComponent("probe")

	if err := ctx.Err(); err != nil {
		return nil, &types.Error{Kind: types.KindTimeout, Op: "refresh", Err: err}
	}

	links, err := p.networkMgr.ListLinks()
	if err != nil {
		return nil, &types.Error{Kind: types.KindProbeUnavailable, Op: "refresh", Err: err}
	}

	previous := make(map[string]types.HardwareInterface)
	for _, h := range p.repo.ListHardwareInterfaces() {
		previous[h.Device] = h
	}

	var set []types.HardwareInterface
	for _, link := range links {
		if !p.wanted(link) {
			continue
		}
		device := link.Attrs().Name
		prev, known := previous[device]

		state, err := p.observeLink(link)
		if err != nil {
			logger.WithError(err).WithField("device", device).Warn("Failed to read device state, keeping previous entries")
			hw := hardwareFrom(link, prev.IsActive)
			hw.LogicInterfaces = prev.LogicInterfaces
			set = append(set, hw)
			continue
		}

		hw := hardwareFrom(link, state.IsActive)
		hw.LogicInterfaces = merge(prev.LogicInterfaces, state)
		if !known {
			logger.WithField("device", device).Info("Discovered interface")
		}
		set = append(set, hw)
	}

	nameNewEntries(set)

	if err := p.repo.ReplaceHardwareSnapshot(set); err != nil {
		return nil, fmt.Errorf("failed to replace snapshot: %w", err)
	}

	logger.WithField("devices", len(set)).Debug("Refreshed interfaces")
	return p.repo.ListHardwareInterfaces(), nil
}

// Observe reads the live state of one device.
func (p *Probe) Observe(ctx context.Context, device string) (types.DeviceState, error) {
	if err := ctx.Err(); err != nil {
		return types.DeviceState{}, &types.Error{Kind: types.KindTimeout, Op: "observe", Device: device, Err: err}
	}

	link, err := p.networkMgr.GetLinkByName(device)
	if err != nil {
		var notFound netlink.LinkNotFoundError
		if errors.As(err, &notFound) {
			return types.DeviceState{}, &types.Error{Kind: types.KindNotFound, Op: "observe", Device: device, Field: "device", Value: device, Err: err}
		}
		return types.DeviceState{}, &types.Error{Kind: types.KindProbeUnavailable, Op: "observe", Device: device, Err: err}
	}

	state, err := p.observeLink(link)
	if err != nil {
		return types.DeviceState{}, &types.Error{Kind: types.KindProbeUnavailable, Op: "observe", Device: device, Err: err}
	}
	return state, nil
}

func (p *Probe) wanted(link netlink.Link) bool {
	attrs := link.Attrs()
	if !p.opts.IncludeLoopback && attrs.Flags&net.FlagLoopback != 0 {
		return false
	}
	if p.opts.Exclude != nil && p.opts.Exclude(attrs.Name) {
		return false
	}
	return true
}

func (p *Probe) observeLink(link netlink.Link) (types.DeviceState, error) {
	attrs := link.Attrs()
	state := types.DeviceState{
		Name:     displayName(attrs),
		Device:   attrs.Name,
		Mac:      attrs.HardwareAddr.String(),
		IsActive: attrs.Flags&net.FlagUp != 0 && p.carrier(attrs),
	}

	addrs, err := p.networkMgr.ListAddresses(link)
	if err != nil {
		return state, err
	}
	for _, a := range addrs {
		ip := a.IPNet.IP.To4()
		if ip == nil {
			continue
		}
		method := types.MethodStatic
		if a.Flags&unix.IFA_F_PERMANENT == 0 {
			method = types.MethodDHCP
		}
		state.Addresses = append(state.Addresses, types.ObservedAddress{
			IP:     ip.String(),
			Mask:   net.IP(a.IPNet.Mask).String(),
			Method: method,
		})
	}

	routes, err := p.networkMgr.ListRoutes(link)
	if err != nil {
		return state, err
	}
	for _, r := range routes {
		if (r.Dst == nil || r.Dst.String() == "0.0.0.0/0") && r.Gw != nil {
			state.Gateway = r.Gw.String()
			break
		}
	}
	return state, nil
}

func (p *Probe) carrier(attrs *netlink.LinkAttrs) bool {
	if p.inspector != nil {
		up, err := p.inspector.Carrier(attrs.Name)
		if err == nil {
			return up
		}
		logging.WithComponentAndDevice("probe", attrs.Name).WithError(err).Debug("Carrier unavailable, using operational state")
	}
	// Virtual links without carrier reporting stay in "unknown".
	return attrs.OperState == netlink.OperUp || attrs.OperState == netlink.OperUnknown
}

func hardwareFrom(link netlink.Link, active bool) types.HardwareInterface {
	attrs := link.Attrs()
	return types.HardwareInterface{
		Name:     displayName(attrs),
		Device:   attrs.Name,
		Mac:      attrs.HardwareAddr.String(),
		IsActive: active,
	}
}

func displayName(attrs *netlink.LinkAttrs) string {
	if attrs.Alias != "" {
		return attrs.Alias
	}
	return attrs.Name
}

// merge maps observed addresses onto the previous entries of a device. A previous entry
// keeps its id, name and method when its ip and mask are still present. A lease address
// with no matching entry is claimed by the device's pending DHCP entry. DHCP entries that
// match nothing are kept with empty lease values. New entries carry no id or name.
func merge(prev []types.LogicInterface, state types.DeviceState) []types.LogicInterface {
	var out []types.LogicInterface
	claimed := make([]bool, len(state.Addresses))

	matchAddress := func(ip, mask string) int {
		for i, a := range state.Addresses {
			if !claimed[i] && a.IP == ip && a.Mask == mask {
				return i
			}
		}
		return -1
	}

	var pending []int
	for _, l := range prev {
		if l.IP != "" {
			if i := matchAddress(l.IP, l.Mask); i >= 0 {
				claimed[i] = true
				l.Gateway = gatewayFor(l.IP, l.Mask, state.Gateway)
				out = append(out, l)
				continue
			}
		}
		if l.Method == types.MethodDHCP {
			l.IP, l.Mask, l.Gateway = "", "", ""
			pending = append(pending, len(out))
			out = append(out, l)
		}
	}

	for i, a := range state.Addresses {
		if claimed[i] {
			continue
		}
		gw := gatewayFor(a.IP, a.Mask, state.Gateway)
		if a.Method == types.MethodDHCP && len(pending) > 0 {
			idx := pending[0]
			pending = pending[1:]
			out[idx].IP, out[idx].Mask, out[idx].Gateway = a.IP, a.Mask, gw
			continue
		}
		out = append(out, types.LogicInterface{
			Device:  state.Device,
			IP:      a.IP,
			Mask:    a.Mask,
			Gateway: gw,
			Method:  a.Method,
		})
	}
	return out
}

// gatewayFor returns gw when it lies inside ip/mask.
func gatewayFor(ip, mask, gw string) string {
	if gw == "" {
		return ""
	}
	addr := net.ParseIP(ip).To4()
	m := net.ParseIP(mask).To4()
	g := net.ParseIP(gw).To4()
	if addr == nil || m == nil || g == nil {
		return ""
	}
	network := &net.IPNet{IP: addr.Mask(net.IPMask(m)), Mask: net.IPMask(m)}
	if network.Contains(g) {
		return gw
	}
	return ""
}

// nameNewEntries gives unnamed entries a name of the form <device>-<method>[-n] that is
// unique across the set.
func nameNewEntries(set []types.HardwareInterface) {
	taken := make(map[string]struct{})
	for _, h := range set {
		for _, l := range h.LogicInterfaces {
			if l.Name != "" {
				taken[l.Name] = struct{}{}
			}
		}
	}
	for i := range set {
		for j := range set[i].LogicInterfaces {
			l := &set[i].LogicInterfaces[j]
			if l.Name != "" {
				continue
			}
			base := fmt.Sprintf("%s-%s", set[i].Device, l.Method)
			name := base
			for n := 2; ; n++ {
				if _, used := taken[name]; !used {
					break
				}
				name = fmt.Sprintf("%s-%d", base, n)
			}
			taken[name] = struct{}{}
			l.Name = name
		}
	}
}
