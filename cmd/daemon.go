package cmd

import (
	"time"

	"netifmgr/internal/adapter/dhcp"
	infraDhcp "netifmgr/internal/adapter/infrastructure/dhcp"
	"netifmgr/internal/adapter/infrastructure/ethtool"
	"netifmgr/internal/adapter/infrastructure/file"
	"netifmgr/internal/adapter/infrastructure/network"
	"netifmgr/internal/adapter/infrastructure/ping"
	"netifmgr/internal/adapter/static"
	"netifmgr/internal/core/applier"
	"netifmgr/internal/core/probe"
	"netifmgr/internal/core/repository"
	"netifmgr/internal/core/service"
	"netifmgr/internal/metrics"
	"netifmgr/internal/pkg/config"
	"netifmgr/internal/pkg/logging"
)

const (
	pingCount   = 3
	pingTimeout = 2 * time.Second
)

// daemon is the fully wired service plus the resources it holds.
type daemon struct {
	service *service.Service
	metrics *metrics.Registry
	closers []func()
}

// newDaemon builds the adapters and core components from cfg. A non-empty netnsPath binds
// netlink to that network namespace.
func newDaemon(cfg *config.Config, netnsPath string) (*daemon, error) {
	logger := logging.GetLogger()
	d := &daemon{metrics: metrics.New()}

	networkMgr := network.NewManagerAdapter()
	if netnsPath != "" {
		nsMgr, err := network.NewManagerAdapterForPath(netnsPath)
		if err != nil {
			return nil, err
		}
		networkMgr = nsMgr
		logger.WithField("netns", netnsPath).Warn("Netlink bound to namespace; the DHCP client still uses the process namespace")
	}
	d.closers = append(d.closers, networkMgr.Close)

	inspector := ethtool.NewInspectorAdapter()
	d.closers = append(d.closers, inspector.Close)

	leases := dhcp.NewManager(infraDhcp.NewClientAdapter(), networkMgr, file.NewManagerAdapter(), dhcp.Options{
		LeaseTimeout: cfg.DHCP.LeaseTimeout,
		Retries:      cfg.DHCP.Retries,
		RetryDelay:   cfg.DHCP.RetryDelay,
		ResolvConf:   cfg.DHCP.ResolvConf,
	})
	d.closers = append(d.closers, leases.Close)

	repo := repository.New()
	prober := probe.New(networkMgr, inspector, repo, probe.Options{
		IncludeLoopback: cfg.Probe.IncludeLoopback,
		Exclude:         cfg.Excluded,
	})
	configApplier := applier.New(prober, leases, static.NewManager(networkMgr),
		ping.NewProberAdapter(pingCount, pingTimeout, true), applier.Options{
			VerifyTimeout:  cfg.Apply.VerifyTimeout,
			VerifyInterval: cfg.Apply.VerifyInterval,
			PingGateway:    cfg.Apply.PingGateway,
		})

	d.service = service.New(repo, prober, configApplier, networkMgr, d.metrics, service.Options{
		Staleness: cfg.Probe.Staleness,
		Interval:  cfg.Probe.Interval,
		Watch:     cfg.Probe.Watch,
	})
	return d, nil
}

// Close releases resources in reverse order of acquisition.
func (d *daemon) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}
