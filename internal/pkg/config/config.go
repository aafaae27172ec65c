package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"netifmgr/internal/pkg/addrcodec"
	"netifmgr/internal/pkg/logging"
	"netifmgr/internal/types"

	"gopkg.in/yaml.v3"
)

// InterfaceConfig represents the declared configuration for a network interface
type InterfaceConfig struct {
	DHCP   bool          `yaml:"dhcp,omitempty"`
	Static *StaticConfig `yaml:"static,omitempty"`
}

// StaticConfig represents static IP configuration
type StaticConfig struct {
	IP      string `yaml:"ip"`
	Netmask string `yaml:"netmask"`
	Gateway string `yaml:"gateway"`
}

// ProbeConfig controls interface discovery
type ProbeConfig struct {
	Staleness       time.Duration `yaml:"staleness"`
	Interval        time.Duration `yaml:"interval"`
	Watch           bool          `yaml:"watch"`
	IncludeLoopback bool          `yaml:"include_loopback"`
	Exclude         []string      `yaml:"exclude"`
}

// ApplyConfig controls how configuration changes are verified
type ApplyConfig struct {
	VerifyTimeout  time.Duration `yaml:"verify_timeout"`
	VerifyInterval time.Duration `yaml:"verify_interval"`
	PingGateway    bool          `yaml:"ping_gateway"`
}

// DHCPConfig controls the built-in DHCP client
type DHCPConfig struct {
	LeaseTimeout time.Duration `yaml:"lease_timeout"`
	Retries      int           `yaml:"retries"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	ResolvConf   string        `yaml:"resolv_conf"`
}

// APIConfig controls the HTTP endpoint
type APIConfig struct {
	Listen string `yaml:"listen"`
}

// Config represents the main configuration structure
type Config struct {
	Logging    logging.LogConfig          `yaml:"logging"`
	Probe      ProbeConfig                `yaml:"probe"`
	Apply      ApplyConfig                `yaml:"apply"`
	DHCP       DHCPConfig                 `yaml:"dhcp"`
	API        APIConfig                  `yaml:"api"`
	Interfaces map[string]InterfaceConfig `yaml:"interfaces"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: logging.LogConfig{Level: "info", Format: "simple"},
		Probe: ProbeConfig{
			Staleness: 5 * time.Second,
			Interval:  time.Second,
			Watch:     true,
		},
		Apply: ApplyConfig{
			VerifyTimeout:  10 * time.Second,
			VerifyInterval: 250 * time.Millisecond,
		},
		DHCP: DHCPConfig{
			LeaseTimeout: 15 * time.Second,
			Retries:      3,
			RetryDelay:   2 * time.Second,
			ResolvConf:   "/etc/resolv.conf",
		},
		API: APIConfig{Listen: "127.0.0.1:8740"},
	}
}

// Load loads configuration from a YAML file on top of Default.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	return config, nil
}

// Excluded reports whether a device name matches one of the probe exclude patterns.
func (c *Config) Excluded(device string) bool {
	for _, pattern := range c.Probe.Exclude {
		if ok, _ := filepath.Match(pattern, device); ok {
			return true
		}
	}
	return false
}

// Declared returns the declared interfaces as address configurations keyed by device.
func (c *Config) Declared() map[string]types.AddressConfig {
	out := make(map[string]types.AddressConfig, len(c.Interfaces))
	for name, iface := range c.Interfaces {
		if iface.DHCP {
			out[name] = types.AddressConfig{Method: types.MethodDHCP}
			continue
		}
		if iface.Static != nil {
			out[name] = types.AddressConfig{
				Method:  types.MethodStatic,
				IP:      iface.Static.IP,
				Mask:    iface.Static.Netmask,
				Gateway: iface.Static.Gateway,
			}
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Apply.VerifyTimeout <= 0 {
		return fmt.Errorf("apply.verify_timeout must be positive")
	}
	if c.Apply.VerifyInterval <= 0 || c.Apply.VerifyInterval > c.Apply.VerifyTimeout {
		return fmt.Errorf("apply.verify_interval must be positive and not exceed apply.verify_timeout")
	}
	if c.Probe.Staleness < 0 || c.Probe.Interval < 0 {
		return fmt.Errorf("probe.staleness and probe.interval must not be negative")
	}
	if c.DHCP.Retries < 1 {
		return fmt.Errorf("dhcp.retries must be at least 1")
	}
	for _, pattern := range c.Probe.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("probe.exclude: invalid pattern %q: %w", pattern, err)
		}
	}

	for name, iface := range c.Interfaces {
		if !iface.DHCP && iface.Static == nil {
			return fmt.Errorf("interface %s: must specify either dhcp or static configuration", name)
		}
		if iface.DHCP && iface.Static != nil {
			return fmt.Errorf("interface %s: cannot specify both dhcp and static configuration", name)
		}
		if iface.Static != nil {
			if err := validateStaticConfig(name, iface.Static); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateStaticConfig(interfaceName string, static *StaticConfig) error {
	if static.IP == "" {
		return fmt.Errorf("interface %s: static IP address is required", interfaceName)
	}
	if static.Netmask == "" {
		return fmt.Errorf("interface %s: static netmask is required", interfaceName)
	}
	if !addrcodec.IsValidIPv4(static.IP) {
		return fmt.Errorf("interface %s: invalid static IP address %q", interfaceName, static.IP)
	}
	if !addrcodec.IsContiguousMask(static.Netmask) {
		return fmt.Errorf("interface %s: invalid static netmask %q", interfaceName, static.Netmask)
	}
	if static.Gateway != "" {
		if err := addrcodec.ValidateGateway(static.IP, static.Netmask, static.Gateway); err != nil {
			return fmt.Errorf("interface %s: %w", interfaceName, err)
		}
	}
	return nil
}
