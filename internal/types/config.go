// Package types defines common types used across the application.
package types

import (
	"fmt"
	"strings"
)

// Method is the addressing mode of a logical interface.
type Method string

const (
	MethodStatic Method = "static"
	MethodDHCP   Method = "dhcp"
)

// ParseMethod accepts "static", "manual" and "dhcp" in any case.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static", "manual":
		return MethodStatic, nil
	case "dhcp":
		return MethodDHCP, nil
	}
	return "", &Error{Kind: KindInvalidMethod, Field: "method", Value: s}
}

// AddressConfig is one IPv4 addressing configuration as pushed to, or observed on, a device.
type AddressConfig struct {
	Method  Method `yaml:"method" json:"method"`
	IP      string `yaml:"ip" json:"ip"`           // dotted decimal (e.g., "192.168.1.100")
	Mask    string `yaml:"netmask" json:"mask"`    // dotted decimal (e.g., "255.255.255.0")
	Gateway string `yaml:"gateway" json:"gateway"` // optional
}

// String renders the config as "static 10.0.0.5/255.255.255.0 via 10.0.0.1".
func (c AddressConfig) String() string {
	var b strings.Builder
	b.WriteString(string(c.Method))
	if c.IP != "" {
		fmt.Fprintf(&b, " %s/%s", c.IP, c.Mask)
	}
	if c.Gateway != "" {
		fmt.Fprintf(&b, " via %s", c.Gateway)
	}
	return b.String()
}

// Equal reports whether two configs would produce the same OS state.
func (c AddressConfig) Equal(o AddressConfig) bool {
	if c.Method != o.Method {
		return false
	}
	if c.Method == MethodDHCP {
		return true
	}
	return c.IP == o.IP && c.Mask == o.Mask && c.Gateway == o.Gateway
}

// ObservedAddress is one IPv4 address read back from a device.
type ObservedAddress struct {
	IP     string
	Mask   string
	Method Method
}

// DeviceState is the live state of a single device as read from the OS.
type DeviceState struct {
	Name      string
	Device    string
	Mac       string
	IsActive  bool
	Gateway   string
	Addresses []ObservedAddress
}

// HasAddress reports whether ip/mask is configured on the device.
func (s DeviceState) HasAddress(ip, mask string) bool {
	_, ok := s.Address(ip, mask)
	return ok
}

// Address returns the observed ip/mask address.
func (s DeviceState) Address(ip, mask string) (ObservedAddress, bool) {
	for _, a := range s.Addresses {
		if a.IP == ip && a.Mask == mask {
			return a, true
		}
	}
	return ObservedAddress{}, false
}

// Dynamic returns the first lease-obtained address, if any.
func (s DeviceState) Dynamic() (ObservedAddress, bool) {
	for _, a := range s.Addresses {
		if a.Method == MethodDHCP {
			return a, true
		}
	}
	return ObservedAddress{}, false
}
