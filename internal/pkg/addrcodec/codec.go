// Package addrcodec converts between dotted-quad subnet masks and CIDR prefix
// lengths and validates IPv4 literals.
package addrcodec

import (
	"errors"
	"fmt"
	"math/bits"
	"net"
	"strconv"
	"strings"

	"netifmgr/internal/types"

	"github.com/apparentlymart/go-cidr/cidr"
)

// IsValidIPv4 reports whether s is four dot-separated decimal octets in [0,255].
func IsValidIPv4(s string) bool {
	_, ok := parseOctets(s)
	return ok
}

// MaskToPrefixLength counts the set bits of mask. Non-contiguous bit patterns are
// accepted; use IsContiguousMask to reject them.
func MaskToPrefixLength(mask string) (int, error) {
	v, ok := parseOctets(mask)
	if !ok {
		return 0, &types.Error{Kind: types.KindInvalidMask, Field: "mask", Value: mask}
	}
	return bits.OnesCount32(v), nil
}

// PrefixLengthToMask builds the dotted-quad mask for a prefix length in [0,32].
func PrefixLengthToMask(prefixLen int) (string, error) {
	if prefixLen < 0 || prefixLen > 32 {
		return "", &types.Error{Kind: types.KindInvalidPrefixLength, Field: "prefix", Value: strconv.Itoa(prefixLen)}
	}
	octets := make([]string, 4)
	remaining := prefixLen
	for i := range octets {
		n := min(remaining, 8)
		octets[i] = strconv.Itoa(256 - (1 << (8 - n)))
		remaining -= n
	}
	return strings.Join(octets, "."), nil
}

// LooksLikePrefixInput is an input-widget heuristic: "/24", "24" or "8" look like a
// prefix, anything with a dot does not. It is not a validation boundary.
func LooksLikePrefixInput(token string) bool {
	return strings.HasPrefix(token, "/") || (len(token) <= 2 && !strings.Contains(token, "."))
}

// IsContiguousMask reports whether mask is a valid dotted quad whose set bits form a
// single high-order run.
func IsContiguousMask(mask string) bool {
	v, ok := parseOctets(mask)
	if !ok {
		return false
	}
	return bits.LeadingZeros32(^v) == bits.OnesCount32(v)
}

// ParsePrefixInput parses "/24" or "24".
func ParsePrefixInput(token string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(token), "/"))
	if err != nil || n < 0 || n > 32 {
		return 0, &types.Error{Kind: types.KindInvalidPrefixLength, Field: "prefix", Value: token}
	}
	return n, nil
}

// FormatCIDR renders ip/mask as "10.0.0.5/24".
func FormatCIDR(ip, mask string) (string, error) {
	if !IsValidIPv4(ip) {
		return "", &types.Error{Kind: types.KindInvalidIPv4, Field: "ip", Value: ip}
	}
	prefix, err := MaskToPrefixLength(mask)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%d", ip, prefix), nil
}

// IPNet converts a validated ip/mask pair into a *net.IPNet.
func IPNet(ip, mask string) (*net.IPNet, error) {
	if !IsValidIPv4(ip) {
		return nil, &types.Error{Kind: types.KindInvalidIPv4, Field: "ip", Value: ip}
	}
	if !IsValidIPv4(mask) {
		return nil, &types.Error{Kind: types.KindInvalidMask, Field: "mask", Value: mask}
	}
	return &net.IPNet{
		IP:   net.ParseIP(ip).To4(),
		Mask: net.IPMask(net.ParseIP(mask).To4()),
	}, nil
}

// ValidateGateway checks that gw lies inside the ip/mask subnet, is not the address
// itself and, for prefixes shorter than /31, is neither the network nor the broadcast
// address.
func ValidateGateway(ip, mask, gw string) error {
	if !IsValidIPv4(gw) {
		return &types.Error{Kind: types.KindInvalidIPv4, Field: "gateway", Value: gw}
	}
	ipNet, err := IPNet(ip, mask)
	if err != nil {
		return err
	}
	gwIP := net.ParseIP(gw).To4()
	network := &net.IPNet{IP: ipNet.IP.Mask(ipNet.Mask), Mask: ipNet.Mask}

	if !network.Contains(gwIP) {
		return &types.Error{Kind: types.KindInvalidGateway, Field: "gateway", Value: gw,
			Err: fmt.Errorf("not within %s", network)}
	}
	if gwIP.Equal(ipNet.IP) {
		return &types.Error{Kind: types.KindInvalidGateway, Field: "gateway", Value: gw,
			Err: errors.New("gateway equals interface address")}
	}
	if ones, _ := network.Mask.Size(); ones < 31 {
		first, last := cidr.AddressRange(network)
		if gwIP.Equal(first) || gwIP.Equal(last) {
			return &types.Error{Kind: types.KindInvalidGateway, Field: "gateway", Value: gw,
				Err: fmt.Errorf("network or broadcast address of %s", network)}
		}
	}
	return nil
}

func parseOctets(s string) (uint32, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, false
	}
	var v uint32
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return 0, false
		}
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return 0, false
		}
		v = v<<8 | uint32(n)
	}
	return v, true
}
