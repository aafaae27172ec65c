//go:build unit

package cmd

import (
	"bytes"
	"strings"
	"testing"

	"netifmgr/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMask(t *testing.T) {
	tests := []struct {
		input string
		want  string
		kind  types.Kind
	}{
		{input: "255.255.255.0", want: "/24\n"},
		{input: "0.0.0.0", want: "/0\n"},
		{input: "255.255.255.255", want: "/32\n"},
		{input: "/24", want: "255.255.255.0\n"},
		{input: "16", want: "255.255.0.0\n"},
		{input: "255.0.255.0", want: "/16 (non-contiguous mask, not usable on an interface)\n"},
		{input: "/33", kind: types.KindInvalidPrefixLength},
		{input: "255.255.256.0", kind: types.KindInvalidMask},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out bytes.Buffer
			err := convertMask(&out, tt.input)
			if tt.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.kind, types.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestNormalizeMask(t *testing.T) {
	mask, err := normalizeMask("/20")
	require.NoError(t, err)
	assert.Equal(t, "255.255.240.0", mask)

	mask, err = normalizeMask("255.255.255.0")
	require.NoError(t, err)
	assert.Equal(t, "255.255.255.0", mask)

	_, err = normalizeMask("/40")
	assert.ErrorIs(t, err, types.ErrInvalidPrefixLength)
}

func TestRenderInterfaces(t *testing.T) {
	hw := []types.HardwareInterface{
		{Name: "Ethernet", Device: "eth0", Mac: "00:11:22:33:44:55", IsActive: true, LogicInterfaces: []types.LogicInterface{
			{ID: "a", Name: "office", Device: "eth0", IP: "10.0.0.5", Mask: "255.255.255.0", Gateway: "10.0.0.1", Method: types.MethodStatic},
		}},
		{Name: "Wi-Fi", Device: "wlan0", Mac: "66:77:88:99:aa:bb"},
	}

	t.Run("Table", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, renderInterfaces(&out, hw, "table"))
		assert.Contains(t, out.String(), "10.0.0.5/24")
		assert.Contains(t, out.String(), "wlan0")
	})

	t.Run("JSON", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, renderInterfaces(&out, hw, "json"))
		assert.True(t, strings.HasPrefix(out.String(), "["))
		assert.Contains(t, out.String(), `"isActive": true`)
	})
}

func TestAddressFlags(t *testing.T) {
	reset := func() { dhcpFlag, ipFlag, maskFlag, gatewayFlag = false, "", "", "" }
	t.Cleanup(reset)

	reset()
	dhcpFlag = true
	method, _, _, _, err := addressFlags()
	require.NoError(t, err)
	assert.Equal(t, "dhcp", method)

	ipFlag = "10.0.0.5"
	_, _, _, _, err = addressFlags()
	assert.Error(t, err)

	reset()
	ipFlag, maskFlag = "10.0.0.5", "/24"
	method, ip, mask, _, err := addressFlags()
	require.NoError(t, err)
	assert.Equal(t, "static", method)
	assert.Equal(t, "10.0.0.5", ip)
	assert.Equal(t, "255.255.255.0", mask)

	reset()
	ipFlag = "10.0.0.5"
	_, _, _, _, err = addressFlags()
	assert.Error(t, err)
}
