//go:build unit

package addrcodec

import (
	"testing"

	"netifmgr/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidIPv4(t *testing.T) {
	for _, s := range []string{"0.0.0.0", "255.255.255.255", "192.168.1.1", "10.0.0.5"} {
		assert.True(t, IsValidIPv4(s), s)
	}
	for _, s := range []string{"256.1.1.1", "1.2.3", "1.2.3.4.5", "abc.1.1.1", "", "1..2.3", "-1.2.3.4", "1.2.3.4 ", "+1.2.3.4"} {
		assert.False(t, IsValidIPv4(s), s)
	}
}

func TestMaskToPrefixLength(t *testing.T) {
	t.Run("KnownMasks", func(t *testing.T) {
		for mask, want := range map[string]int{
			"255.255.255.0":   24,
			"255.255.255.255": 32,
			"0.0.0.0":         0,
			"255.255.240.0":   20,
		} {
			got, err := MaskToPrefixLength(mask)
			require.NoError(t, err)
			assert.Equal(t, want, got, mask)
		}
	})

	t.Run("NonContiguousCountsBits", func(t *testing.T) {
		got, err := MaskToPrefixLength("255.0.255.0")
		require.NoError(t, err)
		assert.Equal(t, 16, got)
	})

	t.Run("InvalidMask", func(t *testing.T) {
		_, err := MaskToPrefixLength("255.255.0")
		assert.ErrorIs(t, err, types.ErrInvalidMask)
	})
}

func TestPrefixLengthToMask(t *testing.T) {
	for p, want := range map[int]string{
		24: "255.255.255.0",
		0:  "0.0.0.0",
		32: "255.255.255.255",
		17: "255.255.128.0",
		1:  "128.0.0.0",
	} {
		got, err := PrefixLengthToMask(p)
		require.NoError(t, err)
		assert.Equal(t, want, got, p)
	}

	for _, p := range []int{33, -1} {
		_, err := PrefixLengthToMask(p)
		assert.ErrorIs(t, err, types.ErrInvalidPrefixLength, p)
	}
}

func TestPrefixRoundTrip(t *testing.T) {
	for p := 0; p <= 32; p++ {
		mask, err := PrefixLengthToMask(p)
		require.NoError(t, err)
		assert.True(t, IsContiguousMask(mask), mask)

		got, err := MaskToPrefixLength(mask)
		require.NoError(t, err)
		assert.Equal(t, p, got)

		back, err := PrefixLengthToMask(got)
		require.NoError(t, err)
		assert.Equal(t, mask, back)
	}
}

func TestNonCanonicalMaskRoundTrip(t *testing.T) {
	assert.False(t, IsContiguousMask("255.0.255.0"))
	p, err := MaskToPrefixLength("255.0.255.0")
	require.NoError(t, err)
	back, err := PrefixLengthToMask(p)
	require.NoError(t, err)
	assert.NotEqual(t, "255.0.255.0", back)
}

func TestLooksLikePrefixInput(t *testing.T) {
	for _, s := range []string{"/24", "24", "8", "/", ""} {
		assert.True(t, LooksLikePrefixInput(s), s)
	}
	for _, s := range []string{"255.255.255.0", "2.", "255"} {
		assert.False(t, LooksLikePrefixInput(s), s)
	}
}

func TestParsePrefixInput(t *testing.T) {
	p, err := ParsePrefixInput("/24")
	require.NoError(t, err)
	assert.Equal(t, 24, p)

	_, err = ParsePrefixInput("/40")
	assert.ErrorIs(t, err, types.ErrInvalidPrefixLength)
}

func TestFormatCIDR(t *testing.T) {
	s, err := FormatCIDR("10.0.0.5", "255.255.255.0")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5/24", s)

	_, err = FormatCIDR("10.0.0", "255.255.255.0")
	assert.ErrorIs(t, err, types.ErrInvalidIPv4)
}

func TestValidateGateway(t *testing.T) {
	t.Run("InsideSubnet", func(t *testing.T) {
		assert.NoError(t, ValidateGateway("10.0.0.5", "255.255.255.0", "10.0.0.1"))
	})

	t.Run("OutsideSubnet", func(t *testing.T) {
		err := ValidateGateway("10.0.0.5", "255.255.255.0", "10.0.1.1")
		assert.ErrorIs(t, err, types.ErrInvalidGateway)
	})

	t.Run("BroadcastAddress", func(t *testing.T) {
		err := ValidateGateway("10.0.0.5", "255.255.255.0", "10.0.0.255")
		assert.ErrorIs(t, err, types.ErrInvalidGateway)
	})

	t.Run("SameAsAddress", func(t *testing.T) {
		err := ValidateGateway("10.0.0.5", "255.255.255.0", "10.0.0.5")
		assert.ErrorIs(t, err, types.ErrInvalidGateway)
	})

	t.Run("PointToPoint", func(t *testing.T) {
		assert.NoError(t, ValidateGateway("10.0.0.0", "255.255.255.254", "10.0.0.1"))
	})

	t.Run("MalformedGateway", func(t *testing.T) {
		err := ValidateGateway("10.0.0.5", "255.255.255.0", "10.0.0")
		assert.ErrorIs(t, err, types.ErrInvalidIPv4)
	})
}
