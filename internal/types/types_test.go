//go:build unit

package types

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUpdatePayload(t *testing.T) {
	t.Run("ValidPayload", func(t *testing.T) {
		p, err := DecodeUpdatePayload(strings.NewReader(`{"oldName":"eth0-static","newName":"lan","method":"static","ip":"10.0.0.5","mask":"255.255.255.0","gateway":"10.0.0.1"}`))
		require.NoError(t, err)
		assert.Equal(t, UpdatePayload{
			OldName: "eth0-static",
			NewName: "lan",
			Method:  "static",
			IP:      "10.0.0.5",
			Mask:    "255.255.255.0",
			Gateway: "10.0.0.1",
		}, p)
	})

	t.Run("OptionalFieldsOmitted", func(t *testing.T) {
		p, err := DecodeUpdatePayload(strings.NewReader(`{"oldName":"wan","method":"DHCP"}`))
		require.NoError(t, err)
		assert.Equal(t, "wan", p.OldName)
		assert.Empty(t, p.NewName)
		assert.Empty(t, p.IP)
	})

	t.Run("MissingOldName", func(t *testing.T) {
		_, err := DecodeUpdatePayload(strings.NewReader(`{"method":"dhcp"}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidPayload)
		assert.Contains(t, err.Error(), "oldName")
	})

	t.Run("UnknownField", func(t *testing.T) {
		_, err := DecodeUpdatePayload(strings.NewReader(`{"oldName":"a","method":"dhcp","dns":"1.1.1.1"}`))
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("WrongFieldType", func(t *testing.T) {
		_, err := DecodeUpdatePayload(strings.NewReader(`{"oldName":"a","method":"static","ip":10}`))
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("TrailingData", func(t *testing.T) {
		_, err := DecodeUpdatePayload(strings.NewReader(`{"oldName":"a","method":"dhcp"} {}`))
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})
}

func TestDecodeAddPayload(t *testing.T) {
	t.Run("DeviceFromBody", func(t *testing.T) {
		p, err := DecodeAddPayload(strings.NewReader(`{"device":"eth1","name":"lab","method":"dhcp"}`), "")
		require.NoError(t, err)
		assert.Equal(t, "eth1", p.Device)
		assert.Equal(t, "lab", p.Name)
	})

	t.Run("DeviceOutOfBand", func(t *testing.T) {
		p, err := DecodeAddPayload(strings.NewReader(`{"name":"lab","method":"dhcp"}`), "eth2")
		require.NoError(t, err)
		assert.Equal(t, "eth2", p.Device)
	})

	t.Run("DeviceMismatch", func(t *testing.T) {
		_, err := DecodeAddPayload(strings.NewReader(`{"device":"eth1","name":"lab","method":"dhcp"}`), "eth2")
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("MissingDevice", func(t *testing.T) {
		_, err := DecodeAddPayload(strings.NewReader(`{"name":"lab","method":"dhcp"}`), "")
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})
}

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{
		"static": MethodStatic,
		"Manual": MethodStatic,
		"DHCP":   MethodDHCP,
		" dhcp ": MethodDHCP,
	} {
		got, err := ParseMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMethod("bootp")
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestErrorKinds(t *testing.T) {
	t.Run("IsMatchesKind", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", &Error{Kind: KindNotFound, Field: "name", Value: "eth9"})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrConflict)
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("PartialApplyUnwrapsOSError", func(t *testing.T) {
		err := &PartialApplyError{
			Device:     "eth0",
			Attempted:  AddressConfig{Method: MethodStatic, IP: "10.0.0.5", Mask: "255.255.255.0", Gateway: "10.0.0.1"},
			Completed:  []string{"add-address"},
			FailedStep: "set-gateway",
			Err:        os.ErrPermission,
		}
		assert.ErrorIs(t, err, ErrPartialApplyFailure)
		assert.True(t, errors.Is(err, os.ErrPermission))
		assert.Equal(t, KindPartialApplyFailure, KindOf(err))
		assert.Contains(t, err.Error(), "last known good none")
	})

	t.Run("VerificationDiff", func(t *testing.T) {
		err := &VerificationError{
			Device:  "eth0",
			Desired: AddressConfig{Method: MethodStatic, IP: "10.0.0.5", Mask: "255.255.255.0"},
			Observed: DeviceState{
				Device:    "eth0",
				Addresses: []ObservedAddress{{IP: "10.0.0.9", Mask: "255.255.255.0", Method: MethodStatic}},
			},
			Reason: "address not present",
		}
		assert.ErrorIs(t, err, ErrApplyVerificationFailed)
		diff := err.Diff()
		assert.Contains(t, diff, "-address: 10.0.0.5/255.255.255.0")
		assert.Contains(t, diff, "+address: 10.0.0.9/255.255.255.0")
	})
}

func TestAddressConfigEqual(t *testing.T) {
	a := AddressConfig{Method: MethodDHCP, IP: "10.0.0.2", Mask: "255.0.0.0"}
	b := AddressConfig{Method: MethodDHCP}
	assert.True(t, a.Equal(b))

	s1 := AddressConfig{Method: MethodStatic, IP: "10.0.0.2", Mask: "255.0.0.0"}
	s2 := s1
	s2.Gateway = "10.0.0.1"
	assert.False(t, s1.Equal(s2))
	assert.Equal(t, "static 10.0.0.2/255.0.0.0 via 10.0.0.1", s2.String())
}
