//go:build unit

package ping

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewProberAdapter(t *testing.T) {
	p := NewProberAdapter(0, time.Second, false)
	assert.Equal(t, 1, p.count)
}

func TestProberAdapter_Probe(t *testing.T) {
	t.Run("InvalidAddress", func(t *testing.T) {
		p := NewProberAdapter(1, time.Second, false)
		err := p.Probe(context.Background(), "not an address")
		assert.Error(t, err)
	})

	t.Run("Loopback", func(t *testing.T) {
		p := NewProberAdapter(1, 2*time.Second, false)
		if err := p.Probe(context.Background(), "127.0.0.1"); err != nil {
			t.Skipf("unprivileged ICMP not permitted here: %v", err)
		}
	})
}
