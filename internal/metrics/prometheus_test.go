//go:build unit

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"netifmgr/internal/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RecordSnapshot(t *testing.T) {
	r := New()
	r.RecordSnapshot([]types.HardwareInterface{
		{Device: "eth0", LogicInterfaces: []types.LogicInterface{
			{Method: types.MethodStatic}, {Method: types.MethodDHCP}, {Method: types.MethodStatic},
		}},
		{Device: "wlan0"},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.HardwareInterfaces))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.LogicInterfaces.WithLabelValues("static")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.LogicInterfaces.WithLabelValues("dhcp")))
}

func TestRegistry_RecordApply(t *testing.T) {
	r := New()
	r.RecordApply("update", time.Millisecond, nil)
	r.RecordApply("update", time.Millisecond, &types.Error{Kind: types.KindNotFound})
	r.RecordApply("update", time.Millisecond, assert.AnError)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Applies.WithLabelValues("update", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Applies.WithLabelValues("update", "NotFound")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Applies.WithLabelValues("update", "error")))
}

func TestRegistry_Handler(t *testing.T) {
	r := New()
	r.RecordRefresh(time.Millisecond, nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `netifmgr_refreshes_total{result="ok"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
