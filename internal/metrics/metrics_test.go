package metrics

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubny/ptfare/internal/logging"
)

func TestCollector_Helpers(t *testing.T) {
	c := NewCollector()

	c.EventHandled("actend")
	c.EventHandled("actend")
	c.Ignored("unknown_stop")
	c.TripClosed()
	c.EndOfDay(3, 2)
	c.Charged(4)
	c.Charged(10)
	c.FareFailed()
	c.CacheHit()
	c.Phase("replay", 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.EventsHandled.WithLabelValues("actend")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EventsIgnored.WithLabelValues("unknown_stop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.TripsClosed))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.RidersTracked))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Drivers))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.ChargesEmitted))
	assert.Equal(t, 14.0, testutil.ToFloat64(c.Revenue))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FareErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FareCacheHits))
	assert.Equal(t, 1, testutil.CollectAndCount(c.PhaseDuration))
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.EventHandled("actend")
		c.Ignored("unknown_stop")
		c.TripClosed()
		c.EndOfDay(1, 1)
		c.Charged(1)
		c.FareFailed()
		c.CacheHit()
		c.Phase("fares", 1)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.Charged(2.5)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "ptfare_revenue_total 2.5"), body)
	assert.Contains(t, body, "ptfare_charges_emitted_total 1")
}

func TestCollector_Serve(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logging.New(logging.Config{Level: "info", Format: "json", Output: buf})

	srv := NewCollector().Serve("127.0.0.1:0", log)
	require.NoError(t, srv.Shutdown(context.TODO()))

	assert.Contains(t, buf.String(), `"msg":"metrics listening"`)
	assert.Contains(t, buf.String(), `"addr":"127.0.0.1:0"`)
}
