package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample returns the value of the named series whose labels include want.
func sample(t *testing.T, name string, want map[string]string) float64 {
	t.Helper()
	families, err := Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v != lp.GetValue() {
					continue next
				}
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func TestRecordPurchase(t *testing.T) {
	labels := map[string]string{"outcome": "already_owned"}
	before := sample(t, "templatehub_marketplace_purchases_total", labels)
	RecordPurchase("already_owned")
	assert.Equal(t, before+1, sample(t, "templatehub_marketplace_purchases_total", labels))
}

func TestRealtimeGauge(t *testing.T) {
	base := sample(t, "templatehub_realtime_connections", nil)
	RealtimeConnected()
	RealtimeConnected()
	RealtimeDisconnected()
	assert.Equal(t, base+1, sample(t, "templatehub_realtime_connections", nil))
}

func TestHandlerServesRegistry(t *testing.T) {
	RecordRequest("GET", "/v1/templates", 200, 12*time.Millisecond)
	RecordEmailQueued("welcome", errors.New("broker down"))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `templatehub_http_requests_total{method="GET",route="/v1/templates",status="200"}`)
	assert.Contains(t, rec.Body.String(), `templatehub_email_queued_total{kind="welcome",result="error"}`)
}
