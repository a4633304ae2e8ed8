package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"farmledger/mq"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/logs/harvest/:id/transport", normalizePath("/logs/harvest/65a1f0c2e4b0a1b2c3d4e5f6/transport"))
	assert.Equal(t, "/logs/history", normalizePath("/logs/history"))
}

func TestEventsCounter(t *testing.T) {
	before := testutil.ToFloat64(domainEvents.WithLabelValues(mq.BatchOpened, "opened"))
	Events{}.Emit(context.Background(), mq.BatchOpened, mq.Index{Method: "opened"})
	after := testutil.ToFloat64(domainEvents.WithLabelValues(mq.BatchOpened, "opened"))
	assert.Equal(t, before+1, after)
}

func TestInstrumentHandlerRecordsStatus(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/recent", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/logs/recent", "418")))
}
