package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_StatusChanges(t *testing.T) {
	r := NewRecorder(prom.NewRegistry())

	r.ObserveStatusChange("OPERATION", "SCHEDULED", "ok", time.Millisecond)
	r.ObserveStatusChange("OPERATION", "SCHEDULED", "ok", time.Millisecond)
	r.ObserveStatusChange("SCHEDULED", "SCHEDULED", "INVALID_TRANSITION", time.Millisecond)
	r.SetOverdueSchedules(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.statusChanges.WithLabelValues("OPERATION", "SCHEDULED", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.statusChanges.WithLabelValues("SCHEDULED", "SCHEDULED", "INVALID_TRANSITION")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.overdueSchedule))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveStatusChange("a", "b", "ok", time.Second)
		r.SetOverdueSchedules(1)
	})
}

func TestRecorder_MiddlewareAndHandler(t *testing.T) {
	r := NewRecorder(nil)
	e := echo.New()
	e.Use(r.Middleware())
	e.GET("/api/equipment/:id", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", echo.WrapHandler(r.Handler()))

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/equipment/"+id, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(r.httpRequests.WithLabelValues(http.MethodGet, "/api/equipment/:id", "200")))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "maintenance_http_requests_total")
}
