package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder собирает метрики сервиса обслуживания. Нулевой *Recorder допустим
// и ничего не пишет.
type Recorder struct {
	once            sync.Once
	registry        *prom.Registry
	statusChanges   *prom.CounterVec
	changeDuration  *prom.HistogramVec
	overdueSchedule prom.Gauge
	httpRequests    *prom.CounterVec
	httpDuration    *prom.HistogramVec
}

func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{registry: reg}
	r.once.Do(func() {
		r.statusChanges = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "maintenance",
			Name:      "status_changes_total",
			Help:      "Status change attempts by source status, target status and result",
		}, []string{"from", "to", "result"})
		r.changeDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "maintenance",
			Name:      "status_change_duration_seconds",
			Help:      "Duration of status changes including lock wait",
			Buckets:   prom.DefBuckets,
		}, []string{"result"})
		r.overdueSchedule = prom.NewGauge(prom.GaugeOpts{
			Namespace: "maintenance",
			Name:      "schedules_overdue",
			Help:      "Active schedules whose date has passed, as seen by the last watcher run",
		})
		r.httpRequests = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "maintenance",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "code"})
		r.httpDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "maintenance",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "route"})
		reg.MustRegister(r.statusChanges, r.changeDuration, r.overdueSchedule, r.httpRequests, r.httpDuration)
	})
	return r
}

func (r *Recorder) ObserveStatusChange(from, to, result string, d time.Duration) {
	if r == nil || r.statusChanges == nil {
		return
	}
	r.statusChanges.WithLabelValues(from, to, result).Inc()
	r.changeDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (r *Recorder) SetOverdueSchedules(n int) {
	if r == nil || r.overdueSchedule == nil {
		return
	}
	r.overdueSchedule.Set(float64(n))
}

// Handler отдаёт метрики в формате Prometheus.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Middleware считает запросы по шаблону маршрута, а не по сырому URI,
// чтобы id в пути не раздували кардинальность.
func (r *Recorder) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if r == nil || r.httpRequests == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			r.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			r.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
