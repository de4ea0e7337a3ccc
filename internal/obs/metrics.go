package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CommandsTotal   *prometheus.CounterVec
	AskTotal        *prometheus.CounterVec
	ChatErrors      *prometheus.CounterVec
	LimiterErrors   prometheus.Counter
	Throttled       prometheus.Counter
	FramesTotal     prometheus.Counter
	Particles       prometheus.Gauge
	Resizes         prometheus.Counter

	gatherer prometheus.Gatherer
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termfolio_requests_total",
				Help: "Total HTTP requests served",
			},
			[]string{"route", "method", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termfolio_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termfolio_commands_total",
				Help: "Terminal commands executed, by command name",
			},
			[]string{"command"},
		),
		AskTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termfolio_ask_total",
				Help: "askai questions by outcome (answered, rate_limited, failed)",
			},
			[]string{"outcome"},
		),
		ChatErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termfolio_chat_errors_total",
				Help: "Chat completion failures by kind",
			},
			[]string{"kind"},
		),
		LimiterErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "termfolio_limiter_errors_total",
			Help: "Rate limiter store errors",
		}),
		Throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "termfolio_ingress_throttled_total",
			Help: "Requests rejected by the per-client ingress throttle",
		}),
		FramesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "termfolio_background_frames_total",
			Help: "Background frames rendered",
		}),
		Particles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "termfolio_background_particles",
			Help: "Current background particle population",
		}),
		Resizes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "termfolio_background_resizes_total",
			Help: "Background repopulations caused by viewport changes",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.RequestsTotal, m.RequestDuration, m.CommandsTotal, m.AskTotal, m.ChatErrors,
		m.LimiterErrors, m.Throttled, m.FramesTotal, m.Particles, m.Resizes,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveFrame(population int) {
	m.FramesTotal.Inc()
	m.Particles.Set(float64(population))
}

func (m *Metrics) ObserveResize(_, _, population int) {
	m.Resizes.Inc()
	m.Particles.Set(float64(population))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Middleware records per-request metrics labelled by the chi route
// pattern, so it must be installed on a chi router.
func (m *Metrics) Middleware(skip map[string]struct{}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			route := "unknown"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}

			code := rec.status
			if code == 0 {
				code = http.StatusOK
			}

			m.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
			m.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(code)).Inc()
		})
	}
}
