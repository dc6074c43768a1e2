package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "glance"
	subsystem = "predictor"

	ResultOK         = "ok"
	ResultInputError = "input_error"
	ResultModelError = "model_error"
	ResultCanceled   = "canceled"
)

// Metrics holds the predictor collectors on a dedicated registry. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// PredictionsTotal counts finished predictions by result.
	PredictionsTotal *prometheus.CounterVec
	// PredictionDuration is time spent in the worker, excluding queue wait.
	PredictionDuration *prometheus.HistogramVec
	QueueWait          prometheus.Histogram
	InFlight           prometheus.Gauge
	Queued             prometheus.Gauge
	GeneratedTokens    prometheus.Counter
	LoadDuration       prometheus.Gauge
	Workers            prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PredictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "predictions_total",
			Help:      "Total number of predictions, labeled by result.",
		}, []string{"result"}),
		PredictionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "prediction_duration_seconds",
			Help:      "Time to decode, generate and clean one prediction inside a worker.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60, 120},
		}, []string{"result"}),
		QueueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_wait_seconds",
			Help:      "Time a prediction waited for a free worker.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "in_flight",
			Help:      "Predictions currently running on a worker.",
		}),
		Queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queued",
			Help:      "Predictions waiting for a free worker.",
		}),
		GeneratedTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "generated_tokens_total",
			Help:      "Tokens generated across all predictions, as reported by the runtime.",
		}),
		LoadDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "load_duration_seconds",
			Help:      "Time taken to load the model at startup.",
		}),
		Workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workers",
			Help:      "Configured maximum number of concurrent predictions.",
		}),
	}
	m.registry.MustRegister(
		m.PredictionsTotal,
		m.PredictionDuration,
		m.QueueWait,
		m.InFlight,
		m.Queued,
		m.GeneratedTokens,
		m.LoadDuration,
		m.Workers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveLoad(d time.Duration, workers int) {
	if m == nil {
		return
	}
	m.LoadDuration.Set(d.Seconds())
	m.Workers.Set(float64(workers))
}

func (m *Metrics) Enqueued() {
	if m == nil {
		return
	}
	m.Queued.Inc()
}

// Started moves a prediction from the queue onto a worker.
func (m *Metrics) Started(wait time.Duration) {
	if m == nil {
		return
	}
	m.Queued.Dec()
	m.InFlight.Inc()
	m.QueueWait.Observe(wait.Seconds())
}

// Abandoned records a prediction whose caller gave up while it was queued.
func (m *Metrics) Abandoned() {
	if m == nil {
		return
	}
	m.Queued.Dec()
	m.PredictionsTotal.WithLabelValues(ResultCanceled).Inc()
}

func (m *Metrics) Finished(result string, d time.Duration, tokens int) {
	if m == nil {
		return
	}
	m.InFlight.Dec()
	m.PredictionsTotal.WithLabelValues(result).Inc()
	m.PredictionDuration.WithLabelValues(result).Observe(d.Seconds())
	if tokens > 0 {
		m.GeneratedTokens.Add(float64(tokens))
	}
}
