package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal      *prometheus.CounterVec
	processDuration   *prometheus.HistogramVec
	processInFlight   prometheus.Gauge
	queueLag          *prometheus.HistogramVec
	recognizedLabels  *prometheus.HistogramVec
	topConfidence *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "visionary",
			Subsystem: "worker",
			Name:      "image_process_total",
			Help:      "Total processed images by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "visionary",
			Subsystem: "worker",
			Name:      "image_process_duration_seconds",
			Help:      "Image processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "visionary",
			Subsystem: "worker",
			Name:      "image_process_in_flight",
			Help:      "Number of in-flight image recognition tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "visionary",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between image submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	recognizedLabels := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "visionary",
			Subsystem: "worker",
			Name:      "recognized_labels",
			Help:      "Distribution of labels returned per recognized image.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"service"},
	)
	topLabelConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "visionary",
			Subsystem: "worker",
			Name:      "top_label_confidence",
			Help:      "Confidence of the top-ranked recognition label.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, recognizedLabels, topLabelConfidence)

	return &WorkerMetrics{
		registry:          registry,
		processTotal:      processTotal,
		processDuration:   processDuration,
		processInFlight:   processInFlight,
		queueLag:          queueLag,
		recognizedLabels:  recognizedLabels,
		topConfidence: topLabelConfidence,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartImage() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishImage(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObserveRecognition(service string, labelCount int, topConfidence float64) {
	m.recognizedLabels.WithLabelValues(service).Observe(float64(labelCount))
	if labelCount > 0 {
		m.topConfidence.WithLabelValues(service).Observe(topConfidence)
	}
}
