// Package metrics exposes Prometheus collectors for the queue, the
// synthesis pipeline and the HTTP surface.
package metrics

import (
	"time"

	"github.com/dgnsrekt/clipspeak/internal/queue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clipspeak"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	jobsEnqueued     *prometheus.CounterVec
	jobsProcessed    *prometheus.CounterVec
	queueDepth       prometheus.Gauge
	synthesisLatency *prometheus.HistogramVec
	playbackDuration prometheus.Histogram
	cacheLookups     *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	clipboardInputs  prometheus.Counter
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		jobsEnqueued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_enqueued_total",
			Help:      "Total number of TTS jobs enqueued",
		}, []string{"source"}),

		jobsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Total number of TTS jobs taken off the queue",
		}, []string{"outcome"}), // outcome: "finished" or "failed"

		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_pending_jobs",
			Help:      "Number of jobs waiting behind the one in flight",
		}),

		synthesisLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_seconds",
			Help:      "Provider synthesis latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		}, []string{"provider"}),

		playbackDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "playback_duration_seconds",
			Help:      "Time spent playing each clip in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Audio cache lookups",
		}, []string{"result"}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),

		clipboardInputs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clipboard_inputs_total",
			Help:      "Clipboard changes that carried the trigger word",
		}),
	}
}

// OnEvent updates the queue collectors. It makes Metrics a queue.Observer.
func (m *Metrics) OnEvent(e queue.Event) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(e.Pending))
	switch e.Type {
	case queue.EventEnqueued:
		source := "unknown"
		if e.Job != nil && e.Job.Source != "" {
			source = e.Job.Source
		}
		m.jobsEnqueued.WithLabelValues(source).Inc()
	case queue.EventFinished:
		m.jobsProcessed.WithLabelValues("finished").Inc()
	case queue.EventFailed:
		m.jobsProcessed.WithLabelValues("failed").Inc()
	}
}

// ObserveSynthesis records one provider call.
func (m *Metrics) ObserveSynthesis(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.synthesisLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// ObservePlayback records the time spent playing one clip.
func (m *Metrics) ObservePlayback(d time.Duration) {
	if m == nil {
		return
	}
	m.playbackDuration.Observe(d.Seconds())
}

// RecordCacheLookup counts an audio cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordRequest counts an HTTP response.
func (m *Metrics) RecordRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, statusText(code)).Inc()
}

// RecordClipboardInput counts an accepted clipboard change.
func (m *Metrics) RecordClipboardInput() {
	if m == nil {
		return
	}
	m.clipboardInputs.Inc()
}

func statusText(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
