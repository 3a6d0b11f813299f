package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Session outcomes reported by the upload coordinator.
const (
	SessionCompleted   = "completed"
	SessionAborted     = "aborted"
	SessionBeginFailed = "begin_failed"
)

// UploadMetrics records multipart upload activity.
type UploadMetrics struct {
	parts    *prometheus.CounterVec
	sessions *prometheus.CounterVec
	duration prometheus.Histogram
	bytes    prometheus.Counter
}

// NewUploadMetrics registers the upload metrics on the provided registerer.
func NewUploadMetrics(reg prometheus.Registerer) *UploadMetrics {
	if reg == nil {
		return &UploadMetrics{}
	}
	parts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_parts_total",
		Help: "Multipart upload part transfers by outcome.",
	}, []string{"outcome"})
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_sessions_total",
		Help: "Multipart upload sessions by terminal outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "upload_duration_seconds",
		Help:    "Wall time of multipart uploads from begin to completion or abort.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	bytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upload_bytes_total",
		Help: "Payload bytes accepted by completed uploads.",
	})
	reg.MustRegister(parts, sessions, duration, bytes)
	return &UploadMetrics{
		parts:    parts,
		sessions: sessions,
		duration: duration,
		bytes:    bytes,
	}
}

// ObservePart counts one part transfer.
func (u *UploadMetrics) ObservePart(ok bool) {
	if u == nil || u.parts == nil {
		return
	}
	u.parts.WithLabelValues(outcomeLabel(ok)).Inc()
}

// ObserveSession records the terminal outcome and duration of a session.
func (u *UploadMetrics) ObserveSession(outcome string, size int, duration time.Duration) {
	if u == nil || u.sessions == nil {
		return
	}
	u.sessions.WithLabelValues(normalizeLabel(outcome)).Inc()
	u.duration.Observe(duration.Seconds())
	if outcome == SessionCompleted {
		u.bytes.Add(float64(size))
	}
}

func outcomeLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
