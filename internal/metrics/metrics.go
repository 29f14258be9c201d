// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceBytesTotal counts raw bytes delivered by the source
	SourceBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytescope_source_bytes_total",
			Help: "Total number of raw bytes received from the source",
		},
		[]string{"source"},
	)

	// SourceChunksTotal counts chunks handed to the monitor
	SourceChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytescope_source_chunks_total",
			Help: "Total number of raw chunks received from the source",
		},
		[]string{"source"},
	)

	// SourceReconnectsTotal counts transport reconnect attempts
	SourceReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytescope_source_reconnects_total",
			Help: "Total number of transport reconnect attempts",
		},
		[]string{"source"},
	)

	// SentBytesTotal counts operator payload bytes written to the transport
	SentBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bytescope_sent_bytes_total",
			Help: "Total number of operator payload bytes written to the transport",
		},
	)

	// FramesTotal counts complete frames extracted from the stream
	FramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bytescope_frames_total",
			Help: "Total number of framed messages extracted",
		},
	)

	// FrameBytes measures the size distribution of extracted frames
	FrameBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bytescope_frame_bytes",
			Help:    "Size of extracted frames in bytes",
			Buckets: prometheus.ExponentialBuckets(4, 2, 12), // 4 .. 8192
		},
	)

	// BufferBytes tracks unframed bytes held by the accumulator
	BufferBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bytescope_buffer_bytes",
			Help: "Number of unframed bytes waiting in the accumulator",
		},
	)

	// BufferDroppedBytesTotal counts bytes discarded by the accumulator ceiling
	BufferDroppedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bytescope_buffer_dropped_bytes_total",
			Help: "Total number of unframed bytes dropped by the accumulator size ceiling",
		},
	)

	// MessagesRetained tracks the size of the message history
	MessagesRetained = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bytescope_messages_retained",
			Help: "Number of framed messages currently retained in history",
		},
	)

	// LabelsTotal counts classified messages by label
	LabelsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytescope_labels_total",
			Help: "Total number of messages classified per label",
		},
		[]string{"label"},
	)

	// WarningsTotal counts suspect warnings by severity
	WarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytescope_warnings_total",
			Help: "Total number of suspect warnings raised on new messages",
		},
		[]string{"severity"},
	)

	// CriticalActive is 1 while any retained message carries a critical warning
	CriticalActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bytescope_critical_active",
			Help: "1 if any retained message has a critical suspect warning",
		},
	)

	// SinkErrorsTotal counts report publishing failures by sink
	SinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytescope_sink_errors_total",
			Help: "Total number of report sink publish errors",
		},
		[]string{"sink"},
	)

	// ControlRequestsTotal counts control plane requests by method and outcome
	ControlRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bytescope_control_requests_total",
			Help: "Total number of control plane requests",
		},
		[]string{"method", "outcome"},
	)

	// ControlRequestDuration observes control request handling latency
	ControlRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bytescope_control_request_duration_seconds",
			Help:    "Control plane request handling latency",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"method"},
	)
)

// NoLabel is the label value recorded for unclassified messages.
const NoLabel = "none"
