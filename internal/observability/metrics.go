package observability

import (
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bitpacket",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bitpacket",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	decodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bitpacket",
			Subsystem: "decoder",
			Name:      "transmissions_total",
			Help:      "Decoded transmissions by outcome.",
		},
		[]string{"source", "result"},
	)
	decodeBits = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bitpacket",
			Subsystem: "decoder",
			Name:      "transmission_bits",
			Help:      "Bits consumed by successfully decoded transmissions.",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		},
		[]string{"source"},
	)
	decodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bitpacket",
			Subsystem: "decoder",
			Name:      "decode_duration_seconds",
			Help:      "Time spent decoding and evaluating one transmission.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
		[]string{"source"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, decodes, decodeBits, decodeDuration)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordDecode counts one transmission. result is "ok" or the decode error
// kind; bits is only observed for successful decodes.
func RecordDecode(source, result string, bits int, duration time.Duration) {
	RegisterMetrics()
	decodes.WithLabelValues(source, result).Inc()
	decodeDuration.WithLabelValues(source).Observe(duration.Seconds())
	if result == "ok" {
		decodeBits.WithLabelValues(source).Observe(float64(bits))
	}
}

// WriteText dumps every registered metric family in the text exposition
// format.
func WriteText(w io.Writer) error {
	RegisterMetrics()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
