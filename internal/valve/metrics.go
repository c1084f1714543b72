package valve

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "prerollvalve"

// Metrics holds the prometheus instruments of one valve.
type Metrics struct {
	framesReceived  prometheus.Counter
	framesForwarded *prometheus.CounterVec
	framesPruned    prometheus.Counter
	framesDiscarded *prometheus.CounterVec
	flushes         *prometheus.CounterVec
	backlogFrames   prometheus.Gauge
}

// NewMetrics creates the valve instruments and registers them on reg.
// A nil reg leaves them unregistered. constLabels distinguish valves sharing
// a registry.
func NewMetrics(reg prometheus.Registerer, constLabels prometheus.Labels) *Metrics {
	m := &Metrics{
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "frames_received_total",
			Help:        "Frames handed to the valve by upstream",
			ConstLabels: constLabels,
		}),
		framesForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "frames_forwarded_total",
			Help:        "Frames pushed downstream, by origin",
			ConstLabels: constLabels,
		}, []string{"source"}),
		framesPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "frames_pruned_total",
			Help:        "Buffered frames dropped for exceeding max-history",
			ConstLabels: constLabels,
		}),
		framesDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "frames_discarded_total",
			Help:        "Buffered frames dropped during a flush, by reason",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "flushes_total",
			Help:        "Backlog flushes, by result",
			ConstLabels: constLabels,
		}, []string{"result"}),
		backlogFrames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "backlog_frames",
			Help:        "Frames currently held in the backlog",
			ConstLabels: constLabels,
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.framesReceived,
			m.framesForwarded,
			m.framesPruned,
			m.framesDiscarded,
			m.flushes,
			m.backlogFrames,
		)
	}
	return m
}

const (
	sourceLive    = "live"
	sourceBacklog = "backlog"

	reasonBeforeKeyframe = "before_keyframe"
	reasonFlowFailure    = "flow_failure"

	resultOK       = "ok"
	resultDegraded = "degraded"
	resultFailed   = "failed"
)
