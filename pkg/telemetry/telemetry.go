package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"parley/pkg/state/logger"
	"parley/pkg/timeutil"
)

type Step struct {
	Name     string  `json:"name"`
	Duration float64 `json:"duration_ms"`
}

// Trace times one operation and the named steps inside it.
type Trace struct {
	Name     string    `json:"name"`
	Start    time.Time `json:"start"`
	Steps    []Step    `json:"steps"`
	TotalMS  float64   `json:"total_ms"`
	lastMark time.Time
	done     bool
}

var (
	opDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parley_op_duration_seconds",
			Help:    "Duration of store and handler operations.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"op"},
	)
	stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parley_op_step_duration_seconds",
			Help:    "Duration of marked steps inside operations.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"op", "step"},
	)

	slowThresholdNs atomic.Int64
)

func init() {
	prometheus.MustRegister(opDuration)
	prometheus.MustRegister(stepDuration)
	slowThresholdNs.Store(int64(200 * time.Millisecond))
}

// SetSlowThreshold sets the total duration above which traces are logged.
func SetSlowThreshold(d time.Duration) {
	if d > 0 {
		slowThresholdNs.Store(int64(d))
	}
}

func Track(name string) *Trace {
	now := timeutil.Now()
	return &Trace{Name: name, Start: now, lastMark: now}
}

// Mark records the elapsed duration since the previous mark.
func (tr *Trace) Mark(label string) {
	now := timeutil.Now()
	delta := now.Sub(tr.lastMark)
	tr.Steps = append(tr.Steps, Step{Name: label, Duration: delta.Seconds() * 1000})
	stepDuration.WithLabelValues(tr.Name, label).Observe(delta.Seconds())
	tr.lastMark = now
}

// Finish records the trace. Safe to call more than once.
func (tr *Trace) Finish() {
	if tr.done {
		return
	}
	tr.done = true
	total := timeutil.Now().Sub(tr.Start)
	tr.TotalMS = total.Seconds() * 1000
	opDuration.WithLabelValues(tr.Name).Observe(total.Seconds())

	if total >= time.Duration(slowThresholdNs.Load()) {
		logger.Warn("slow_operation", "op", tr.Name, "total_ms", tr.TotalMS, "steps", tr.Steps)
	}
}
