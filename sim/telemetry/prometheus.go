// Package telemetry provides TelemetrySink implementations that export station
// samples to Prometheus or forward them to several sinks at once.
package telemetry

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/prioq-sim/sim"
)

const namespace = "prioq"

// tickBuckets spans 1 to 32768 ticks.
var tickBuckets = prometheus.ExponentialBuckets(1, 2, 16)

// PrometheusSink records station samples as Prometheus metrics on its own
// registry. Values are in simulated ticks; the sink never reads wall-clock time.
type PrometheusSink struct {
	registry *prometheus.Registry

	queueLength   prometheus.Gauge
	busy          prometheus.Gauge
	queueingDelay *prometheus.HistogramVec
	responseTime  *prometheus.HistogramVec
	departures    *prometheus.CounterVec
}

var _ sim.TelemetrySink = (*PrometheusSink)(nil)

// NewPrometheusSink creates the collectors and registers them on registry.
// A nil registry gets a fresh one.
func NewPrometheusSink(registry *prometheus.Registry) (*PrometheusSink, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	s := &PrometheusSink{
		registry: registry,
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Number of jobs waiting across all priority classes.",
		}),
		busy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "busy",
			Help:      "1 while a job occupies the server, 0 while idle.",
		}),
		queueingDelay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queueing_delay_ticks",
			Help:      "Ticks between arrival and each service start, by priority class.",
			Buckets:   tickBuckets,
		}, []string{"class"}),
		responseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_time_ticks",
			Help:      "Ticks between arrival and departure, by priority class.",
			Buckets:   tickBuckets,
		}, []string{"class"}),
		departures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "departures_total",
			Help:      "Completed jobs, by priority class.",
		}, []string{"class"}),
	}
	for _, c := range s.collectors() {
		if err := registry.Register(c); err != nil {
			return nil, errors.Wrap(err, "registering station metrics")
		}
	}
	return s, nil
}

func (s *PrometheusSink) collectors() []prometheus.Collector {
	return []prometheus.Collector{s.queueLength, s.busy, s.queueingDelay, s.responseTime, s.departures}
}

func (s *PrometheusSink) QueueLength(_ int64, n int) {
	s.queueLength.Set(float64(n))
}

func (s *PrometheusSink) Busy(_ int64, busy bool) {
	if busy {
		s.busy.Set(1)
	} else {
		s.busy.Set(0)
	}
}

func (s *PrometheusSink) QueueingDelay(_ int64, job *sim.Job, delay int64) {
	s.queueingDelay.WithLabelValues(classLabel(job)).Observe(float64(delay))
}

func (s *PrometheusSink) ResponseTime(_ int64, job *sim.Job, rt int64) {
	class := classLabel(job)
	s.responseTime.WithLabelValues(class).Observe(float64(rt))
	s.departures.WithLabelValues(class).Inc()
}

// Registry returns the registry holding the station metrics.
func (s *PrometheusSink) Registry() *prometheus.Registry {
	return s.registry
}

// WriteTextfile dumps the current metric values in the text exposition
// format, suitable for the node_exporter textfile collector.
func (s *PrometheusSink) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, s.registry); err != nil {
		return errors.Wrapf(err, "writing prometheus textfile %s", path)
	}
	logrus.Infof("Prometheus metrics written to: %s", path)
	return nil
}

func classLabel(job *sim.Job) string {
	return strconv.Itoa(job.PriorityClass)
}
