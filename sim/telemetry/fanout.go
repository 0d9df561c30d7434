package telemetry

import "github.com/inference-sim/prioq-sim/sim"

// Fanout forwards every sample to each of its sinks, in order.
type Fanout []sim.TelemetrySink

var _ sim.TelemetrySink = Fanout(nil)

// NewFanout drops nil sinks.
func NewFanout(sinks ...sim.TelemetrySink) Fanout {
	out := make(Fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (f Fanout) QueueLength(now int64, n int) {
	for _, s := range f {
		s.QueueLength(now, n)
	}
}

func (f Fanout) Busy(now int64, busy bool) {
	for _, s := range f {
		s.Busy(now, busy)
	}
}

func (f Fanout) QueueingDelay(now int64, job *sim.Job, delay int64) {
	for _, s := range f {
		s.QueueingDelay(now, job, delay)
	}
}

func (f Fanout) ResponseTime(now int64, job *sim.Job, rt int64) {
	for _, s := range f {
		s.ResponseTime(now, job, rt)
	}
}
