// sim/metrics_substrate_test.go
//
// Metrics substrate verification: observable relationships between the
// station's telemetry and per-job bookkeeping that must hold for any drained
// run, whatever the discipline.
//
// Contracts verified:
//   - busy time equals the total service consumed by departed jobs
//   - the queue-length integral equals the total time jobs spent waiting
//   - response time = queueing delay + service for never-preempted jobs
//   - percentiles are ordered (min ≤ p50 ≤ p90 ≤ p99 ≤ max)
//   - per-class completions add up to the station total
//   - one first-service delay per job, one extra queueing delay per preemption
package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var substrateModes = []Mode{NonPreemptive, PreemptiveRestart, PreemptiveResume}

// drainedRun feeds 400 Poisson arrivals into an exponential-service station
// and runs until every job has departed.
func drainedRun(t *testing.T, mode Mode) (*testHarness, *MetricsSummary) {
	t.Helper()
	cfg := StationConfig{
		NumPrio: 3,
		Mode:    mode,
		Service: ServiceTimeConfig{Distribution: DistExponential, Values: []float64{3, 6, 9}},
	}
	h := newHarness(t, cfg, NewPartitionedRNG(NewSimulationKey(11)))
	h.schedulePoissonArrivals(rand.New(rand.NewSource(5)), 400, 8)
	h.sim.Run()
	require.Len(t, h.departures, 400)
	return h, h.metrics.Summarize(h.sim.EndTime())
}

func TestMetricsSubstrate_BusyTimeEqualsConsumedService(t *testing.T) {
	for _, mode := range substrateModes {
		t.Run(string(mode), func(t *testing.T) {
			h, s := drainedRun(t, mode)

			consumed := int64(0)
			for _, d := range h.departures {
				consumed += d.job.ServiceConsumed
			}

			assert.InDelta(t, float64(consumed), s.Utilization*float64(s.EndTime), 1e-6)
		})
	}
}

func TestMetricsSubstrate_QueueAreaEqualsWaitingTime(t *testing.T) {
	for _, mode := range substrateModes {
		t.Run(string(mode), func(t *testing.T) {
			h, s := drainedRun(t, mode)

			// a job is either waiting or in service between arrival and departure
			waiting := int64(0)
			for _, d := range h.departures {
				waiting += d.rt - d.job.ServiceConsumed
			}

			assert.InDelta(t, float64(waiting), s.MeanQueueLen*float64(s.EndTime), 1e-6)
		})
	}
}

func TestMetricsSubstrate_ResponseIsDelayPlusServiceWithoutPreemption(t *testing.T) {
	h, _ := drainedRun(t, NonPreemptive)

	for _, d := range h.departures {
		delay := d.job.FirstServiceTime - d.job.ArrivalTime
		assert.Equal(t, delay+d.job.ServiceDuration, d.rt, "job %s", d.job.ID)
		assert.Zero(t, d.job.Preemptions)
	}
}

func TestMetricsSubstrate_PercentilesOrdered(t *testing.T) {
	for _, mode := range substrateModes {
		t.Run(string(mode), func(t *testing.T) {
			_, s := drainedRun(t, mode)

			dists := []Distribution{s.QueueingDelay, s.ResponseTime}
			for _, c := range s.Classes {
				dists = append(dists, c.QueueingDelay, c.ResponseTime)
			}
			for _, d := range dists {
				assert.LessOrEqual(t, d.Min, d.P50)
				assert.LessOrEqual(t, d.P50, d.P90)
				assert.LessOrEqual(t, d.P90, d.P99)
				assert.LessOrEqual(t, d.P99, d.Max)
			}
		})
	}
}

func TestMetricsSubstrate_ClassCompletionsAddUp(t *testing.T) {
	for _, mode := range substrateModes {
		t.Run(string(mode), func(t *testing.T) {
			h, s := drainedRun(t, mode)

			total := 0
			for _, c := range s.Classes {
				total += c.Completed
				assert.Equal(t, c.Completed, c.ResponseTime.Count)
			}
			assert.Equal(t, s.CompletedJobs, total)
			assert.Equal(t, h.station.Departures, s.CompletedJobs)
		})
	}
}

func TestMetricsSubstrate_FirstServiceDelayOncePerJob(t *testing.T) {
	for _, mode := range substrateModes {
		t.Run(string(mode), func(t *testing.T) {
			h, s := drainedRun(t, mode)

			preemptions := 0
			firstWait := int64(0)
			for _, d := range h.departures {
				preemptions += d.job.Preemptions
				firstWait += d.job.FirstServiceTime - d.job.ArrivalTime
			}

			assert.Equal(t, 400, s.FirstServiceDelay.Count)
			assert.Equal(t, 400+preemptions, s.QueueingDelay.Count)
			assert.InDelta(t, float64(firstWait)/400, s.FirstServiceDelay.Mean, 1e-9)
			if mode == NonPreemptive {
				assert.Equal(t, s.QueueingDelay, s.FirstServiceDelay)
			}
		})
	}
}
