package sim

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inference-sim/prioq-sim/sim/trace"
)

// departure is one OnJobDeparted call captured by a testHarness.
type departure struct {
	job  *Job
	rt   int64
	tick int64
}

// testHarness wires a Station to a real Simulator, a Metrics sink, a decision
// trace and a departure recorder.
type testHarness struct {
	sim        *Simulator
	station    *Station
	metrics    *Metrics
	trace      *trace.StationTrace
	departures []departure
}

// newFixedHarness builds a 3-class station with the given mode and fixed
// per-class service times.
func newFixedHarness(t *testing.T, mode Mode, table ...float64) *testHarness {
	t.Helper()
	cfg := StationConfig{
		NumPrio: 3,
		Mode:    mode,
		Service: ServiceTimeConfig{Distribution: DistFixed, Values: table},
	}
	return newHarness(t, cfg, NewPartitionedRNG(NewSimulationKey(42)))
}

func newHarness(t *testing.T, cfg StationConfig, rng *PartitionedRNG) *testHarness {
	t.Helper()
	h := &testHarness{
		sim:     NewSimulator(0),
		metrics: NewMetrics(cfg.NumPrio, 0),
		trace:   trace.NewStationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions}),
	}
	model, err := NewServiceTimeModel(cfg.Service, rng.ForSubsystem(SubsystemService))
	require.NoError(t, err)
	onDepart := DepartureFunc(func(j *Job, rt int64) {
		h.departures = append(h.departures, departure{job: j, rt: rt, tick: h.sim.Now()})
	})
	st, err := NewStation(cfg, h.sim, model, StationHooks{
		Telemetry:  h.metrics,
		Departures: onDepart,
		Trace:      h.trace,
	})
	require.NoError(t, err)
	h.station = st
	return h
}

// arrive schedules job to reach the station at tick at.
func (h *testHarness) arrive(at int64, job *Job) *Job {
	h.sim.ScheduleAt(at, func() { h.station.OnArrival(job) })
	return job
}

// departureOf returns the captured departure of the job with the given ID.
func (h *testHarness) departureOf(t *testing.T, id string) departure {
	t.Helper()
	for _, d := range h.departures {
		if d.job.ID == id {
			return d
		}
	}
	t.Fatalf("job %s never departed", id)
	return departure{}
}

// schedulePoissonArrivals feeds n jobs with exponential inter-arrival times of
// the given mean and uniformly drawn classes.
func (h *testHarness) schedulePoissonArrivals(rng *rand.Rand, n int, meanIAT float64) {
	now := int64(0)
	numPrio := h.station.NumPrio()
	for i := 0; i < n; i++ {
		class := rng.Intn(numPrio)
		h.arrive(now, NewJob(fmt.Sprintf("job-%d", i), class))
		now += int64(rng.ExpFloat64()*meanIAT) + 1
	}
}
