package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/prioq-sim/sim"
)

// histogram returns sample count and sum of the series of family name whose
// class label equals class.
func histogram(t *testing.T, reg *prometheus.Registry, name, class string) (uint64, float64) {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "class" && l.GetValue() == class {
					return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
				}
			}
		}
	}
	return 0, 0
}

func TestPrometheusSink_GaugesFollowLatestSample(t *testing.T) {
	sink, err := NewPrometheusSink(nil)
	require.NoError(t, err)

	sink.QueueLength(0, 4)
	sink.QueueLength(1, 2)
	sink.Busy(1, true)

	assert.Equal(t, float64(2), testutil.ToFloat64(sink.queueLength))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.busy))

	sink.Busy(2, false)
	assert.Equal(t, float64(0), testutil.ToFloat64(sink.busy))
}

func TestPrometheusSink_DuplicateRegistration_Fails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	_, err = NewPrometheusSink(reg)
	assert.Error(t, err)
}

func TestPrometheusSink_ThroughPreemptiveResumeStation(t *testing.T) {
	// GIVEN a preemptive-resume station reporting to Prometheus
	s := sim.NewSimulator(0)
	cfg := sim.StationConfig{
		NumPrio: 3,
		Mode:    sim.PreemptiveResume,
		Service: sim.ServiceTimeConfig{Values: []float64{2, 5, 10}},
	}
	model, err := sim.NewServiceTimeModel(cfg.Service, nil)
	require.NoError(t, err)
	sink, err := NewPrometheusSink(nil)
	require.NoError(t, err)
	st, err := sim.NewStation(cfg, s, model, sim.StationHooks{Telemetry: sink})
	require.NoError(t, err)

	// WHEN a class-2 job is preempted by a class-0 job
	s.ScheduleAt(0, func() { st.OnArrival(sim.NewJob("low", 2)) })
	s.ScheduleAt(3, func() { st.OnArrival(sim.NewJob("high", 0)) })
	s.Run()

	// THEN both departures are counted by class
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.departures.WithLabelValues("0")))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.departures.WithLabelValues("2")))
	assert.Equal(t, float64(0), testutil.ToFloat64(sink.queueLength))
	assert.Equal(t, float64(0), testutil.ToFloat64(sink.busy))

	// AND the low job's two service starts are both observed
	count, sum := histogram(t, sink.Registry(), "prioq_queueing_delay_ticks", "2")
	assert.Equal(t, uint64(2), count)
	assert.Equal(t, float64(5), sum)

	count, sum = histogram(t, sink.Registry(), "prioq_response_time_ticks", "2")
	assert.Equal(t, uint64(1), count)
	assert.Equal(t, float64(12), sum)
	count, sum = histogram(t, sink.Registry(), "prioq_response_time_ticks", "0")
	assert.Equal(t, uint64(1), count)
	assert.Equal(t, float64(2), sum)
}

func TestPrometheusSink_WriteTextfile(t *testing.T) {
	sink, err := NewPrometheusSink(nil)
	require.NoError(t, err)
	sink.QueueLength(0, 3)
	sink.ResponseTime(5, sim.NewJob("a", 1), 5)

	path := filepath.Join(t.TempDir(), "prioq.prom")
	require.NoError(t, sink.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "prioq_queue_length 3")
	assert.Contains(t, text, `prioq_departures_total{class="1"} 1`)
	assert.Contains(t, text, "# TYPE prioq_response_time_ticks histogram")
}

func TestPrometheusSink_WriteTextfile_BadPath(t *testing.T) {
	sink, err := NewPrometheusSink(nil)
	require.NoError(t, err)

	err = sink.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}
