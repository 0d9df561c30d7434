// Tracks station-wide and per-class statistics such as queue length,
// utilization, queueing delay and response time.

package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Metrics is the in-memory TelemetrySink. It keeps every delay and response
// sample plus time-weighted integrals of queue length and busy time.
type Metrics struct {
	NumClasses int
	StartTime  int64

	CompletedJobs    int   // Number of departures
	CompletedByClass []int // Departures per class

	QueueingDelays        []float64   // One sample per service start, resumes and restarts included (ticks)
	QueueingDelaysByClass [][]float64 // Same samples split by class

	FirstServiceDelays        []float64   // Admission to first service, one sample per job (ticks)
	FirstServiceDelaysByClass [][]float64 // Same samples split by class

	ResponseTimes        []float64   // One sample per departure (ticks)
	ResponseTimesByClass [][]float64 // Same samples split by class

	MaxQueueLen int

	queueArea     float64 // integral of queue length over time
	lastQueueTick int64
	curQueueLen   int

	busyTime  int64 // total ticks the server was busy
	busy      bool
	busySince int64
}

// NewMetrics creates an empty Metrics for numClasses classes starting at startTime.
func NewMetrics(numClasses int, startTime int64) *Metrics {
	m := &Metrics{
		NumClasses:            numClasses,
		StartTime:             startTime,
		CompletedByClass:      make([]int, numClasses),
		QueueingDelaysByClass: make([][]float64, numClasses),
		ResponseTimesByClass:  make([][]float64, numClasses),
		lastQueueTick:         startTime,
	}
	m.FirstServiceDelaysByClass = make([][]float64, numClasses)
	return m
}

// QueueLength accumulates the queue-length integral up to now and records n.
func (m *Metrics) QueueLength(now int64, n int) {
	m.queueArea += float64(m.curQueueLen) * float64(now-m.lastQueueTick)
	m.lastQueueTick = now
	m.curQueueLen = n
	if n > m.MaxQueueLen {
		m.MaxQueueLen = n
	}
}

// Busy accumulates busy time. Repeated samples with the same value are ignored.
func (m *Metrics) Busy(now int64, busy bool) {
	if busy == m.busy {
		return
	}
	if m.busy {
		m.busyTime += now - m.busySince
	} else {
		m.busySince = now
	}
	m.busy = busy
}

// QueueingDelay records every service start. A job that was never displaced
// is starting its first service, which also feeds the first-service samples.
func (m *Metrics) QueueingDelay(_ int64, job *Job, delay int64) {
	first := job.Preemptions == 0
	m.QueueingDelays = append(m.QueueingDelays, float64(delay))
	if first {
		m.FirstServiceDelays = append(m.FirstServiceDelays, float64(delay))
	}
	if c := job.PriorityClass; c >= 0 && c < m.NumClasses {
		m.QueueingDelaysByClass[c] = append(m.QueueingDelaysByClass[c], float64(delay))
		if first {
			m.FirstServiceDelaysByClass[c] = append(m.FirstServiceDelaysByClass[c], float64(delay))
		}
	}
}

func (m *Metrics) ResponseTime(_ int64, job *Job, rt int64) {
	m.CompletedJobs++
	m.ResponseTimes = append(m.ResponseTimes, float64(rt))
	if c := job.PriorityClass; c >= 0 && c < m.NumClasses {
		m.CompletedByClass[c]++
		m.ResponseTimesByClass[c] = append(m.ResponseTimesByClass[c], float64(rt))
	}
}

// Distribution summarizes a sample set in ticks.
type Distribution struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	P99   float64 `json:"p99"`
	Max   float64 `json:"max"`
}

// NewDistribution computes summary statistics of data. Empty data yields zeros.
func NewDistribution(data []float64) Distribution {
	if len(data) == 0 {
		return Distribution{}
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	return Distribution{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		Min:   sorted[0],
		P50:   stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P90:   stat.Quantile(0.90, stat.Empirical, sorted, nil),
		P99:   stat.Quantile(0.99, stat.Empirical, sorted, nil),
		Max:   sorted[len(sorted)-1],
	}
}

// ClassSummary holds the per-class part of a MetricsSummary.
type ClassSummary struct {
	Class             int          `json:"class"`
	Completed         int          `json:"completed_jobs"`
	WaitingAtEnd      int          `json:"waiting_at_end"`
	QueueingDelay     Distribution `json:"queueing_delay_ticks"`
	FirstServiceDelay Distribution `json:"first_service_delay_ticks"`
	ResponseTime      Distribution `json:"response_time_ticks"`
}

// MetricsSummary is the end-of-run report.
//
// QueueingDelay has one sample per service start, so in preemptive modes a
// displaced job contributes again when it resumes or restarts and Count can
// exceed CompletedJobs. FirstServiceDelay is the admission-to-first-service
// delay, one sample per job that reached the server.
type MetricsSummary struct {
	Mode              string         `json:"mode"`
	NumClasses        int            `json:"num_classes"`
	EndTime           int64          `json:"end_time_ticks"`
	CompletedJobs     int            `json:"completed_jobs"`
	Arrivals          int            `json:"arrivals"`
	Preemptions       int            `json:"preemptions"`
	InServiceAtEnd    string         `json:"in_service_at_end,omitempty"`
	Utilization       float64        `json:"utilization"`
	MeanQueueLen      float64        `json:"mean_queue_length"`
	MaxQueueLen       int            `json:"max_queue_length"`
	QueueingDelay     Distribution   `json:"queueing_delay_ticks"`
	FirstServiceDelay Distribution   `json:"first_service_delay_ticks"`
	ResponseTime      Distribution   `json:"response_time_ticks"`
	Classes           []ClassSummary `json:"classes"`
}

// Summarize closes the time-weighted integrals at endTime and builds the report.
// It does not modify m, so it may be called more than once.
func (m *Metrics) Summarize(endTime int64) *MetricsSummary {
	elapsed := endTime - m.StartTime
	queueArea := m.queueArea + float64(m.curQueueLen)*float64(endTime-m.lastQueueTick)
	busyTime := m.busyTime
	if m.busy {
		busyTime += endTime - m.busySince
	}

	s := &MetricsSummary{
		NumClasses:    m.NumClasses,
		EndTime:       endTime,
		CompletedJobs: m.CompletedJobs,
		MaxQueueLen:   m.MaxQueueLen,
		QueueingDelay: NewDistribution(m.QueueingDelays),
		ResponseTime:  NewDistribution(m.ResponseTimes),
		Classes:       make([]ClassSummary, m.NumClasses),
	}
	s.FirstServiceDelay = NewDistribution(m.FirstServiceDelays)
	if elapsed > 0 {
		s.Utilization = float64(busyTime) / float64(elapsed)
		s.MeanQueueLen = queueArea / float64(elapsed)
	}
	for c := 0; c < m.NumClasses; c++ {
		s.Classes[c] = ClassSummary{
			Class:             c,
			Completed:         m.CompletedByClass[c],
			QueueingDelay:     NewDistribution(m.QueueingDelaysByClass[c]),
			FirstServiceDelay: NewDistribution(m.FirstServiceDelaysByClass[c]),
			ResponseTime:      NewDistribution(m.ResponseTimesByClass[c]),
		}
	}
	return s
}

// SaveResults prints the summary to stdout and, if outputFilePath is set,
// writes the same JSON to that file.
func (s *MetricsSummary) SaveResults(outputFilePath string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling metrics")
	}
	fmt.Println("=== Simulation Metrics ===")
	fmt.Println(string(data))

	if outputFilePath != "" {
		if err := os.WriteFile(outputFilePath, data, 0644); err != nil {
			return errors.Wrapf(err, "writing metrics to %s", outputFilePath)
		}
		logrus.Infof("Metrics written to: %s", outputFilePath)
	}
	return nil
}
