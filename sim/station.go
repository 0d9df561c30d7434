package sim

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/prioq-sim/sim/trace"
)

// StationHooks groups the optional collaborators notified by a Station.
// Nil fields are replaced by no-ops.
type StationHooks struct {
	Telemetry  TelemetrySink
	Departures DepartureSink
	Trace      *trace.StationTrace
}

// Station is a single-server queueing station with numPrio priority classes.
// It owns the class queues and the server slot; every mutation happens inside
// OnArrival or OnServiceComplete, which the Scheduler never runs concurrently.
type Station struct {
	numPrio int
	mode    Mode
	queues  *ClassQueues
	service ServiceTimeModel
	sched   Scheduler

	telemetry  TelemetrySink
	departures DepartureSink
	trace      *trace.StationTrace

	inService    *Job
	serviceEnd   int64       // tick at which the current service completes
	pendingTimer TimerHandle // completion timer of the current service

	// Counters for reporting
	Arrivals    int
	Departures  int
	Preemptions int
}

// NewStation validates cfg and creates an idle station with empty class queues.
func NewStation(cfg StationConfig, sched Scheduler, service ServiceTimeModel, hooks StationHooks) (*Station, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid station config")
	}
	if sched == nil {
		return nil, errors.New("station needs a scheduler")
	}
	if service == nil {
		return nil, errors.New("station needs a service time model")
	}
	if len(cfg.Service.Values) > 0 && len(cfg.Service.Values) < cfg.NumPrio {
		logrus.Warnf("service times configured for %d of %d classes; remaining classes draw from a random configured class",
			len(cfg.Service.Values), cfg.NumPrio)
	}
	s := &Station{
		numPrio:    cfg.NumPrio,
		mode:       cfg.EffectiveMode(),
		queues:     NewClassQueues(cfg.NumPrio),
		service:    service,
		sched:      sched,
		telemetry:  hooks.Telemetry,
		departures: hooks.Departures,
		trace:      hooks.Trace,
	}
	if s.telemetry == nil {
		s.telemetry = NoopTelemetry{}
	}
	now := sched.Now()
	s.telemetry.QueueLength(now, 0)
	s.telemetry.Busy(now, false)
	return s, nil
}

// OnArrival admits a new job: it stamps the arrival time, then either
// displaces the job in service (preemptive modes, strictly higher priority),
// serves it at once (idle server) or appends it to its class queue.
func (s *Station) OnArrival(job *Job) {
	if job == nil {
		panic("OnArrival: job must not be nil")
	}
	if job == s.inService || job.State != StateNew {
		panic(fmt.Sprintf("OnArrival: job %s already admitted (state %q)", job.ID, job.State))
	}
	if job.PriorityClass < 0 || job.PriorityClass >= s.numPrio {
		panic(fmt.Sprintf("OnArrival: job %s has class %d outside [0, %d)", job.ID, job.PriorityClass, s.numPrio))
	}

	now := s.sched.Now()
	job.ArrivalTime = now
	s.Arrivals++
	logrus.Debugf("<< Arrival: %s at %d ticks", job.ID, now)

	// A job whose service ends this very tick is left to its pending completion.
	if s.inService != nil && s.mode.Preemptive() &&
		job.PriorityClass < s.inService.PriorityClass && s.serviceEnd > now {
		displaced := s.preempt(now)
		s.startService(job, now, trace.KindPreempt, displaced)
		return
	}

	if s.inService == nil {
		s.startService(job, now, trace.KindDirect, nil)
		return
	}

	s.queues.Enqueue(job)
	s.telemetry.QueueLength(now, s.queues.TotalLen())
	s.trace.Record(trace.DecisionRecord{
		JobID:    job.ID,
		Class:    job.PriorityClass,
		Clock:    now,
		Kind:     trace.KindEnqueue,
		QueueLen: s.queues.TotalLen(),
	})
	logrus.Debugf("Queuing %s (queues %s)", job.ID, s.queues)
}

// OnServiceComplete releases the job in service and dispatches the head of
// the highest-priority non-empty class queue, or idles the server.
// Firing with no job in service is a scheduling bug and panics.
func (s *Station) OnServiceComplete() {
	if s.inService == nil {
		panic("OnServiceComplete: no job in service")
	}
	now := s.sched.Now()
	if now != s.serviceEnd {
		panic(fmt.Sprintf("OnServiceComplete: fired at %d but service of %s ends at %d", now, s.inService.ID, s.serviceEnd))
	}

	job := s.inService
	s.inService = nil
	s.pendingTimer = NoTimer
	job.ServiceConsumed += now - job.ServiceStart
	job.State = StateDeparted
	job.DepartureTime = now
	rt := now - job.ArrivalTime
	s.Departures++
	logrus.Debugf("Completed service of %s, response time %d", job.ID, rt)

	s.telemetry.ResponseTime(now, job, rt)
	s.trace.Record(trace.DecisionRecord{
		JobID:    job.ID,
		Class:    job.PriorityClass,
		Clock:    now,
		Kind:     trace.KindDepart,
		QueueLen: s.queues.TotalLen(),
	})

	if next := s.queues.DequeueHighest(); next != nil {
		s.telemetry.QueueLength(now, s.queues.TotalLen())
		s.startService(next, now, trace.KindDispatch, nil)
	} else {
		logrus.Debugf("Empty queue, server goes IDLE")
		s.telemetry.Busy(now, false)
		s.trace.Record(trace.DecisionRecord{Clock: now, Kind: trace.KindIdle})
	}

	// Hand-off last, so a consumer that feeds jobs back sees a settled station.
	if s.departures != nil {
		s.departures.OnJobDeparted(job, rt)
	}
}

// preempt cancels the current service and puts the displaced job back at the
// tail of its class queue. Under PreemptiveResume the unused part of the
// scheduled duration is carried in WorkRemaining; otherwise progress is lost.
func (s *Station) preempt(now int64) *Job {
	cur := s.inService
	s.sched.Cancel(s.pendingTimer)
	s.pendingTimer = NoTimer
	s.inService = nil

	cur.ServiceConsumed += now - cur.ServiceStart
	cur.Preemptions++
	s.Preemptions++
	if s.mode == PreemptiveResume {
		cur.WorkRemaining = s.serviceEnd - now
	} else {
		cur.WorkRemaining = 0
	}
	cur.State = StatePreempted
	logrus.Debugf("Preempting %s at %d ticks, %d ticks carried", cur.ID, now, cur.WorkRemaining)

	s.queues.Enqueue(cur)
	s.telemetry.QueueLength(now, s.queues.TotalLen())
	return cur
}

// startService puts job on the server and schedules its completion.
func (s *Station) startService(job *Job, now int64, kind trace.DecisionKind, displaced *Job) {
	var d int64
	if s.mode == PreemptiveResume && job.WorkRemaining > 0 {
		d = job.WorkRemaining
		job.WorkRemaining = 0
	} else {
		d = s.service.ServiceTime(job.PriorityClass)
		job.ServiceDemand = d
	}
	if job.Preemptions == 0 {
		job.FirstServiceTime = now
	}
	job.State = StateInService
	job.ServiceStart = now
	job.ServiceDuration = d

	s.inService = job
	s.serviceEnd = now + d
	s.pendingTimer = s.sched.ScheduleAt(s.serviceEnd, s.OnServiceComplete)
	logrus.Debugf("Starting service of %s with service time of %d", job.ID, d)

	s.telemetry.QueueingDelay(now, job, now-job.ArrivalTime)
	s.telemetry.Busy(now, true)

	rec := trace.DecisionRecord{
		JobID:    job.ID,
		Class:    job.PriorityClass,
		Clock:    now,
		Kind:     kind,
		QueueLen: s.queues.TotalLen(),
		Duration: d,
	}
	if displaced != nil {
		rec.Displaced = displaced.ID
		rec.DisplacedClass = displaced.PriorityClass
		rec.Carried = displaced.WorkRemaining
	}
	s.trace.Record(rec)
}

// Busy reports whether a job occupies the server.
func (s *Station) Busy() bool {
	return s.inService != nil
}

// InService returns the job occupying the server, or nil.
func (s *Station) InService() *Job {
	return s.inService
}

// ServiceEnd returns the completion tick of the current service.
// Only meaningful while Busy.
func (s *Station) ServiceEnd() int64 {
	return s.serviceEnd
}

// QueueLen returns the number of jobs waiting across all classes.
func (s *Station) QueueLen() int {
	return s.queues.TotalLen()
}

// QueueLenOf returns the number of jobs waiting in one class.
func (s *Station) QueueLenOf(class int) int {
	return s.queues.LenOf(class)
}

// Mode returns the station's discipline.
func (s *Station) Mode() Mode {
	return s.mode
}

// NumPrio returns the number of priority classes.
func (s *Station) NumPrio() int {
	return s.numPrio
}
