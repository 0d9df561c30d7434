package sim

// TelemetrySink receives the station's statistics samples. Calls are
// fire-and-forget and happen inside station operations, so implementations
// must not call back into the station.
type TelemetrySink interface {
	// QueueLength reports the total number of jobs waiting across all classes.
	QueueLength(now int64, n int)
	// Busy reports a server start (true) or stop (false).
	Busy(now int64, busy bool)
	// QueueingDelay reports now - ArrivalTime for a job entering service.
	QueueingDelay(now int64, job *Job, delay int64)
	// ResponseTime reports now - ArrivalTime for a departing job.
	ResponseTime(now int64, job *Job, rt int64)
}

// NoopTelemetry discards every sample.
type NoopTelemetry struct{}

func (NoopTelemetry) QueueLength(int64, int)           {}
func (NoopTelemetry) Busy(int64, bool)                 {}
func (NoopTelemetry) QueueingDelay(int64, *Job, int64) {}
func (NoopTelemetry) ResponseTime(int64, *Job, int64)  {}

// DepartureSink consumes finished jobs. OnJobDeparted is invoked exactly once
// per completed job and never for a job that was displaced and is still owed
// service.
type DepartureSink interface {
	OnJobDeparted(job *Job, responseTime int64)
}

// DepartureFunc adapts a plain function to DepartureSink.
type DepartureFunc func(job *Job, responseTime int64)

func (f DepartureFunc) OnJobDeparted(job *Job, responseTime int64) {
	f(job, responseTime)
}
