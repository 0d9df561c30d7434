package sim

// TimerHandle identifies a callback registered with a Scheduler.
// The zero value never identifies a live timer.
type TimerHandle uint64

// NoTimer is the zero TimerHandle.
const NoTimer TimerHandle = 0

// Scheduler is the event-scheduling substrate consumed by the station and the
// arrival generator. Callbacks run one at a time in timestamp order; callbacks
// registered for the same tick run in registration order.
type Scheduler interface {
	// Now returns the current simulated time in ticks.
	Now() int64
	// ScheduleAt registers fn to run once at tick t.
	ScheduleAt(t int64, fn func()) TimerHandle
	// Cancel revokes a pending callback. Cancelling a fired, cancelled or
	// unknown handle has no effect.
	Cancel(h TimerHandle)
}

// timerEvent is a one-shot callback queued in the Simulator.
type timerEvent struct {
	time      int64       // Tick at which the callback fires
	seq       uint64      // Registration order, breaks same-tick ties
	handle    TimerHandle // Identity returned to the caller
	fn        func()
	cancelled bool
}
