// sim/simulator.go
package sim

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// EventQueue implements heap.Interface and orders events by timestamp, then
// by registration sequence so same-tick events keep FIFO order.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type EventQueue []*timerEvent

func (eq EventQueue) Len() int { return len(eq) }
func (eq EventQueue) Less(i, j int) bool {
	if eq[i].time != eq[j].time {
		return eq[i].time < eq[j].time
	}
	return eq[i].seq < eq[j].seq
}
func (eq EventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *EventQueue) Push(x any) {
	*eq = append(*eq, x.(*timerEvent))
}

func (eq *EventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*eq = old[0 : n-1]
	return item
}

// Simulator holds simulation time and the event loop. It implements
// Scheduler for the station and the arrival generator.
type Simulator struct {
	Clock   int64
	Horizon int64
	// EventQueue has all pending callbacks, including cancelled ones that
	// have not been popped yet
	EventQueue EventQueue
	// Executed counts callbacks that actually ran
	Executed int

	pending map[TimerHandle]*timerEvent
	nextSeq uint64
}

// NewSimulator creates a simulator at tick 0. A horizon <= 0 means no horizon.
func NewSimulator(horizon int64) *Simulator {
	if horizon <= 0 {
		horizon = math.MaxInt64
	}
	return &Simulator{
		Clock:      0,
		Horizon:    horizon,
		EventQueue: make(EventQueue, 0),
		pending:    make(map[TimerHandle]*timerEvent),
	}
}

// Now returns the current simulated time.
func (sim *Simulator) Now() int64 {
	return sim.Clock
}

// ScheduleAt pushes a one-shot callback into the EventQueue.
// Scheduling into the past is a bug in the caller and panics.
func (sim *Simulator) ScheduleAt(t int64, fn func()) TimerHandle {
	if fn == nil {
		panic("ScheduleAt: fn must not be nil")
	}
	if t < sim.Clock {
		panic(fmt.Sprintf("ScheduleAt: tick %d is before current clock %d", t, sim.Clock))
	}
	sim.nextSeq++
	ev := &timerEvent{
		time:   t,
		seq:    sim.nextSeq,
		handle: TimerHandle(sim.nextSeq),
		fn:     fn,
	}
	heap.Push(&sim.EventQueue, ev)
	sim.pending[ev.handle] = ev
	return ev.handle
}

// Cancel revokes a pending callback. Safe no-op if already fired or unknown.
func (sim *Simulator) Cancel(h TimerHandle) {
	ev, ok := sim.pending[h]
	if !ok {
		return
	}
	ev.cancelled = true
	delete(sim.pending, h)
}

// Pending returns the number of callbacks still due to fire.
func (sim *Simulator) Pending() int {
	return len(sim.pending)
}

// nextLive discards cancelled events at the head and returns the next live one.
func (sim *Simulator) nextLive() *timerEvent {
	for len(sim.EventQueue) > 0 {
		ev := sim.EventQueue[0]
		if !ev.cancelled {
			return ev
		}
		heap.Pop(&sim.EventQueue)
	}
	return nil
}

// Step executes the next live callback within the horizon.
// Returns false when nothing is left to run.
func (sim *Simulator) Step() bool {
	ev := sim.nextLive()
	if ev == nil || ev.time > sim.Horizon {
		return false
	}
	heap.Pop(&sim.EventQueue)
	delete(sim.pending, ev.handle)
	// advance the clock
	sim.Clock = ev.time
	logrus.Tracef("[tick %07d] Executing timer %d", sim.Clock, ev.handle)
	ev.fn()
	sim.Executed++
	return true
}

// Run processes callbacks until the queue drains or the next callback lies
// beyond the horizon.
func (sim *Simulator) Run() {
	for sim.Step() {
	}
	logrus.Infof("[tick %07d] Simulation ended after %d events", sim.Clock, sim.Executed)
}

// EndTime returns the tick at which measurements should be closed: the
// horizon when it was reached, otherwise the last executed tick.
func (sim *Simulator) EndTime() int64 {
	if sim.nextLive() != nil {
		return sim.Horizon
	}
	return sim.Clock
}
