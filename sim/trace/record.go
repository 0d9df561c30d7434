// Package trace provides decision-trace recording for station-level discipline analysis.
// This package has no dependencies on sim/ — it stores pure data types.
package trace

// DecisionKind names the station transition a record describes.
type DecisionKind string

const (
	// KindDirect: an arrival found the server idle and entered service at once.
	KindDirect DecisionKind = "direct"
	// KindEnqueue: an arrival found the server busy and joined its class queue.
	KindEnqueue DecisionKind = "enqueue"
	// KindPreempt: an arrival displaced the job in service.
	KindPreempt DecisionKind = "preempt"
	// KindDispatch: a queued job entered service after a completion.
	KindDispatch DecisionKind = "dispatch"
	// KindDepart: the job in service completed and left.
	KindDepart DecisionKind = "depart"
	// KindIdle: a completion left every class queue empty.
	KindIdle DecisionKind = "idle"
)

// DecisionRecord captures a single station decision.
type DecisionRecord struct {
	JobID          string
	Class          int
	Clock          int64
	Kind           DecisionKind
	Displaced      string // ID of the displaced job (preempt only)
	DisplacedClass int    // class of the displaced job (preempt only)
	Carried        int64  // work carried over by the displaced job (preempt only)
	QueueLen       int    // total jobs waiting after the decision
	Duration       int64  // service duration scheduled (direct, preempt, dispatch)
}
