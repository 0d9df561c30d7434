// Implements the per-class waiting lines of the station.
// Jobs are appended on admission (or displacement) and removed head-first on dispatch.

package sim

import (
	"fmt"
	"strings"
)

// ClassQueue represents a FIFO queue of jobs of a single priority class
// waiting for the server.
type ClassQueue struct {
	queue []*Job // FIFO queue of jobs
}

// Enqueue adds a job to the back of the class queue.
func (cq *ClassQueue) Enqueue(j *Job) {
	if j == nil {
		panic("Enqueue: job must not be nil")
	}
	cq.queue = append(cq.queue, j)
}

func (cq *ClassQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range cq.queue {
		sb.WriteString(val.ID)
		if i < len(cq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of jobs in the queue.
func (cq *ClassQueue) Len() int {
	return len(cq.queue)
}

// Dequeue removes the job at the front of the queue.
// Returns nil if the queue is empty.
func (cq *ClassQueue) Dequeue() *Job {
	if len(cq.queue) == 0 {
		return nil
	}
	j := cq.queue[0]
	cq.queue[0] = nil
	cq.queue = cq.queue[1:]
	return j
}

// ClassQueues holds one ClassQueue per priority class, indexed directly by
// class. Index 0 is the highest priority. The number of classes is fixed
// at construction.
type ClassQueues struct {
	classes []ClassQueue
	total   int
}

// NewClassQueues creates numPrio empty class queues.
// Panics if numPrio <= 0; callers validate configuration first.
func NewClassQueues(numPrio int) *ClassQueues {
	if numPrio <= 0 {
		panic(fmt.Sprintf("NewClassQueues: numPrio must be > 0, got %d", numPrio))
	}
	return &ClassQueues{classes: make([]ClassQueue, numPrio)}
}

// Enqueue appends the job at the tail of its own class queue and marks it queued.
// A job that is already queued or in service is an invariant violation.
func (q *ClassQueues) Enqueue(j *Job) {
	if j.State == StateQueued || j.State == StateInService {
		panic(fmt.Sprintf("Enqueue: job %s is already %s", j.ID, j.State))
	}
	if j.PriorityClass < 0 || j.PriorityClass >= len(q.classes) {
		panic(fmt.Sprintf("Enqueue: job %s has class %d outside [0, %d)", j.ID, j.PriorityClass, len(q.classes)))
	}
	j.State = StateQueued
	q.classes[j.PriorityClass].Enqueue(j)
	q.total++
}

// DequeueHighest scans every class from 0 up to numPrio-1 and removes the head of the
// first non-empty class queue. Returns nil when every class is empty.
func (q *ClassQueues) DequeueHighest() *Job {
	for i := 0; i < len(q.classes); i++ {
		if q.classes[i].Len() > 0 {
			j := q.classes[i].Dequeue()
			q.total--
			return j
		}
	}
	return nil
}

// TotalLen returns the number of jobs waiting across all classes.
func (q *ClassQueues) TotalLen() int {
	return q.total
}

// LenOf returns the number of jobs waiting in the given class.
// Classes outside the configured range report 0.
func (q *ClassQueues) LenOf(class int) int {
	if class < 0 || class >= len(q.classes) {
		return 0
	}
	return q.classes[class].Len()
}

func (q *ClassQueues) String() string {
	var sb strings.Builder
	for i := range q.classes {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%d:%s", i, q.classes[i].String())
	}
	return sb.String()
}
