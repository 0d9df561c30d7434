// Defines the Job struct that models an individual job flowing through the station.
// Tracks priority class, admission time, carried-over work and service bookkeeping.

package sim

import (
	"fmt"
)

// JobState represents the lifecycle state of a job.
type JobState string

const (
	StateNew       JobState = ""
	StateQueued    JobState = "queued"
	StateInService JobState = "in-service"
	StatePreempted JobState = "preempted"
	StateDeparted  JobState = "departed"
)

type Job struct {
	ID            string // Display identity; never used to decide scheduling
	PriorityClass int    // In [0, numPrio); 0 is the highest priority

	ArrivalTime   int64 // Tick at which the job was admitted to the station (stamped once)
	WorkRemaining int64 // Unused service carried over by a preemptive-resume displacement

	State JobState // new, queued, in-service, preempted, departed

	ServiceStart     int64 // Tick at which the current service segment began
	ServiceDuration  int64 // Length of the current service segment
	ServiceDemand    int64 // Full duration of the latest fresh service draw
	ServiceConsumed  int64 // Service actually received across all segments
	FirstServiceTime int64 // Tick of the first service start
	DepartureTime    int64 // Tick of departure
	Preemptions      int   // Number of times the job was displaced from the server
}

// NewJob creates a job of the given class that has not yet reached a station.
func NewJob(id string, class int) *Job {
	return &Job{ID: id, PriorityClass: class}
}

// JobID builds the display identity used by the arrival generator.
func JobID(count int, class int) string {
	return fmt.Sprintf("message-%d-priority:%d", count, class)
}

// This method returns a human-readable string representation of a Job.
func (j Job) String() string {
	return fmt.Sprintf("Job: (ID: %s, Class: %d, State: %s, ArrivalTime: %d, WorkRemaining: %d)",
		j.ID, j.PriorityClass, j.State, j.ArrivalTime, j.WorkRemaining)
}
