// Package sim provides the priority queueing station and the discrete-event
// substrate it runs on.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - job.go: Job lifecycle (new → queued/in-service ⇄ preempted → departed)
//   - station.go: admission, preemption, dispatch and completion
//   - simulator.go: the event loop implementing Scheduler
//
// # Disciplines
//
// A Station runs one of three Modes, fixed at construction:
//   - NonPreemptive: a job in service always runs to completion
//   - PreemptiveRestart: a strictly higher-priority arrival displaces the job
//     in service; the displaced job later redraws a full service time
//   - PreemptiveResume: as above, but the displaced job later resumes with
//     exactly the unused part of its scheduled service
//
// Class 0 is the highest priority. Within a class jobs are served FIFO, and a
// displaced job rejoins the tail of its own class queue.
//
// # Key Interfaces
//   - Scheduler: now / schedule-at / cancel; implemented by Simulator
//   - ServiceTimeModel: service duration per class (fixed table or exponential)
//   - TelemetrySink: queue length, busy, queueing delay and response time samples
//   - DepartureSink: consumer of completed jobs
//
// Sub-packages:
//   - sim/workload/: arrival generator and inter-arrival samplers
//   - sim/telemetry/: Prometheus-backed and fan-out telemetry sinks
//   - sim/trace/: station decision trace recording
package sim
