package trace

// TraceSummary aggregates statistics from a StationTrace.
type TraceSummary struct {
	TotalDecisions     int
	KindCounts         map[DecisionKind]int
	PreemptionsByClass map[int]int // class of the displaced job → count
	MaxQueueLen        int
	CarriedWork        int64 // total work carried over by displaced jobs
}

// Summarize computes aggregate statistics from a StationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *StationTrace) *TraceSummary {
	summary := &TraceSummary{
		KindCounts:         make(map[DecisionKind]int),
		PreemptionsByClass: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Decisions)
	for _, d := range st.Decisions {
		summary.KindCounts[d.Kind]++
		if d.QueueLen > summary.MaxQueueLen {
			summary.MaxQueueLen = d.QueueLen
		}
		if d.Kind == KindPreempt {
			summary.PreemptionsByClass[d.DisplacedClass]++
			summary.CarriedWork += d.Carried
		}
	}
	return summary
}
