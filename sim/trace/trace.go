package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every admission, preemption, dispatch and departure.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// StationTrace collects decision records during a station simulation.
type StationTrace struct {
	Config    TraceConfig
	Decisions []DecisionRecord
}

// NewStationTrace creates a StationTrace ready for recording.
// Returns nil when the level disables tracing; a nil trace ignores records.
func NewStationTrace(config TraceConfig) *StationTrace {
	if config.Level == "" || config.Level == TraceLevelNone {
		return nil
	}
	return &StationTrace{
		Config:    config,
		Decisions: make([]DecisionRecord, 0),
	}
}

// Record appends a decision record. Safe on a nil trace.
func (st *StationTrace) Record(record DecisionRecord) {
	if st == nil {
		return
	}
	st.Decisions = append(st.Decisions, record)
}
