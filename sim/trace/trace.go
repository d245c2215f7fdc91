package trace

// TraceLevel controls the verbosity of correction tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelCorrections captures every sanity-rule correction.
	TraceLevelCorrections TraceLevel = "corrections"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:        true,
	TraceLevelCorrections: true,
	"":                    true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// CorrectionTrace collects correction records during one run.
type CorrectionTrace struct {
	Level       TraceLevel
	Corrections []CorrectionRecord
}

// NewCorrectionTrace returns nil for TraceLevelNone so callers can pass the
// result straight to the engine.
func NewCorrectionTrace(level TraceLevel) *CorrectionTrace {
	if level == TraceLevelNone || level == "" {
		return nil
	}
	return &CorrectionTrace{
		Level:       level,
		Corrections: make([]CorrectionRecord, 0),
	}
}

// Record appends a correction record.
func (ct *CorrectionTrace) Record(record CorrectionRecord) {
	ct.Corrections = append(ct.Corrections, record)
}
