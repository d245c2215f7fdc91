package trace

import "math"

// TraceSummary aggregates statistics from a CorrectionTrace.
type TraceSummary struct {
	TotalCorrections int                `json:"total_corrections"`
	ByRule           map[string]int     `json:"by_rule"`
	FirstMinute      int                `json:"first_minute"` // -1 when empty
	LastMinute       int                `json:"last_minute"`  // -1 when empty
	MaxAbsDelta      map[string]float64 `json:"max_abs_delta"`
}

// Summarize computes aggregate statistics from a CorrectionTrace.
// Safe for nil or empty traces (returns zero counts and -1 minutes).
func Summarize(ct *CorrectionTrace) *TraceSummary {
	summary := &TraceSummary{
		ByRule:      make(map[string]int),
		FirstMinute: -1,
		LastMinute:  -1,
		MaxAbsDelta: make(map[string]float64),
	}
	if ct == nil {
		return summary
	}

	summary.TotalCorrections = len(ct.Corrections)
	for _, c := range ct.Corrections {
		summary.ByRule[c.Rule]++
		if summary.FirstMinute < 0 || c.Minute < summary.FirstMinute {
			summary.FirstMinute = c.Minute
		}
		if c.Minute > summary.LastMinute {
			summary.LastMinute = c.Minute
		}
		if d := math.Abs(c.Delta()); d > summary.MaxAbsDelta[c.Rule] {
			summary.MaxAbsDelta[c.Rule] = d
		}
	}
	return summary
}
