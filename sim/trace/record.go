// Package trace records sanity-rule corrections for post-run analysis.
// It has no dependencies on sim/ and stores pure data types.
package trace

// CorrectionRecord captures one rule rewriting one field of one minute's row.
type CorrectionRecord struct {
	Minute int     `json:"minute_index"`
	Rule   string  `json:"rule"`
	Field  string  `json:"field"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}

// Delta is the signed change the rule applied.
func (r CorrectionRecord) Delta() float64 {
	return r.After - r.Before
}
