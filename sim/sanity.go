package sim

import (
	"math"

	"github.com/tank-sim/tank-sim/sim/trace"
)

// Rule names, in pipeline order.
const (
	RuleTempPH              = "temp-ph"
	RuleO2PH                = "o2-ph"
	RuleDensityO2           = "density-o2"
	RuleWaterchangeSalinity = "waterchange-salinity"
	RuleMortalityCap        = "mortality-cap"
)

// CorrectionRule inspects one row and returns a corrected copy when it fires.
// Rules must be idempotent on their own output.
type CorrectionRule interface {
	Name() string
	// Field is the row column the rule rewrites.
	Field() string
	Apply(row Row) (Row, bool)
}

// tempPHRule lifts pH off the floor when the water is too hot.
type tempPHRule struct {
	cfg   SanityConfig
	noise NoiseSource
}

func (r tempPHRule) Name() string  { return RuleTempPH }
func (r tempPHRule) Field() string { return "pH" }

func (r tempPHRule) Apply(row Row) (Row, bool) {
	if row.TemperatureC > r.cfg.TempCritForPH && row.PH < r.cfg.PHMinAtCritTemp {
		row.PH = r.cfg.PHMinAtCritTemp + r.noise.Uniform(r.cfg.PHFixNoiseMin, r.cfg.PHFixNoiseMax)
		return row, true
	}
	return row, false
}

// o2PHRule caps pH when oxygen is critical.
type o2PHRule struct {
	cfg SanityConfig
}

func (r o2PHRule) Name() string  { return RuleO2PH }
func (r o2PHRule) Field() string { return "pH" }

func (r o2PHRule) Apply(row Row) (Row, bool) {
	if row.OxygenMgL < r.cfg.O2CritForPH && row.PH > r.cfg.PHMaxAtCritO2 {
		row.PH = r.cfg.PHMaxAtCritO2
		return row, true
	}
	return row, false
}

// densityO2Rule pulls oxygen down in a crowded tank.
type densityO2Rule struct {
	cfg   SanityConfig
	noise NoiseSource
}

func (r densityO2Rule) Name() string  { return RuleDensityO2 }
func (r densityO2Rule) Field() string { return "oxygen_mgL" }

func (r densityO2Rule) Apply(row Row) (Row, bool) {
	if row.DensityPerL > r.cfg.DensityCritForO2 && row.OxygenMgL > r.cfg.O2MaxAtCritDensity {
		row.OxygenMgL = r.cfg.O2MaxAtCritDensity - r.noise.Uniform(r.cfg.O2FixNoiseMin, r.cfg.O2FixNoiseMax)
		return row, true
	}
	return row, false
}

// waterchangeSalinityRule resets salinity after a water change.
type waterchangeSalinityRule struct {
	cfg   SanityConfig
	noise NoiseSource
}

func (r waterchangeSalinityRule) Name() string  { return RuleWaterchangeSalinity }
func (r waterchangeSalinityRule) Field() string { return "salinity_ppt" }

func (r waterchangeSalinityRule) Apply(row Row) (Row, bool) {
	if row.Waterchange && row.SalinityPpt > r.cfg.SalinityMaxWithWC {
		row.SalinityPpt = r.cfg.SalinityMaxWithWC + r.noise.Uniform(r.cfg.SalFixNoiseMin, r.cfg.SalFixNoiseMax)
		return row, true
	}
	return row, false
}

// mortalityCapRule limits the deaths reported for one minute to a fraction of
// the pre-death population. Survivors and the carried state are left alone.
type mortalityCapRule struct {
	cfg SanityConfig
}

func (r mortalityCapRule) Name() string  { return RuleMortalityCap }
func (r mortalityCapRule) Field() string { return "deaths" }

func (r mortalityCapRule) Apply(row Row) (Row, bool) {
	limit := int(math.Floor(float64(row.PopulationBefore) * r.cfg.MaxMortalityRatio))
	if row.Deaths > limit {
		row.Deaths = limit
		return row, true
	}
	return row, false
}

// SanityPipeline applies its rules strictly in order; each rule sees the
// previous rule's output.
type SanityPipeline struct {
	rules  []CorrectionRule
	counts map[string]int
	trace  *trace.CorrectionTrace
}

// NewSanityPipeline builds the standard five-rule pipeline. tr may be nil.
func NewSanityPipeline(cfg SanityConfig, noise NoiseSource, tr *trace.CorrectionTrace) *SanityPipeline {
	return NewSanityPipelineWithRules([]CorrectionRule{
		tempPHRule{cfg: cfg, noise: noise},
		o2PHRule{cfg: cfg},
		densityO2Rule{cfg: cfg, noise: noise},
		waterchangeSalinityRule{cfg: cfg, noise: noise},
		mortalityCapRule{cfg: cfg},
	}, tr)
}

// NewSanityPipelineWithRules builds a pipeline over an explicit rule list.
func NewSanityPipelineWithRules(rules []CorrectionRule, tr *trace.CorrectionTrace) *SanityPipeline {
	return &SanityPipeline{rules: rules, counts: make(map[string]int), trace: tr}
}

// Apply runs every rule over row.
func (p *SanityPipeline) Apply(row Row) Row {
	for _, rule := range p.rules {
		corrected, fired := rule.Apply(row)
		if !fired {
			continue
		}
		p.counts[rule.Name()]++
		if p.trace != nil {
			p.trace.Record(trace.CorrectionRecord{
				Minute: row.MinuteIndex,
				Rule:   rule.Name(),
				Field:  rule.Field(),
				Before: fieldValue(row, rule.Field()),
				After:  fieldValue(corrected, rule.Field()),
			})
		}
		row = corrected
	}
	return row
}

// Counts returns how often each rule fired so far.
func (p *SanityPipeline) Counts() map[string]int {
	out := make(map[string]int, len(p.counts))
	for k, v := range p.counts {
		out[k] = v
	}
	return out
}

func fieldValue(row Row, field string) float64 {
	switch field {
	case "pH":
		return row.PH
	case "oxygen_mgL":
		return row.OxygenMgL
	case "salinity_ppt":
		return row.SalinityPpt
	case "deaths":
		return float64(row.Deaths)
	}
	return math.NaN()
}
