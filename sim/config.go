package sim

import (
	"errors"
	"strings"
)

// MinutesPerDay is the length of one simulated day in steps.
const MinutesPerDay = 1440

// TemperatureConfig drives the sinusoidal water temperature model.
type TemperatureConfig struct {
	Base        float64 // °C
	Amplitude   float64 // diurnal swing, °C
	Sigma       float64 // per-minute noise std dev
	DriftPerDay float64 // linear warming per day, °C
}

// SalinityConfig drives the salinity random walk.
type SalinityConfig struct {
	Base                 float64 // ppt, initial value
	DriftPerMin          float64
	Sigma                float64
	KEvapPerDeg          float64 // extra drift per °C above the temperature base
	WaterchangeReduction float64 // subtracted on water-change minutes
}

// OxygenConfig drives dissolved oxygen, including hypoxia events.
type OxygenConfig struct {
	Base       float64 // mg/L
	Amplitude  float64
	Sigma      float64
	KTemp      float64 // mg/L lost per °C above the temperature base
	HypoxiaMin float64
	HypoxiaMax float64
	Floor      float64
}

// PHConfig drives pH, which is smoothed against the previous minute.
type PHConfig struct {
	Base                      float64
	Amplitude                 float64
	Sigma                     float64
	Phase                     float64 // radians
	KFeedAcid                 float64
	KO2Acid                   float64
	O2AcidThreshold           float64
	WaterchangeRecoveryFactor float64
	SmoothingAlpha            float64
	MinLimit                  float64
	MaxLimit                  float64
}

// FeedConfig shapes the per-minute feed rate around the day's demand.
type FeedConfig struct {
	BaseKgPerDay    float64
	SpikeMultiplier float64
	NoiseMinFactor  float64
	NoiseMaxFactor  float64
	MinFeedKgMin    float64
}

// MortalityConfig holds the stress weights and thresholds of the risk model.
type MortalityConfig struct {
	WeightO2                float64
	WeightTemp              float64
	WeightDensity           float64
	WeightSalinity          float64
	O2CriticalThreshold     float64
	TempOptimalThreshold    float64
	DensityOptimalThreshold float64
	SalinityOptimalMin      float64
	SalinityOptimalMax      float64
	SalinityLethalLow       float64
	SalinityLethalHigh      float64
	ShockFactor             float64
	O2ShockThreshold        float64
	DensityShockThreshold   float64
	KappaScaler             float64
	MaxMortalityRate        float64
}

// SanityConfig holds the thresholds and noise ranges of the correction rules.
type SanityConfig struct {
	TempCritForPH      float64
	PHMinAtCritTemp    float64
	PHFixNoiseMin      float64
	PHFixNoiseMax      float64
	O2CritForPH        float64
	PHMaxAtCritO2      float64
	DensityCritForO2   float64
	O2MaxAtCritDensity float64
	O2FixNoiseMin      float64
	O2FixNoiseMax      float64
	SalinityMaxWithWC  float64
	SalFixNoiseMin     float64
	SalFixNoiseMax     float64
	MaxMortalityRatio  float64
}

// GrowthConfig drives the once-per-day feed demand and weight update.
type GrowthConfig struct {
	InitialWeightG    float64
	TargetWeightG     float64
	FCR               float64
	FeedTable         []FeedBand // ordered by MaxWeightG
	TempMinGrowth     float64
	TempOptimalGrowth float64
	TempMaxGrowth     float64
}

// ScheduleConfig parameterizes event schedule generation.
type ScheduleConfig struct {
	WaterchangeFrequencyDays float64
	HypoxiaProbPerDay        float64
	FeedSpikeProbPerDay      float64
	FeedSpikeDurationMin     [2]int // inclusive
	StockingProbPerDay       float64
	StockingMin              int // inclusive
	StockingMax              int // inclusive
}

// DomainConfigs is every immutable value group a run needs.
type DomainConfigs struct {
	VolumeL  float64
	InitialN int

	Temperature TemperatureConfig
	Salinity    SalinityConfig
	Oxygen      OxygenConfig
	PH          PHConfig
	Feed        FeedConfig
	Mortality   MortalityConfig
	Sanity      SanityConfig
	Growth      GrowthConfig
	Schedule    ScheduleConfig
}

// configReader reads validated parameters and remembers any name it could not
// find, which can only happen if the schema and this file disagree.
type configReader struct {
	p       *Parameters
	missing []string
}

func (r *configReader) f(name string) float64 {
	v, ok := r.p.float(name)
	if !ok {
		r.missing = append(r.missing, name)
	}
	return v
}

func (r *configReader) i(name string) int {
	v, ok := r.p.integer(name)
	if !ok {
		r.missing = append(r.missing, name)
	}
	return v
}

func (r *configReader) pair(name string) [2]int {
	v, ok := r.p.pair(name)
	if !ok {
		r.missing = append(r.missing, name)
	}
	return v
}

func (r *configReader) table(name string) []FeedBand {
	v, ok := r.p.table(name)
	if !ok {
		r.missing = append(r.missing, name)
	}
	out := make([]FeedBand, len(v))
	copy(out, v)
	return out
}

// NewDomainConfigs maps validated parameters onto the config groups.
func NewDomainConfigs(p *Parameters) (DomainConfigs, error) {
	if p == nil {
		return DomainConfigs{}, &InternalInvariantError{Field: "parameters", Err: errors.New("nil parameters")}
	}
	r := &configReader{p: p}
	c := DomainConfigs{
		VolumeL:  r.f("V"),
		InitialN: r.i("initial_N"),
		Temperature: TemperatureConfig{
			Base:        r.f("T_base"),
			Amplitude:   r.f("A_T"),
			Sigma:       r.f("sigma_T"),
			DriftPerDay: r.f("drift_T_per_day"),
		},
		Salinity: SalinityConfig{
			Base:                 r.f("S_base"),
			DriftPerMin:          r.f("drift_S_per_min"),
			Sigma:                r.f("sigma_S"),
			KEvapPerDeg:          r.f("k_evap_per_deg"),
			WaterchangeReduction: r.f("waterchange_reduction"),
		},
		Oxygen: OxygenConfig{
			Base:       r.f("O2_base"),
			Amplitude:  r.f("A_O2"),
			Sigma:      r.f("sigma_O2"),
			KTemp:      r.f("k_T_O2"),
			HypoxiaMin: r.f("hypoxia_min"),
			HypoxiaMax: r.f("hypoxia_max"),
			Floor:      r.f("O2_floor"),
		},
		PH: PHConfig{
			Base:                      r.f("pH_base"),
			Amplitude:                 r.f("A_pH"),
			Sigma:                     r.f("sigma_pH"),
			Phase:                     r.f("pH_phase"),
			KFeedAcid:                 r.f("k_feed_acid"),
			KO2Acid:                   r.f("k_O2_pH"),
			O2AcidThreshold:           r.f("O2_pH_threshold"),
			WaterchangeRecoveryFactor: r.f("pH_recovery_on_waterchange"),
			SmoothingAlpha:            r.f("pH_smoothing_alpha"),
			MinLimit:                  r.f("pH_min_limit"),
			MaxLimit:                  r.f("pH_max_limit"),
		},
		Feed: FeedConfig{
			BaseKgPerDay:    r.f("Feed_base"),
			SpikeMultiplier: r.f("feed_spike_multiplier"),
			NoiseMinFactor:  r.f("feed_noise_min_factor"),
			NoiseMaxFactor:  r.f("feed_noise_max_factor"),
			MinFeedKgMin:    r.f("feed_min_kg_min"),
		},
		Mortality: MortalityConfig{
			WeightO2:                r.f("alpha"),
			WeightTemp:              r.f("beta"),
			WeightDensity:           r.f("gamma"),
			WeightSalinity:          r.f("weight_salinity"),
			O2CriticalThreshold:     r.f("O2_crit"),
			TempOptimalThreshold:    r.f("T_opt"),
			DensityOptimalThreshold: r.f("rho_opt"),
			SalinityOptimalMin:      r.f("salinity_optimal_min"),
			SalinityOptimalMax:      r.f("salinity_optimal_max"),
			SalinityLethalLow:       r.f("salinity_lethal_low"),
			SalinityLethalHigh:      r.f("salinity_lethal_high"),
			ShockFactor:             r.f("shock_factor"),
			O2ShockThreshold:        r.f("O2_crit_for_shock"),
			DensityShockThreshold:   r.f("density_crit_for_shock"),
			KappaScaler:             r.f("kappa"),
			MaxMortalityRate:        r.f("max_mortality_rate"),
		},
		Sanity: SanityConfig{
			TempCritForPH:      r.f("sanity_temp_crit_for_ph"),
			PHMinAtCritTemp:    r.f("sanity_ph_min_at_crit_temp"),
			PHFixNoiseMin:      r.f("sanity_ph_fix_noise_min"),
			PHFixNoiseMax:      r.f("sanity_ph_fix_noise_max"),
			O2CritForPH:        r.f("sanity_o2_crit_for_ph"),
			PHMaxAtCritO2:      r.f("sanity_ph_max_at_crit_o2"),
			DensityCritForO2:   r.f("sanity_density_crit_for_o2"),
			O2MaxAtCritDensity: r.f("sanity_o2_max_at_crit_density"),
			O2FixNoiseMin:      r.f("sanity_o2_fix_noise_min"),
			O2FixNoiseMax:      r.f("sanity_o2_fix_noise_max"),
			SalinityMaxWithWC:  r.f("sanity_salinity_max_with_wc"),
			SalFixNoiseMin:     r.f("sanity_sal_fix_noise_min"),
			SalFixNoiseMax:     r.f("sanity_sal_fix_noise_max"),
			MaxMortalityRatio:  r.f("sanity_max_mortality_ratio"),
		},
		Growth: GrowthConfig{
			InitialWeightG:    r.f("initial_weight_g"),
			TargetWeightG:     r.f("target_weight_g"),
			FCR:               r.f("fcr"),
			FeedTable:         r.table("feed_table"),
			TempMinGrowth:     r.f("temp_min_growth"),
			TempOptimalGrowth: r.f("temp_optimal_growth"),
			TempMaxGrowth:     r.f("temp_max_growth"),
		},
		Schedule: ScheduleConfig{
			WaterchangeFrequencyDays: r.f("waterchange_frequency_days"),
			HypoxiaProbPerDay:        r.f("O2_event_prob_per_day"),
			FeedSpikeProbPerDay:      r.f("feed_spike_prob_per_day"),
			FeedSpikeDurationMin:     r.pair("feed_spike_duration_min"),
			StockingProbPerDay:       r.f("stocking_prob_per_day"),
			StockingMin:              r.i("stocking_min"),
			StockingMax:              r.i("stocking_max"),
		},
	}
	if len(r.missing) > 0 {
		return DomainConfigs{}, &InternalInvariantError{
			Field: strings.Join(r.missing, ", "),
			Err:   errors.New("field absent from validated parameters"),
		}
	}
	return c, nil
}
