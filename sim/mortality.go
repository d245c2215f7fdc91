package sim

import "math"

// MortalityInputs are the stressors seen by the risk model in one minute.
type MortalityInputs struct {
	Oxygen      float64
	Temperature float64
	Density     float64
	Salinity    float64
}

// RiskScore is the weighted sum of the four stress penalties, multiplied by
// the shock factor when low oxygen and high density coincide.
func RiskScore(in MortalityInputs, cfg MortalityConfig) float64 {
	risk := cfg.WeightO2*math.Max(0, cfg.O2CriticalThreshold-in.Oxygen) +
		cfg.WeightTemp*math.Max(0, in.Temperature-cfg.TempOptimalThreshold) +
		cfg.WeightDensity*math.Max(0, in.Density-cfg.DensityOptimalThreshold) +
		cfg.WeightSalinity*salinityPenalty(in.Salinity, cfg)
	if in.Oxygen < cfg.O2ShockThreshold && in.Density > cfg.DensityShockThreshold {
		risk *= cfg.ShockFactor
	}
	return risk
}

// salinityPenalty is 0 inside the optimal band and ramps linearly to 1 at the
// lethal bound on either side.
func salinityPenalty(s float64, cfg MortalityConfig) float64 {
	var penalty float64
	switch {
	case s < cfg.SalinityOptimalMin:
		span := cfg.SalinityOptimalMin - cfg.SalinityLethalLow
		if s <= cfg.SalinityLethalLow || span <= 0 {
			penalty = 1
		} else {
			penalty = (cfg.SalinityOptimalMin - s) / span
		}
	case s > cfg.SalinityOptimalMax:
		span := cfg.SalinityLethalHigh - cfg.SalinityOptimalMax
		if s >= cfg.SalinityLethalHigh || span <= 0 {
			penalty = 1
		} else {
			penalty = (s - cfg.SalinityOptimalMax) / span
		}
	}
	return clamp(penalty, 0, 1)
}

// MortalityRate maps a risk score to a per-minute death probability:
// kappa·(sigmoid(risk)−0.5)·2, capped at MaxMortalityRate. Exactly 0 when
// risk <= 0.
func MortalityRate(risk float64, cfg MortalityConfig) float64 {
	if risk <= 0 {
		return 0
	}
	sigmoid := 1 / (1 + math.Exp(-risk))
	rate := cfg.KappaScaler * (sigmoid - 0.5) * 2
	return math.Min(rate, cfg.MaxMortalityRate)
}

// deaths draws one Binomial over the pre-death population, skipped (no
// entropy consumed) when the population or the rate is zero.
func deaths(population int, rate float64, noise NoiseSource) int {
	rate = clamp(rate, 0, 1)
	population = max(0, population)
	if population == 0 || rate == 0 {
		return 0
	}
	return noise.Binomial(population, rate)
}
