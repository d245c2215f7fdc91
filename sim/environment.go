package sim

import "math"

// diurnal returns sin(2π·minuteOfDay/1440 + phase).
func diurnal(t int, phase float64) float64 {
	minuteOfDay := t % MinutesPerDay
	return math.Sin(2*math.Pi*float64(minuteOfDay)/MinutesPerDay + phase)
}

// temperatureAt draws one Normal.
func temperatureAt(t int, cfg TemperatureConfig, noise NoiseSource) float64 {
	daily := cfg.Amplitude * diurnal(t, 0)
	drift := cfg.DriftPerDay * (float64(t) / MinutesPerDay)
	return cfg.Base + daily + drift + noise.Normal(0, cfg.Sigma)
}

// salinityDelta draws one Normal.
func salinityDelta(cfg SalinityConfig, tempAboveBase float64, waterchange bool, noise NoiseSource) float64 {
	evap := cfg.KEvapPerDeg * math.Max(0, tempAboveBase)
	repl := 0.0
	if waterchange {
		repl = cfg.WaterchangeReduction
	}
	return evap + cfg.DriftPerMin - repl + noise.Normal(0, cfg.Sigma)
}

func nextSalinity(prev, delta float64) float64 {
	return math.Max(0, prev+delta)
}

// oxygenAt draws one Uniform on hypoxia minutes and one Normal otherwise. The
// floor applies to both.
func oxygenAt(t int, cfg OxygenConfig, tempAboveBase float64, hypoxia bool, noise NoiseSource) float64 {
	var o2 float64
	if hypoxia {
		o2 = noise.Uniform(cfg.HypoxiaMin, cfg.HypoxiaMax)
	} else {
		o2 = cfg.Base + cfg.Amplitude*diurnal(t, 0) - cfg.KTemp*tempAboveBase + noise.Normal(0, cfg.Sigma)
	}
	return math.Max(o2, cfg.Floor)
}

// phAt draws one Normal. Order: base, diurnal, feed acid, O2 deficit, noise,
// water-change recovery, smoothing against prevPH, clamp.
func phAt(t int, cfg PHConfig, feedKgMin, o2, prevPH float64, waterchange bool, noise NoiseSource) float64 {
	ph := cfg.Base
	ph += cfg.Amplitude * diurnal(t, cfg.Phase)
	ph += -cfg.KFeedAcid * feedKgMin
	ph += -cfg.KO2Acid * math.Max(0, cfg.O2AcidThreshold-o2)
	ph += noise.Normal(0, cfg.Sigma)
	if waterchange {
		f := cfg.WaterchangeRecoveryFactor
		ph = (1-f)*ph + f*cfg.Base
	}
	a := cfg.SmoothingAlpha
	ph = a*ph + (1-a)*prevPH
	return clamp(ph, cfg.MinLimit, cfg.MaxLimit)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
