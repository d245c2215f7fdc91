package sim

import "math"

// nextSpikeRemaining counts the active spike down by one minute unless the
// schedule starts a new spike at t.
func nextSpikeRemaining(prev int, scheduled int, hasScheduled bool) int {
	if hasScheduled {
		return scheduled
	}
	return max(0, prev-1)
}

// feedRate draws one Uniform. baseKgMin is the day's growth-driven rate.
func feedRate(cfg FeedConfig, baseKgMin float64, spikeActive bool, noise NoiseSource) float64 {
	factor := noise.Uniform(cfg.NoiseMinFactor, cfg.NoiseMaxFactor)
	spike := 0.0
	if spikeActive {
		spike = cfg.SpikeMultiplier * baseKgMin
	}
	return math.Max(cfg.MinFeedKgMin, baseKgMin*(1+factor)+spike)
}
