package sim

import (
	"gonum.org/v1/gonum/stat"
)

// defaultFeedRate is used when the feed table is empty.
const defaultFeedRate = 0.04

// FeedRateForWeight returns the rate of the first band whose upper bound is
// at least weightG, or the last band's rate when the animals outgrew the table.
func FeedRateForWeight(weightG float64, table []FeedBand) float64 {
	for _, b := range table {
		if weightG <= b.MaxWeightG {
			return b.RatePercent
		}
	}
	if len(table) == 0 {
		return defaultFeedRate
	}
	return table[len(table)-1].RatePercent
}

// DailyFeedDemandKg is the feed the tank should receive over one day.
func DailyFeedDemandKg(biomassKg, weightG float64, cfg GrowthConfig) float64 {
	return biomassKg * FeedRateForWeight(weightG, cfg.FeedTable)
}

// GrowthFactor is 0 outside (min, max), ramps 0→1 up to the optimum and
// 1→0 above it.
func GrowthFactor(avgTemp float64, cfg GrowthConfig) float64 {
	if avgTemp <= cfg.TempMinGrowth || avgTemp >= cfg.TempMaxGrowth {
		return 0
	}
	var f float64
	if avgTemp <= cfg.TempOptimalGrowth {
		span := cfg.TempOptimalGrowth - cfg.TempMinGrowth
		f = 1
		if span > 0 {
			f = (avgTemp - cfg.TempMinGrowth) / span
		}
	} else {
		span := cfg.TempMaxGrowth - cfg.TempOptimalGrowth
		f = 1
		if span > 0 {
			f = 1 - (avgTemp-cfg.TempOptimalGrowth)/span
		}
	}
	return clamp(f, 0, 1)
}

// DailyGrowth returns the new mean body weight after a day in which
// feedEatenKg was given to survivors animals. No survivors, no growth.
func DailyGrowth(weightG, feedEatenKg float64, survivors int, avgTemp float64, cfg GrowthConfig) float64 {
	if survivors <= 0 || cfg.FCR <= 0 {
		return weightG
	}
	biomassGainKg := feedEatenKg / cfg.FCR
	perAnimalG := biomassGainKg / float64(survivors) * 1000
	return weightG + perAnimalG*GrowthFactor(avgTemp, cfg)
}

// GrowthUpdater owns the day-boundary bookkeeping: biomass and feed demand at
// day start, weight gain at day end.
type GrowthUpdater struct {
	cfg      GrowthConfig
	baseTemp float64

	feedGivenKg float64
	temps       []float64
}

// NewGrowthUpdater uses baseTemp as the day's mean if no minute was observed.
func NewGrowthUpdater(cfg GrowthConfig, baseTemp float64) *GrowthUpdater {
	return &GrowthUpdater{cfg: cfg, baseTemp: baseTemp, temps: make([]float64, 0, MinutesPerDay)}
}

// StartDay refreshes biomass on state and returns the day's feed rate in kg/min.
func (g *GrowthUpdater) StartDay(state *SimulationState) float64 {
	state.BiomassKg = float64(state.Survivors) * state.CurrentWeightG / 1000
	demand := DailyFeedDemandKg(state.BiomassKg, state.CurrentWeightG, g.cfg)
	g.feedGivenKg = 0
	return demand / MinutesPerDay
}

// Observe accumulates one published row.
func (g *GrowthUpdater) Observe(row Row) {
	g.feedGivenKg += row.FeedKgMin
	g.temps = append(g.temps, row.TemperatureC)
}

// EndDay applies the day's growth to state.
func (g *GrowthUpdater) EndDay(state *SimulationState) {
	avg := g.baseTemp
	if len(g.temps) > 0 {
		avg = stat.Mean(g.temps, nil)
	}
	state.CurrentWeightG = DailyGrowth(state.CurrentWeightG, g.feedGivenKg, state.Survivors, avg, g.cfg)
	g.temps = g.temps[:0]
}
