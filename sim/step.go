package sim

import "time"

// Step computes minute t from prev. feedKgMin is the day's base feed rate.
// The returned row has not been through the sanity pipeline yet.
//
// Noise is drawn in this order: temperature, salinity, feed, oxygen, pH,
// deaths.
func (sim *Simulator) Step(t int, prev SimulationState, feedKgMin float64) (SimulationState, Row) {
	c := &sim.Configs
	waterchange := sim.Schedules.Waterchange[t]
	hypoxia := sim.Schedules.Hypoxia[t]

	temp := temperatureAt(t, c.Temperature, sim.noise)
	tempAboveBase := temp - c.Temperature.Base

	sal := nextSalinity(prev.Salinity, salinityDelta(c.Salinity, tempAboveBase, waterchange, sim.noise))

	scheduled, startsSpike := sim.Schedules.FeedSpikes[t]
	spikeRemaining := nextSpikeRemaining(prev.FeedSpikeRemaining, scheduled, startsSpike)
	spikeActive := spikeRemaining > 0
	feed := feedRate(c.Feed, feedKgMin, spikeActive, sim.noise)

	o2 := oxygenAt(t, c.Oxygen, tempAboveBase, hypoxia, sim.noise)

	ph := phAt(t, c.PH, feed, o2, prev.PH, waterchange, sim.noise)

	stockAdd := sim.Schedules.Stocking[t]
	population := prev.Survivors + stockAdd
	density := calculateDensity(population, c.VolumeL)

	risk := RiskScore(MortalityInputs{Oxygen: o2, Temperature: temp, Density: density, Salinity: sal}, c.Mortality)
	rate := MortalityRate(risk, c.Mortality)
	dead := deaths(population, rate, sim.noise)
	survivors := max(0, population-dead)

	next := SimulationState{
		Timestamp:          prev.Timestamp.Add(time.Minute),
		Temperature:        temp,
		Salinity:           sal,
		Oxygen:             o2,
		PH:                 ph,
		FeedSpikeRemaining: spikeRemaining,
		Survivors:          survivors,
		Density:            density,
		CurrentWeightG:     prev.CurrentWeightG,
		BiomassKg:          prev.BiomassKg,
	}
	row := Row{
		Timestamp:        next.Timestamp,
		TankID:           sim.TankID,
		MinuteIndex:      t,
		TemperatureC:     temp,
		SalinityPpt:      sal,
		OxygenMgL:        o2,
		PH:               ph,
		FeedKgMin:        feed,
		DensityPerL:      density,
		Survivors:        survivors,
		Deaths:           dead,
		CurrentWeightG:   next.CurrentWeightG,
		BiomassKg:        next.BiomassKg,
		Waterchange:      waterchange,
		FeedSpike:        spikeActive,
		StockAdd:         stockAdd,
		MortalityRate:    rate,
		PopulationBefore: population,
	}
	return next, row
}
