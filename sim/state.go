package sim

import (
	"fmt"
	"math"
	"time"
)

// SimulationState is the per-minute snapshot threaded through Step.
// Weight and biomass only change at day boundaries.
type SimulationState struct {
	Timestamp          time.Time
	Temperature        float64
	Salinity           float64
	Oxygen             float64
	PH                 float64
	FeedSpikeRemaining int
	Survivors          int
	Density            float64 // organisms per litre
	CurrentWeightG     float64
	BiomassKg          float64
}

// Row is one simulated minute as handed to exporters. Fields are rounded by
// Freeze before the row leaves the runner.
type Row struct {
	Timestamp      time.Time `json:"timestamp_utc"`
	TankID         int       `json:"tank_id"`
	MinuteIndex    int       `json:"minute_index"`
	TemperatureC   float64   `json:"temperature_C"`
	SalinityPpt    float64   `json:"salinity_ppt"`
	OxygenMgL      float64   `json:"oxygen_mgL"`
	PH             float64   `json:"pH"`
	FeedKgMin      float64   `json:"feed_kg_min"`
	DensityPerL    float64   `json:"density_shrimp_L"`
	Survivors      int       `json:"survivors"`
	Deaths         int       `json:"deaths"`
	CurrentWeightG float64   `json:"current_weight_g"`
	BiomassKg      float64   `json:"biomass_kg"`
	Waterchange    bool      `json:"waterchange"`
	FeedSpike      bool      `json:"feed_spike"`
	StockAdd       int       `json:"stock_add"`

	// MortalityRate is the per-minute death probability the binomial draw used.
	MortalityRate float64 `json:"-"`
	// PopulationBefore is survivors plus stocking, before deaths.
	PopulationBefore int `json:"-"`
}

// Freeze rounds a corrected row to its published precision.
func (r Row) Freeze() Row {
	r.TemperatureC = round(r.TemperatureC, 4)
	r.SalinityPpt = round(r.SalinityPpt, 4)
	r.OxygenMgL = round(r.OxygenMgL, 3)
	r.PH = round(r.PH, 3)
	r.FeedKgMin = round(r.FeedKgMin, 6)
	r.DensityPerL = round(r.DensityPerL, 4)
	r.CurrentWeightG = round(r.CurrentWeightG, 4)
	r.BiomassKg = round(r.BiomassKg, 4)
	return r
}

// checkFinite reports the first non-finite float field, which would mean a
// formula escaped its guards.
func (r Row) checkFinite() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"temperature_C", r.TemperatureC},
		{"salinity_ppt", r.SalinityPpt},
		{"oxygen_mgL", r.OxygenMgL},
		{"pH", r.PH},
		{"feed_kg_min", r.FeedKgMin},
		{"density_shrimp_L", r.DensityPerL},
		{"current_weight_g", r.CurrentWeightG},
		{"biomass_kg", r.BiomassKg},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &InternalInvariantError{
				Field: f.name,
				Err:   fmt.Errorf("non-finite value %v at minute %d", f.v, r.MinuteIndex),
			}
		}
	}
	return nil
}

// round rounds half away from zero to the given number of decimals.
func round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

// calculateDensity returns organisms per litre, 0 for an empty or invalid tank.
func calculateDensity(survivors int, volumeL float64) float64 {
	if volumeL <= 0 {
		return 0
	}
	return math.Max(0, float64(survivors)/volumeL)
}
