package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testMortalityConfig() MortalityConfig {
	return MortalityConfig{
		WeightO2: 0.5, WeightTemp: 0.2, WeightDensity: 0.1, WeightSalinity: 0.3,
		O2CriticalThreshold: 3, TempOptimalThreshold: 30, DensityOptimalThreshold: 3,
		SalinityOptimalMin: 15, SalinityOptimalMax: 30, SalinityLethalLow: 5, SalinityLethalHigh: 40,
		ShockFactor: 2, O2ShockThreshold: 2.5, DensityShockThreshold: 2.5,
		KappaScaler: 0.01, MaxMortalityRate: 0.001,
	}
}

func TestRiskScore_ZeroInsideComfortZone(t *testing.T) {
	cfg := testMortalityConfig()
	in := MortalityInputs{Oxygen: 6, Temperature: 28, Density: 2, Salinity: 25}

	assert.Equal(t, 0.0, RiskScore(in, cfg))
	assert.Equal(t, 0.0, MortalityRate(RiskScore(in, cfg), cfg))
}

func TestRiskScore_WeightedPenalties(t *testing.T) {
	cfg := testMortalityConfig()
	// O2 deficit 1, temp excess 2, density excess 1, salinity halfway to lethal high.
	in := MortalityInputs{Oxygen: 2, Temperature: 32, Density: 4, Salinity: 35}

	want := 0.5*1 + 0.2*2 + 0.1*1 + 0.3*0.5
	// O2 2 < 2.5 and density 4 > 2.5: shock applies.
	assert.InDelta(t, want*2, RiskScore(in, cfg), eps)
}

func TestRiskScore_ShockNeedsBothConditions(t *testing.T) {
	cfg := testMortalityConfig()
	lowO2Sparse := MortalityInputs{Oxygen: 2, Temperature: 28, Density: 1, Salinity: 25}
	assert.InDelta(t, 0.5, RiskScore(lowO2Sparse, cfg), eps)
}

func TestSalinityPenalty(t *testing.T) {
	cfg := testMortalityConfig()
	tests := []struct {
		salinity float64
		want     float64
	}{
		{20, 0},
		{15, 0},
		{30, 0},
		{10, 0.5},
		{5, 1},
		{0, 1},
		{35, 0.5},
		{45, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, salinityPenalty(tt.salinity, cfg), eps, "salinity %g", tt.salinity)
	}
}

func TestSalinityPenalty_DegenerateBand(t *testing.T) {
	cfg := testMortalityConfig()
	cfg.SalinityLethalLow = cfg.SalinityOptimalMin
	assert.Equal(t, 1.0, salinityPenalty(14.9, cfg))
}

func TestMortalityRate_MonotoneAndCapped(t *testing.T) {
	cfg := testMortalityConfig()
	cfg.MaxMortalityRate = 1

	prev := 0.0
	for _, risk := range []float64{0.1, 0.5, 1, 2, 5} {
		rate := MortalityRate(risk, cfg)
		assert.Greater(t, rate, prev)
		prev = rate
	}
	assert.Equal(t, 0.0, MortalityRate(-1, cfg))

	cfg.MaxMortalityRate = 0.001
	assert.Equal(t, 0.001, MortalityRate(100, cfg))
}

func TestDeaths_SkipsDrawWhenNothingCanDie(t *testing.T) {
	noise := newScriptedNoise()
	noise.deathFraction = 0.5

	assert.Equal(t, 0, deaths(0, 0.3, noise))
	assert.Equal(t, 0, deaths(100, 0, noise))
	assert.Equal(t, 0, noise.binomials)

	assert.Equal(t, 50, deaths(100, 0.3, noise))
	assert.Equal(t, 1, noise.binomials)
}
