package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const eps = 1e-9

func TestDiurnal_PeriodAndPhase(t *testing.T) {
	assert.InDelta(t, 0, diurnal(0, 0), eps)
	assert.InDelta(t, 1, diurnal(MinutesPerDay/4, 0), eps)
	assert.InDelta(t, diurnal(100, 0), diurnal(100+MinutesPerDay, 0), eps)
	assert.InDelta(t, 1, diurnal(0, math.Pi/2), eps)
}

func TestTemperatureAt_Composition(t *testing.T) {
	cfg := TemperatureConfig{Base: 28, Amplitude: 2, Sigma: 0.3, DriftPerDay: 0.5}
	noise := newScriptedNoise()

	// Quarter day into day 3: sin peak plus 2.25 days of drift.
	minute := 2*MinutesPerDay + MinutesPerDay/4
	got := temperatureAt(minute, cfg, noise)

	assert.InDelta(t, 28+2+0.5*2.25, got, eps)
	assert.Equal(t, 1, noise.normals)
}

func TestSalinity_EvaporationAndWaterchange(t *testing.T) {
	cfg := SalinityConfig{Base: 25, DriftPerMin: 0.001, KEvapPerDeg: 0.01, WaterchangeReduction: 2}
	noise := newScriptedNoise()

	tests := []struct {
		name          string
		tempAboveBase float64
		waterchange   bool
		want          float64
	}{
		{"below base no evaporation", -3, false, 0.001},
		{"above base evaporates", 2, false, 0.021},
		{"water change subtracts", 0, true, 0.001 - 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, salinityDelta(cfg, tt.tempAboveBase, tt.waterchange, noise), eps)
		})
	}
}

func TestNextSalinity_NeverNegative(t *testing.T) {
	assert.Equal(t, 0.0, nextSalinity(1, -5))
	assert.InDelta(t, 24.5, nextSalinity(25, -0.5), eps)
}

func TestOxygenAt_NormalAndHypoxia(t *testing.T) {
	cfg := OxygenConfig{Base: 6.5, Amplitude: 0.5, Sigma: 0.1, KTemp: 0.2, HypoxiaMin: 2, HypoxiaMax: 3, Floor: 1}

	t.Run("normal minute draws one Normal", func(t *testing.T) {
		noise := newScriptedNoise()
		got := oxygenAt(MinutesPerDay/4, cfg, 1, false, noise)
		assert.InDelta(t, 6.5+0.5-0.2, got, eps)
		assert.Equal(t, []string{"normal"}, noise.calls)
	})

	t.Run("hypoxia minute draws one Uniform", func(t *testing.T) {
		noise := newScriptedNoise()
		got := oxygenAt(0, cfg, 0, true, noise)
		assert.InDelta(t, 2, got, eps)
		assert.Equal(t, []string{"uniform"}, noise.calls)
	})

	t.Run("floor applies to hypoxia", func(t *testing.T) {
		low := cfg
		low.HypoxiaMin, low.HypoxiaMax = 0.2, 0.5
		assert.Equal(t, 1.0, oxygenAt(0, low, 0, true, newScriptedNoise()))
	})

	t.Run("floor applies to hot water", func(t *testing.T) {
		assert.Equal(t, 1.0, oxygenAt(0, cfg, 100, false, newScriptedNoise()))
	})
}

func TestPHAt_Pipeline(t *testing.T) {
	cfg := PHConfig{
		Base: 8, Amplitude: 0, Sigma: 0.01, KFeedAcid: 10, KO2Acid: 0.5, O2AcidThreshold: 4,
		WaterchangeRecoveryFactor: 0.5, SmoothingAlpha: 0.2, MinLimit: 6, MaxLimit: 9,
	}

	t.Run("feed and oxygen acidify then smooth", func(t *testing.T) {
		// raw = 8 - 10*0.01 - 0.5*(4-2) = 6.9; smoothed = 0.2*6.9 + 0.8*7.5
		got := phAt(0, cfg, 0.01, 2, 7.5, false, newScriptedNoise())
		assert.InDelta(t, 0.2*6.9+0.8*7.5, got, eps)
	})

	t.Run("water change pulls toward base before smoothing", func(t *testing.T) {
		// raw 6.9 -> 0.5*6.9 + 0.5*8 = 7.45
		got := phAt(0, cfg, 0.01, 2, 7.5, true, newScriptedNoise())
		assert.InDelta(t, 0.2*7.45+0.8*7.5, got, eps)
	})

	t.Run("result is clamped", func(t *testing.T) {
		acid := cfg
		acid.SmoothingAlpha = 1
		assert.Equal(t, 6.0, phAt(0, acid, 1, 0, 7, false, newScriptedNoise()))
	})

	t.Run("alpha one ignores history", func(t *testing.T) {
		a := cfg
		a.SmoothingAlpha = 1
		assert.InDelta(t, 8, phAt(0, a, 0, 8, 6.5, false, newScriptedNoise()), eps)
	})

	t.Run("alpha zero keeps previous", func(t *testing.T) {
		a := cfg
		a.SmoothingAlpha = 0
		assert.InDelta(t, 7.3, phAt(0, a, 0.05, 1, 7.3, false, newScriptedNoise()), eps)
	})
}

func TestFeedRate(t *testing.T) {
	cfg := FeedConfig{SpikeMultiplier: 0.5, NoiseMinFactor: -0.1, NoiseMaxFactor: 0.1, MinFeedKgMin: 0.0005}

	assert.InDelta(t, 0.001*0.9, feedRate(cfg, 0.001, false, newScriptedNoise()), eps)
	assert.InDelta(t, 0.001*0.9+0.0005, feedRate(cfg, 0.001, true, newScriptedNoise()), eps)
	// Floor
	assert.Equal(t, 0.0005, feedRate(cfg, 0, false, newScriptedNoise()))
}

func TestNextSpikeRemaining(t *testing.T) {
	assert.Equal(t, 20, nextSpikeRemaining(0, 20, true))
	assert.Equal(t, 15, nextSpikeRemaining(3, 15, true))
	assert.Equal(t, 2, nextSpikeRemaining(3, 0, false))
	assert.Equal(t, 0, nextSpikeRemaining(0, 0, false))
}
