package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tank-sim/tank-sim/sim/internal/testutil"
)

var testStart = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// baselinePreset returns a mutable copy of the baseline preset.
func baselinePreset(t testing.TB) map[string]any {
	t.Helper()
	return testutil.Preset(t, "baseline")
}

// baselineConfigs validates the baseline preset, applies overrides, and
// returns the domain configs.
func baselineConfigs(t testing.TB, overrides map[string]any) DomainConfigs {
	t.Helper()
	preset := baselinePreset(t)
	for k, v := range overrides {
		preset[k] = v
	}
	p, err := ValidateParameters(preset)
	require.NoError(t, err)
	c, err := NewDomainConfigs(p)
	require.NoError(t, err)
	return c
}

// newTestSimulator builds a seeded simulator from the baseline plus overrides.
func newTestSimulator(t testing.TB, days int, seed int64, overrides map[string]any) *Simulator {
	t.Helper()
	preset := baselinePreset(t)
	for k, v := range overrides {
		preset[k] = v
	}
	sim, err := NewSimulator(preset, RunConfig{Days: days, Seed: seed, StartTime: testStart, TankID: 1})
	require.NoError(t, err)
	return sim
}

// scriptedNoise is a noise-free source: Normal returns its mean, Uniform its
// lower bound, Binomial n*deathFraction. No schedule event ever fires unless
// eventDraw is below the per-minute probability.
type scriptedNoise struct {
	deathFraction float64
	eventDraw     float64

	normals   int
	uniforms  int
	binomials int
	calls     []string
}

func newScriptedNoise() *scriptedNoise {
	return &scriptedNoise{eventDraw: 1}
}

func (s *scriptedNoise) Normal(mean, _ float64) float64 {
	s.normals++
	s.calls = append(s.calls, "normal")
	return mean
}

func (s *scriptedNoise) Uniform(lo, _ float64) float64 {
	s.uniforms++
	s.calls = append(s.calls, "uniform")
	return lo
}

func (s *scriptedNoise) Binomial(n int, _ float64) int {
	s.binomials++
	s.calls = append(s.calls, "binomial")
	return int(float64(n) * s.deathFraction)
}

func (s *scriptedNoise) Float64() float64 { return s.eventDraw }

func (s *scriptedNoise) IntRange(lo, _ int) int { return lo }

func (s *scriptedNoise) Choose(_, k int) []int {
	out := make([]int, k)
	for i := range out {
		out[i] = i
	}
	return out
}

func (s *scriptedNoise) reset() {
	s.normals, s.uniforms, s.binomials = 0, 0, 0
	s.calls = nil
}
