package sim

import (
	"hash/fnv"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical rows.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// NoiseSource is the only source of randomness the step function and the
// sanity rules see. Call order is part of the reproducibility contract.
type NoiseSource interface {
	Normal(mean, std float64) float64
	Uniform(lo, hi float64) float64
	// Binomial returns 0 without consuming entropy when n == 0 or p == 0.
	Binomial(n int, p float64) int
}

// EventSource is the randomness used while building event schedules.
type EventSource interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntRange returns a value in [lo, hi], both inclusive.
	IntRange(lo, hi int) int
	// Choose returns k distinct values from [0, n).
	Choose(n, k int) []int
}

// SeededNoise implements NoiseSource and EventSource over one PCG stream.
// Schedules are drawn first, then per-minute noise, from the same stream.
//
// Thread-safety: NOT thread-safe. Owned by exactly one run.
type SeededNoise struct {
	key SimulationKey
	src *rand.PCG
	rng *rand.Rand
}

// NewSeededNoise derives the PCG state from the key alone.
func NewSeededNoise(key SimulationKey) *SeededNoise {
	src := rand.NewPCG(uint64(key), uint64(key)^uint64(fnv1a64("tank-sim")))
	return &SeededNoise{key: key, src: src, rng: rand.New(src)}
}

// Key returns the SimulationKey used to create this SeededNoise.
func (s *SeededNoise) Key() SimulationKey {
	return s.key
}

func (s *SeededNoise) Normal(mean, std float64) float64 {
	return distuv.Normal{Mu: mean, Sigma: std, Src: s.src}.Rand()
}

func (s *SeededNoise) Uniform(lo, hi float64) float64 {
	return distuv.Uniform{Min: lo, Max: hi, Src: s.src}.Rand()
}

func (s *SeededNoise) Binomial(n int, p float64) int {
	if n <= 0 || p <= 0 {
		return 0
	}
	if p >= 1 {
		return n
	}
	return int(math.Round(distuv.Binomial{N: float64(n), P: p, Src: s.src}.Rand()))
}

func (s *SeededNoise) Float64() float64 {
	return s.rng.Float64()
}

func (s *SeededNoise) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.IntN(hi-lo+1)
}

func (s *SeededNoise) Choose(n, k int) []int {
	if k <= 0 || n <= 0 {
		return nil
	}
	idxs := make([]int, k)
	sampleuv.WithoutReplacement(idxs, n, s.src)
	return idxs
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
