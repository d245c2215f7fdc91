// Package testutil provides shared test infrastructure for the tank simulator.
// It loads the repository's preset file and holds assertion helpers used
// across the sim/ test packages.
package testutil

import (
	"math"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/tank-sim/tank-sim/sim/preset"
)

// PresetsPath returns the absolute path of the repository's presets.yaml.
// The path is resolved relative to this source file: sim/internal/testutil/ → repo root.
func PresetsPath(t testing.TB) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "presets.yaml")
}

// Preset returns a deep copy of the named preset so callers may mutate it.
func Preset(t testing.TB, name string) map[string]any {
	t.Helper()

	pf, err := preset.LoadFile(PresetsPath(t))
	if err != nil {
		t.Fatalf("Failed to load presets: %v", err)
	}
	p, err := pf.Lookup(name)
	if err != nil {
		t.Fatalf("Preset %q: %v", name, err)
	}
	return p
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
