package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireConfigError(t *testing.T, err error) *ConfigurationError {
	t.Helper()
	var cfgErr *ConfigurationError
	require.Error(t, err)
	require.True(t, errors.As(err, &cfgErr), "want *ConfigurationError, got %T: %v", err, err)
	return cfgErr
}

func TestValidateParameters_BaselineIsValid(t *testing.T) {
	p, err := ValidateParameters(baselinePreset(t))
	require.NoError(t, err)

	v, ok := p.float("V")
	require.True(t, ok)
	assert.Equal(t, 10000.0, v)
	n, ok := p.integer("initial_N")
	require.True(t, ok)
	assert.Equal(t, 20000, n)
	bands, ok := p.table("feed_table")
	require.True(t, ok)
	assert.Len(t, bands, 4)
	assert.Equal(t, FeedBand{MaxWeightG: 5, RatePercent: 0.08}, bands[0])
}

func TestValidateParameters_EverySchemaFieldIsRequired(t *testing.T) {
	for _, f := range parameterFields {
		if f.optional {
			continue
		}
		t.Run(f.name, func(t *testing.T) {
			preset := baselinePreset(t)
			delete(preset, f.name)

			_, err := ValidateParameters(preset)

			cfgErr := requireConfigError(t, err)
			require.Len(t, cfgErr.Violations, 1)
			assert.Contains(t, cfgErr.Violations[0], f.name+": field required")
		})
	}
}

func TestValidateParameters_UnknownFieldRejected(t *testing.T) {
	preset := baselinePreset(t)
	preset["T_bsae"] = 28.0

	_, err := ValidateParameters(preset)

	cfgErr := requireConfigError(t, err)
	assert.Equal(t, []string{"T_bsae: unknown field"}, cfgErr.Violations)
}

func TestValidateParameters_AggregatesAllViolations(t *testing.T) {
	// GIVEN a preset with a missing field, a wrong type, a bad tuple and an unknown key
	preset := baselinePreset(t)
	delete(preset, "sigma_T")
	preset["V"] = "ten thousand"
	preset["feed_spike_duration_min"] = []any{10}
	preset["extra"] = 1

	// WHEN validated
	_, err := ValidateParameters(preset)

	// THEN every problem is reported at once
	cfgErr := requireConfigError(t, err)
	require.Len(t, cfgErr.Violations, 4)
	joined := cfgErr.Error()
	assert.Contains(t, joined, "sigma_T: field required")
	assert.Contains(t, joined, "V: expected a number")
	assert.Contains(t, joined, "feed_spike_duration_min: expected exactly 2 items")
	assert.Contains(t, joined, "extra: unknown field")
	assert.Contains(t, joined, "4 problems")
}

func TestValidateParameters_IntegerFields(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		wantErr bool
		want    int
	}{
		{"int", 500, false, 500},
		{"int64", int64(500), false, 500},
		{"integral float", 500.0, false, 500},
		{"fractional float", 500.5, true, 0},
		{"bool", true, true, 0},
		{"string", "500", true, 0},
		{"NaN", math.NaN(), true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preset := baselinePreset(t)
			preset["initial_N"] = tt.value

			p, err := ValidateParameters(preset)

			if tt.wantErr {
				cfgErr := requireConfigError(t, err)
				assert.Contains(t, cfgErr.Violations[0], "initial_N")
				return
			}
			require.NoError(t, err)
			n, _ := p.integer("initial_N")
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestValidateParameters_FloatRejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		preset := baselinePreset(t)
		preset["T_base"] = v
		_, err := ValidateParameters(preset)
		cfgErr := requireConfigError(t, err)
		assert.Contains(t, cfgErr.Violations[0], "T_base: must be a finite number")
	}
}

func TestValidateParameters_FeedTableShape(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"not a list", 0.05, "feed_table: expected list"},
		{"short band", []any{[]any{5.0}}, "feed_table: item 0: expected [max_weight_g, feed_rate]"},
		{"non-numeric rate", []any{[]any{5.0, "high"}}, "feed_table: item 0.1: expected a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preset := baselinePreset(t)
			preset["feed_table"] = tt.value
			_, err := ValidateParameters(preset)
			cfgErr := requireConfigError(t, err)
			assert.Contains(t, cfgErr.Violations[0], tt.want)
		})
	}
}

func TestValidateParameters_EmptyFeedTableAllowed(t *testing.T) {
	preset := baselinePreset(t)
	preset["feed_table"] = []any{}

	p, err := ValidateParameters(preset)

	require.NoError(t, err)
	bands, ok := p.table("feed_table")
	require.True(t, ok)
	assert.Empty(t, bands)
}

func TestValidateParameters_PHPhaseIsOptional(t *testing.T) {
	preset := baselinePreset(t)
	delete(preset, "pH_phase")

	p, err := ValidateParameters(preset)

	require.NoError(t, err)
	phase, ok := p.float("pH_phase")
	require.True(t, ok)
	assert.Equal(t, 0.0, phase)
}

func TestValidateParameters_RangeChecks(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		want      string
	}{
		{"zero volume", map[string]any{"V": 0.0}, "V: must be positive"},
		{"zero fcr", map[string]any{"fcr": 0.0}, "fcr: must be positive"},
		{"negative sigma", map[string]any{"sigma_O2": -0.1}, "sigma_O2: must be non-negative"},
		{"alpha above one", map[string]any{"pH_smoothing_alpha": 1.5}, "pH_smoothing_alpha: must be within [0, 1]"},
		{"inverted hypoxia range", map[string]any{"hypoxia_min": 4.0, "hypoxia_max": 2.0}, "hypoxia_min: must not exceed hypoxia_max"},
		{"inverted stocking range", map[string]any{"stocking_min": 10, "stocking_max": 5}, "stocking_min/stocking_max"},
		{"inverted spike duration", map[string]any{"feed_spike_duration_min": []any{30, 10}}, "feed_spike_duration_min: need 0 <= min <= max"},
		{"density fix below oxygen floor", map[string]any{"sanity_o2_max_at_crit_density": 1.1, "sanity_o2_fix_noise_max": 0.5},
			"sanity_o2_max_at_crit_density: minus sanity_o2_fix_noise_max must be at least O2_floor"},
		{"temperature fix above pH max", map[string]any{"sanity_ph_min_at_crit_temp": 8.99, "sanity_ph_fix_noise_max": 0.5},
			"sanity_ph_min_at_crit_temp: plus sanity_ph_fix_noise_max must not exceed pH_max_limit"},
		{"temperature fix below pH min", map[string]any{"sanity_ph_min_at_crit_temp": 6.4},
			"sanity_ph_min_at_crit_temp: plus sanity_ph_fix_noise_min must be at least pH_min_limit"},
		{"oxygen pH cap above pH max", map[string]any{"sanity_ph_max_at_crit_o2": 9.5}, "sanity_ph_max_at_crit_o2: must be within [pH_min_limit, pH_max_limit]"},
		{"oxygen pH cap below pH min", map[string]any{"sanity_ph_max_at_crit_o2": 6.0}, "sanity_ph_max_at_crit_o2: must be within [pH_min_limit, pH_max_limit]"},
		{"water change salinity below zero", map[string]any{"sanity_salinity_max_with_wc": 0.2},
			"sanity_salinity_max_with_wc: plus sanity_sal_fix_noise_min must be non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preset := baselinePreset(t)
			for k, v := range tt.overrides {
				preset[k] = v
			}
			_, err := ValidateParameters(preset)
			cfgErr := requireConfigError(t, err)
			assert.Contains(t, cfgErr.Error(), tt.want)
		})
	}
}

func TestValidateParameters_RangeChecksSkippedOnTypeErrors(t *testing.T) {
	// A type error must not cascade into spurious range complaints.
	preset := baselinePreset(t)
	preset["V"] = "big"
	preset["fcr"] = 0.0

	_, err := ValidateParameters(preset)

	cfgErr := requireConfigError(t, err)
	assert.Len(t, cfgErr.Violations, 1)
}

func TestParameterNames_MatchesSchemaOrder(t *testing.T) {
	names := ParameterNames()
	require.Len(t, names, len(parameterFields))
	assert.Equal(t, "T_base", names[0])
	assert.Equal(t, "temp_max_growth", names[len(names)-1])

	seen := make(map[string]bool)
	for _, n := range names {
		assert.False(t, seen[n], "duplicate parameter %s", n)
		seen[n] = true
	}
}
