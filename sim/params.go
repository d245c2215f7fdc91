package sim

import (
	"fmt"
	"math"
	"reflect"
	"sort"
)

// fieldKind is the exact type a parameter must carry.
type fieldKind int

const (
	kindFloat   fieldKind = iota // any finite number
	kindInt                      // integer, or a float with no fractional part
	kindIntPair                  // two-element list of integers (inclusive range)
	kindBands                    // list of (max_weight_g, feed_rate) pairs
)

func (k fieldKind) String() string {
	switch k {
	case kindFloat:
		return "float"
	case kindInt:
		return "int"
	case kindIntPair:
		return "[int, int]"
	case kindBands:
		return "list of [float, float]"
	}
	return "unknown"
}

type fieldSpec struct {
	name     string
	kind     fieldKind
	optional bool
	fallback float64 // used for optional float fields only
}

// parameterFields is the exhaustive preset schema. Every key of a preset must
// appear here and every non-optional entry must be present in a preset.
var parameterFields = []fieldSpec{
	// Temperature
	{name: "T_base", kind: kindFloat},
	{name: "A_T", kind: kindFloat},
	{name: "sigma_T", kind: kindFloat},
	{name: "drift_T_per_day", kind: kindFloat},

	// Salinity
	{name: "S_base", kind: kindFloat},
	{name: "drift_S_per_min", kind: kindFloat},
	{name: "sigma_S", kind: kindFloat},
	{name: "waterchange_reduction", kind: kindFloat},
	{name: "k_evap_per_deg", kind: kindFloat},
	{name: "waterchange_frequency_days", kind: kindFloat},

	// Dissolved oxygen
	{name: "O2_base", kind: kindFloat},
	{name: "A_O2", kind: kindFloat},
	{name: "sigma_O2", kind: kindFloat},
	{name: "k_T_O2", kind: kindFloat},
	{name: "O2_event_prob_per_day", kind: kindFloat},
	{name: "hypoxia_min", kind: kindFloat},
	{name: "hypoxia_max", kind: kindFloat},
	{name: "O2_floor", kind: kindFloat},

	// pH
	{name: "pH_base", kind: kindFloat},
	{name: "A_pH", kind: kindFloat},
	{name: "sigma_pH", kind: kindFloat},
	{name: "k_feed_acid", kind: kindFloat},
	{name: "k_O2_pH", kind: kindFloat},
	{name: "pH_recovery_on_waterchange", kind: kindFloat},
	{name: "O2_pH_threshold", kind: kindFloat},
	{name: "pH_smoothing_alpha", kind: kindFloat},
	{name: "pH_min_limit", kind: kindFloat},
	{name: "pH_max_limit", kind: kindFloat},
	{name: "pH_phase", kind: kindFloat, optional: true, fallback: 0.0},

	// Feed
	{name: "Feed_base", kind: kindFloat},
	{name: "feed_spike_multiplier", kind: kindFloat},
	{name: "feed_spike_prob_per_day", kind: kindFloat},
	{name: "feed_spike_duration_min", kind: kindIntPair},
	{name: "feed_noise_min_factor", kind: kindFloat},
	{name: "feed_noise_max_factor", kind: kindFloat},
	{name: "feed_min_kg_min", kind: kindFloat},

	// Stock
	{name: "V", kind: kindFloat},
	{name: "initial_N", kind: kindInt},
	{name: "stocking_prob_per_day", kind: kindFloat},
	{name: "stocking_min", kind: kindInt},
	{name: "stocking_max", kind: kindInt},

	// Mortality weights
	{name: "alpha", kind: kindFloat},
	{name: "beta", kind: kindFloat},
	{name: "gamma", kind: kindFloat},
	{name: "weight_salinity", kind: kindFloat},

	// Mortality parameters
	{name: "kappa", kind: kindFloat},
	{name: "shock_factor", kind: kindFloat},
	{name: "O2_crit_for_shock", kind: kindFloat},
	{name: "density_crit_for_shock", kind: kindFloat},
	{name: "max_mortality_rate", kind: kindFloat},

	// Mortality base stress
	{name: "T_opt", kind: kindFloat},
	{name: "O2_crit", kind: kindFloat},
	{name: "rho_opt", kind: kindFloat},
	{name: "salinity_optimal_min", kind: kindFloat},
	{name: "salinity_optimal_max", kind: kindFloat},
	{name: "salinity_lethal_low", kind: kindFloat},
	{name: "salinity_lethal_high", kind: kindFloat},

	// Sanity rules
	{name: "sanity_temp_crit_for_ph", kind: kindFloat},
	{name: "sanity_ph_min_at_crit_temp", kind: kindFloat},
	{name: "sanity_ph_fix_noise_min", kind: kindFloat},
	{name: "sanity_ph_fix_noise_max", kind: kindFloat},
	{name: "sanity_o2_crit_for_ph", kind: kindFloat},
	{name: "sanity_ph_max_at_crit_o2", kind: kindFloat},
	{name: "sanity_density_crit_for_o2", kind: kindFloat},
	{name: "sanity_o2_max_at_crit_density", kind: kindFloat},
	{name: "sanity_o2_fix_noise_min", kind: kindFloat},
	{name: "sanity_o2_fix_noise_max", kind: kindFloat},
	{name: "sanity_salinity_max_with_wc", kind: kindFloat},
	{name: "sanity_sal_fix_noise_min", kind: kindFloat},
	{name: "sanity_sal_fix_noise_max", kind: kindFloat},
	{name: "sanity_max_mortality_ratio", kind: kindFloat},

	// Growth
	{name: "initial_weight_g", kind: kindFloat},
	{name: "target_weight_g", kind: kindFloat},
	{name: "fcr", kind: kindFloat},
	{name: "feed_table", kind: kindBands},
	{name: "temp_min_growth", kind: kindFloat},
	{name: "temp_optimal_growth", kind: kindFloat},
	{name: "temp_max_growth", kind: kindFloat},
}

// ParameterNames returns the schema's field names in declaration order.
func ParameterNames() []string {
	names := make([]string, len(parameterFields))
	for i, f := range parameterFields {
		names[i] = f.name
	}
	return names
}

// FeedBand is one row of the feed table: animals up to MaxWeightG grams eat
// RatePercent of their biomass per day (0.05 = 5%).
type FeedBand struct {
	MaxWeightG  float64
	RatePercent float64
}

// Parameters is a validated preset. It is only read by NewDomainConfigs.
type Parameters struct {
	floats map[string]float64
	ints   map[string]int
	pairs  map[string][2]int
	bands  map[string][]FeedBand
}

// ValidateParameters checks a flat preset against the schema. All problems are
// collected into one *ConfigurationError so a caller can fix them in one pass:
// missing keys, unknown keys, wrong types, malformed tuples, and a few range
// checks the formulas depend on (positive volume and FCR, ordered ranges).
func ValidateParameters(raw map[string]any) (*Parameters, error) {
	p := &Parameters{
		floats: make(map[string]float64),
		ints:   make(map[string]int),
		pairs:  make(map[string][2]int),
		bands:  make(map[string][]FeedBand),
	}
	var violations []string

	known := make(map[string]bool, len(parameterFields))
	for _, f := range parameterFields {
		known[f.name] = true
		v, ok := raw[f.name]
		if !ok || v == nil {
			if f.optional {
				p.floats[f.name] = f.fallback
				continue
			}
			violations = append(violations, fmt.Sprintf("%s: field required (%s)", f.name, f.kind))
			continue
		}
		if msg := p.bind(f, v); msg != "" {
			violations = append(violations, fmt.Sprintf("%s: %s", f.name, msg))
		}
	}

	var unknown []string
	for k := range raw {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		violations = append(violations, fmt.Sprintf("%s: unknown field", k))
	}

	// Range checks only make sense once every field has the right type.
	if len(violations) == 0 {
		violations = append(violations, p.checkRanges()...)
	}
	if err := newConfigurationError(violations); err != nil {
		return nil, err
	}
	return p, nil
}

// bind stores v under f.name, returning a description of the problem if v has
// the wrong shape.
func (p *Parameters) bind(f fieldSpec, v any) string {
	switch f.kind {
	case kindFloat:
		x, msg := asFloat(v)
		if msg != "" {
			return msg
		}
		p.floats[f.name] = x
	case kindInt:
		n, msg := asInt(v)
		if msg != "" {
			return msg
		}
		p.ints[f.name] = n
	case kindIntPair:
		items, ok := asList(v)
		if !ok {
			return fmt.Sprintf("expected [int, int], got %T", v)
		}
		if len(items) != 2 {
			return fmt.Sprintf("expected exactly 2 items, got %d", len(items))
		}
		var pair [2]int
		for i, item := range items {
			n, msg := asInt(item)
			if msg != "" {
				return fmt.Sprintf("item %d: %s", i, msg)
			}
			pair[i] = n
		}
		p.pairs[f.name] = pair
	case kindBands:
		items, ok := asList(v)
		if !ok {
			return fmt.Sprintf("expected list of [float, float], got %T", v)
		}
		bands := make([]FeedBand, 0, len(items))
		for i, item := range items {
			pair, ok := asList(item)
			if !ok || len(pair) != 2 {
				return fmt.Sprintf("item %d: expected [max_weight_g, feed_rate]", i)
			}
			w, msg := asFloat(pair[0])
			if msg != "" {
				return fmt.Sprintf("item %d.0: %s", i, msg)
			}
			r, msg := asFloat(pair[1])
			if msg != "" {
				return fmt.Sprintf("item %d.1: %s", i, msg)
			}
			bands = append(bands, FeedBand{MaxWeightG: w, RatePercent: r})
		}
		p.bands[f.name] = bands
	}
	return ""
}

func (p *Parameters) checkRanges() []string {
	var out []string
	positive := func(name string) {
		if p.floats[name] <= 0 {
			out = append(out, fmt.Sprintf("%s: must be positive, got %g", name, p.floats[name]))
		}
	}
	nonNegative := func(name string) {
		if p.floats[name] < 0 {
			out = append(out, fmt.Sprintf("%s: must be non-negative, got %g", name, p.floats[name]))
		}
	}
	ordered := func(lo, hi string) {
		if p.floats[lo] > p.floats[hi] {
			out = append(out, fmt.Sprintf("%s: must not exceed %s (%g > %g)", lo, hi, p.floats[lo], p.floats[hi]))
		}
	}

	positive("V")
	positive("fcr")
	for _, name := range []string{"O2_event_prob_per_day", "feed_spike_prob_per_day", "stocking_prob_per_day",
		"sigma_T", "sigma_S", "sigma_O2", "sigma_pH", "max_mortality_rate", "sanity_max_mortality_ratio"} {
		nonNegative(name)
	}
	if a := p.floats["pH_smoothing_alpha"]; a < 0 || a > 1 {
		out = append(out, fmt.Sprintf("pH_smoothing_alpha: must be within [0, 1], got %g", a))
	}
	ordered("hypoxia_min", "hypoxia_max")
	ordered("pH_min_limit", "pH_max_limit")
	ordered("feed_noise_min_factor", "feed_noise_max_factor")
	ordered("sanity_ph_fix_noise_min", "sanity_ph_fix_noise_max")
	ordered("sanity_o2_fix_noise_min", "sanity_o2_fix_noise_max")
	ordered("sanity_sal_fix_noise_min", "sanity_sal_fix_noise_max")
	ordered("salinity_lethal_low", "salinity_optimal_min")
	ordered("salinity_optimal_min", "salinity_optimal_max")
	ordered("salinity_optimal_max", "salinity_lethal_high")
	ordered("temp_min_growth", "temp_optimal_growth")
	ordered("temp_optimal_growth", "temp_max_growth")

	// Correction targets must land inside the bounds the step itself keeps.
	f := p.floats
	if lo := f["sanity_o2_max_at_crit_density"] - f["sanity_o2_fix_noise_max"]; lo < f["O2_floor"] {
		out = append(out, fmt.Sprintf("sanity_o2_max_at_crit_density: minus sanity_o2_fix_noise_max must be at least O2_floor (%g < %g)", lo, f["O2_floor"]))
	}
	if lo := f["sanity_ph_min_at_crit_temp"] + f["sanity_ph_fix_noise_min"]; lo < f["pH_min_limit"] {
		out = append(out, fmt.Sprintf("sanity_ph_min_at_crit_temp: plus sanity_ph_fix_noise_min must be at least pH_min_limit (%g < %g)", lo, f["pH_min_limit"]))
	}
	if hi := f["sanity_ph_min_at_crit_temp"] + f["sanity_ph_fix_noise_max"]; hi > f["pH_max_limit"] {
		out = append(out, fmt.Sprintf("sanity_ph_min_at_crit_temp: plus sanity_ph_fix_noise_max must not exceed pH_max_limit (%g > %g)", hi, f["pH_max_limit"]))
	}
	if v := f["sanity_ph_max_at_crit_o2"]; v < f["pH_min_limit"] || v > f["pH_max_limit"] {
		out = append(out, fmt.Sprintf("sanity_ph_max_at_crit_o2: must be within [pH_min_limit, pH_max_limit], got %g", v))
	}
	if lo := f["sanity_salinity_max_with_wc"] + f["sanity_sal_fix_noise_min"]; lo < 0 {
		out = append(out, fmt.Sprintf("sanity_salinity_max_with_wc: plus sanity_sal_fix_noise_min must be non-negative, got %g", lo))
	}

	if n := p.ints["initial_N"]; n < 0 {
		out = append(out, fmt.Sprintf("initial_N: must be non-negative, got %d", n))
	}
	if lo, hi := p.ints["stocking_min"], p.ints["stocking_max"]; lo < 0 || lo > hi {
		out = append(out, fmt.Sprintf("stocking_min/stocking_max: need 0 <= min <= max, got [%d, %d]", lo, hi))
	}
	if d := p.pairs["feed_spike_duration_min"]; d[0] < 0 || d[0] > d[1] {
		out = append(out, fmt.Sprintf("feed_spike_duration_min: need 0 <= min <= max, got [%d, %d]", d[0], d[1]))
	}
	return out
}

func asFloat(v any) (float64, string) {
	var x float64
	switch n := v.(type) {
	case float64:
		x = n
	case float32:
		x = float64(n)
	case bool, string:
		return 0, fmt.Sprintf("expected a number, got %T", v)
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			x = float64(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			x = float64(rv.Uint())
		default:
			return 0, fmt.Sprintf("expected a number, got %T", v)
		}
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Sprintf("must be a finite number, got %v", x)
	}
	return x, ""
}

func asInt(v any) (int, string) {
	switch v.(type) {
	case float64, float32:
		x, msg := asFloat(v)
		if msg != "" {
			return 0, msg
		}
		if x != math.Trunc(x) {
			return 0, fmt.Sprintf("expected an integer, got %g", x)
		}
		return int(x), ""
	}
	x, msg := asFloat(v)
	if msg != "" {
		return 0, msg
	}
	return int(x), ""
}

// asList accepts any slice or array; YAML and JSON decoders both produce []any.
func asList(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func (p *Parameters) float(name string) (float64, bool) {
	v, ok := p.floats[name]
	return v, ok
}

func (p *Parameters) integer(name string) (int, bool) {
	v, ok := p.ints[name]
	return v, ok
}

func (p *Parameters) pair(name string) ([2]int, bool) {
	v, ok := p.pairs[name]
	return v, ok
}

func (p *Parameters) table(name string) ([]FeedBand, bool) {
	v, ok := p.bands[name]
	return v, ok
}
