package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaterchangeSchedule_LastMinuteOfEachInterval(t *testing.T) {
	got := waterchangeSchedule(7, 30*MinutesPerDay)

	interval := 7 * MinutesPerDay
	assert.Equal(t, map[int]bool{
		interval - 1:   true,
		2*interval - 1: true,
		3*interval - 1: true,
		4*interval - 1: true,
	}, got)
}

func TestWaterchangeSchedule_FractionalDays(t *testing.T) {
	got := waterchangeSchedule(0.5, MinutesPerDay)
	assert.Equal(t, map[int]bool{719: true, 1439: true}, got)
}

func TestWaterchangeSchedule_DisabledWhenNonPositive(t *testing.T) {
	assert.Empty(t, waterchangeSchedule(0, 10*MinutesPerDay))
	assert.Empty(t, waterchangeSchedule(-1, 10*MinutesPerDay))
	// Shorter than a minute
	assert.Empty(t, waterchangeSchedule(0.0001, 10*MinutesPerDay))
}

func TestGenerateSchedules_HypoxiaCount(t *testing.T) {
	// GIVEN 120 days at 0.05 events per day
	cfg := ScheduleConfig{HypoxiaProbPerDay: 0.05}
	src := NewSeededNoise(NewSimulationKey(101))

	// WHEN schedules are drawn
	s, err := GenerateSchedules(cfg, 120, 120*MinutesPerDay, src)

	// THEN exactly floor(120*0.05) distinct minutes are hypoxic
	require.NoError(t, err)
	assert.Len(t, s.Hypoxia, 6)
	for m := range s.Hypoxia {
		assert.GreaterOrEqual(t, m, 0)
		assert.Less(t, m, 120*MinutesPerDay)
	}
}

func TestGenerateSchedules_TooManyHypoxiaEvents(t *testing.T) {
	cfg := ScheduleConfig{HypoxiaProbPerDay: 2 * MinutesPerDay}

	_, err := GenerateSchedules(cfg, 1, MinutesPerDay, NewSeededNoise(NewSimulationKey(1)))

	cfgErr := requireConfigError(t, err)
	assert.Contains(t, cfgErr.Violations[0], "O2_event_prob_per_day")
}

func TestGenerateSchedules_BernoulliValuesWithinRange(t *testing.T) {
	cfg := ScheduleConfig{
		FeedSpikeProbPerDay:  5,
		FeedSpikeDurationMin: [2]int{10, 30},
		StockingProbPerDay:   5,
		StockingMin:          100,
		StockingMax:          500,
	}

	s, err := GenerateSchedules(cfg, 30, 30*MinutesPerDay, NewSeededNoise(NewSimulationKey(5)))

	require.NoError(t, err)
	// ~150 expected of each; a zero count would mean the trials never fire.
	assert.NotEmpty(t, s.FeedSpikes)
	assert.NotEmpty(t, s.Stocking)
	for _, d := range s.FeedSpikes {
		assert.GreaterOrEqual(t, d, 10)
		assert.LessOrEqual(t, d, 30)
	}
	for _, n := range s.Stocking {
		assert.GreaterOrEqual(t, n, 100)
		assert.LessOrEqual(t, n, 500)
	}
}

func TestGenerateSchedules_ZeroProbabilitiesProduceNoEvents(t *testing.T) {
	s, err := GenerateSchedules(ScheduleConfig{}, 10, 10*MinutesPerDay, NewSeededNoise(NewSimulationKey(5)))

	require.NoError(t, err)
	assert.Empty(t, s.Waterchange)
	assert.Empty(t, s.Hypoxia)
	assert.Empty(t, s.FeedSpikes)
	assert.Empty(t, s.Stocking)
}

func TestGenerateSchedules_Deterministic(t *testing.T) {
	cfg := baselineConfigs(t, map[string]any{"stocking_prob_per_day": 0.5, "stocking_max": 50}).Schedule

	a, err := GenerateSchedules(cfg, 60, 60*MinutesPerDay, NewSeededNoise(NewSimulationKey(9)))
	require.NoError(t, err)
	b, err := GenerateSchedules(cfg, 60, 60*MinutesPerDay, NewSeededNoise(NewSimulationKey(9)))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
