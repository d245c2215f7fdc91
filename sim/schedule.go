package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// EventSchedules holds every precomputed event of a run, keyed by minute index.
// Built once before the loop; read-only afterwards.
type EventSchedules struct {
	Waterchange map[int]bool
	Hypoxia     map[int]bool
	FeedSpikes  map[int]int // minute -> spike duration in minutes
	Stocking    map[int]int // minute -> organisms added
}

// GenerateSchedules draws all schedules for a run of totalMinutes. Draw order
// is fixed: hypoxia minutes, then feed spikes, then stocking. Water changes
// are deterministic.
func GenerateSchedules(cfg ScheduleConfig, days, totalMinutes int, src EventSource) (EventSchedules, error) {
	s := EventSchedules{
		Waterchange: waterchangeSchedule(cfg.WaterchangeFrequencyDays, totalMinutes),
	}

	hypoxia, err := hypoxiaSchedule(cfg.HypoxiaProbPerDay, days, totalMinutes, src)
	if err != nil {
		return EventSchedules{}, err
	}
	s.Hypoxia = hypoxia
	s.FeedSpikes = bernoulliSchedule(cfg.FeedSpikeProbPerDay, totalMinutes,
		cfg.FeedSpikeDurationMin[0], cfg.FeedSpikeDurationMin[1], src)
	s.Stocking = bernoulliSchedule(cfg.StockingProbPerDay, totalMinutes,
		cfg.StockingMin, cfg.StockingMax, src)

	logrus.Infof("Schedules: %d water changes (every %g days), %d hypoxia events, %d feed spikes, %d stocking events",
		len(s.Waterchange), cfg.WaterchangeFrequencyDays, len(s.Hypoxia), len(s.FeedSpikes), len(s.Stocking))
	return s, nil
}

// waterchangeSchedule marks the last minute of every interval:
// interval-1, 2*interval-1, ... below totalMinutes.
func waterchangeSchedule(frequencyDays float64, totalMinutes int) map[int]bool {
	out := make(map[int]bool)
	if frequencyDays <= 0 {
		return out
	}
	interval := int(math.Floor(frequencyDays * MinutesPerDay))
	if interval <= 0 {
		return out
	}
	for t := interval - 1; t < totalMinutes; t += interval {
		out[t] = true
	}
	return out
}

func hypoxiaSchedule(probPerDay float64, days, totalMinutes int, src EventSource) (map[int]bool, error) {
	out := make(map[int]bool)
	numEvents := int(math.Floor(float64(days) * probPerDay))
	if numEvents <= 0 {
		return out, nil
	}
	if numEvents > totalMinutes {
		return nil, &ConfigurationError{Violations: []string{fmt.Sprintf(
			"O2_event_prob_per_day: %d hypoxia events requested but the run has only %d minutes",
			numEvents, totalMinutes)}}
	}
	for _, t := range src.Choose(totalMinutes, numEvents) {
		out[t] = true
	}
	return out, nil
}

// bernoulliSchedule runs one trial per minute with probability probPerDay/1440
// and draws an inclusive [lo, hi] value for each success.
func bernoulliSchedule(probPerDay float64, totalMinutes, lo, hi int, src EventSource) map[int]int {
	out := make(map[int]int)
	p := probPerDay / MinutesPerDay
	for t := 0; t < totalMinutes; t++ {
		if src.Float64() < p {
			out[t] = src.IntRange(lo, hi)
		}
	}
	return out
}
