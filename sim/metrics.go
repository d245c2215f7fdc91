// Summarizes a finished run for the CLI and the export metadata.

package sim

import (
	"encoding/json"
	"fmt"
	"io"
)

// Summary aggregates a run's rows for final reporting.
type Summary struct {
	TankID        int         `json:"tank_id"`
	Seed          int64       `json:"seed"`
	Days          int         `json:"days"`
	Rows          int         `json:"rows"`
	Termination   Termination `json:"termination"`
	HarvestMinute int         `json:"harvest_minute"`

	InitialSurvivors int     `json:"initial_survivors"`
	FinalSurvivors   int     `json:"final_survivors"`
	TotalDeaths      int     `json:"total_deaths"`
	TotalStocked     int     `json:"total_stocked"`
	SurvivalRate     float64 `json:"survival_rate"` // final / (initial + stocked)
	FinalWeightG     float64 `json:"final_weight_g"`
	FinalBiomassKg   float64 `json:"final_biomass_kg"`
	TotalFeedKg      float64 `json:"total_feed_kg"`

	Waterchanges   int `json:"waterchanges"`
	HypoxiaMinutes int `json:"hypoxia_events"`
	SpikeMinutes   int `json:"feed_spike_minutes"`

	Corrections map[string]int `json:"corrections"`
}

func (sim *Simulator) summarize(res *Result) *Summary {
	s := &Summary{
		TankID:           sim.TankID,
		Seed:             sim.Seed,
		Days:             sim.Days,
		Rows:             len(res.Rows),
		Termination:      res.Termination,
		HarvestMinute:    res.HarvestMinute,
		InitialSurvivors: sim.Configs.InitialN,
		FinalSurvivors:   res.FinalState.Survivors,
		FinalWeightG:     round(res.FinalState.CurrentWeightG, 4),
		FinalBiomassKg:   round(res.FinalState.BiomassKg, 4),
		HypoxiaMinutes:   len(sim.Schedules.Hypoxia),
		Corrections:      sim.sanity.Counts(),
	}
	for _, r := range res.Rows {
		s.TotalDeaths += r.Deaths
		s.TotalStocked += r.StockAdd
		s.TotalFeedKg += r.FeedKgMin
		if r.Waterchange {
			s.Waterchanges++
		}
		if r.FeedSpike {
			s.SpikeMinutes++
		}
	}
	s.TotalFeedKg = round(s.TotalFeedKg, 4)
	if total := s.InitialSurvivors + s.TotalStocked; total > 0 {
		s.SurvivalRate = round(float64(s.FinalSurvivors)/float64(total), 6)
	}
	return s
}

// SaveResults writes the summary as indented JSON under a header.
func (s *Summary) SaveResults(w io.Writer) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if _, err := fmt.Fprintf(w, "=== Simulation Metrics ===\n%s\n", data); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
