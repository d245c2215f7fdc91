// sim/simulator.go
package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tank-sim/tank-sim/sim/trace"
)

// Termination says why a run stopped.
type Termination string

const (
	// TerminationHarvested means the mean weight reached the target weight.
	TerminationHarvested Termination = "harvested"
	// TerminationExhausted means every minute of the horizon was simulated.
	TerminationExhausted Termination = "exhausted"
)

// ProgressFunc receives non-decreasing percentages in [0, 100]. It runs on the
// simulation goroutine and must return promptly without touching the run.
type ProgressFunc func(percent float64)

// RunConfig holds the per-run inputs that are not part of a preset.
type RunConfig struct {
	Days       int
	Seed       int64
	StartTime  time.Time
	TankID     int
	TraceLevel trace.TraceLevel
	Progress   ProgressFunc // optional
}

// randomness is the single generator a run owns.
type randomness interface {
	NoiseSource
	EventSource
}

// Simulator owns everything one tank run needs: configs, schedules, the
// generator, the sanity pipeline and the growth bookkeeping. It is used from
// one goroutine and runs once.
type Simulator struct {
	Days      int
	Minutes   int
	Seed      int64
	StartTime time.Time
	TankID    int

	Configs   DomainConfigs
	Schedules EventSchedules
	Trace     *trace.CorrectionTrace // nil unless tracing is on

	noise    NoiseSource
	sanity   *SanityPipeline
	growth   *GrowthUpdater
	progress ProgressFunc
}

// NewSimulator validates a raw preset and builds a ready-to-run Simulator.
func NewSimulator(preset map[string]any, rc RunConfig) (*Simulator, error) {
	p, err := ValidateParameters(preset)
	if err != nil {
		return nil, err
	}
	return NewSimulatorFromParameters(p, rc)
}

// NewSimulatorFromParameters builds a Simulator from already validated parameters.
func NewSimulatorFromParameters(p *Parameters, rc RunConfig) (*Simulator, error) {
	configs, err := NewDomainConfigs(p)
	if err != nil {
		return nil, err
	}
	return newSimulator(configs, rc, NewSeededNoise(NewSimulationKey(rc.Seed)))
}

func newSimulator(configs DomainConfigs, rc RunConfig, rng randomness) (*Simulator, error) {
	var violations []string
	if rc.Days <= 0 {
		violations = append(violations, fmt.Sprintf("days: must be positive, got %d", rc.Days))
	}
	if !trace.IsValidTraceLevel(string(rc.TraceLevel)) {
		violations = append(violations, fmt.Sprintf("trace level: unknown %q; valid: none, corrections", rc.TraceLevel))
	}
	if err := newConfigurationError(violations); err != nil {
		return nil, err
	}

	minutes := rc.Days * MinutesPerDay
	schedules, err := GenerateSchedules(configs.Schedule, rc.Days, minutes, rng)
	if err != nil {
		return nil, err
	}
	tr := trace.NewCorrectionTrace(rc.TraceLevel)
	return &Simulator{
		Days:      rc.Days,
		Minutes:   minutes,
		Seed:      rc.Seed,
		StartTime: rc.StartTime,
		TankID:    rc.TankID,
		Configs:   configs,
		Schedules: schedules,
		Trace:     tr,
		noise:     rng,
		sanity:    NewSanityPipeline(configs.Sanity, rng, tr),
		growth:    NewGrowthUpdater(configs.Growth, configs.Temperature.Base),
		progress:  rc.Progress,
	}, nil
}

// InitialState is the state before minute 0.
func (sim *Simulator) InitialState() SimulationState {
	c := sim.Configs
	return SimulationState{
		Timestamp:          sim.StartTime,
		Temperature:        c.Temperature.Base,
		Salinity:           c.Salinity.Base,
		Oxygen:             c.Oxygen.Base,
		PH:                 c.PH.Base,
		FeedSpikeRemaining: 0,
		Survivors:          c.InitialN,
		Density:            calculateDensity(c.InitialN, c.VolumeL),
		CurrentWeightG:     c.Growth.InitialWeightG,
		BiomassKg:          float64(c.InitialN) * c.Growth.InitialWeightG / 1000,
	}
}

// Result is the outcome of a run.
type Result struct {
	Rows          []Row
	Termination   Termination
	HarvestMinute int // -1 unless harvested
	FinalState    SimulationState
	Summary       *Summary
}

// Run simulates until harvest or the end of the horizon.
func (sim *Simulator) Run() (*Result, error) {
	return sim.RunContext(context.Background())
}

// RunContext is Run with cancellation checked at each day boundary only.
func (sim *Simulator) RunContext(ctx context.Context) (*Result, error) {
	logrus.Infof("Starting simulation for tank %d (%d days, seed %d)", sim.TankID, sim.Days, sim.Seed)

	state := sim.InitialState()
	rows := make([]Row, 0, sim.Minutes)
	termination := TerminationExhausted
	harvestMinute := -1
	var feedKgMin float64

	for t := 0; t < sim.Minutes; t++ {
		if t%MinutesPerDay == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w at day %d: %v", ErrCancelled, t/MinutesPerDay, err)
			}
			feedKgMin = sim.growth.StartDay(&state)
			logrus.Debugf("[day %03d] survivors=%d weight=%.3fg biomass=%.3fkg feed=%.6fkg/min",
				t/MinutesPerDay+1, state.Survivors, state.CurrentWeightG, state.BiomassKg, feedKgMin)
		}

		next, raw := sim.Step(t, state, feedKgMin)
		row := sim.sanity.Apply(raw).Freeze()
		if err := row.checkFinite(); err != nil {
			return nil, err
		}

		sim.growth.Observe(row)
		rows = append(rows, row)
		state = next

		if (t+1)%MinutesPerDay == 0 {
			sim.growth.EndDay(&state)
			sim.reportProgress(t + 1)
		}

		if state.CurrentWeightG >= sim.Configs.Growth.TargetWeightG {
			termination = TerminationHarvested
			harvestMinute = t
			logrus.Infof("Target weight %gg reached at minute %d. Stopping simulation.",
				sim.Configs.Growth.TargetWeightG, t)
			break
		}
	}
	if sim.progress != nil {
		sim.progress(100)
	}
	logrus.Infof("Simulation loop complete. %d minutes generated (%s).", len(rows), termination)

	state.BiomassKg = float64(state.Survivors) * state.CurrentWeightG / 1000
	res := &Result{
		Rows:          rows,
		Termination:   termination,
		HarvestMinute: harvestMinute,
		FinalState:    state,
	}
	res.Summary = sim.summarize(res)
	return res, nil
}

func (sim *Simulator) reportProgress(minutesDone int) {
	if sim.progress == nil || sim.Minutes == 0 {
		return
	}
	sim.progress(math.Min(100, 100*float64(minutesDone)/float64(sim.Minutes)))
}
