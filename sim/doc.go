// Package sim provides the minute-resolution tank simulation engine.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - params.go: the preset schema and ValidateParameters
//   - config.go: validated parameters mapped onto per-concern config groups
//   - step.go: one simulated minute (environment, feed, mortality)
//   - simulator.go: the run loop with day-boundary growth and harvest check
//
// # Determinism
//
// A run owns exactly one SeededNoise derived from its seed. Event schedules
// (schedule.go) are drawn first, then every minute draws its noise in a fixed
// order, then the sanity pipeline (sanity.go) draws for the rules that fire.
// Same preset, seed, days and start time give identical rows.
//
// # Day boundaries
//
// Biomass and the day's feed rate are set at the first minute of each day;
// mean weight is updated after the last minute (growth.go). The run stops at
// the first day boundary where the weight reaches the target.
//
// Sub-packages:
//   - sim/trace/: sanity-correction trace recording
//   - sim/export/: CSV, metadata and cache-chunk writers for finished runs
//   - sim/jobs/: job status tracking backed by SQLite
//   - sim/blob/: S3-compatible upload of exported files
package sim
