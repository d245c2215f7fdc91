package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tank-sim/tank-sim/sim/blob"
	"github.com/tank-sim/tank-sim/sim/jobs"
	"github.com/tank-sim/tank-sim/sim/trace"
)

var (
	// Preset selection
	presetName  string // Name of the preset inside the presets file
	presetFile  string // Standalone preset file; overrides presetName
	presetsPath string // Path of the presets file

	// Run inputs
	days       int    // Simulated days
	seed       int64  // Seed for the run's random stream
	startTime  string // Timestamp of minute 0
	tankID     int    // Tank identifier written to every row
	jobID      string // Job identifier; defaults to the output base name
	outDir     string // Directory for CSV, metadata and cache chunks
	chunkSize  int    // Rows per cache chunk
	traceLevel string // Correction trace level
	timeout    time.Duration // Simulation time limit; zero disables it

	// Collaborators
	jobDB       string // SQLite job status database; empty disables tracking
	s3Bucket    string // Upload bucket; empty disables upload
	s3Endpoint  string // S3-compatible endpoint (MinIO)
	s3Region    string // Bucket region
	s3PathStyle bool   // Path-style addressing

	uploadAttempts   int           // Attempts per uploaded file
	uploadRetryDelay time.Duration // Wait between upload attempts

	logLevel string // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "tank-sim",
	Short: "Minute-resolution shrimp tank simulator",
}

// runCmd simulates one tank and exports the result
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate one tank and export its time series",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)

		preset, err := resolvePreset(presetFile, presetsPath, presetName)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		start, err := parseStartTime(startTime)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level %q; valid: none, corrections", traceLevel)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := runOptions{
			Preset:     preset,
			Days:       days,
			Seed:       seed,
			StartTime:  start,
			TankID:     tankID,
			JobID:      jobID,
			OutDir:     outDir,
			ChunkSize:  chunkSize,
			TraceLevel: trace.TraceLevel(traceLevel),
			Timeout:    timeout,

			UploadAttempts:   uploadAttempts,
			UploadRetryDelay: uploadRetryDelay,
		}
		if jobDB != "" {
			store, err := jobs.OpenSQLite(ctx, jobDB)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			defer store.Close()
			opts.Store = store
		}
		if cfg, ok := blobConfig(s3Bucket, s3Endpoint, s3Region, s3PathStyle); ok {
			up, err := blob.New(ctx, cfg)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			opts.Uploader = up
		}

		wallStart := time.Now()
		out, err := runJob(ctx, opts)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		if err := out.Result.Summary.SaveResults(cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("%v", err)
		}
		if out.Trace != nil {
			ts := trace.Summarize(out.Trace)
			fmt.Fprintf(cmd.OutOrStdout(), "=== Correction Trace ===\nTotal corrections: %d\n", ts.TotalCorrections)
			rules := make([]string, 0, len(ts.ByRule))
			for rule := range ts.ByRule {
				rules = append(rules, rule)
			}
			sort.Strings(rules)
			for _, rule := range rules {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-22s %d (max |delta| %.4f)\n", rule, ts.ByRule[rule], ts.MaxAbsDelta[rule])
			}
		}
		logrus.Infof("Simulation complete in %s.", time.Since(wallStart).Round(time.Millisecond))
	},
}

// blobConfig layers the S3 flags over the environment. Upload is enabled when
// either one names a bucket.
func blobConfig(bucket, endpoint, region string, pathStyle bool) (blob.Config, bool) {
	cfg := blob.ConfigFromEnv()
	if bucket != "" {
		cfg.Bucket = bucket
	}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if region != "" {
		cfg.Region = region
	}
	cfg.PathStyle = cfg.PathStyle || pathStyle
	return cfg, cfg.Bucket != ""
}

// startTimeLayouts are tried in order; zone-less times are UTC.
var startTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

func parseStartTime(s string) (time.Time, error) {
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid start time %q: want RFC3339 or 2006-01-02T15:04:05", s)
}

func setLogLevel(name string) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", name)
	}
	logrus.SetLevel(level)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&presetName, "preset", "baseline", "Preset name inside the presets file")
	runCmd.Flags().StringVar(&presetFile, "preset-file", "", "Standalone preset file (YAML or JSON); overrides --preset")
	runCmd.Flags().StringVar(&presetsPath, "presets-path", "presets.yaml", "Path to the presets YAML file")

	runCmd.Flags().IntVar(&days, "days", 120, "Number of simulated days")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the run's random stream")
	runCmd.Flags().StringVar(&startTime, "start-time", "2025-01-01T00:00:00Z", "Timestamp of minute 0 (RFC3339 or 2006-01-02T15:04:05 UTC)")
	runCmd.Flags().IntVar(&tankID, "tank-id", 1, "Tank identifier")
	runCmd.Flags().StringVar(&jobID, "job-id", "", "Job identifier (default: output base name)")
	runCmd.Flags().StringVar(&outDir, "out-dir", "output", "Directory for exported files")
	runCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Rows per cache chunk (default: one day)")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Correction trace level (none, corrections)")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort the simulation after this long (0 disables)")

	runCmd.Flags().StringVar(&jobDB, "job-db", "", "SQLite database for job status (empty disables tracking)")
	runCmd.Flags().StringVar(&s3Bucket, "s3-bucket", "", "Bucket to upload results to (default $TANKSIM_BLOB_S3_BUCKET; upload is off when neither is set)")
	runCmd.Flags().StringVar(&s3Endpoint, "s3-endpoint", "", "S3-compatible endpoint URL")
	runCmd.Flags().StringVar(&s3Region, "s3-region", "", "Bucket region (default us-east-1)")
	runCmd.Flags().BoolVar(&s3PathStyle, "s3-path-style", false, "Use path-style bucket addressing")
	runCmd.Flags().IntVar(&uploadAttempts, "upload-attempts", 3, "Attempts per uploaded file")
	runCmd.Flags().DurationVar(&uploadRetryDelay, "upload-retry-delay", 2*time.Second, "Wait between upload attempts")

	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	rootCmd.AddCommand(runCmd)
}
