package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tank-sim/tank-sim/sim"
	"github.com/tank-sim/tank-sim/sim/blob"
	"github.com/tank-sim/tank-sim/sim/export"
	"github.com/tank-sim/tank-sim/sim/jobs"
	"github.com/tank-sim/tank-sim/sim/trace"
)

// uploader is the subset of blob.S3Uploader the pipeline needs.
type uploader interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}

// runOptions is everything one tank job needs, already parsed from flags.
type runOptions struct {
	Preset     map[string]any
	Days       int
	Seed       int64
	StartTime  time.Time
	TankID     int
	JobID      string
	OutDir     string
	ChunkSize  int
	TraceLevel trace.TraceLevel

	// Timeout bounds the simulation; zero means no limit.
	Timeout time.Duration

	Store    jobs.Store // nil disables status tracking
	Uploader uploader   // nil disables upload

	UploadAttempts   int           // per file; values below 1 mean a single attempt
	UploadRetryDelay time.Duration // wait between attempts
}

// runOutcome collects the artifacts of a finished job.
type runOutcome struct {
	Result   *sim.Result
	Trace    *trace.CorrectionTrace
	CSVPath  string
	MetaPath string
	Index    export.ChunkIndex
	// ParquetPath is empty when the optional Parquet copy could not be written.
	ParquetPath string
	ResultURL   string
	Job         jobs.Job
}

// progressBuffer is the capacity of the channel between the simulation and
// the job store; updates beyond it are dropped rather than slowing the run.
const progressBuffer = 64

// runJob simulates one tank, exports the result, and optionally uploads it,
// recording every phase in the job store when one is configured.
func runJob(ctx context.Context, opts runOptions) (*runOutcome, error) {
	info := export.RunInfo{
		JobID:     opts.JobID,
		TankID:    opts.TankID,
		Days:      opts.Days,
		Seed:      opts.Seed,
		StartTime: opts.StartTime,
	}
	if info.JobID == "" {
		info.JobID = info.BaseName()
	}
	if !export.ValidJobID(info.JobID) {
		return nil, fmt.Errorf("invalid job id %q: use letters, digits, '.', '_' or '-'", info.JobID)
	}

	simCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		simCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	// Status writes outlive the run's cancellation so a cancelled job is
	// still recorded as such.
	storeCtx := context.WithoutCancel(ctx)
	var tracker *jobs.Tracker
	if opts.Store != nil {
		t, err := jobs.NewTracker(storeCtx, opts.Store, info.JobID, info.TankID)
		if err != nil {
			return nil, fmt.Errorf("register job: %w", err)
		}
		tracker = t
	}
	fail := func(status jobs.Status, err error) (*runOutcome, error) {
		if tracker != nil {
			if ferr := tracker.Fail(storeCtx, status, err); ferr != nil {
				logrus.Warnf("job %s: record failure: %v", info.JobID, ferr)
			}
		}
		return nil, err
	}
	advance := func(status jobs.Status, progress float64) {
		if tracker == nil {
			return
		}
		if err := tracker.Advance(storeCtx, status, progress); err != nil {
			logrus.Warnf("job %s: record %s: %v", info.JobID, status, err)
		}
	}

	rc := sim.RunConfig{
		Days:       opts.Days,
		Seed:       opts.Seed,
		StartTime:  opts.StartTime,
		TankID:     opts.TankID,
		TraceLevel: opts.TraceLevel,
	}
	var (
		progress chan float64
		drained  chan struct{}
	)
	if tracker != nil {
		progress = make(chan float64, progressBuffer)
		drained = make(chan struct{})
		rc.Progress = func(p float64) {
			select {
			case progress <- p:
			default:
			}
		}
		go func() {
			defer close(drained)
			for p := range progress {
				if err := tracker.SimulationProgress(storeCtx, p); err != nil {
					logrus.Warnf("job %s: record progress: %v", info.JobID, err)
				}
			}
		}()
	}

	s, err := sim.NewSimulator(opts.Preset, rc)
	if err != nil {
		if progress != nil {
			close(progress)
			<-drained
		}
		return fail(jobs.StatusError, err)
	}
	advance(jobs.StatusStartSimulation, 0)
	res, err := s.RunContext(simCtx)
	if progress != nil {
		close(progress)
		<-drained
	}
	if err != nil {
		if errors.Is(err, sim.ErrCancelled) {
			if ctx.Err() == nil && errors.Is(simCtx.Err(), context.DeadlineExceeded) {
				return fail(jobs.StatusTimeout, err)
			}
			return fail(jobs.StatusCancelled, err)
		}
		return fail(jobs.StatusError, err)
	}

	out := &runOutcome{Result: res, Trace: s.Trace}

	advance(jobs.StatusGeneratingFiles, jobs.ProgressFilesStarted)
	if out.CSVPath, err = export.WriteCSVFile(opts.OutDir, info, res.Rows); err != nil {
		return fail(jobs.StatusError, err)
	}
	if out.ParquetPath, err = export.WriteParquetFile(opts.OutDir, info, res.Rows); err != nil {
		logrus.Warnf("job %s: skipping parquet export: %v", info.JobID, err)
	}
	meta := export.NewMetadata(info, res, time.Now())
	if out.MetaPath, err = export.WriteMetadataFile(opts.OutDir, info, meta); err != nil {
		return fail(jobs.StatusError, err)
	}
	if out.Index, err = export.WriteChunks(opts.OutDir, info, res.Rows, opts.ChunkSize); err != nil {
		return fail(jobs.StatusError, err)
	}
	logrus.Infof("Wrote %s, %s and %d cache chunks", out.CSVPath, out.MetaPath, out.Index.Chunks)
	advance(jobs.StatusGeneratingFiles, jobs.ProgressChunksWritten)
	if tracker != nil {
		if err := tracker.SetURLs(storeCtx, fmt.Sprintf("/cache/%s/metadata", info.JobID), ""); err != nil {
			logrus.Warnf("job %s: record cache url: %v", info.JobID, err)
		}
	}

	if opts.Uploader != nil {
		advance(jobs.StatusPreparingUpload, jobs.ProgressUploadPrep)
		if err := blob.CheckFiles(out.CSVPath, out.MetaPath); err != nil {
			return fail(jobs.StatusUploadFailed, err)
		}
		advance(jobs.StatusQueuedForUpload, jobs.ProgressUploadPrep)
		advance(jobs.StatusUploading, jobs.ProgressUploadStart)
		csvURL, err := uploadWithRetry(ctx, opts, advance, out.CSVPath, blob.ObjectKey(info.JobID, info.TankID, "output.csv"))
		if err != nil {
			return fail(jobs.StatusUploadFailed, err)
		}
		advance(jobs.StatusUploading, (jobs.ProgressUploadStart+jobs.ProgressUploadEnd)/2)
		if _, err := uploadWithRetry(ctx, opts, advance, out.MetaPath, blob.ObjectKey(info.JobID, info.TankID, "meta.json")); err != nil {
			return fail(jobs.StatusUploadFailed, err)
		}
		advance(jobs.StatusValidatingUpload, jobs.ProgressUploadEnd)
		advance(jobs.StatusUploadCompleted, jobs.ProgressUploadEnd)
		out.ResultURL = csvURL
		if tracker != nil {
			if err := tracker.SetURLs(storeCtx, "", csvURL); err != nil {
				logrus.Warnf("job %s: record result url: %v", info.JobID, err)
			}
		}
	}

	advance(jobs.StatusCompleted, jobs.ProgressDone)
	if tracker != nil {
		out.Job = tracker.Job()
	}
	return out, nil
}

// uploadWithRetry tries one file up to opts.UploadAttempts times, recording
// upload-retrying between attempts. It returns the last error.
func uploadWithRetry(ctx context.Context, opts runOptions, advance func(jobs.Status, float64), localPath, key string) (string, error) {
	attempts := max(1, opts.UploadAttempts)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var url string
		if url, err = opts.Uploader.Upload(ctx, localPath, key); err == nil {
			return url, nil
		}
		if attempt == attempts {
			break
		}
		logrus.Warnf("upload %s (attempt %d/%d): %v", key, attempt, attempts, err)
		advance(jobs.StatusUploadRetrying, jobs.ProgressUploadStart)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(opts.UploadRetryDelay):
		}
		advance(jobs.StatusUploading, jobs.ProgressUploadStart)
	}
	return "", err
}
