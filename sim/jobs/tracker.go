package jobs

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Progress checkpoints for the phases after the simulation itself. The
// simulation occupies 0..SimulationShare.
const (
	SimulationShare       = 70.0
	ProgressFilesStarted  = 70.0
	ProgressChunksWritten = 85.0
	ProgressUploadPrep    = 90.0
	ProgressUploadStart   = 96.0
	ProgressUploadEnd     = 99.0
	ProgressDone          = 100.0
)

// Tracker owns one job record and writes every transition to a Store.
// Progress never moves backwards.
type Tracker struct {
	store Store
	job   Job
}

// NewTracker registers job as validating at 0%.
func NewTracker(ctx context.Context, store Store, id string, tankID int) (*Tracker, error) {
	t := &Tracker{store: store, job: Job{ID: id, TankID: tankID, Status: StatusValidating}}
	if err := store.Register(ctx, t.job); err != nil {
		return nil, err
	}
	return t, nil
}

// Job returns the tracker's current view of the record.
func (t *Tracker) Job() Job {
	return t.job
}

// Advance moves the job to status at progress.
func (t *Tracker) Advance(ctx context.Context, status Status, progress float64) error {
	if progress < t.job.Progress {
		progress = t.job.Progress
	}
	t.job.Status = status
	t.job.Progress = min(progress, ProgressDone)
	logrus.Debugf("job %s: %s %.1f%%", t.job.ID, status, t.job.Progress)
	return t.store.Update(ctx, t.job)
}

// SimulationProgress records a run percentage scaled into the simulation share.
func (t *Tracker) SimulationProgress(ctx context.Context, percent float64) error {
	return t.Advance(ctx, StatusRunning, percent*SimulationShare/100)
}

// SetURLs records where the cache and the uploaded result can be fetched.
func (t *Tracker) SetURLs(ctx context.Context, cacheURL, resultURL string) error {
	if cacheURL != "" {
		t.job.CacheURL = cacheURL
	}
	if resultURL != "" {
		t.job.ResultURL = resultURL
	}
	return t.store.Update(ctx, t.job)
}

// Fail moves the job to a failure status with the error message attached.
func (t *Tracker) Fail(ctx context.Context, status Status, cause error) error {
	if !status.IsTerminal() {
		return fmt.Errorf("fail job %s: %s is not a terminal status", t.job.ID, status)
	}
	t.job.Status = status
	if cause != nil {
		t.job.Error = cause.Error()
	}
	logrus.Warnf("job %s: %s: %v", t.job.ID, status, cause)
	return t.store.Update(ctx, t.job)
}
