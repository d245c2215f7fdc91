package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tank-sim/tank-sim/sim"
)

// Metadata describes an exported run.
type Metadata struct {
	GeneratedAt time.Time       `json:"generated_at"`
	JobID       string          `json:"job_id,omitempty"`
	Seed        int64           `json:"seed"`
	Days        int             `json:"days"`
	Minutes     int             `json:"minutes"`
	Rows        int             `json:"rows"`
	TankID      int             `json:"tank_id"`
	StartTime   time.Time       `json:"start_time"`
	Termination sim.Termination `json:"termination"`
	Summary     *sim.Summary    `json:"summary"`
}

// NewMetadata builds the metadata record for res.
func NewMetadata(info RunInfo, res *sim.Result, generatedAt time.Time) Metadata {
	return Metadata{
		GeneratedAt: generatedAt.UTC(),
		JobID:       info.JobID,
		Seed:        info.Seed,
		Days:        info.Days,
		Minutes:     info.Days * sim.MinutesPerDay,
		Rows:        len(res.Rows),
		TankID:      info.TankID,
		StartTime:   info.StartTime.UTC(),
		Termination: res.Termination,
		Summary:     res.Summary,
	}
}

// WriteMetadataFile writes meta to <dir>/<base>_meta.json and returns the path.
func WriteMetadataFile(dir string, info RunInfo, meta Metadata) (string, error) {
	path := filepath.Join(dir, info.BaseName()+"_meta.json")
	if err := writeJSON(path, meta); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}
	return path, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
