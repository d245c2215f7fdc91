// Package export writes finished runs to disk: the CSV table, its metadata
// file, and the chunked JSON cache served by the cache server.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tank-sim/tank-sim/sim"
)

// Columns is the CSV header, in row field order.
var Columns = []string{
	"timestamp_utc",
	"tank_id",
	"minute_index",
	"temperature_C",
	"salinity_ppt",
	"oxygen_mgL",
	"pH",
	"feed_kg_min",
	"density_shrimp_L",
	"survivors",
	"deaths",
	"current_weight_g",
	"biomass_kg",
	"waterchange",
	"feed_spike",
	"stock_add",
}

// RunInfo identifies one exported run.
type RunInfo struct {
	JobID     string
	TankID    int
	Days      int
	Seed      int64
	StartTime time.Time
}

// BaseName is the file stem shared by the CSV and the metadata file.
func (ri RunInfo) BaseName() string {
	return fmt.Sprintf("tank_%d_%dd_seed%d", ri.TankID, ri.Days, ri.Seed)
}

// WriteCSV writes the header and one record per row.
func WriteCSV(w io.Writer, rows []sim.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(record(r)); err != nil {
			return fmt.Errorf("write minute %d: %w", r.MinuteIndex, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes rows to <dir>/<base>.csv and returns the path.
func WriteCSVFile(dir string, info RunInfo, rows []sim.Row) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, info.BaseName()+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	if err := WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close csv: %w", err)
	}
	return path, nil
}

func record(r sim.Row) []string {
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339),
		strconv.Itoa(r.TankID),
		strconv.Itoa(r.MinuteIndex),
		formatFloat(r.TemperatureC),
		formatFloat(r.SalinityPpt),
		formatFloat(r.OxygenMgL),
		formatFloat(r.PH),
		formatFloat(r.FeedKgMin),
		formatFloat(r.DensityPerL),
		strconv.Itoa(r.Survivors),
		strconv.Itoa(r.Deaths),
		formatFloat(r.CurrentWeightG),
		formatFloat(r.BiomassKg),
		strconv.FormatBool(r.Waterchange),
		strconv.FormatBool(r.FeedSpike),
		strconv.Itoa(r.StockAdd),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
