package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/tank-sim/tank-sim/sim"
)

// ParquetRow is one minute in the Parquet export. Column names match Columns.
type ParquetRow struct {
	TimestampUTC   time.Time `parquet:"timestamp_utc"`
	TankID         int64     `parquet:"tank_id"`
	MinuteIndex    int64     `parquet:"minute_index"`
	TemperatureC   float64   `parquet:"temperature_C"`
	SalinityPpt    float64   `parquet:"salinity_ppt"`
	OxygenMgL      float64   `parquet:"oxygen_mgL"`
	PH             float64   `parquet:"pH"`
	FeedKgMin      float64   `parquet:"feed_kg_min"`
	DensityPerL    float64   `parquet:"density_shrimp_L"`
	Survivors      int64     `parquet:"survivors"`
	Deaths         int64     `parquet:"deaths"`
	CurrentWeightG float64   `parquet:"current_weight_g"`
	BiomassKg      float64   `parquet:"biomass_kg"`
	Waterchange    bool      `parquet:"waterchange"`
	FeedSpike      bool      `parquet:"feed_spike"`
	StockAdd       int64     `parquet:"stock_add"`
}

func parquetRow(r sim.Row) ParquetRow {
	return ParquetRow{
		TimestampUTC:   r.Timestamp.UTC(),
		TankID:         int64(r.TankID),
		MinuteIndex:    int64(r.MinuteIndex),
		TemperatureC:   r.TemperatureC,
		SalinityPpt:    r.SalinityPpt,
		OxygenMgL:      r.OxygenMgL,
		PH:             r.PH,
		FeedKgMin:      r.FeedKgMin,
		DensityPerL:    r.DensityPerL,
		Survivors:      int64(r.Survivors),
		Deaths:         int64(r.Deaths),
		CurrentWeightG: r.CurrentWeightG,
		BiomassKg:      r.BiomassKg,
		Waterchange:    r.Waterchange,
		FeedSpike:      r.FeedSpike,
		StockAdd:       int64(r.StockAdd),
	}
}

// WriteParquetFile writes rows to <dir>/<base>.parquet and returns the path.
// A failed write removes the partial file.
func WriteParquetFile(dir string, info RunInfo, rows []sim.Row) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, info.BaseName()+".parquet")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create parquet: %w", err)
	}
	if err := writeParquet(f, rows); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close parquet: %w", err)
	}
	return path, nil
}

func writeParquet(f *os.File, rows []sim.Row) error {
	w := parquet.NewGenericWriter[ParquetRow](f)
	batch := make([]ParquetRow, 0, sim.MinutesPerDay)
	for _, r := range rows {
		batch = append(batch, parquetRow(r))
		if len(batch) == cap(batch) {
			if _, err := w.Write(batch); err != nil {
				return fmt.Errorf("write parquet rows: %w", err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if _, err := w.Write(batch); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish parquet: %w", err)
	}
	return nil
}
