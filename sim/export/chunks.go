package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/tank-sim/tank-sim/sim"
)

// DefaultChunkSize is one simulated day per chunk.
const DefaultChunkSize = sim.MinutesPerDay

// ChunkIndex is written as index.json next to the chunks.
type ChunkIndex struct {
	JobID     string   `json:"job_id"`
	TankID    int      `json:"tank_id"`
	TotalRows int      `json:"total_rows"`
	ChunkSize int      `json:"chunk_size"`
	Chunks    int      `json:"chunks"`
	Columns   []string `json:"columns"`
	Files     []string `json:"files"`
}

var jobIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ValidJobID reports whether id is safe to use as a path component.
func ValidJobID(id string) bool {
	return jobIDPattern.MatchString(id) && id != "." && id != ".."
}

// CacheDir is <outDir>/tank_<id>/<jobID>_cache.
func CacheDir(outDir string, tankID int, jobID string) string {
	return filepath.Join(outDir, fmt.Sprintf("tank_%d", tankID), jobID+"_cache")
}

// ChunkFile is the file name of chunk n.
func ChunkFile(n int) string {
	return fmt.Sprintf("chunk_%d.json", n)
}

// WriteChunks splits rows into JSON arrays of at most chunkSize rows and
// writes them with an index under CacheDir. A non-positive chunkSize uses
// DefaultChunkSize.
func WriteChunks(outDir string, info RunInfo, rows []sim.Row, chunkSize int) (ChunkIndex, error) {
	if !ValidJobID(info.JobID) {
		return ChunkIndex{}, errors.New("chunk cache needs a job id of letters, digits, '.', '_' or '-'")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	dir := CacheDir(outDir, info.TankID, info.JobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ChunkIndex{}, fmt.Errorf("create cache dir: %w", err)
	}

	idx := ChunkIndex{
		JobID:     info.JobID,
		TankID:    info.TankID,
		TotalRows: len(rows),
		ChunkSize: chunkSize,
		Columns:   Columns,
	}
	for start, n := 0, 0; start < len(rows); start, n = start+chunkSize, n+1 {
		end := min(start+chunkSize, len(rows))
		name := ChunkFile(n)
		if err := writeJSON(filepath.Join(dir, name), rows[start:end]); err != nil {
			return ChunkIndex{}, fmt.Errorf("write %s: %w", name, err)
		}
		idx.Files = append(idx.Files, name)
	}
	idx.Chunks = len(idx.Files)
	if err := writeJSON(filepath.Join(dir, "index.json"), idx); err != nil {
		return ChunkIndex{}, fmt.Errorf("write index: %w", err)
	}
	return idx, nil
}

// FindCacheDir looks for <jobID>_cache under every tank folder of outDir.
func FindCacheDir(outDir, jobID string) (string, bool) {
	if !ValidJobID(jobID) {
		return "", false
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(outDir, e.Name(), jobID+"_cache")
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return dir, true
		}
	}
	return "", false
}
