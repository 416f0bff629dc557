package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Writer lays episode and run records out as CSV under a per-run
// directory named by timestamp and a short run id.
type Writer struct {
	baseDir string
	runID   string
}

func NewWriter(root string) (*Writer, error) {
	if root == "" {
		root = "runs"
	}
	runID := uuid.NewString()[:8]
	timestamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	baseDir := filepath.Join(root, timestamp+"-"+runID)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	return &Writer{baseDir: baseDir, runID: runID}, nil
}

// RunID returns the short identifier of this run.
func (w *Writer) RunID() string {
	return w.runID
}

// Dir returns the run directory.
func (w *Writer) Dir() string {
	return w.baseDir
}

// WriteEpisodes writes one row per episode.
func (w *Writer) WriteEpisodes(episodes []EpisodeMetric) error {
	path := filepath.Join(w.baseDir, "episodes.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create episodes file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"episode", "opponent", "stage", "won", "reward", "steps", "duration_ms"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write episodes header: %w", err)
	}

	for _, m := range episodes {
		row := []string{
			strconv.Itoa(m.Episode),
			m.Opponent,
			m.Stage,
			strconv.FormatBool(m.Won),
			strconv.FormatFloat(m.Reward, 'f', -1, 64),
			strconv.Itoa(m.Steps),
			strconv.FormatInt(m.Duration.Milliseconds(), 10),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write episode row: %w", err)
		}
	}

	return nil
}

// WriteRun writes the aggregate record.
func (w *Writer) WriteRun(run RunMetric) error {
	path := filepath.Join(w.baseDir, "run.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create run file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	if err := writer.Write([]string{"run_id", "episodes", "wins", "steps", "start_time", "duration"}); err != nil {
		return fmt.Errorf("failed to write run header: %w", err)
	}
	row := []string{
		w.runID,
		strconv.Itoa(run.Episodes),
		strconv.Itoa(run.Wins),
		strconv.Itoa(run.Steps),
		run.StartTime.UTC().Format(time.RFC3339),
		run.Duration.String(),
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("failed to write run row: %w", err)
	}
	return nil
}
