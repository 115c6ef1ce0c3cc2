package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/crowdsim/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

var ErrMalformedRun = errors.New("storage: malformed run")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunInfo describes the scenario a result came from.
type RunInfo struct {
	Name     string
	Seed     int64
	Dt       float64
	Duration float64
	Walls    []dynamo.Wall
	Digest   string
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	AgentCount int                `json:"agent_count"`
	WallCount  int                `json:"wall_count"`
	Steps      int                `json:"steps"`
	Arrived    bool               `json:"arrived"`
	Digest     string             `json:"config_digest,omitempty"`
	Walls      []dynamo.Wall      `json:"walls"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes result under a fresh run directory and returns its ID.
func (s *Store) Save(info RunInfo, result *dynamo.Result) (string, error) {
	runID := fmt.Sprintf("%s_%s", info.Name, uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	agents := 0
	if len(result.Frames) > 0 {
		agents = len(result.Frames[0].Agents)
	}
	meta := RunMetadata{
		ID:         runID,
		Name:       info.Name,
		Timestamp:  time.Now(),
		Seed:       info.Seed,
		Dt:         info.Dt,
		Duration:   info.Duration,
		AgentCount: agents,
		WallCount:  len(info.Walls),
		Steps:      result.StepsTaken,
		Arrived:    result.Arrived,
		Digest:     info.Digest,
		Walls:      info.Walls,
		Metrics:    result.Metrics,
	}

	if err := writeMetadata(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := WriteFrames(f, result.Frames); err != nil {
		return "", err
	}
	return runID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// WriteFrames writes one CSV row per frame: time, then x, y, vx, vy of every
// agent in order.
func WriteFrames(out io.Writer, frames []dynamo.Frame) error {
	w := csv.NewWriter(out)

	if len(frames) == 0 {
		w.Flush()
		return w.Error()
	}

	n := len(frames[0].Agents)
	header := make([]string, 0, 1+4*n)
	header = append(header, "time")
	for i := 0; i < n; i++ {
		header = append(header,
			fmt.Sprintf("a%d_x", i), fmt.Sprintf("a%d_y", i),
			fmt.Sprintf("a%d_vx", i), fmt.Sprintf("a%d_vy", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, 0, len(header))
	for _, f := range frames {
		if len(f.Agents) != n {
			return fmt.Errorf("frame at t=%g has %d agents, want %d: %w", f.Time, len(f.Agents), n, dynamo.ErrDimensionMismatch)
		}
		row = append(row[:0], formatFloat(f.Time))
		for _, a := range f.Agents {
			row = append(row,
				formatFloat(a.Position.X), formatFloat(a.Position.Y),
				formatFloat(a.Velocity.X), formatFloat(a.Velocity.Y))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns the metadata of every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", runID, ErrMalformedRun, err)
	}
	return &meta, nil
}

func (s *Store) LoadFrames(runID string) ([]dynamo.Frame, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	frames, err := ReadFrames(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return frames, nil
}

// ReadFrames parses the format written by WriteFrames.
func ReadFrames(in io.Reader) ([]dynamo.Frame, error) {
	r := csv.NewReader(in)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRun, err)
	}
	if len(records) < 2 {
		return []dynamo.Frame{}, nil
	}

	cols := len(records[0])
	if cols < 1 || (cols-1)%4 != 0 {
		return nil, fmt.Errorf("%w: %d columns", ErrMalformedRun, cols)
	}
	n := (cols - 1) / 4

	frames := make([]dynamo.Frame, 0, len(records)-1)
	for line, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %v", ErrMalformedRun, line+1, j, err)
			}
			vals[j] = v
		}

		frame := dynamo.Frame{Time: vals[0], Agents: make([]dynamo.AgentState, n)}
		for i := 0; i < n; i++ {
			o := 1 + 4*i
			frame.Agents[i] = dynamo.AgentState{
				Position: dynamo.V(vals[o], vals[o+1]),
				Velocity: dynamo.V(vals[o+2], vals[o+3]),
			}
		}
		frames = append(frames, frame)
	}
	return frames, nil
}
