package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/san-kum/spotsim/internal/env"
	"github.com/san-kum/spotsim/internal/logging"
	"github.com/san-kum/spotsim/internal/rollout"
)

const (
	metadataFile = "metadata.json"
	episodesFile = "episodes.csv"
	stepsFile    = "steps.csv"
)

var ErrRunNotFound = errors.New("run not found")

type Store struct {
	fs      afero.Fs
	baseDir string
	log     *logrus.Entry
}

// New stores runs under baseDir on the OS filesystem.
func New(baseDir string) *Store {
	return NewWithFs(afero.NewOsFs(), baseDir)
}

func NewWithFs(fs afero.Fs, baseDir string) *Store {
	return &Store{fs: fs, baseDir: baseDir, log: logging.ForComponent("storage")}
}

func (s *Store) Init() error {
	return s.fs.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID          string             `json:"id"`
	Policy      string             `json:"policy"`
	Preset      string             `json:"preset,omitempty"`
	Integrator  string             `json:"integrator"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Episodes    int                `json:"episodes"`
	Workers     int                `json:"workers"`
	MeanReturn  float64            `json:"mean_return"`
	MeanLength  float64            `json:"mean_length"`
	SuccessRate float64            `json:"success_rate"`
	Outcomes    map[string]int     `json:"outcomes"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Summarize fills the aggregate fields of meta from res.
func Summarize(meta RunMetadata, res *rollout.Result) RunMetadata {
	meta.Episodes = len(res.Episodes)
	meta.MeanReturn = res.MeanReturn()
	meta.MeanLength = res.MeanLength()
	meta.SuccessRate = res.SuccessRate()
	meta.Outcomes = make(map[string]int)
	for st, n := range res.StatusCounts() {
		meta.Outcomes[st.String()] = n
	}
	meta.Metrics = make(map[string]float64)
	for _, ep := range res.Episodes {
		for k, v := range ep.Metrics {
			meta.Metrics[k] += v / float64(len(res.Episodes))
		}
	}
	return meta
}

// Save writes a new run directory and returns its id.
func (s *Store) Save(meta RunMetadata, res *rollout.Result) (string, error) {
	meta = Summarize(meta, res)
	meta.ID = uuid.NewString()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := s.fs.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := s.fs.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := s.writeCSV(filepath.Join(runDir, episodesFile), episodeRows(res.Episodes)); err != nil {
		return "", err
	}
	if len(res.Steps) > 0 {
		if err := s.writeCSV(filepath.Join(runDir, stepsFile), stepRows(res.Steps)); err != nil {
			return "", err
		}
	}

	s.log.WithFields(logrus.Fields{"run": meta.ID, "episodes": meta.Episodes}).Info("run saved")
	return meta.ID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := afero.ReadDir(s.fs, s.baseDir)
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
			s.log.WithError(err).WithField("dir", entry.Name()).Debug("skipping directory")
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
	data, err := afero.ReadFile(s.fs, filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

var episodeHeader = []string{"index", "seed", "cmd_vx", "cmd_vy", "cmd_yaw", "return", "length", "status", "success"}

func episodeRows(eps []rollout.EpisodeSummary) [][]string {
	rows := [][]string{episodeHeader}
	for _, e := range eps {
		rows = append(rows, []string{
			strconv.Itoa(e.Index),
			strconv.FormatInt(e.Seed, 10),
			formatFloat(float64(e.Command.VX)),
			formatFloat(float64(e.Command.VY)),
			formatFloat(float64(e.Command.Yaw)),
			formatFloat(e.Return),
			strconv.Itoa(e.Length),
			e.Status.String(),
			strconv.FormatBool(e.Success),
		})
	}
	return rows
}

func (s *Store) LoadEpisodes(runID string) ([]rollout.EpisodeSummary, error) {
	rows, err := s.readCSV(filepath.Join(s.baseDir, runID, episodesFile))
	if err != nil {
		return nil, err
	}

	out := make([]rollout.EpisodeSummary, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(episodeHeader) {
			return nil, fmt.Errorf("%s line %d: expected %d fields, got %d", episodesFile, i+2, len(episodeHeader), len(row))
		}
		p := parser{}
		e := rollout.EpisodeSummary{
			Index: p.int(row[0]),
			Seed:  int64(p.int(row[1])),
			Command: env.Command{
				VX:  float32(p.float(row[2])),
				VY:  float32(p.float(row[3])),
				Yaw: float32(p.float(row[4])),
			},
			Return:  p.float(row[5]),
			Length:  p.int(row[6]),
			Status:  p.status(row[7]),
			Success: p.bool(row[8]),
		}
		if p.err != nil {
			return nil, fmt.Errorf("%s line %d: %w", episodesFile, i+2, p.err)
		}
		out = append(out, e)
	}
	return out, nil
}

func stepHeader() []string {
	h := []string{"episode", "step", "time", "reward", "height", "roll", "pitch", "vx", "status"}
	for i := 0; i < env.ActionDim; i++ {
		h = append(h, fmt.Sprintf("a%d", i))
	}
	return h
}

func stepRows(steps []rollout.StepRecord) [][]string {
	rows := [][]string{stepHeader()}
	for _, st := range steps {
		row := []string{
			strconv.Itoa(st.Episode),
			strconv.Itoa(st.Step),
			formatFloat(st.Time),
			formatFloat(st.Reward),
			formatFloat(st.Height),
			formatFloat(st.Roll),
			formatFloat(st.Pitch),
			formatFloat(st.VX),
			st.Status.String(),
		}
		for _, a := range st.Action {
			row = append(row, formatFloat(float64(a)))
		}
		rows = append(rows, row)
	}
	return rows
}

// LoadSteps returns the per-step records, or nil when the run did not
// record them.
func (s *Store) LoadSteps(runID string) ([]rollout.StepRecord, error) {
	rows, err := s.readCSV(filepath.Join(s.baseDir, runID, stepsFile))
	if errors.Is(err, ErrRunNotFound) {
		if _, merr := s.Load(runID); merr != nil {
			return nil, merr
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	want := len(stepHeader())
	out := make([]rollout.StepRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) != want {
			return nil, fmt.Errorf("%s line %d: expected %d fields, got %d", stepsFile, i+2, want, len(row))
		}
		p := parser{}
		st := rollout.StepRecord{
			Episode: p.int(row[0]),
			Step:    p.int(row[1]),
			Time:    p.float(row[2]),
			Reward:  p.float(row[3]),
			Height:  p.float(row[4]),
			Roll:    p.float(row[5]),
			Pitch:   p.float(row[6]),
			VX:      p.float(row[7]),
			Status:  p.status(row[8]),
		}
		for j := range st.Action {
			st.Action[j] = float32(p.float(row[9+j]))
		}
		if p.err != nil {
			return nil, fmt.Errorf("%s line %d: %w", stepsFile, i+2, p.err)
		}
		out = append(out, st)
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (s *Store) writeCSV(path string, rows [][]string) error {
	f, err := s.fs.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

// readCSV returns the data rows without the header.
func (s *Store) readCSV(path string) ([][]string, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[1:], nil
}

// parser keeps the first conversion error.
type parser struct {
	err error
}

func (p *parser) float(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *parser) int(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *parser) bool(s string) bool {
	v, err := strconv.ParseBool(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *parser) status(s string) env.Status {
	v, ok := env.ParseStatus(s)
	if !ok && p.err == nil {
		p.err = fmt.Errorf("unknown status %q", s)
	}
	return v
}
