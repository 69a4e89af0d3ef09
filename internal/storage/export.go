package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/san-kum/spotsim/internal/rollout"
)

type ExportData struct {
	Run      RunMetadata              `json:"run"`
	Episodes []rollout.EpisodeSummary `json:"episodes"`
	Steps    []exportStep             `json:"steps,omitempty"`
}

type exportStep struct {
	Episode int       `json:"episode"`
	Step    int       `json:"step"`
	Time    float64   `json:"time"`
	Reward  float64   `json:"reward"`
	Height  float64   `json:"height"`
	Status  string    `json:"status"`
	Action  []float32 `json:"action"`
}

// ExportJSON writes a run with its episodes and steps as one document.
// Non-finite step heights are exported as zero.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	eps, err := s.LoadEpisodes(runID)
	if err != nil {
		return err
	}
	steps, err := s.LoadSteps(runID)
	if err != nil {
		return err
	}

	data := ExportData{Run: *meta, Episodes: eps}
	for _, st := range steps {
		h := st.Height
		if h != h {
			h = 0
		}
		data.Steps = append(data.Steps, exportStep{
			Episode: st.Episode,
			Step:    st.Step,
			Time:    st.Time,
			Reward:  st.Reward,
			Height:  h,
			Status:  st.Status.String(),
			Action:  st.Action[:],
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV writes the episode table of a run.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	eps, err := s.LoadEpisodes(runID)
	if err != nil {
		return err
	}
	return csv.NewWriter(w).WriteAll(episodeRows(eps))
}
