package dataset

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gwforge/gwforge/internal/datafile"
	"github.com/gwforge/gwforge/internal/ioutil"
)

// Manifest records one generation run next to the dataset it produced, so
// a dataset on disk is never divorced from the settings that made it.
type Manifest struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Dataset   string    `json:"dataset"`

	Domain string  `json:"domain"`
	NGrid  int     `json:"n_grid"`
	Step   float64 `json:"step"`
	TCoal  float64 `json:"t_coal,omitempty"`

	Ranges []manifestRange `json:"ranges"`
	Stats  Stats           `json:"stats"`

	// Config echoes the builder configuration verbatim.
	Config any `json:"config"`
}

type manifestRange struct {
	Name string  `json:"name"`
	Lo   float64 `json:"lo"`
	Hi   float64 `json:"hi"`
}

// NewManifest assembles a manifest for a finished run. cfg should be the
// TDConfig or FDConfig the builder ran with.
func NewManifest(datasetPath string, hdr datafile.Header, stats Stats, cfg any) Manifest {
	ranges := make([]manifestRange, 0, len(hdr.Ranges))
	for _, r := range hdr.Ranges {
		ranges = append(ranges, manifestRange{Name: r.Name, Lo: r.Lo, Hi: r.Hi})
	}
	return Manifest{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Dataset:   datasetPath,
		Domain:    hdr.Domain,
		NGrid:     hdr.NGrid,
		Step:      hdr.Step,
		TCoal:     hdr.TCoal,
		Ranges:    ranges,
		Stats:     stats,
		Config:    cfg,
	}
}

// ManifestPath is where a dataset's manifest lives.
func ManifestPath(datasetPath string) string {
	return datasetPath + ".manifest.json"
}

// Write persists the manifest atomically next to the dataset.
func (m Manifest) Write() error {
	if err := ioutil.WriteJSONAtomic(ManifestPath(m.Dataset), m); err != nil {
		return fmt.Errorf("dataset: write manifest: %w", err)
	}
	return nil
}
