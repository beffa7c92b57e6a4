package knowledge

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hildam/printlab/entity/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "experiments.json"))
	require.NoError(t, err)
	records := []model.Experiment{
		{ExperimentID: "e1", Material: model.ExperimentMaterial{Type: "PETG"}, Result: model.ExperimentResult{Defects: []string{"warping"}}},
		{ExperimentID: "e2", Material: model.ExperimentMaterial{Type: "pla"}, Result: model.ExperimentResult{Defects: []string{"Stringing"}}},
		{ExperimentID: "e3", Material: model.ExperimentMaterial{Type: "PETG"}, Result: model.ExperimentResult{Defects: []string{"stringing"}}},
		{ExperimentID: "e4", Material: model.ExperimentMaterial{Type: "ABS"}},
		{ExperimentID: "e5", Material: model.ExperimentMaterial{Type: "petg"}},
	}
	for _, r := range records {
		_, err := s.AddExperiment(r)
		require.NoError(t, err)
	}
	return s
}

func TestMaterialGuide(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	text, ok := s.MaterialGuide("petg")
	require.True(t, ok)
	assert.Contains(t, text, "PETG (Polyethylene Terephthalate Glycol)")
	assert.Contains(t, text, "- Nozzle temperature: 230°C (range: 220-250°C)")
	assert.Contains(t, text, "- Retraction: 5mm @ 35mm/s")
	assert.Contains(t, text, "- Fan speed: 50%")

	again, _ := s.MaterialGuide(" PETG ")
	assert.Equal(t, text, again)

	_, ok = s.MaterialGuide("Nylon")
	assert.False(t, ok)
}

func TestDefectSolution_Aliases(t *testing.T) {
	s, _ := Open("")

	cases := map[string]string{
		"bed adhesion":    "First Layer Issues",
		"Sticking":        "First Layer Issues",
		"oozing":          "Stringing",
		"warp":            "Warping",
		"delamination":    "Layer Adhesion",
		"Under Extrusion": "Under Extrusion",
	}
	for in, want := range cases {
		text, ok := s.DefectSolution(in)
		require.True(t, ok, in)
		assert.Contains(t, text, "Defect: "+want, in)
	}

	text, _ := s.DefectSolution("stringing")
	assert.Contains(t, text, "1. Lower the nozzle temperature by 5-10°C")
	assert.Contains(t, text, "5. Dry the filament (50°C, 4-6 hours)")

	_, ok := s.DefectSolution("elephant foot")
	assert.False(t, ok)
}

func TestSimilarExperiments(t *testing.T) {
	s := seedStore(t)

	got := s.SimilarExperiments("PETG", "stringing", 3)
	require.Len(t, got, 3)
	// e3: 材料 + 缺陷 = 5；e2: 缺陷 = 3；e1、e5: 材料 = 2，按插入顺序取 e1
	assert.Equal(t, "e3", got[0].ExperimentID)
	assert.Equal(t, "e2", got[1].ExperimentID)
	assert.Equal(t, "e1", got[2].ExperimentID)

	all := s.SimilarExperiments("PETG", "", 10)
	ids := make([]string, 0, len(all))
	for _, e := range all {
		ids = append(ids, e.ExperimentID)
	}
	assert.Equal(t, []string{"e1", "e3", "e5"}, ids)

	assert.Empty(t, s.SimilarExperiments("", "", 3))
	assert.Empty(t, s.SimilarExperiments("Nylon", "blobs", 3))
}

func TestAddExperiment_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "experiments.json")
	s, err := Open(path)
	require.NoError(t, err)
	assert.Empty(t, s.Experiments())

	added, err := s.AddExperiment(model.Experiment{
		Printer:    "Prusa MK4",
		Material:   model.ExperimentMaterial{Type: "PLA", Brand: "Prusament"},
		Parameters: map[string]any{"nozzle_temp": 210.0},
		Result:     model.ExperimentResult{Success: true, Quality: 4},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ExperimentID)
	assert.False(t, added.CreatedAt.IsZero())

	reopened, err := Open(path)
	require.NoError(t, err)
	records := reopened.Experiments()
	require.Len(t, records, 1)
	assert.Equal(t, added.ExperimentID, records[0].ExperimentID)
	assert.Equal(t, "Prusament", records[0].Material.Brand)
	assert.Equal(t, 210.0, records[0].Parameters["nozzle_temp"])
	assert.True(t, records[0].CreatedAt.Equal(added.CreatedAt))
}

func TestAddExperiment_Invalid(t *testing.T) {
	s, _ := Open("")
	_, err := s.AddExperiment(model.Experiment{})
	assert.True(t, errors.Is(err, ErrInvalidExperiment))
	assert.Empty(t, s.Experiments())
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	s, err := Open(empty)
	require.NoError(t, err)
	assert.Empty(t, s.Experiments())

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{"), 0o644))
	_, err = Open(broken)
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	s, _ := Open("")
	assert.Equal(t, []string{"ABS", "PETG", "PLA", "TPU"}, s.Materials())
	assert.Equal(t, []string{"first_layer", "layer_adhesion", "over_extrusion", "stringing", "under_extrusion", "warping"}, s.Defects())
}
