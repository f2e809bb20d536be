package transfer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/metaphorhacker/metaphornik/internal/common"
	"github.com/metaphorhacker/metaphornik/internal/interfaces"
	"github.com/metaphorhacker/metaphornik/internal/models"
	storagebadger "github.com/metaphorhacker/metaphornik/internal/storage/badger"
)

func newTestService(t *testing.T) (*Service, interfaces.AnalysisStorage, string) {
	t.Helper()

	logger := arbor.NewLogger()
	db, err := storagebadger.NewBadgerDB(logger, &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	storage := storagebadger.NewAnalysisStorage(db, logger)
	exportDir := t.TempDir()
	svc := NewService(storage, &common.ExportConfig{Dir: exportDir}, logger)
	return svc, storage, exportDir
}

func seedAnalysis(t *testing.T, storage interfaces.AnalysisStorage, metaphor string) {
	t.Helper()
	require.NoError(t, storage.UpsertAnalysis(metaphor, models.MetaphorAnalysis{
		SourceDomain: models.Domain{Name: "Rivers", Facts: []models.Fact{{ID: "source-0", Text: "flows"}}},
		TargetDomain: models.Domain{Name: "Time", Facts: []models.Fact{{ID: "target-0", Text: "passes"}}},
		MappingSets: []models.MappingSet{
			{Name: "Flow", Mappings: []models.Mapping{{SourceFactIndex: 0, TargetFactIndex: 0}}},
		},
	}))
}

func TestExportToFile_RoundTrip(t *testing.T) {
	svc, storage, exportDir := newTestService(t)
	seedAnalysis(t, storage, "time is a river")
	require.NoError(t, storage.RecordConsequence("time is a river", 0, "## Consequences"))

	path, err := svc.ExportToFile()
	require.NoError(t, err)
	assert.Equal(t, exportDir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// The file is the camelCase metaphor-keyed shape.
	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw, "time is a river")
	assert.Contains(t, raw["time is a river"], "exploredPerspectives")

	// A fresh store imports the file back to identical content.
	dest, destStorage, _ := newTestService(t)
	count, err := dest.Import(data)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := destStorage.GetAnalysis("time is a river")
	require.NoError(t, err)
	assert.Equal(t, "## Consequences", stored.Perspective(0).LatestConsequence())
}

func TestImport_RejectsArrayShape(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Import([]byte(`[{"metaphor": "time is a river"}]`))
	assert.ErrorIs(t, err, ErrInvalidImport)
}

func TestImport_RejectsMissingAnalysis(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Import([]byte(`{"time is a river": {"metaphor": "time is a river", "exploredPerspectives": [], "timestamp": 1}}`))
	assert.ErrorIs(t, err, ErrInvalidImport)
}

func TestImport_RejectsNegativePerspectiveIndex(t *testing.T) {
	svc, storage, _ := newTestService(t)
	seedAnalysis(t, storage, "time is a river")

	entries, err := svc.Export()
	require.NoError(t, err)
	entries["time is a river"].ExploredPerspectives = []models.ExploredPerspective{
		{MappingSetIndex: -1, Consequences: []string{"text"}},
	}

	data, err := json.Marshal(entries)
	require.NoError(t, err)

	_, err = svc.Import(data)
	assert.ErrorIs(t, err, ErrInvalidImport)
}

func TestImport_NothingMergedOnRejection(t *testing.T) {
	svc, storage, _ := newTestService(t)
	seedAnalysis(t, storage, "existing")

	// One valid entry alongside one invalid one: the whole payload is
	// rejected and the valid entry is not merged either.
	valid, err := svc.Export()
	require.NoError(t, err)

	payload := map[string]json.RawMessage{}
	validJSON, err := json.Marshal(valid["existing"])
	require.NoError(t, err)
	payload["incoming"] = validJSON
	payload["broken"] = json.RawMessage(`{"metaphor": "broken", "timestamp": 1}`)

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	_, err = svc.Import(data)
	require.ErrorIs(t, err, ErrInvalidImport)

	_, err = storage.GetAnalysis("incoming")
	assert.ErrorIs(t, err, interfaces.ErrAnalysisNotFound)
}

func TestStartSnapshots_EmptyScheduleIsNoOp(t *testing.T) {
	svc, _, _ := newTestService(t)
	require.NoError(t, svc.StartSnapshots())
	svc.Stop()
}

func TestStartSnapshots_InvalidSchedule(t *testing.T) {
	svc, storage, _ := newTestService(t)
	seedAnalysis(t, storage, "time is a river")

	svc.config.Schedule = "not a schedule"
	assert.Error(t, svc.StartSnapshots())
}
