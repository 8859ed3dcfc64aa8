package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twg-quant/riskbatch/internal/domain"
)

func TestValidateRunRequest(t *testing.T) {
	base := domain.RunRequest{
		RunID:            "run-1",
		MarketSnapshotID: "snap-1",
		Measures:         []string{domain.MeasurePV},
		PortfolioScope:   []string{"node-1"},
	}
	assert.NoError(t, validateRunRequest(base))

	missingRunID := base
	missingRunID.RunID = ""
	assert.Error(t, validateRunRequest(missingRunID))

	missingSnapshot := base
	missingSnapshot.MarketSnapshotID = ""
	assert.Error(t, validateRunRequest(missingSnapshot))

	emptyMeasures := base
	emptyMeasures.Measures = nil
	assert.Error(t, validateRunRequest(emptyMeasures))

	emptyScope := base
	emptyScope.PortfolioScope = nil
	assert.Error(t, validateRunRequest(emptyScope))
}

func TestPartition_GroupsByProductTypeAndBucket(t *testing.T) {
	req := domain.RunRequest{
		RunID:            "run-1",
		MarketSnapshotID: "snap-1",
		Measures:         []string{domain.MeasurePV},
		Scenarios:        []string{domain.ScenarioBase},
		Execution:        domain.RunExecution{HashMod: 1},
	}
	positions := []domain.Position{
		{PositionID: "p1", ProductType: domain.ProductFixedBond},
		{PositionID: "p2", ProductType: domain.ProductFixedBond},
		{PositionID: "p3", ProductType: domain.ProductFixedBond},
		{PositionID: "p4", ProductType: domain.ProductFXForward},
		{PositionID: "p5", ProductType: domain.ProductFXForward},
	}

	tasks := partition(req, positions)

	// hash_mod=1 means every bucket is 0, so grouping collapses to one task
	// per distinct product_type (spec S2's "exactly 2 tasks" scenario).
	require.Len(t, tasks, 2)
	total := 0
	for _, task := range tasks {
		total += len(task.Positions)
		assert.Equal(t, req.RunID, task.RunID)
		assert.Equal(t, req.MarketSnapshotID, task.MarketSnapshotID)
	}
	assert.Equal(t, 5, total)
}

func TestPartition_HashModSplitsBuckets(t *testing.T) {
	req := domain.RunRequest{
		RunID:     "run-1",
		Measures:  []string{domain.MeasurePV},
		Scenarios: []string{domain.ScenarioBase},
		Execution: domain.RunExecution{HashMod: 8},
	}
	positions := make([]domain.Position, 0, 20)
	for i := 0; i < 20; i++ {
		positions = append(positions, domain.Position{
			PositionID:  "pos-" + string(rune('a'+i)),
			ProductType: domain.ProductFixedBond,
		})
	}

	tasks := partition(req, positions)
	assert.Greater(t, len(tasks), 1, "a hash_mod > 1 should split positions across multiple buckets")

	seen := 0
	for _, task := range tasks {
		seen += len(task.Positions)
	}
	assert.Equal(t, 20, seen, "partition must not drop or duplicate positions")
}

func TestLoadPositionsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "positions.json")
	positions := []domain.Position{
		{PositionID: "p1", ProductType: domain.ProductFixedBond, PortfolioNodeID: "node-1"},
	}
	raw, err := json.Marshal(positions)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	loaded, err := loadPositionsFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, positions, loaded)
}

func TestLoadPositionsFromFile_MissingPath(t *testing.T) {
	_, err := loadPositionsFromFile("")
	assert.Error(t, err)
}

func TestLoadPositionsFromFile_NotFound(t *testing.T) {
	_, err := loadPositionsFromFile("/nonexistent/positions.json")
	assert.Error(t, err)
}
