package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twg-quant/riskbatch/internal/domain"
)

func TestNewValuationResultRecord(t *testing.T) {
	payload := domain.ValuationResultPayload{
		RunID:      "run-1",
		PositionID: "pos-1",
		ScenarioID: domain.ScenarioBase,
		Measures:   map[string]float64{domain.MeasurePV: 100.5},
		InputHash:  "deadbeef",
	}

	rec, err := NewValuationResultRecord(payload, domain.ProductFixedBond, "node-1", "USD")
	require.NoError(t, err)
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "pos-1", rec.PositionID)
	assert.Equal(t, domain.ScenarioBase, rec.ScenarioID)
	assert.Equal(t, domain.ProductFixedBond, rec.ProductType)
	assert.Equal(t, "node-1", rec.PortfolioNodeID)
	assert.Equal(t, "USD", rec.Currency)
	assert.Contains(t, string(rec.Payload), `"PV":100.5`)
}

func TestGroupKey(t *testing.T) {
	rec := ValuationResultRecord{ProductType: "FIXED_BOND", PortfolioNodeID: "node-1", Currency: "USD"}
	assert.Equal(t, "FIXED_BOND", groupKey(rec, "product_type"))
	assert.Equal(t, "node-1", groupKey(rec, "portfolio_node_id"))
	assert.Equal(t, "USD", groupKey(rec, "currency"))
	assert.Equal(t, "", groupKey(rec, "unknown"))
}
