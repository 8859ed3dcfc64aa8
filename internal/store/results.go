package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twg-quant/riskbatch/internal/apperr"
	"github.com/twg-quant/riskbatch/internal/domain"
)

// NewValuationResultRecord builds the storage row for a computed result,
// denormalizing the grouping attributes the cube (spec §4.6) needs.
func NewValuationResultRecord(payload domain.ValuationResultPayload, productType, portfolioNodeID, currency string) (ValuationResultRecord, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return ValuationResultRecord{}, apperr.Internal("marshal valuation result", err)
	}
	return ValuationResultRecord{
		RunID:           payload.RunID,
		PositionID:      payload.PositionID,
		ScenarioID:      payload.ScenarioID,
		ProductType:     productType,
		PortfolioNodeID: portfolioNodeID,
		Currency:        currency,
		Payload:         raw,
	}, nil
}

// groupByColumns whitelists the group_by values spec §4.6 supports,
// mapping them to real column names to avoid building SQL from user input.
var groupByColumns = map[string]string{
	"product_type":      "product_type",
	"portfolio_node_id": "portfolio_node_id",
	"currency":          "currency",
}

// Summary implements spec §4.6 "Summary": row count and PV sum for
// (run_id, scenario_id). Missing PV counts as zero.
func (s *Store) Summary(ctx context.Context, runID, scenarioID string) (rows int64, pvSum float64, err error) {
	var results []ValuationResultRecord
	q := s.db.WithContext(ctx).Where("run_id = ?", runID)
	if scenarioID != "" {
		q = q.Where("scenario_id = ?", scenarioID)
	}
	if err := q.Find(&results).Error; err != nil {
		return 0, 0, apperr.Internal("summary query", err)
	}
	for _, r := range results {
		var payload domain.ValuationResultPayload
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			return 0, 0, apperr.Internal("decode valuation result", err)
		}
		pvSum += payload.Measures[domain.MeasurePV] // zero value if absent
	}
	return int64(len(results)), pvSum, nil
}

// CubeRow is one grouped aggregate from Cube.
type CubeRow struct {
	Key   string
	Value float64
}

// Cube implements spec §4.6 "Cube": sum of `measure` across matching rows,
// grouped by group_by (one of product_type, portfolio_node_id, currency).
func (s *Store) Cube(ctx context.Context, runID, measure, groupBy, scenarioID string) ([]CubeRow, error) {
	if _, ok := groupByColumns[groupBy]; !ok {
		return nil, apperr.InvalidInput(fmt.Sprintf("unsupported group_by %q", groupBy))
	}

	var results []ValuationResultRecord
	q := s.db.WithContext(ctx).Where("run_id = ?", runID)
	if scenarioID != "" {
		q = q.Where("scenario_id = ?", scenarioID)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, apperr.Internal("cube query", err)
	}

	sums := make(map[string]float64)
	keys := make([]string, 0)
	for _, r := range results {
		var payload domain.ValuationResultPayload
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			return nil, apperr.Internal("decode valuation result", err)
		}
		key := groupKey(r, groupBy)
		if _, seen := sums[key]; !seen {
			keys = append(keys, key)
		}
		sums[key] += payload.Measures[measure]
	}

	rows := make([]CubeRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, CubeRow{Key: k, Value: sums[k]})
	}
	return rows, nil
}

func groupKey(r ValuationResultRecord, groupBy string) string {
	switch groupBy {
	case "product_type":
		return r.ProductType
	case "portfolio_node_id":
		return r.PortfolioNodeID
	case "currency":
		return r.Currency
	default:
		return ""
	}
}

// PositionResults returns every result row for one position across all
// scenarios in a run (SPEC_FULL §4.6.1 audit endpoint).
func (s *Store) PositionResults(ctx context.Context, runID, positionID string) ([]domain.ValuationResultPayload, error) {
	var results []ValuationResultRecord
	err := s.db.WithContext(ctx).Where("run_id = ? AND position_id = ?", runID, positionID).Find(&results).Error
	if err != nil {
		return nil, apperr.Internal("position results query", err)
	}
	out := make([]domain.ValuationResultPayload, 0, len(results))
	for _, r := range results {
		var payload domain.ValuationResultPayload
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			return nil, apperr.Internal("decode valuation result", err)
		}
		out = append(out, payload)
	}
	return out, nil
}
