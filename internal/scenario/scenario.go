// Package scenario implements apply_scenario (spec §4.5): a pure function
// producing a deep, independent copy of a market snapshot with a named
// scenario's bumps applied. The original is never mutated.
package scenario

import (
	"fmt"

	"github.com/twg-quant/riskbatch/internal/domain"
)

const (
	ratesBumpBP   = 0.0001 // +1 basis point
	spreadBumpBP  = 0.0025 // +25 basis points
	fxSpotBumpPct = 1.01   // +1%
)

// Apply returns a deep copy of snap with scenarioID's bumps applied. Unknown
// scenario IDs are an InvalidInput-class error at the caller's discretion;
// Apply itself just reports it via error so callers can classify per §7.
func Apply(snap domain.MarketSnapshotPayload, scenarioID string) (domain.MarketSnapshotPayload, error) {
	out := snap.Clone()

	switch scenarioID {
	case domain.ScenarioBase, "":
		// identity
	case domain.ScenarioRatesParallel1BP:
		bumpCurves(out.RatesCurves, ratesBumpBP)
	case domain.ScenarioSpread25BP:
		bumpCurves(out.SpreadCurves, spreadBumpBP)
	case domain.ScenarioFXSpot1Pct:
		bumpFXSpots(out.FXSpots, fxSpotBumpPct)
	default:
		return domain.MarketSnapshotPayload{}, fmt.Errorf("scenario: unknown scenario id %q", scenarioID)
	}
	return out, nil
}

func bumpCurves(curves map[string]domain.RateCurve, delta float64) {
	for name, c := range curves {
		bumped := make([]float64, len(c.Nodes))
		for i, v := range c.Nodes {
			bumped[i] = v + delta
		}
		c.Nodes = bumped
		curves[name] = c
	}
}

func bumpFXSpots(spots map[string]domain.FXSpot, multiplier float64) {
	for pair, s := range spots {
		s.Spot = s.Spot * multiplier
		spots[pair] = s
	}
}
