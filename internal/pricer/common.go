package pricer

import (
	"math"

	"github.com/twg-quant/riskbatch/internal/domain"
	"github.com/twg-quant/riskbatch/internal/scenario"
)

// curveRateAt returns the curve's rate applicable to period index i
// (0-based). Curves are modeled as a short list of tenor nodes; a position
// schedule longer than the curve repeats the last node, and an empty curve
// yields a flat zero rate. This is a deliberately simple flat/step curve
// model — the spec treats curve interpolation as out of scope (§1).
func curveRateAt(curve domain.RateCurve, i int) float64 {
	if len(curve.Nodes) == 0 {
		return 0
	}
	if i >= len(curve.Nodes) {
		i = len(curve.Nodes) - 1
	}
	return curve.Nodes[i]
}

// discountedCashflowsPV discounts a level or custom cashflow schedule against
// a currency's rate curve, periodically compounded, paymentsPerYear times a
// year.
func discountedCashflowsPV(cashflows []float64, curve domain.RateCurve, paymentsPerYear int) float64 {
	pv := 0.0
	for i, cf := range cashflows {
		rate := curveRateAt(curve, i)
		periodRate := rate / float64(paymentsPerYear)
		discount := math.Pow(1+periodRate, float64(i+1))
		pv += cf / discount
	}
	return pv
}

// repriceUnderBump re-prices corePV (a closure over the position/instrument)
// against snap after applying bumpScenario on top of it, and returns the
// bumped PV. The base PV stays with the caller.
func repriceUnderBump(snap domain.MarketSnapshotPayload, bumpScenario string, corePV func(domain.MarketSnapshotPayload) float64) (float64, error) {
	bumped, err := scenario.Apply(snap, bumpScenario)
	if err != nil {
		return 0, err
	}
	return corePV(bumped), nil
}

// dv01 computes DV01 = (PV_base - PV_bumped) / 0.0001 by re-pricing under an
// internal +1bp rates bump on top of the snapshot the pricer was invoked
// with. Not exposed as a separate task (spec §4.4). Spec §8 S6 defines DV01
// as the PV *drop* per basis point, so a bond whose PV falls when rates
// rise reports a positive DV01.
func dv01(snap domain.MarketSnapshotPayload, basePV float64, corePV func(domain.MarketSnapshotPayload) float64) (float64, error) {
	bumpedPV, err := repriceUnderBump(snap, domain.ScenarioRatesParallel1BP, corePV)
	if err != nil {
		return 0, err
	}
	return (basePV - bumpedPV) / 0.0001, nil
}

// fxDelta computes FX_DELTA = (PV_bumped - PV_base) / 0.01 by re-pricing
// under an internal +1% FX spot bump. For products with no FX-spot
// dependency this is naturally zero, since corePV ignores FX spots.
func fxDelta(snap domain.MarketSnapshotPayload, basePV float64, corePV func(domain.MarketSnapshotPayload) float64) (float64, error) {
	bumpedPV, err := repriceUnderBump(snap, domain.ScenarioFXSpot1Pct, corePV)
	if err != nil {
		return 0, err
	}
	return (bumpedPV - basePV) / 0.01, nil
}
