package pricer

import (
	"github.com/twg-quant/riskbatch/internal/apperr"
	"github.com/twg-quant/riskbatch/internal/domain"
)

// PriceFXForward values a single-tenor FX forward by covered interest rate
// parity: the PV is the discounted difference between today's market
// forward rate (implied by current domestic/foreign curves and spot) and
// the rate locked into the contract at inception.
func PriceFXForward(position domain.Position, instrument domain.Instrument, snapshot domain.MarketSnapshotPayload, measures []string, scenarioID string) (map[string]float64, error) {
	if instrument.ForwardTenorYrs <= 0 {
		return nil, apperr.PricerError("fx forward: non-positive tenor", nil)
	}
	foreignCcy := foreignCurrency(instrument.FXPair, instrument.Currency)

	corePV := func(snap domain.MarketSnapshotPayload) float64 {
		spot := snap.FXSpots[instrument.FXPair].Spot
		rDom := curveRateAt(snap.RatesCurves[instrument.Currency], 0)
		rFor := curveRateAt(snap.RatesCurves[foreignCcy], 0)
		t := instrument.ForwardTenorYrs

		marketForward := spot * (1 + rDom*t) / (1 + rFor*t)
		contractForward := spot * (1 + instrument.ForwardRateDomestic*t) / (1 + instrument.ForwardRateForeign*t)
		discount := 1 / (1 + rDom*t)

		return instrument.Notional * (marketForward - contractForward) * discount
	}

	basePV := corePV(snapshot)

	requested := requestedSet(measures)
	all := map[string]float64{domain.MeasurePV: basePV}

	if requested[domain.MeasureDV01] {
		v, err := dv01(snapshot, basePV, corePV)
		if err != nil {
			return nil, apperr.PricerError("fx forward: dv01 reprice", err)
		}
		all[domain.MeasureDV01] = v
	}
	if requested[domain.MeasureFXDelta] {
		v, err := fxDelta(snapshot, basePV, corePV)
		if err != nil {
			return nil, apperr.PricerError("fx forward: fx delta reprice", err)
		}
		all[domain.MeasureFXDelta] = v
	}

	return filterMeasures(all, measures), nil
}

// foreignCurrency derives the non-domestic leg of a 6-character currency
// pair (e.g. "USDJPY" with domestic "JPY" yields "USD"). Falls back to the
// pair's first three characters if domestic doesn't match either leg.
func foreignCurrency(pair, domesticCcy string) string {
	if len(pair) != 6 {
		return pair
	}
	base, quote := pair[:3], pair[3:]
	if domesticCcy == base {
		return quote
	}
	return base
}
