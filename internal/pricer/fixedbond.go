package pricer

import (
	"github.com/twg-quant/riskbatch/internal/apperr"
	"github.com/twg-quant/riskbatch/internal/domain"
)

// PriceFixedBond values a fixed-coupon bullet bond via discounted cashflows
// against the instrument currency's rate curve.
func PriceFixedBond(position domain.Position, instrument domain.Instrument, snapshot domain.MarketSnapshotPayload, measures []string, scenarioID string) (map[string]float64, error) {
	paymentsPerYear := instrument.PaymentsYear
	if paymentsPerYear <= 0 {
		paymentsPerYear = 2 // semiannual default, matching S1's worked example
	}
	periods := int(instrument.MaturityYrs*float64(paymentsPerYear) + 0.5)
	if periods <= 0 {
		return nil, apperr.PricerError("fixed bond: non-positive schedule length", nil)
	}

	corePV := func(snap domain.MarketSnapshotPayload) float64 {
		curve := snap.RatesCurves[instrument.Currency]
		couponPerPeriod := instrument.Notional * instrument.CouponRate / float64(paymentsPerYear)
		cashflows := make([]float64, periods)
		for i := 0; i < periods; i++ {
			cashflows[i] = couponPerPeriod
		}
		cashflows[periods-1] += instrument.Notional // redemption
		return discountedCashflowsPV(cashflows, curve, paymentsPerYear)
	}

	basePV := corePV(snapshot)

	requested := requestedSet(measures)
	all := map[string]float64{domain.MeasurePV: basePV}

	if requested[domain.MeasureDV01] {
		v, err := dv01(snapshot, basePV, corePV)
		if err != nil {
			return nil, apperr.PricerError("fixed bond: dv01 reprice", err)
		}
		all[domain.MeasureDV01] = v
	}
	if requested[domain.MeasureFXDelta] {
		v, err := fxDelta(snapshot, basePV, corePV)
		if err != nil {
			return nil, apperr.PricerError("fixed bond: fx delta reprice", err)
		}
		all[domain.MeasureFXDelta] = v
	}
	if requested[domain.MeasureAccruedInterest] {
		// Half-period accrual approximation: no settle-date tracking in the
		// MVP position payload, so accrued interest assumes mid-period.
		couponPerPeriod := instrument.Notional * instrument.CouponRate / float64(paymentsPerYear)
		all[domain.MeasureAccruedInterest] = couponPerPeriod / 2
	}

	return filterMeasures(all, measures), nil
}
