package pricer

import (
	"math"

	"github.com/twg-quant/riskbatch/internal/apperr"
	"github.com/twg-quant/riskbatch/internal/domain"
)

// PriceAmortLoan values a level-payment amortizing loan: PV of the constant
// payment annuity implied by the loan's own coupon rate, discounted against
// the instrument currency's curve (which may differ from the loan's coupon
// rate under a bumped scenario).
func PriceAmortLoan(position domain.Position, instrument domain.Instrument, snapshot domain.MarketSnapshotPayload, measures []string, scenarioID string) (map[string]float64, error) {
	paymentsPerYear := instrument.PaymentsYear
	if paymentsPerYear <= 0 {
		paymentsPerYear = 12 // monthly default for amortizing loans
	}
	periods := int(instrument.MaturityYrs*float64(paymentsPerYear) + 0.5)
	if periods <= 0 {
		return nil, apperr.PricerError("amort loan: non-positive schedule length", nil)
	}

	loanPeriodRate := instrument.CouponRate / float64(paymentsPerYear)
	payment := levelPayment(instrument.Notional, loanPeriodRate, periods)

	corePV := func(snap domain.MarketSnapshotPayload) float64 {
		curve := snap.RatesCurves[instrument.Currency]
		cashflows := make([]float64, periods)
		for i := range cashflows {
			cashflows[i] = payment
		}
		return discountedCashflowsPV(cashflows, curve, paymentsPerYear)
	}

	basePV := corePV(snapshot)

	requested := requestedSet(measures)
	all := map[string]float64{domain.MeasurePV: basePV}

	if requested[domain.MeasureDV01] {
		v, err := dv01(snapshot, basePV, corePV)
		if err != nil {
			return nil, apperr.PricerError("amort loan: dv01 reprice", err)
		}
		all[domain.MeasureDV01] = v
	}
	if requested[domain.MeasureFXDelta] {
		v, err := fxDelta(snapshot, basePV, corePV)
		if err != nil {
			return nil, apperr.PricerError("amort loan: fx delta reprice", err)
		}
		all[domain.MeasureFXDelta] = v
	}
	if requested[domain.MeasureAccruedInterest] {
		all[domain.MeasureAccruedInterest] = instrument.Notional * loanPeriodRate
	}

	return filterMeasures(all, measures), nil
}

// levelPayment returns the constant per-period payment amortizing principal
// over n periods at periodRate. A zero rate degenerates to straight-line
// principal repayment.
func levelPayment(principal, periodRate float64, n int) float64 {
	if periodRate == 0 {
		return principal / float64(n)
	}
	factor := math.Pow(1+periodRate, float64(n))
	return principal * periodRate * factor / (factor - 1)
}
